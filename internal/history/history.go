// Package history records finished tasks and their steps in a local
// sqlite database, queried by the history subcommand.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"go.uber.org/zap"
)

// TaskRecord is one task row plus its ordered steps.
type TaskRecord struct {
	ID         string
	Request    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepRecord
}

// StepRecord is one executed step of a task.
type StepRecord struct {
	Index      int
	Kind       string
	Detail     string
	Coordinate string
	Outcome    string
	Error      string
}

// Store wraps the sqlite task/step history.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the history database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			request TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			task_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT,
			coordinate TEXT,
			outcome TEXT,
			error TEXT,
			PRIMARY KEY (task_id, idx)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create history schema: %w", err)
		}
	}

	return &Store{db: db, log: logger.Named("history")}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Timestamps are stored as RFC 3339 text; the sqlite driver hands
// DATETIME columns back as strings, so text in and out keeps the
// round trip lossless.
const timeLayout = time.RFC3339Nano

// BeginTask records a task as running.
func (s *Store) BeginTask(id, request string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, request, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, request, startedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record task start: %w", err)
	}
	return nil
}

// FinishTask closes a task with its final status.
func (s *Store) FinishTask(id, status string, finishedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record task finish: %w", err)
	}
	return nil
}

// AppendStep records one executed step under a task.
func (s *Store) AppendStep(taskID string, step StepRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO steps (task_id, idx, kind, detail, coordinate, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, step.Index, step.Kind, step.Detail, step.Coordinate, step.Outcome, step.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record step: %w", err)
	}
	return nil
}

// RecentTasks returns the newest tasks with their steps, newest first.
func (s *Store) RecentTasks(limit int) ([]TaskRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, request, status, started_at, COALESCE(finished_at, started_at)
		 FROM tasks ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var (
			t                 TaskRecord
			started, finished string
		)
		if err := rows.Scan(&t.ID, &t.Request, &t.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		if t.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("failed to parse task start time: %w", err)
		}
		if t.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("failed to parse task finish time: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during task iteration: %w", err)
	}

	for i := range tasks {
		steps, err := s.taskSteps(tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Steps = steps
	}
	return tasks, nil
}

func (s *Store) taskSteps(taskID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT idx, kind, detail, coordinate, outcome, error
		 FROM steps WHERE task_id = ? ORDER BY idx ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var st StepRecord
		if err := rows.Scan(&st.Index, &st.Kind, &st.Detail, &st.Coordinate, &st.Outcome, &st.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step row: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}
