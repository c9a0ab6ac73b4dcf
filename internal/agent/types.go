// internal/agent/types.go
package agent

import (
	"time"

	"github.com/xkilldash9x/gridpilot/internal/executor"
	"github.com/xkilldash9x/gridpilot/internal/verify"
)

// OutcomeError marks a step that failed before verification could run
// (validation failure, exhausted retries, cancellation).
const OutcomeError verify.Outcome = "ERROR"

// TaskStatus is the terminal state of a whole task.
type TaskStatus string

const (
	// TaskCompleted: the completion check confirmed the request is done.
	TaskCompleted TaskStatus = "completed"
	// TaskPartial: the step safety cap was reached; results are partial.
	TaskPartial TaskStatus = "partial"
	// TaskAborted: a step exhausted retries and the remedy did not help.
	TaskAborted TaskStatus = "aborted"
	// TaskCancelled: the context was cancelled (stop key or signal).
	TaskCancelled TaskStatus = "cancelled"
)

// StepResult is the append-only record of one executed step.
type StepResult struct {
	Step       executor.Step
	Coordinate string
	Outcome    verify.Outcome
	Output     string
	Err        string

	// typedErr keeps the original error for errors.As dispatch inside
	// the retry loop; the persisted record only carries Err.
	typedErr error
}

// TaskResult is the full outcome of one task run.
type TaskResult struct {
	ID         string
	Request    string
	Status     TaskStatus
	Steps      []StepResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// RetryContext tracks the attempts of a single step. It lives for the
// duration of that step and is discarded afterwards.
type RetryContext struct {
	RetryCount       int
	MaxRetries       int
	PreviousAttempts []string
}

// Exhausted reports whether no retries remain.
func (r *RetryContext) Exhausted() bool { return r.RetryCount >= r.MaxRetries }

// Record notes a failed attempt.
func (r *RetryContext) Record(attempt string) {
	r.RetryCount++
	r.PreviousAttempts = append(r.PreviousAttempts, attempt)
}

// UpdateKind discriminates the asynchronous updates a worker emits.
type UpdateKind string

const (
	UpdateLine     UpdateKind = "line"
	UpdateProgress UpdateKind = "progress"
	UpdateResponse UpdateKind = "response"
	UpdateError    UpdateKind = "error"
)

// Update is one structured message from the background worker to the UI.
// The worker never touches UI state directly, it only enqueues these.
type Update struct {
	Kind UpdateKind
	Line string
	Step *StepResult
	Time time.Time
}
