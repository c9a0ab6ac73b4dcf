// Package agent runs the plan → execute → verify loop that turns a
// natural-language request into a sequence of verified UI actions.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/config"
	"github.com/xkilldash9x/gridpilot/internal/executor"
	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/history"
	"github.com/xkilldash9x/gridpilot/internal/screen"
	"github.com/xkilldash9x/gridpilot/internal/store"
	"github.com/xkilldash9x/gridpilot/internal/troubleshoot"
	"github.com/xkilldash9x/gridpilot/internal/verify"
)

// TaskPlanner is the planning side of the model.
type TaskPlanner interface {
	PlanTask(ctx context.Context, request string, screenshot []byte) ([]executor.Step, error)
	ResolveClickTarget(ctx context.Context, description string, screenshot []byte) (grid.Coordinate, error)
	RephraseStep(ctx context.Context, failed executor.Step, outcome string, previousAttempts []string) (executor.Step, error)
	CheckCompletion(ctx context.Context, request string, history []string, screenshot []byte) (bool, string, error)
}

// Verifier is the judging side of the model.
type Verifier interface {
	Verify(ctx context.Context, step string, before, after []byte) (verify.Outcome, error)
	ApproveClick(ctx context.Context, target string, annotated []byte) (verify.Approval, error)
}

// ActionRunner performs the primitive OS actions.
type ActionRunner interface {
	TypeText(ctx context.Context, text string) error
	PressHotkey(ctx context.Context, name string) error
	ClickAt(ctx context.Context, coord grid.Coordinate) error
	RunCommand(ctx context.Context, command string) (string, error)
	WaitForWindow(ctx context.Context, appName string, timeout time.Duration) error
	VerifyWindowState(ctx context.Context, appName, state string) error
	Table() *grid.PositionTable
}

// Remedier suggests a recovery for an exhausted step.
type Remedier interface {
	Suggest(ctx context.Context, errText string) troubleshoot.Remedy
}

// Orchestrator owns one task at a time. Collaborators are injected;
// store and history may be nil (artifacts are then simply not persisted).
type Orchestrator struct {
	cfg      config.AgentConfig
	planner  TaskPlanner
	verifier Verifier
	actions  ActionRunner
	capturer screen.Capturer
	remedy   Remedier
	store    *store.Store
	history  *history.Store
	log      *zap.Logger

	// notify delivers updates to the worker; nil when running headless.
	notify func(Update)
}

func NewOrchestrator(
	cfg config.AgentConfig,
	taskPlanner TaskPlanner,
	verifier Verifier,
	actions ActionRunner,
	capturer screen.Capturer,
	remedy Remedier,
	st *store.Store,
	hist *history.Store,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		planner:  taskPlanner,
		verifier: verifier,
		actions:  actions,
		capturer: capturer,
		remedy:   remedy,
		store:    st,
		history:  hist,
		log:      logger.Named("agent"),
	}
}

// RunTask drives a request to completion, the step cap, or abort. It
// never panics on step failures; every failure lands in the result list.
func (o *Orchestrator) RunTask(ctx context.Context, request string) *TaskResult {
	result := &TaskResult{
		ID:        uuid.NewString(),
		Request:   request,
		StartedAt: time.Now(),
	}
	session := &Session{}

	o.recordTaskStart(result)
	o.emit(Update{Kind: UpdateLine, Line: "Planning task: " + request, Time: time.Now()})

	status := o.runLoop(ctx, request, session, result)
	result.Status = status
	result.FinishedAt = time.Now()

	o.recordTaskFinish(result)
	o.log.Info("Task finished",
		zap.String("task_id", result.ID),
		zap.String("status", string(status)),
		zap.Int("steps", len(result.Steps)))
	return result
}

func (o *Orchestrator) runLoop(ctx context.Context, request string, session *Session, result *TaskResult) TaskStatus {
	current := request

	for {
		if err := ctx.Err(); err != nil {
			return TaskCancelled
		}

		shot := o.snapshotPNG(ctx, "planning")
		steps, err := o.planner.PlanTask(ctx, current, shot)
		if err != nil {
			o.log.Error("Planning failed", zap.Error(err))
			o.emit(Update{Kind: UpdateError, Line: "Planning failed: " + err.Error(), Time: time.Now()})
			return TaskAborted
		}
		o.emitPlan(steps)

		for _, step := range steps {
			if len(result.Steps) >= o.cfg.MaxSteps {
				o.log.Warn("Step safety cap reached, terminating with partial results",
					zap.Int("cap", o.cfg.MaxSteps))
				return TaskPartial
			}
			if err := ctx.Err(); err != nil {
				return TaskCancelled
			}

			res := o.executeStep(ctx, step, session)
			result.Steps = append(result.Steps, res)
			o.recordStep(result, res)
			o.emit(Update{Kind: UpdateProgress, Step: &res, Time: time.Now()})

			if res.Outcome == OutcomeError {
				if ctx.Err() != nil {
					return TaskCancelled
				}
				return TaskAborted
			}
		}

		done, remaining, err := o.checkCompletion(ctx, request, result)
		if err != nil {
			o.log.Warn("Completion check failed, continuing with the original request", zap.Error(err))
			remaining = current
		}
		if done {
			return TaskCompleted
		}
		if len(result.Steps) >= o.cfg.MaxSteps {
			return TaskPartial
		}
		current = remaining
		o.emit(Update{Kind: UpdateLine, Line: "Continuing: " + current, Time: time.Now()})
	}
}

func (o *Orchestrator) checkCompletion(ctx context.Context, request string, result *TaskResult) (bool, string, error) {
	executed := make([]string, 0, len(result.Steps))
	for _, s := range result.Steps {
		executed = append(executed, s.Step.Raw)
	}
	shot := o.snapshotPNG(ctx, "completion_check")
	return o.planner.CheckCompletion(ctx, request, executed, shot)
}

// snapshotPNG captures the grid-composited frame and persists both
// variants. A capture failure is fatal to the current step for execution
// paths, but planning tolerates a nil screenshot.
func (o *Orchestrator) snapshotPNG(ctx context.Context, kind string) []byte {
	if err := ctx.Err(); err != nil {
		return nil
	}
	snap, err := screen.Take(o.capturer)
	if err != nil {
		o.log.Warn("Screen capture unavailable", zap.String("kind", kind), zap.Error(err))
		return nil
	}
	png, err := snap.CompositedPNG()
	if err != nil {
		o.log.Warn("Failed to encode snapshot", zap.Error(err))
		return nil
	}
	o.persistSnapshot(kind, snap, png)
	return png
}

func (o *Orchestrator) persistSnapshot(kind string, snap *screen.Snapshot, composited []byte) {
	if o.store == nil {
		return
	}
	if raw, err := snap.RawPNG(); err == nil {
		if _, err := o.store.SaveScreenshot(kind+"_raw", raw); err != nil {
			o.log.Warn("Failed to persist raw screenshot", zap.Error(err))
		}
	}
	if _, err := o.store.SaveScreenshot(kind+"_grid", composited); err != nil {
		o.log.Warn("Failed to persist grid screenshot", zap.Error(err))
	}
}

func (o *Orchestrator) emit(u Update) {
	if o.notify != nil {
		o.notify(u)
	}
}

func (o *Orchestrator) emitPlan(steps []executor.Step) {
	for _, s := range steps {
		o.emit(Update{Kind: UpdateResponse, Line: s.Raw, Time: time.Now()})
	}
}

func (o *Orchestrator) recordTaskStart(result *TaskResult) {
	if o.history == nil {
		return
	}
	if err := o.history.BeginTask(result.ID, result.Request, result.StartedAt); err != nil {
		o.log.Warn("Failed to record task start", zap.Error(err))
	}
}

func (o *Orchestrator) recordTaskFinish(result *TaskResult) {
	if o.history == nil {
		return
	}
	if err := o.history.FinishTask(result.ID, string(result.Status), result.FinishedAt); err != nil {
		o.log.Warn("Failed to record task finish", zap.Error(err))
	}
}

func (o *Orchestrator) recordStep(result *TaskResult, res StepResult) {
	if o.history == nil {
		return
	}
	err := o.history.AppendStep(result.ID, history.StepRecord{
		Index:      len(result.Steps) - 1,
		Kind:       string(res.Step.Kind),
		Detail:     res.Step.Arg,
		Coordinate: res.Coordinate,
		Outcome:    string(res.Outcome),
		Error:      res.Err,
	})
	if err != nil {
		o.log.Warn("Failed to record step", zap.Error(err))
	}
}
