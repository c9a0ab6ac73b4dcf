// internal/agent/step.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/executor"
	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/screen"
	"github.com/xkilldash9x/gridpilot/internal/verify"
)

// hotkeySynonyms maps planner phrasings onto symbolic hotkey names, both
// for HOTKEY arguments and for substituting a failed CLICK with the
// equivalent chord.
var hotkeySynonyms = map[string]string{
	"command+space": "spotlight",
	"cmd+space":     "spotlight",
	"spotlight":     "spotlight",
	"return":        "enter",
	"enter":         "enter",
	"esc":           "escape",
	"escape":        "escape",
	"tab":           "focus_next",
	"new tab":       "new_tab",
	"close tab":     "close_tab",
	"select all":    "select_all",

	// Front-window actions the executor runs through AppleScript.
	"maximize window": "maximize_window",
	"minimize window": "minimize_window",
	"center window":   "center_window",
}

// executeStep runs one step through the PLANNED → EXECUTING → VERIFYING
// machine with an iterative retry loop.
func (o *Orchestrator) executeStep(ctx context.Context, step executor.Step, session *Session) StepResult {
	retry := &RetryContext{MaxRetries: o.cfg.MaxRetries}
	current := step

	for {
		if err := ctx.Err(); err != nil {
			return StepResult{Step: step, Outcome: OutcomeError, Err: err.Error()}
		}

		res := o.attemptStep(ctx, current, session)
		if res.Outcome == verify.OutcomeSuccess {
			res.Step = step
			return res
		}

		// Validation failures are never retried.
		var verr *executor.ValidationError
		if errors.As(errorFromResult(res), &verr) {
			o.log.Error("Step rejected", zap.String("step", current.Raw), zap.Error(verr))
			res.Step = step
			res.Outcome = OutcomeError
			return res
		}

		retry.Record(current.Raw)
		if retry.Exhausted() {
			return o.escalate(ctx, step, res)
		}

		o.log.Warn("Step attempt failed, retrying",
			zap.String("step", current.Raw),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("retry", retry.RetryCount),
			zap.Int("max_retries", retry.MaxRetries))

		current = o.nextAttempt(ctx, step, current, res, retry)
	}
}

// nextAttempt picks the step for the following retry: a hotkey
// substitution for click targets that name a chord, a planner rephrase,
// or the original step unchanged.
func (o *Orchestrator) nextAttempt(ctx context.Context, original, current executor.Step, res StepResult, retry *RetryContext) executor.Step {
	if current.Kind == executor.ActionClick {
		if name, ok := hotkeySynonyms[strings.ToLower(strings.TrimSpace(current.Arg))]; ok {
			sub, err := executor.ParseStep("HOTKEY:" + name)
			if err == nil {
				o.log.Info("Substituting failed click with hotkey", zap.String("hotkey", name))
				return sub
			}
		}
	}

	rephrased, err := o.planner.RephraseStep(ctx, original, string(res.Outcome), retry.PreviousAttempts)
	if err != nil {
		o.log.Debug("Rephrase unavailable, retrying original step", zap.Error(err))
		return original
	}
	return rephrased
}

// escalate consults the troubleshooter once, attempts its remedy, and
// aborts the step.
func (o *Orchestrator) escalate(ctx context.Context, step executor.Step, last StepResult) StepResult {
	errText := last.Err
	if errText == "" {
		errText = string(last.Outcome)
	}

	remedy := o.remedy.Suggest(ctx, errText)
	if remedy.Hint != "" {
		o.emit(Update{Kind: UpdateLine, Line: "Remedy: " + remedy.Hint, Time: time.Now()})
	}
	for _, rs := range remedy.Steps {
		if res := o.attemptStep(ctx, rs, &Session{}); res.Outcome == verify.OutcomeSuccess {
			o.log.Info("Remedy step succeeded", zap.String("step", rs.Raw))
		}
	}

	last.Step = step
	last.Outcome = OutcomeError
	if last.Err == "" {
		last.Err = "retries exhausted"
	}
	if remedy.Hint != "" {
		last.Err = fmt.Sprintf("%s (remedy: %s)", last.Err, remedy.Hint)
	}
	return last
}

// launchWaitTimeout bounds how long a confirmed Spotlight launch may
// take to surface the application's window.
const launchWaitTimeout = 10 * time.Second

// attemptStep performs a single attempt of a step and judges it.
func (o *Orchestrator) attemptStep(ctx context.Context, step executor.Step, session *Session) StepResult {
	switch step.Kind {
	case executor.ActionType:
		res := o.attemptSimple(step, o.actions.TypeText(ctx, step.Arg))
		if res.Outcome == verify.OutcomeSuccess {
			session.NoteTyped(step.Arg)
		}
		return res
	case executor.ActionHotkey:
		name := normalizeHotkey(step.Arg)
		res := o.attemptSimple(step, o.actions.PressHotkey(ctx, name))
		if res.Outcome == verify.OutcomeSuccess {
			o.trackLaunch(ctx, session, name)
		}
		return res
	case executor.ActionTerminal:
		out, err := o.actions.RunCommand(ctx, step.Arg)
		res := o.attemptSimple(step, err)
		res.Output = out
		return res
	case executor.ActionClick:
		return o.attemptClick(ctx, step, session)
	default:
		return StepResult{
			Step:    step,
			Outcome: OutcomeError,
			Err:     fmt.Sprintf("unknown action kind %q", step.Kind),
		}
	}
}

// trackLaunch follows the spotlight → type app → enter sequence and,
// when the enter lands, blocks until the launched window shows up and
// checks it took focus. Both are best effort: a missing or unfocused
// window is the verifier's call to make.
func (o *Orchestrator) trackLaunch(ctx context.Context, session *Session, hotkey string) {
	if hotkey != "enter" {
		session.NoteHotkey(hotkey)
		return
	}
	app := session.TakeLaunchedApp()
	if app == "" {
		return
	}
	if err := o.actions.WaitForWindow(ctx, app, launchWaitTimeout); err != nil {
		o.log.Warn("Launched application did not surface a window",
			zap.String("app", app), zap.Error(err))
		return
	}
	if err := o.actions.VerifyWindowState(ctx, app, "frontmost"); err != nil {
		o.log.Warn("Launched application is not frontmost",
			zap.String("app", app), zap.Error(err))
	}
}

func (o *Orchestrator) attemptSimple(step executor.Step, err error) StepResult {
	if err != nil {
		return StepResult{Step: step, Outcome: verify.OutcomeFailure, Err: err.Error(), typedErr: err}
	}
	return StepResult{Step: step, Outcome: verify.OutcomeSuccess}
}

// attemptClick resolves the target, gets the position approved on an
// annotated frame, clicks, and verifies against before/after captures.
func (o *Orchestrator) attemptClick(ctx context.Context, step executor.Step, session *Session) StepResult {
	fail := func(err error) StepResult {
		return StepResult{Step: step, Outcome: verify.OutcomeFailure, Err: err.Error(), typedErr: err}
	}

	before, err := screen.Take(o.capturer)
	if err != nil {
		// A missing snapshot is fatal to a click step, never worked around.
		return fail(err)
	}
	beforePNG, err := before.CompositedPNG()
	if err != nil {
		return fail(err)
	}
	o.persistSnapshot("before_click", before, beforePNG)

	coord, reused := session.ReuseCoordinate(step.Arg)
	if !reused {
		coord, err = o.planner.ResolveClickTarget(ctx, step.Arg, beforePNG)
		if err != nil {
			return fail(err)
		}
	} else {
		o.log.Info("Reusing previously confirmed coordinate",
			zap.String("coordinate", coord.String()),
			zap.String("target", step.Arg))
	}

	coord, err = o.approvePosition(ctx, step.Arg, before, coord)
	if err != nil {
		return fail(err)
	}

	if err := o.actions.ClickAt(ctx, coord); err != nil {
		res := fail(err)
		res.Coordinate = coord.String()
		return res
	}

	if err := sleepCtx(ctx, o.cfg.VerificationDelay); err != nil {
		return fail(err)
	}

	after, err := screen.Take(o.capturer)
	if err != nil {
		return fail(err)
	}
	afterPNG, err := after.CompositedPNG()
	if err != nil {
		return fail(err)
	}
	o.persistSnapshot("after_click", after, afterPNG)

	outcome, err := o.verifier.Verify(ctx, step.Raw, beforePNG, afterPNG)
	res := StepResult{Step: step, Coordinate: coord.String(), Outcome: outcome}
	if err != nil {
		res.Err = err.Error()
	}
	if outcome == verify.OutcomeSuccess {
		session.RememberClick(step.Arg, coord)
	}
	return res
}

// approvePosition runs the pre-click approval on an annotated frame,
// applying at most one single-cell nudge.
func (o *Orchestrator) approvePosition(ctx context.Context, target string, snap *screen.Snapshot, coord grid.Coordinate) (grid.Coordinate, error) {
	approval, err := o.approveOnce(ctx, target, snap, coord)
	if err != nil {
		return coord, err
	}

	switch approval {
	case verify.ApprovalApprove:
		return coord, nil
	case verify.ApprovalReject:
		return coord, fmt.Errorf("click position at %s rejected for target %q", coord, target)
	default:
		nudged, ok := nudge(coord, approval)
		if !ok {
			return coord, fmt.Errorf("cannot nudge %s %s: edge of grid", coord, approval)
		}
		o.log.Info("Nudging click target",
			zap.String("from", coord.String()),
			zap.String("to", nudged.String()),
			zap.String("direction", string(approval)))
		return nudged, nil
	}
}

func (o *Orchestrator) approveOnce(ctx context.Context, target string, snap *screen.Snapshot, coord grid.Coordinate) (verify.Approval, error) {
	annotated, err := screen.AnnotateTarget(snap.Raw, coord, o.actions.Table())
	if err != nil {
		return verify.ApprovalReject, err
	}
	png, err := screen.EncodePNG(annotated)
	if err != nil {
		return verify.ApprovalReject, err
	}
	if o.store != nil {
		if _, err := o.store.SaveScreenshot("click_target", png); err != nil {
			o.log.Warn("Failed to persist click-target screenshot", zap.Error(err))
		}
	}
	return o.verifier.ApproveClick(ctx, target, png)
}

// nudge moves a coordinate one cell in the adjustment direction.
func nudge(coord grid.Coordinate, approval verify.Approval) (grid.Coordinate, bool) {
	col, row := coord.Col(), coord.Row()
	switch approval {
	case verify.ApprovalAdjustLeft:
		col--
	case verify.ApprovalAdjustRight:
		col++
	case verify.ApprovalAdjustUp:
		row--
	case verify.ApprovalAdjustDown:
		row++
	default:
		return coord, false
	}
	nudged, err := grid.Encode(col, row)
	if err != nil {
		return coord, false
	}
	return nudged, true
}

func normalizeHotkey(arg string) string {
	lower := strings.ToLower(strings.TrimSpace(arg))
	if name, ok := hotkeySynonyms[lower]; ok {
		return name
	}
	return lower
}

// errorFromResult reconstructs a typed error carried in a result, used to
// distinguish validation failures in the retry loop.
func errorFromResult(res StepResult) error {
	if res.typedErr != nil {
		return res.typedErr
	}
	if res.Err != "" {
		return errors.New(res.Err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
