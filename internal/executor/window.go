// internal/executor/window.go
package executor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const windowPollInterval = 200 * time.Millisecond

// WaitForWindow polls until a process with the given application name
// exists or the timeout elapses. Used after launching an app through
// Spotlight, where the window appears asynchronously.
func (e *Executor) WaitForWindow(ctx context.Context, appName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	script := fmt.Sprintf(`tell application "System Events" to (exists (processes where name is %q))`, appName)

	for {
		out, err := e.runOsascript(ctx, script)
		if err == nil && out == "true" {
			e.log.Debug("Window appeared", zap.String("app", appName))
			return nil
		}
		if time.Now().After(deadline) {
			return &ExecutionError{
				Op:  fmt.Sprintf("wait for %s window", appName),
				Err: fmt.Errorf("timed out after %s", timeout),
			}
		}
		if err := sleepCtx(ctx, windowPollInterval); err != nil {
			return err
		}
	}
}

// VerifyWindowState checks a single window property. Supported states:
// "frontmost" and "exists".
func (e *Executor) VerifyWindowState(ctx context.Context, appName, state string) error {
	var script string
	switch state {
	case "frontmost":
		script = fmt.Sprintf(`tell application "System Events" to (frontmost of process %q)`, appName)
	case "exists":
		script = fmt.Sprintf(`tell application "System Events" to (exists (processes where name is %q))`, appName)
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown window state %q", state)}
	}

	out, err := e.runOsascript(ctx, script)
	if err != nil {
		return err
	}
	if out != "true" {
		return &ExecutionError{
			Op:  fmt.Sprintf("verify %s is %s", appName, state),
			Err: fmt.Errorf("osascript reported %q", out),
		}
	}
	return nil
}

// windowAction resolves the symbolic front-window actions the planner may
// emit as hotkey names. They run AppleScript instead of tapping a chord.
func (e *Executor) windowAction(name string) (func(context.Context) error, bool) {
	switch name {
	case "maximize_window":
		return e.MaximizeFrontWindow, true
	case "minimize_window":
		return e.MinimizeFrontWindow, true
	case "center_window":
		return e.CenterFrontWindow, true
	}
	return nil, false
}

// MaximizeFrontWindow grows the frontmost window to the full screen
// geometry the click table was built for.
func (e *Executor) MaximizeFrontWindow(ctx context.Context) error {
	w, h := e.table.Bounds()
	script := fmt.Sprintf(`tell application "System Events"
	set frontApp to first application process whose frontmost is true
	tell first window of frontApp
		set position to {0, 0}
		set size to {%d, %d}
	end tell
end tell`, w, h)
	if _, err := e.runOsascript(ctx, script); err != nil {
		return err
	}
	e.log.Debug("Maximized front window", zap.Int("width", w), zap.Int("height", h))
	return nil
}

// MinimizeFrontWindow sends the frontmost window to the Dock.
func (e *Executor) MinimizeFrontWindow(ctx context.Context) error {
	script := `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	tell first window of frontApp to minimize
end tell`
	if _, err := e.runOsascript(ctx, script); err != nil {
		return err
	}
	e.log.Debug("Minimized front window")
	return nil
}

// CenterFrontWindow repositions the frontmost window at the middle of the
// screen, keeping its current size.
func (e *Executor) CenterFrontWindow(ctx context.Context) error {
	w, h := e.table.Bounds()
	script := fmt.Sprintf(`tell application "System Events"
	set frontApp to first application process whose frontmost is true
	tell first window of frontApp
		set {winW, winH} to its size
		set position to {(%d - winW) div 2, (%d - winH) div 2}
	end tell
end tell`, w, h)
	if _, err := e.runOsascript(ctx, script); err != nil {
		return err
	}
	e.log.Debug("Centered front window")
	return nil
}

func (e *Executor) runOsascript(ctx context.Context, script string) (string, error) {
	cmd := e.command(ctx, "osascript", "-e", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ExecutionError{
			Op:     "osascript",
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}
