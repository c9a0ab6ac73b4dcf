// Package executor performs the four primitive actions a plan step can
// request: typing, hotkeys, grid clicks, and shell commands. It is the only
// package that touches the OS input layer, and the boundary where platform
// failures become ValidationError or ExecutionError.
package executor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/config"
	"github.com/xkilldash9x/gridpilot/internal/grid"
)

// Executor carries the input layer, click geometry and per-session state.
type Executor struct {
	cfg   config.ExecutorConfig
	table *grid.PositionTable
	input Input
	log   *zap.Logger

	// command is the process launcher, replaceable in tests.
	command func(ctx context.Context, name string, arg ...string) *exec.Cmd

	mu            sync.Mutex
	spotlightOpen bool
}

// New builds an executor over the real input layer.
func New(cfg config.ExecutorConfig, table *grid.PositionTable, logger *zap.Logger) *Executor {
	return NewWithInput(cfg, table, RobotgoInput{}, logger)
}

// NewWithInput builds an executor over an arbitrary input layer.
func NewWithInput(cfg config.ExecutorConfig, table *grid.PositionTable, input Input, logger *zap.Logger) *Executor {
	return &Executor{
		cfg:     cfg,
		table:   table,
		input:   input,
		log:     logger.Named("executor"),
		command: exec.CommandContext,
	}
}

// Table exposes the click position table for coordinate resolution.
func (e *Executor) Table() *grid.PositionTable { return e.table }

// SpotlightOpen reports whether the launcher overlay is believed open.
func (e *Executor) SpotlightOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spotlightOpen
}

// TypeText sends literal keystrokes to the focused application. Empty or
// whitespace-only text is a no-op success. The literal text "WAIT"
// (any case) pauses instead of typing.
func (e *Executor) TypeText(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		e.log.Debug("Skipping empty type step")
		return nil
	}
	if strings.EqualFold(trimmed, "WAIT") {
		e.log.Debug("Explicit wait step", zap.Duration("delay", e.cfg.WaitDelay))
		return sleepCtx(ctx, e.cfg.WaitDelay)
	}

	if err := sleepCtx(ctx, e.cfg.ActionDelay); err != nil {
		return err
	}
	if err := e.input.TypeText(trimmed, e.cfg.TypeDelay); err != nil {
		return &ExecutionError{Op: "type text", Err: err}
	}
	e.log.Debug("Typed text", zap.Int("length", len(trimmed)))
	return nil
}

// PressHotkey resolves a symbolic name to its chord and sends it. Window
// names (maximize_window, minimize_window, center_window) dispatch to the
// AppleScript helpers instead. A second consecutive spotlight press is
// skipped while the overlay is believed open; enter and escape clear that
// belief.
func (e *Executor) PressHotkey(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if action, ok := e.windowAction(name); ok {
		if err := sleepCtx(ctx, e.cfg.ActionDelay); err != nil {
			return err
		}
		if err := action(ctx); err != nil {
			return err
		}
		// Geometry changes animate; wait for the window to settle.
		return sleepCtx(ctx, e.cfg.AnimationDelay)
	}
	ch, ok := hotkeys[name]
	if !ok {
		return &ValidationError{
			Reason: "unresolvable hotkey step",
			Err:    &UnknownHotkeyError{Name: name},
		}
	}

	e.mu.Lock()
	if name == "spotlight" && e.spotlightOpen {
		e.mu.Unlock()
		e.log.Debug("Spotlight already open, skipping hotkey")
		return nil
	}
	e.mu.Unlock()

	if err := sleepCtx(ctx, e.cfg.ActionDelay); err != nil {
		return err
	}
	if err := e.input.KeyTap(ch.key, ch.mods...); err != nil {
		return &ExecutionError{Op: fmt.Sprintf("hotkey %q", name), Err: err}
	}

	e.mu.Lock()
	switch name {
	case "spotlight":
		e.spotlightOpen = true
	case "enter", "escape":
		e.spotlightOpen = false
	}
	e.mu.Unlock()

	e.log.Debug("Pressed hotkey", zap.String("name", name))
	return sleepCtx(ctx, e.cfg.ActionDelay)
}

// ClickAt moves the pointer to the coordinate's center pixel and clicks,
// retrying the OS call a fixed number of times with constant backoff.
func (e *Executor) ClickAt(ctx context.Context, coord grid.Coordinate) error {
	pt, ok := e.table.Lookup(coord)
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("coordinate %s has no table entry", coord)}
	}
	w, h := e.table.Bounds()
	if pt.X < 0 || pt.X >= w || pt.Y < 0 || pt.Y >= h {
		return &ValidationError{Reason: fmt.Sprintf("coordinate %s resolves outside the screen (%d, %d)", coord, pt.X, pt.Y)}
	}

	attempts := e.cfg.ClickRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = e.tryClick(ctx, pt)
		if lastErr == nil {
			e.log.Debug("Clicked",
				zap.String("coordinate", coord.String()),
				zap.Int("x", pt.X), zap.Int("y", pt.Y),
				zap.Int("attempt", attempt))
			return nil
		}

		e.log.Warn("Click attempt failed",
			zap.String("coordinate", coord.String()),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt < attempts {
			if err := sleepCtx(ctx, e.cfg.ClickRetryBackoff); err != nil {
				return err
			}
		}
	}
	return &ExecutionError{Op: fmt.Sprintf("click at %s", coord), Err: lastErr}
}

func (e *Executor) tryClick(ctx context.Context, pt grid.Point) error {
	if err := e.input.Move(pt.X, pt.Y); err != nil {
		return err
	}
	if err := sleepCtx(ctx, e.cfg.ActionDelay); err != nil {
		return err
	}
	return e.input.Click()
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
