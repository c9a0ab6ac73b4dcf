// Package safety provides the global stop key: a keyboard hook that
// cancels the running task the moment the user double-taps it, regardless
// of which application holds focus.
package safety

import (
	"context"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// doubleTapWindow is how close together two presses must land to count
// as a stop request. A single press is too easy to hit by accident,
// since the agent itself sends escape to dismiss dialogs.
const doubleTapWindow = 2 * time.Second

// StopListener arms a global key hook over a task context.
type StopListener struct {
	enabled bool
	key     string
	log     *zap.Logger

	mu        sync.Mutex
	lastPress time.Time
}

// New builds a listener for the given key name (gohook vocabulary, e.g.
// "esc"). A disabled listener arms to a no-op.
func New(enabled bool, key string, logger *zap.Logger) *StopListener {
	if key == "" {
		key = "esc"
	}
	return &StopListener{
		enabled: enabled,
		key:     key,
		log:     logger.Named("safety"),
	}
}

// Arm derives a context that is cancelled when the stop key is pressed
// twice within the tap window. The returned release function tears the
// hook down and must be called when the task ends; it blocks until the
// hook goroutine has exited.
func (l *StopListener) Arm(ctx context.Context) (context.Context, func()) {
	if !l.enabled {
		return ctx, func() {}
	}

	ctx, cancel := context.WithCancel(ctx)

	hook.Register(hook.KeyDown, []string{l.key}, func(e hook.Event) {
		if l.recordPress(time.Now()) {
			l.log.Warn("Stop key double-tapped, cancelling task", zap.String("key", l.key))
			cancel()
		}
	})

	events := hook.Start()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-hook.Process(events)
	}()

	l.log.Info("Stop key armed", zap.String("key", l.key))
	return ctx, func() {
		hook.End()
		<-done
		cancel()
	}
}

// recordPress reports whether this press completes a double tap.
func (l *StopListener) recordPress(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastPress.IsZero() && now.Sub(l.lastPress) <= doubleTapWindow {
		l.lastPress = time.Time{}
		return true
	}
	l.lastPress = now
	return false
}
