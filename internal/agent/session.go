// internal/agent/session.go
package agent

import (
	"strings"
	"sync"

	"github.com/xkilldash9x/gridpilot/internal/grid"
)

// Session carries the mutable per-task state the orchestrator threads
// through a run. All state lives here, never at package level.
type Session struct {
	mu sync.Mutex

	lastTarget string
	lastCoord  grid.Coordinate
	hasCoord   bool

	// Spotlight launch tracking: spotlight → typed app name → enter.
	spotlightArmed bool
	pendingApp     string
}

// RememberClick records the last successfully clicked target.
func (s *Session) RememberClick(target string, coord grid.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTarget = strings.ToLower(strings.TrimSpace(target))
	s.lastCoord = coord
	s.hasCoord = true
}

// ReuseCoordinate returns the remembered coordinate when the step is
// explicitly framed as verifying the previously clicked target. Reusing
// the exact pixel keeps verification consistent with the action it checks.
func (s *Session) ReuseCoordinate(target string) (grid.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCoord {
		return grid.Coordinate{}, false
	}
	lower := strings.ToLower(target)
	if strings.Contains(lower, "verify") || lower == s.lastTarget {
		return s.lastCoord, true
	}
	return grid.Coordinate{}, false
}

// NoteTyped records text typed while Spotlight is open, so the later
// enter can wait for that application's window.
func (s *Session) NoteTyped(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spotlightArmed {
		s.pendingApp = strings.TrimSpace(text)
	}
}

// NoteHotkey tracks the Spotlight launch sequence across hotkey steps.
func (s *Session) NoteHotkey(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "spotlight":
		s.spotlightArmed = true
		s.pendingApp = ""
	case "escape":
		s.spotlightArmed = false
		s.pendingApp = ""
	}
}

// TakeLaunchedApp returns the application name a confirmed Spotlight
// launch just opened, clearing the tracked sequence.
func (s *Session) TakeLaunchedApp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.spotlightArmed {
		return ""
	}
	app := s.pendingApp
	s.spotlightArmed = false
	s.pendingApp = ""
	return app
}
