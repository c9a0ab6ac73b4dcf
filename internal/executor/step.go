// internal/executor/step.go
package executor

import (
	"fmt"
	"strings"
)

// ActionKind discriminates the four primitive actions a plan step can carry.
type ActionKind string

const (
	ActionType     ActionKind = "TYPE"
	ActionHotkey   ActionKind = "HOTKEY"
	ActionClick    ActionKind = "CLICK"
	ActionTerminal ActionKind = "TERMINAL"
)

// Step is one planner-produced action: a kind plus its argument. For
// ActionClick the argument is the target description, not a coordinate;
// coordinate resolution happens separately against a fresh screenshot.
type Step struct {
	Kind ActionKind
	Arg  string
	Raw  string
}

func (s Step) String() string { return s.Raw }

var stepPrefixes = map[string]ActionKind{
	"TYPE:":     ActionType,
	"HOTKEY:":   ActionHotkey,
	"CLICK:":    ActionClick,
	"TERMINAL:": ActionTerminal,
}

// ParseStep parses one planner line of the form PREFIX:argument. Anything
// without a known prefix is a ValidationError.
func ParseStep(line string) (Step, error) {
	trimmed := strings.TrimSpace(line)
	for prefix, kind := range stepPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return Step{
				Kind: kind,
				Arg:  strings.TrimSpace(strings.TrimPrefix(trimmed, prefix)),
				Raw:  trimmed,
			}, nil
		}
	}
	return Step{}, &ValidationError{
		Reason: fmt.Sprintf("step %q does not start with TYPE:, HOTKEY:, CLICK: or TERMINAL:", trimmed),
	}
}

// ValidStepLine reports whether a planner line carries a known prefix.
func ValidStepLine(line string) bool {
	_, err := ParseStep(line)
	return err == nil
}
