// internal/executor/errors.go
package executor

import "fmt"

// The executor is the boundary where raw OS and parsing failures are
// converted into the two kinds the orchestrator reasons about: validation
// failures are never retried, execution failures are.

// ValidationError marks malformed input (step syntax, coordinate, hotkey
// name). Surfaced immediately, never retried.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExecutionError marks a failed OS interaction. Retried up to the configured
// bound, then escalated to troubleshooting.
type ExecutionError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// UnknownHotkeyError reports a symbolic hotkey name with no chord mapping.
// Always wrapped in a ValidationError.
type UnknownHotkeyError struct {
	Name string
}

func (e *UnknownHotkeyError) Error() string {
	return fmt.Sprintf("unknown hotkey %q", e.Name)
}
