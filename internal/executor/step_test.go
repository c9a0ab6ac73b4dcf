package executor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	cases := []struct {
		line string
		kind ActionKind
		arg  string
	}{
		{"TYPE:hello world", ActionType, "hello world"},
		{"HOTKEY:spotlight", ActionHotkey, "spotlight"},
		{"CLICK:the Safari icon in the dock", ActionClick, "the Safari icon in the dock"},
		{"TERMINAL:ls -la", ActionTerminal, "ls -la"},
		{"  TYPE: spaced out  ", ActionType, "spaced out"},
	}
	for _, tc := range cases {
		step, err := ParseStep(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.kind, step.Kind)
		assert.Equal(t, tc.arg, step.Arg)
	}
}

func TestParseStepRejectsUnknownPrefix(t *testing.T) {
	for _, line := range []string{
		"SCROLL:down",
		"click the button",
		"",
		"TYPE hello", // missing colon
	} {
		_, err := ParseStep(line)
		require.Error(t, err, line)

		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "expected ValidationError for %q", line)
	}
}

func TestValidStepLine(t *testing.T) {
	assert.True(t, ValidStepLine("HOTKEY:enter"))
	assert.False(t, ValidStepLine("Sure! Here is the plan:"))
}
