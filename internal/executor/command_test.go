package executor

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	e, _ := newTestExecutor(t)

	out, err := e.RunCommand(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunCommandEchoesVerificationTokens(t *testing.T) {
	e, _ := newTestExecutor(t)

	for _, token := range []string{"SUCCESS", "FAILURE", "success"} {
		out, err := e.RunCommand(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, token, out)
	}
}

func TestRunCommandFailureCarriesStderr(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.RunCommand(context.Background(), "echo broken >&2; exit 3")
	require.Error(t, err)

	var xerr *ExecutionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "broken", xerr.Stderr)
}

func TestRunCommandRewritesRelativeDestination(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.RunCommand(context.Background(), "mkdir newdir")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(e.cfg.WorkspaceDir, "newdir"))
}

func TestRewriteDestinationPath(t *testing.T) {
	e, _ := newTestExecutor(t)
	ws := e.cfg.WorkspaceDir

	cases := map[string]string{
		"mkdir sub":           "mkdir " + filepath.Join(ws, "sub"),
		"touch notes.txt":     "touch " + filepath.Join(ws, "notes.txt"),
		"cp a.txt b.txt":      "cp a.txt " + filepath.Join(ws, "b.txt"),
		"mkdir /tmp/abs":      "mkdir /tmp/abs", // absolute stays put
		"ls -la":              "ls -la",         // not a mutating command
		"mkdir":               "mkdir",          // no argument
		"rm important":        "rm important",   // rm is deliberately not rewritten
	}
	for in, want := range cases {
		assert.Equal(t, want, e.rewriteDestinationPath(in), in)
	}
}

func TestSubstituteFreePort(t *testing.T) {
	e, _ := newTestExecutor(t)

	rewritten, port, err := e.substituteFreePort("python3 -m http.server 8000")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, e.cfg.PortRangeStart)
	assert.LessOrEqual(t, port, e.cfg.PortRangeEnd)
	assert.Equal(t, "python3 -m http.server "+strconv.Itoa(port), rewritten)

	// Portless invocation gets an explicit free port appended.
	rewritten, port, err = e.substituteFreePort("python -m http.server")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rewritten, strconv.Itoa(port)))

	// Unrelated commands pass through untouched.
	rewritten, port, err = e.substituteFreePort("echo http.server docs")
	require.NoError(t, err)
	assert.Zero(t, port)
	assert.Equal(t, "echo http.server docs", rewritten)
}

func TestVerifyWindowState(t *testing.T) {
	e, _ := newTestExecutor(t)

	e.command = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "true")
	}
	require.NoError(t, e.VerifyWindowState(context.Background(), "Terminal", "frontmost"))

	e.command = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "false")
	}
	err := e.VerifyWindowState(context.Background(), "Terminal", "frontmost")
	var xerr *ExecutionError
	require.True(t, errors.As(err, &xerr))

	// Unknown states are rejected before any OS call.
	var verr *ValidationError
	err = e.VerifyWindowState(context.Background(), "Terminal", "sideways")
	require.True(t, errors.As(err, &verr))
}

func TestWindowActionsRunOsascript(t *testing.T) {
	e, input := newTestExecutor(t)

	var scripts []string
	e.command = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		require.Equal(t, "osascript", name)
		require.Len(t, arg, 2)
		scripts = append(scripts, arg[1])
		return exec.CommandContext(ctx, "true")
	}

	ctx := context.Background()
	require.NoError(t, e.PressHotkey(ctx, "maximize_window"))
	require.NoError(t, e.PressHotkey(ctx, "minimize_window"))
	require.NoError(t, e.PressHotkey(ctx, "center_window"))

	require.Len(t, scripts, 3)
	// Geometry comes from the click table, not a fixed display size.
	assert.Contains(t, scripts[0], "set size to {1920, 1080}")
	assert.Contains(t, scripts[1], "to minimize")
	assert.Contains(t, scripts[2], "(1920 - winW) div 2")
	// Window actions never reach the key tap layer.
	assert.Empty(t, input.taps)
}

func TestWindowActionFailureIsExecutionError(t *testing.T) {
	e, _ := newTestExecutor(t)
	e.command = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	}

	err := e.MaximizeFrontWindow(context.Background())
	var xerr *ExecutionError
	require.True(t, errors.As(err, &xerr))
}

func TestWaitForWindow(t *testing.T) {
	e, _ := newTestExecutor(t)

	e.command = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "true")
	}
	require.NoError(t, e.WaitForWindow(context.Background(), "Terminal", time.Second))

	e.command = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "false")
	}
	err := e.WaitForWindow(context.Background(), "Ghost", 10*time.Millisecond)
	var xerr *ExecutionError
	require.True(t, errors.As(err, &xerr))
}
