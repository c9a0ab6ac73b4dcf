// internal/executor/command.go
package executor

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// httpServerRe matches python's built-in static file server with an
// optional explicit port, the one fixed-port command plans reach for.
var httpServerRe = regexp.MustCompile(`\b(python3?\s+-m\s+http\.server)(?:\s+(\d+))?`)

// pathRewriteCommands are the file-mutating commands whose trailing
// relative path is redirected into the workspace.
var pathRewriteCommands = map[string]bool{
	"mkdir": true,
	"touch": true,
	"cp":    true,
	"mv":    true,
}

// RunCommand executes a shell command in the workspace directory and
// returns its trimmed stdout. Non-zero exit becomes an ExecutionError
// carrying the captured stderr. Verification tokens that leak into a
// TERMINAL step are echoed back rather than executed.
func (e *Executor) RunCommand(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if upper := strings.ToUpper(command); upper == "SUCCESS" || upper == "FAILURE" {
		return command, nil
	}

	command = e.rewriteDestinationPath(command)

	rewritten, port, err := e.substituteFreePort(command)
	if err != nil {
		return "", err
	}
	if rewritten != command {
		e.log.Info("Substituted free port", zap.Int("port", port), zap.String("command", rewritten))
		command = rewritten
	}

	runCtx := ctx
	if e.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.CommandTimeout)
		defer cancel()
	}

	cmd := e.command(runCtx, "sh", "-c", command)
	cmd.Dir = e.cfg.WorkspaceDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log.Debug("Running command", zap.String("command", command))
	if err := cmd.Run(); err != nil {
		return "", &ExecutionError{
			Op:     fmt.Sprintf("command %q", command),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// rewriteDestinationPath makes the trailing relative path of a
// file-mutating command workspace-absolute so nothing escapes the sandbox.
func (e *Executor) rewriteDestinationPath(command string) string {
	parts := strings.Fields(command)
	if len(parts) < 2 || !pathRewriteCommands[parts[0]] {
		return command
	}
	last := parts[len(parts)-1]
	if filepath.IsAbs(last) || strings.HasPrefix(last, "-") {
		return command
	}
	parts[len(parts)-1] = filepath.Join(e.cfg.WorkspaceDir, last)
	return strings.Join(parts, " ")
}

// substituteFreePort replaces the port of a fixed-port server command with
// the first free one from the configured range. Commands without a server
// pattern pass through untouched.
func (e *Executor) substituteFreePort(command string) (string, int, error) {
	m := httpServerRe.FindStringSubmatch(command)
	if m == nil {
		return command, 0, nil
	}

	port, ok := e.probePortRange()
	if !ok {
		return "", 0, &ExecutionError{
			Op:  "port probe",
			Err: fmt.Errorf("no free port in %d..%d", e.cfg.PortRangeStart, e.cfg.PortRangeEnd),
		}
	}

	replacement := fmt.Sprintf("%s %d", m[1], port)
	return httpServerRe.ReplaceAllString(command, replacement), port, nil
}

func (e *Executor) probePortRange() (int, bool) {
	for port := e.cfg.PortRangeStart; port <= e.cfg.PortRangeEnd; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		_ = l.Close()
		return port, true
	}
	return 0, false
}
