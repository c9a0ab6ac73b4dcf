// File: internal/agent/mocks_test.go
package agent

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/gridpilot/internal/config"
	"github.com/xkilldash9x/gridpilot/internal/executor"
	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/troubleshoot"
	"github.com/xkilldash9x/gridpilot/internal/verify"
)

// stubCapturer returns blank frames of a fixed geometry.
type stubCapturer struct {
	width, height int
	err           error
}

func (c *stubCapturer) Capture() (image.Image, error) {
	if c.err != nil {
		return nil, c.err
	}
	return image.NewRGBA(image.Rect(0, 0, c.width, c.height)), nil
}

func (c *stubCapturer) Size() (int, int) { return c.width, c.height }

// fakePlanner replays scripted plans and completion verdicts.
type fakePlanner struct {
	plans       [][]executor.Step // consumed per PlanTask call; repeats last when empty
	planErr     error
	planCalls   int
	requests    []string
	coord       grid.Coordinate
	coordErr    error             // persistent resolution failure
	coordErrs   []error           // consumed first, one per call; nil entries succeed
	coordCalls  int
	rephrased   *executor.Step
	completions []completion
}

type completion struct {
	done      bool
	remaining string
	err       error
}

func (p *fakePlanner) PlanTask(_ context.Context, request string, _ []byte) ([]executor.Step, error) {
	p.planCalls++
	p.requests = append(p.requests, request)
	if p.planErr != nil {
		return nil, p.planErr
	}
	if len(p.plans) == 0 {
		return nil, errors.New("no scripted plan")
	}
	plan := p.plans[0]
	if len(p.plans) > 1 {
		p.plans = p.plans[1:]
	}
	return plan, nil
}

func (p *fakePlanner) ResolveClickTarget(context.Context, string, []byte) (grid.Coordinate, error) {
	p.coordCalls++
	if len(p.coordErrs) > 0 {
		err := p.coordErrs[0]
		p.coordErrs = p.coordErrs[1:]
		if err != nil {
			return grid.Coordinate{}, err
		}
		return p.coord, nil
	}
	if p.coordErr != nil {
		return grid.Coordinate{}, p.coordErr
	}
	return p.coord, nil
}

func (p *fakePlanner) RephraseStep(_ context.Context, failed executor.Step, _ string, _ []string) (executor.Step, error) {
	if p.rephrased == nil {
		return failed, errors.New("no rephrase available")
	}
	return *p.rephrased, nil
}

func (p *fakePlanner) CheckCompletion(_ context.Context, request string, _ []string, _ []byte) (bool, string, error) {
	if len(p.completions) == 0 {
		return true, "", nil
	}
	c := p.completions[0]
	p.completions = p.completions[1:]
	if c.err != nil {
		return false, "", c.err
	}
	if c.done {
		return true, "", nil
	}
	if c.remaining == "" {
		return false, request, nil
	}
	return false, c.remaining, nil
}

// fakeVerifier replays scripted outcomes and approvals, defaulting to
// SUCCESS / APPROVE when a script runs out.
type fakeVerifier struct {
	outcomes    []verify.Outcome
	verifyErr   error
	verifyCalls int
	approvals   []verify.Approval
}

func (v *fakeVerifier) Verify(context.Context, string, []byte, []byte) (verify.Outcome, error) {
	v.verifyCalls++
	if v.verifyErr != nil {
		return verify.OutcomeFailure, v.verifyErr
	}
	if len(v.outcomes) == 0 {
		return verify.OutcomeSuccess, nil
	}
	o := v.outcomes[0]
	v.outcomes = v.outcomes[1:]
	return o, nil
}

func (v *fakeVerifier) ApproveClick(context.Context, string, []byte) (verify.Approval, error) {
	if len(v.approvals) == 0 {
		return verify.ApprovalApprove, nil
	}
	a := v.approvals[0]
	v.approvals = v.approvals[1:]
	return a, nil
}

// fakeActions records every primitive action and injects scripted errors.
type fakeActions struct {
	table *grid.PositionTable

	typed       []string
	hotkeys     []string
	clicks      []grid.Coordinate
	commands    []string
	waits       []string
	stateChecks []string

	typeErrs   []error
	hotkeyErrs []error
	clickErrs  []error
	cmdErr     error
	cmdOutput  string
	waitErr    error
}

func (a *fakeActions) TypeText(_ context.Context, text string) error {
	a.typed = append(a.typed, text)
	return popErr(&a.typeErrs)
}

func (a *fakeActions) PressHotkey(_ context.Context, name string) error {
	a.hotkeys = append(a.hotkeys, name)
	return popErr(&a.hotkeyErrs)
}

func (a *fakeActions) ClickAt(_ context.Context, coord grid.Coordinate) error {
	a.clicks = append(a.clicks, coord)
	return popErr(&a.clickErrs)
}

func (a *fakeActions) RunCommand(_ context.Context, command string) (string, error) {
	a.commands = append(a.commands, command)
	if a.cmdErr != nil {
		return "", a.cmdErr
	}
	return a.cmdOutput, nil
}

func (a *fakeActions) WaitForWindow(_ context.Context, appName string, _ time.Duration) error {
	a.waits = append(a.waits, appName)
	return a.waitErr
}

func (a *fakeActions) VerifyWindowState(_ context.Context, appName, state string) error {
	a.stateChecks = append(a.stateChecks, appName+":"+state)
	return nil
}

func (a *fakeActions) Table() *grid.PositionTable { return a.table }

func popErr(q *[]error) error {
	if len(*q) == 0 {
		return nil
	}
	err := (*q)[0]
	*q = (*q)[1:]
	return err
}

// fakeRemedier returns a fixed remedy and records what was asked.
type fakeRemedier struct {
	remedy  troubleshoot.Remedy
	queries []string
}

func (r *fakeRemedier) Suggest(_ context.Context, errText string) troubleshoot.Remedy {
	r.queries = append(r.queries, errText)
	return r.remedy
}

type harness struct {
	orch     *Orchestrator
	planner  *fakePlanner
	verifier *fakeVerifier
	actions  *fakeActions
	remedy   *fakeRemedier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	table, err := grid.NewPositionTable(200, 200)
	if err != nil {
		t.Fatalf("position table: %v", err)
	}
	h := &harness{
		planner:  &fakePlanner{},
		verifier: &fakeVerifier{},
		actions:  &fakeActions{table: table},
		remedy:   &fakeRemedier{},
	}
	cfg := config.NewDefaultConfig().Agent
	cfg.VerificationDelay = 0
	h.orch = NewOrchestrator(
		cfg,
		h.planner,
		h.verifier,
		h.actions,
		&stubCapturer{width: 200, height: 200},
		h.remedy,
		nil,
		nil,
		zaptest.NewLogger(t),
	)
	return h
}

func mustStep(t *testing.T, line string) executor.Step {
	t.Helper()
	step, err := executor.ParseStep(line)
	if err != nil {
		t.Fatalf("parse step %q: %v", line, err)
	}
	return step
}

func mustCoord(t *testing.T, s string) grid.Coordinate {
	t.Helper()
	coord, err := grid.Parse(s)
	if err != nil {
		t.Fatalf("parse coordinate %q: %v", s, err)
	}
	return coord
}
