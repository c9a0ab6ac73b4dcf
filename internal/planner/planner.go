// Package planner wraps the model's planning role: breaking a request into
// prefixed action lines, resolving click descriptions to grid coordinates,
// rephrasing failed steps, and judging overall task completion.
package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/executor"
	"github.com/xkilldash9x/gridpilot/internal/grid"
	"github.com/xkilldash9x/gridpilot/internal/llmclient"
	"github.com/xkilldash9x/gridpilot/internal/llmutil"
	"github.com/xkilldash9x/gridpilot/internal/store"
)

// coordReplyRe extracts the coordinate from the %%%coord@@@ reply protocol.
var coordReplyRe = regexp.MustCompile(`%%%\s*([a-z]{2}[0-9]{2})\s*@@@`)

// numberedLineRe strips "1. " style numbering the model sometimes adds
// despite instructions.
var numberedLineRe = regexp.MustCompile(`^\d+[.)]\s+`)

// Planner drives the planning-side model exchanges. Every exchange is
// written to the audit store; audit failures are logged, never fatal.
type Planner struct {
	client llmclient.Client
	store  *store.Store
	log    *zap.Logger
}

func New(client llmclient.Client, st *store.Store, logger *zap.Logger) *Planner {
	return &Planner{
		client: client,
		store:  st,
		log:    logger.Named("planner"),
	}
}

// PlanTask breaks a request into prefixed action lines. Lines without a
// recognized prefix are dropped; zero surviving lines is an error.
func (p *Planner) PlanTask(ctx context.Context, request string, screenshot []byte) ([]executor.Step, error) {
	req := llmclient.Request{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   fmt.Sprintf(planUserPrompt, request),
	}
	if screenshot != nil {
		req.Images = [][]byte{screenshot}
	}

	reply, err := p.client.GenerateResponse(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("task planning request failed: %w", err)
	}
	p.audit("task_planning", request, reply, nil)

	var steps []executor.Step
	for _, line := range llmutil.Lines(reply) {
		line = numberedLineRe.ReplaceAllString(line, "")
		step, err := executor.ParseStep(line)
		if err != nil {
			p.log.Debug("Dropping unprefixed plan line", zap.String("line", line))
			continue
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, &executor.ValidationError{
			Reason: "planner produced no lines starting with TYPE:, CLICK:, HOTKEY: or TERMINAL:",
		}
	}

	p.log.Info("Task planned", zap.String("request", request), zap.Int("steps", len(steps)))
	return steps, nil
}

// ResolveClickTarget asks the model where to click on the current
// grid-overlaid screenshot. The reply must follow the %%%coord@@@ protocol
// and parse under the coordinate grammar. A reply that does neither is a
// plain error, not a validation error: the model can be asked again, so
// the retry loop gets its full budget.
func (p *Planner) ResolveClickTarget(ctx context.Context, description string, screenshot []byte) (grid.Coordinate, error) {
	reply, err := p.client.GenerateResponse(ctx, llmclient.Request{
		UserPrompt: fmt.Sprintf(clickTargetPrompt, description),
		Images:     [][]byte{screenshot},
	})
	if err != nil {
		return grid.Coordinate{}, fmt.Errorf("click target request failed: %w", err)
	}
	p.audit("click_target", description, reply, nil)

	m := coordReplyRe.FindStringSubmatch(strings.ToLower(reply))
	if m == nil {
		return grid.Coordinate{}, fmt.Errorf("click target reply %q does not follow the %%%%%%coord@@@ protocol", strings.TrimSpace(reply))
	}

	coord, err := grid.Parse(m[1])
	if err != nil {
		return grid.Coordinate{}, fmt.Errorf("click target reply carries invalid coordinate %q: %w", m[1], err)
	}

	p.log.Info("Click target resolved",
		zap.String("description", description),
		zap.String("coordinate", coord.String()))
	return coord, nil
}

// RephraseStep asks for a single replacement line after a failed attempt,
// feeding the failure context back to the model.
func (p *Planner) RephraseStep(ctx context.Context, failed executor.Step, outcome string, previousAttempts []string) (executor.Step, error) {
	prompt := fmt.Sprintf(rephrasePrompt, failed.Raw, outcome)
	if len(previousAttempts) > 0 {
		prompt += "\nPrevious attempts that did not work:\n" + strings.Join(previousAttempts, "\n")
	}

	reply, err := p.client.GenerateResponse(ctx, llmclient.Request{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return executor.Step{}, fmt.Errorf("step rephrase request failed: %w", err)
	}
	p.audit("step_rephrase", failed.Raw, reply, map[string]any{"outcome": outcome})

	for _, line := range llmutil.Lines(reply) {
		line = numberedLineRe.ReplaceAllString(line, "")
		if step, err := executor.ParseStep(line); err == nil {
			return step, nil
		}
	}
	return executor.Step{}, errors.New("rephrase reply contains no valid action line")
}

// completionReply is the forced-JSON shape of the completion check.
type completionReply struct {
	Status    string `json:"status"`
	Remaining string `json:"remaining"`
}

// CheckCompletion asks whether the overall task is done. When it is not,
// the returned remaining string is the sub-request to plan next.
func (p *Planner) CheckCompletion(ctx context.Context, request string, history []string, screenshot []byte) (bool, string, error) {
	prompt := fmt.Sprintf(completionPrompt, request, strings.Join(history, "\n"))
	req := llmclient.Request{
		UserPrompt: prompt,
		ForceJSON:  true,
	}
	if screenshot != nil {
		req.Images = [][]byte{screenshot}
	}

	reply, err := p.client.GenerateResponse(ctx, req)
	if err != nil {
		return false, "", fmt.Errorf("completion check request failed: %w", err)
	}
	p.audit("task_completion", request, reply, map[string]any{"executed_steps": len(history)})

	parsed, err := llmutil.ParseJSONResponse[completionReply](reply)
	if err != nil {
		return false, "", fmt.Errorf("completion check reply unparseable: %w", err)
	}

	switch strings.ToUpper(strings.TrimSpace(parsed.Status)) {
	case "COMPLETED":
		return true, "", nil
	case "CONTINUE":
		remaining := strings.TrimSpace(parsed.Remaining)
		if remaining == "" {
			remaining = request
		}
		return false, remaining, nil
	default:
		return false, "", fmt.Errorf("completion check returned unknown status %q", parsed.Status)
	}
}

func (p *Planner) audit(recordType, request, response string, metadata map[string]any) {
	if p.store == nil {
		return
	}
	if _, err := p.store.SaveAudit(recordType, request, response, metadata); err != nil {
		p.log.Warn("Failed to persist audit record", zap.String("type", recordType), zap.Error(err))
	}
}
