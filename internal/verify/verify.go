// Package verify judges step outcomes by showing before/after screenshots
// to the model and normalizing its free-text reply into a closed set of
// outcomes. The engine never trusts an ambiguous reply: anything
// unparseable degrades to FAILURE (or REJECT for click approval), never to
// success.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/llmclient"
	"github.com/xkilldash9x/gridpilot/internal/store"
)

// Outcome is the three-way verdict of an after-the-fact comparison.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeUnclear Outcome = "UNCLEAR"
)

// Approval is the verdict of a pre-click position check on a single
// annotated screenshot.
type Approval string

const (
	ApprovalApprove     Approval = "APPROVE"
	ApprovalAdjustLeft  Approval = "ADJUST_LEFT"
	ApprovalAdjustRight Approval = "ADJUST_RIGHT"
	ApprovalAdjustUp    Approval = "ADJUST_UP"
	ApprovalAdjustDown  Approval = "ADJUST_DOWN"
	ApprovalReject      Approval = "REJECT"
)

const verifyPrompt = `You are a precise verification system. Compare these two screenshots
(before and after) to verify if this step was completed:
%q

Criteria:
- Visual changes must match the expected outcome.
- Any error messages or absence of expected visuals means FAILURE.
- If the screenshots genuinely do not let you decide, say UNCLEAR.

Respond with one word: SUCCESS, FAILURE or UNCLEAR.`

const approvePrompt = `The attached screenshot shows an intended click position marked with a
crosshair, concentric circles and a highlighted grid cell. The click is
meant to hit: %q

Judge the marked position BEFORE the click happens:
- APPROVE if the crosshair is on the target
- ADJUST_LEFT / ADJUST_RIGHT / ADJUST_UP / ADJUST_DOWN if the target is
  one cell away in that direction
- REJECT if the target is not near the marked position

Respond with exactly one of those words. No other text.`

// Engine is the verification collaborator.
type Engine struct {
	client llmclient.Client
	store  *store.Store
	log    *zap.Logger
}

func New(client llmclient.Client, st *store.Store, logger *zap.Logger) *Engine {
	return &Engine{
		client: client,
		store:  st,
		log:    logger.Named("verify"),
	}
}

// Verify compares before/after screenshots against the step description.
// Transport errors are returned as errors; a reply that arrives but cannot
// be parsed is a FAILURE verdict, not an error.
func (e *Engine) Verify(ctx context.Context, step string, before, after []byte) (Outcome, error) {
	reply, err := e.client.GenerateResponse(ctx, llmclient.Request{
		UserPrompt: fmt.Sprintf(verifyPrompt, step),
		Images:     [][]byte{before, after},
	})
	if err != nil {
		return OutcomeFailure, fmt.Errorf("verification request failed: %w", err)
	}

	outcome := normalizeOutcome(reply)
	e.audit("step_verification", step, reply, map[string]any{"outcome": string(outcome)})
	e.log.Info("Step verified", zap.String("step", step), zap.String("outcome", string(outcome)))
	return outcome, nil
}

// ApproveClick judges an annotated simulated-click image before the real
// click. Unparseable replies degrade to REJECT.
func (e *Engine) ApproveClick(ctx context.Context, target string, annotated []byte) (Approval, error) {
	reply, err := e.client.GenerateResponse(ctx, llmclient.Request{
		UserPrompt: fmt.Sprintf(approvePrompt, target),
		Images:     [][]byte{annotated},
	})
	if err != nil {
		return ApprovalReject, fmt.Errorf("click approval request failed: %w", err)
	}

	approval := normalizeApproval(reply)
	e.audit("click_approval", target, reply, map[string]any{"approval": string(approval)})
	e.log.Info("Click position judged", zap.String("target", target), zap.String("approval", string(approval)))
	return approval, nil
}

// normalizeOutcome maps a free-text reply onto the three-way outcome.
// The first recognized token wins; no token at all means FAILURE.
func normalizeOutcome(reply string) Outcome {
	for _, token := range strings.Fields(strings.ToUpper(reply)) {
		switch trimToken(token) {
		case string(OutcomeSuccess):
			return OutcomeSuccess
		case string(OutcomeFailure):
			return OutcomeFailure
		case string(OutcomeUnclear):
			return OutcomeUnclear
		}
	}
	return OutcomeFailure
}

func normalizeApproval(reply string) Approval {
	known := []Approval{
		ApprovalApprove,
		ApprovalAdjustLeft, ApprovalAdjustRight, ApprovalAdjustUp, ApprovalAdjustDown,
		ApprovalReject,
	}
	for _, token := range strings.Fields(strings.ToUpper(reply)) {
		for _, a := range known {
			if trimToken(token) == string(a) {
				return a
			}
		}
	}
	return ApprovalReject
}

func trimToken(token string) string {
	return strings.Trim(token, ".,!:;\"'`*")
}

func (e *Engine) audit(recordType, request, response string, metadata map[string]any) {
	if e.store == nil {
		return
	}
	if _, err := e.store.SaveAudit(recordType, request, response, metadata); err != nil {
		e.log.Warn("Failed to persist audit record", zap.String("type", recordType), zap.Error(err))
	}
}
