// File: internal/llmclient/client.go
// Package llmclient wraps the Gemini API behind a small interface shared by
// the planner and verifier roles. Both roles are the same transport; only
// the prompts differ.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/gridpilot/internal/config"
)

// Request carries one generation call. Images are PNG payloads appended to
// the user prompt as inline parts (screenshots for visual reasoning).
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Images       [][]byte
	ForceJSON    bool
}

// Client is the contract the rest of the system depends on; tests substitute
// a scripted fake.
type Client interface {
	GenerateResponse(ctx context.Context, req Request) (string, error)
}

// GeminiClient implements Client on top of the official Gemini SDK, with
// exponential-backoff retries around transient API failures.
type GeminiClient struct {
	client *genai.Client
	cfg    config.LLMConfig
	logger *zap.Logger
}

var _ Client = (*GeminiClient)(nil)

// NewGeminiClient initializes the client. The API key is required.
func NewGeminiClient(ctx context.Context, apiKey string, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		cfg:    cfg,
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// GenerateResponse sends the request to the Gemini API and returns the
// generated text, retrying transient failures.
func (c *GeminiClient) GenerateResponse(ctx context.Context, req Request) (string, error) {
	contents := c.buildContents(req)
	genCfg := c.buildGenerationConfig(req)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.MaxElapsed
	b.MaxInterval = 30 * time.Second

	var responseText string

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.APITimeout)
		defer cancel()

		startTime := time.Now()
		resp, err := c.client.Models.GenerateContent(attemptCtx, c.cfg.Model, contents, genCfg)
		duration := time.Since(startTime)

		if err != nil {
			return c.classifyError(err)
		}

		if len(resp.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		candidate := resp.Candidates[0]
		text := resp.Text()
		if text == "" {
			reason := string(candidate.FinishReason)
			if reason == "SAFETY" || reason == "BLOCKLIST" {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (reason: %s)", reason))
			}
			return fmt.Errorf("gemini API returned empty content (reason: %s)", reason)
		}

		if usage := resp.UsageMetadata; usage != nil {
			c.logger.Info("LLM generation complete",
				zap.Duration("duration", duration),
				zap.Int32("prompt_tokens", usage.PromptTokenCount),
				zap.Int32("completion_tokens", usage.CandidatesTokenCount),
				zap.Int32("total_tokens", usage.TotalTokenCount),
			)
		}

		responseText = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return responseText, nil
}

func (c *GeminiClient) buildContents(req Request) []*genai.Content {
	parts := []*genai.Part{{Text: req.UserPrompt}}
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: img},
		})
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
}

func (c *GeminiClient) buildGenerationConfig(req Request) *genai.GenerateContentConfig {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens: int32(c.cfg.MaxTokens),
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.ForceJSON {
		genCfg.ResponseMIMEType = "application/json"
	}
	return genCfg
}

// classifyError decides whether an API failure is worth retrying. Rate
// limiting and server-side errors are transient; anything else is permanent.
func (c *GeminiClient) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Gemini API returned error status",
			zap.Int("status", apiErr.Code), zap.String("message", apiErr.Message))
		switch apiErr.Code {
		case 429, 500, 503:
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	// Network-level failure; retry.
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return err
}
