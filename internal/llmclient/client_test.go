package llmclient

import (
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/gridpilot/internal/config"
)

func testClient() *GeminiClient {
	return &GeminiClient{
		cfg: config.LLMConfig{
			Model:       "gemini-2.0-flash",
			APITimeout:  time.Second,
			Temperature: 0.2,
			MaxTokens:   1024,
			MaxElapsed:  time.Second,
		},
		logger: zap.NewNop(),
	}
}

func TestBuildContentsAppendsImages(t *testing.T) {
	c := testClient()

	contents := c.buildContents(Request{
		UserPrompt: "compare these",
		Images:     [][]byte{{0x89, 0x50}, {0x89, 0x50}},
	})

	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 3)
	assert.Equal(t, "compare these", contents[0].Parts[0].Text)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "image/png", contents[0].Parts[2].InlineData.MIMEType)
}

func TestBuildGenerationConfig(t *testing.T) {
	c := testClient()

	genCfg := c.buildGenerationConfig(Request{SystemPrompt: "be precise", ForceJSON: true})
	require.NotNil(t, genCfg.SystemInstruction)
	assert.Equal(t, "be precise", genCfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", genCfg.ResponseMIMEType)
	assert.Equal(t, int32(1024), genCfg.MaxOutputTokens)

	genCfg = c.buildGenerationConfig(Request{})
	assert.Nil(t, genCfg.SystemInstruction)
	assert.Empty(t, genCfg.ResponseMIMEType)
}

func TestClassifyError(t *testing.T) {
	c := testClient()

	var permanent *backoff.PermanentError

	// Rate limiting and server errors stay retryable.
	for _, code := range []int{429, 500, 503} {
		err := c.classifyError(genai.APIError{Code: code, Message: "try later"})
		assert.False(t, errors.As(err, &permanent), "status %d should be retryable", code)
	}

	// Client errors are permanent.
	err := c.classifyError(genai.APIError{Code: 400, Message: "bad request"})
	assert.True(t, errors.As(err, &permanent))

	// Plain network errors are retryable.
	err = c.classifyError(errors.New("connection reset"))
	assert.False(t, errors.As(err, &permanent))
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), "", config.LLMConfig{}, zap.NewNop())
	require.Error(t, err)
}
