package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/config"
	"github.com/xkilldash9x/gridpilot/internal/llmclient"
	"github.com/xkilldash9x/gridpilot/internal/store"
)

type scriptedClient struct {
	reply string
	err   error
	last  llmclient.Request
}

func (c *scriptedClient) GenerateResponse(_ context.Context, req llmclient.Request) (string, error) {
	c.last = req
	return c.reply, c.err
}

func newTestEngine(t *testing.T, client llmclient.Client) (*Engine, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	st, err := store.New(fs, "/ws", config.NewDefaultConfig().Store, zap.NewNop())
	require.NoError(t, err)
	return New(client, st, zap.NewNop()), fs
}

func TestVerifyNormalization(t *testing.T) {
	cases := map[string]Outcome{
		"SUCCESS":                          OutcomeSuccess,
		"success":                          OutcomeSuccess,
		"The step succeeded: SUCCESS.":     OutcomeSuccess,
		"FAILURE":                          OutcomeFailure,
		"failure, the dialog never opened": OutcomeFailure,
		"UNCLEAR":                          OutcomeUnclear,
		"I am not sure what happened":      OutcomeFailure, // unparseable is never success
		"":                                 OutcomeFailure,
	}
	for reply, want := range cases {
		client := &scriptedClient{reply: reply}
		e, _ := newTestEngine(t, client)

		got, err := e.Verify(context.Background(), "open Terminal", []byte{1}, []byte{2})
		require.NoError(t, err, reply)
		assert.Equal(t, want, got, "reply %q", reply)
	}
}

func TestVerifySendsBothImages(t *testing.T) {
	client := &scriptedClient{reply: "SUCCESS"}
	e, _ := newTestEngine(t, client)

	before, after := []byte{1}, []byte{2}
	_, err := e.Verify(context.Background(), "step", before, after)
	require.NoError(t, err)
	require.Len(t, client.last.Images, 2)
	assert.Equal(t, before, client.last.Images[0])
	assert.Equal(t, after, client.last.Images[1])
}

func TestVerifyTransportError(t *testing.T) {
	client := &scriptedClient{err: errors.New("rate limited")}
	e, _ := newTestEngine(t, client)

	outcome, err := e.Verify(context.Background(), "step", []byte{1}, []byte{2})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailure, outcome)
}

func TestApproveClickNormalization(t *testing.T) {
	cases := map[string]Approval{
		"APPROVE":                    ApprovalApprove,
		"approve.":                   ApprovalApprove,
		"ADJUST_LEFT":                ApprovalAdjustLeft,
		"I would say ADJUST_DOWN":    ApprovalAdjustDown,
		"REJECT":                     ApprovalReject,
		"the crosshair looks wrong":  ApprovalReject, // unparseable degrades to reject
	}
	for reply, want := range cases {
		client := &scriptedClient{reply: reply}
		e, _ := newTestEngine(t, client)

		got, err := e.ApproveClick(context.Background(), "the Send button", []byte{1})
		require.NoError(t, err, reply)
		assert.Equal(t, want, got, "reply %q", reply)
	}
}

func TestExchangesAreAudited(t *testing.T) {
	client := &scriptedClient{reply: "SUCCESS"}
	e, fs := newTestEngine(t, client)

	_, err := e.Verify(context.Background(), "step", []byte{1}, []byte{2})
	require.NoError(t, err)

	entries, err := afero.ReadDir(fs, "/ws/responses")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "step_verification_")
}
