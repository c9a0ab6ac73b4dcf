package troubleshoot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/executor"
)

func TestLookupMatchesKnownSignatures(t *testing.T) {
	ts := New(zap.NewNop())

	remedy, ok := ts.Lookup("bind failed: Address already in use on port 8000")
	require.True(t, ok)
	assert.NotEmpty(t, remedy.Hint)
	require.Len(t, remedy.Steps, 1)
	assert.Equal(t, executor.ActionTerminal, remedy.Steps[0].Kind)

	remedy, ok = ts.Lookup("osascript: MyApp is NOT ALLOWED assistive access")
	require.True(t, ok)
	require.Len(t, remedy.Steps, 1)
	assert.Equal(t, executor.ActionHotkey, remedy.Steps[0].Kind)

	_, ok = ts.Lookup("a perfectly novel failure mode")
	assert.False(t, ok)
}

func TestSuggestFallsBackToWebSearch(t *testing.T) {
	const page = `<html><body>
<a class="result__snippet" href="/x">Grant <b>screen recording</b> permission and restart the app.</a>
<a class="result__snippet" href="/y">Second result snippet.</a>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), "mystery kernel oops")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	ts := New(zap.NewNop())
	ts.searchURL = srv.URL

	remedy := ts.Suggest(context.Background(), "mystery kernel oops")
	assert.Equal(t, "Grant screen recording permission and restart the app.", remedy.Hint)
	assert.Empty(t, remedy.Steps)
}

func TestSuggestPrefersKnowledgeBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("web search must not run for known signatures")
	}))
	defer srv.Close()

	ts := New(zap.NewNop())
	ts.searchURL = srv.URL

	remedy := ts.Suggest(context.Background(), "mkdir: cannot create: No such file or directory")
	assert.NotEmpty(t, remedy.Hint)
}

func TestSuggestDegradesOnSearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ts := New(zap.NewNop())
	ts.searchURL = srv.URL

	remedy := ts.Suggest(context.Background(), "never seen before")
	assert.Empty(t, remedy.Hint)
	assert.Empty(t, remedy.Steps)
}
