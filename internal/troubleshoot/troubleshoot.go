// Package troubleshoot maps known failure signatures to concrete remedies,
// falling back to a single web search for errors the knowledge base has
// never seen. It sits on the abort path, so nothing here is allowed to
// block for long or fail loudly.
package troubleshoot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/gridpilot/internal/executor"
)

// Remedy is a suggested recovery: a human-readable hint plus optional
// concrete action lines the orchestrator attempts exactly once.
type Remedy struct {
	Hint  string
	Steps []executor.Step
}

// kbEntry pairs an error substring with its remedy action lines.
type kbEntry struct {
	substring string
	hint      string
	lines     []string
}

// knowledgeBase holds the error signatures seen in practice. Matching is
// case-insensitive substring containment, first entry wins.
var knowledgeBase = []kbEntry{
	{
		substring: "address already in use",
		hint:      "a previous server still holds the port; rerun so a fresh port is probed",
		lines:     []string{"TERMINAL:python3 -m http.server"},
	},
	{
		substring: "not authorized",
		hint:      "macOS accessibility permissions are missing for the controlling process",
		lines:     []string{"HOTKEY:escape"},
	},
	{
		substring: "not allowed assistive",
		hint:      "enable the app under System Settings > Privacy & Security > Accessibility",
		lines:     []string{"HOTKEY:escape"},
	},
	{
		substring: "no such file or directory",
		hint:      "the destination directory does not exist yet",
		lines:     []string{"TERMINAL:mkdir -p workspace"},
	},
	{
		substring: "application isn't running",
		hint:      "the target application quit; relaunch it through Spotlight",
		lines:     []string{"HOTKEY:spotlight"},
	},
	{
		substring: "timed out",
		hint:      "the window never appeared; wait once more before retrying",
		lines:     []string{"TYPE:WAIT"},
	},
}

const searchTimeout = 5 * time.Second

// snippetRe pulls result snippets out of the DuckDuckGo HTML endpoint.
var snippetRe = regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</a>`)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// Troubleshooter resolves failure text to remedies.
type Troubleshooter struct {
	httpClient *http.Client
	searchURL  string
	log        *zap.Logger
}

func New(logger *zap.Logger) *Troubleshooter {
	return &Troubleshooter{
		httpClient: &http.Client{Timeout: searchTimeout},
		searchURL:  "https://html.duckduckgo.com/html/",
		log:        logger.Named("troubleshoot"),
	}
}

// Lookup consults only the fixed knowledge base.
func (t *Troubleshooter) Lookup(errText string) (Remedy, bool) {
	lower := strings.ToLower(errText)
	for _, entry := range knowledgeBase {
		if !strings.Contains(lower, entry.substring) {
			continue
		}
		remedy := Remedy{Hint: entry.hint}
		for _, line := range entry.lines {
			step, err := executor.ParseStep(line)
			if err != nil {
				continue
			}
			remedy.Steps = append(remedy.Steps, step)
		}
		t.log.Info("Known failure signature matched",
			zap.String("signature", entry.substring),
			zap.String("hint", entry.hint))
		return remedy, true
	}
	return Remedy{}, false
}

// Suggest resolves a remedy for the failure text: the knowledge base
// first, then one web search. An empty Remedy means nothing useful was
// found; the caller proceeds to abort either way.
func (t *Troubleshooter) Suggest(ctx context.Context, errText string) Remedy {
	if remedy, ok := t.Lookup(errText); ok {
		return remedy
	}

	snippet, err := t.search(ctx, errText)
	if err != nil {
		t.log.Debug("Web search for unknown error failed", zap.Error(err))
		return Remedy{}
	}
	if snippet == "" {
		return Remedy{}
	}
	t.log.Info("Web search produced a remedy hint", zap.String("snippet", snippet))
	return Remedy{Hint: snippet}
}

func (t *Troubleshooter) search(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	q := url.Values{"q": {"macOS automation error " + query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.searchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "gridpilot/1.0")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	m := snippetRe.FindSubmatch(body)
	if m == nil {
		return "", nil
	}
	snippet := tagRe.ReplaceAllString(string(m[1]), "")
	return strings.TrimSpace(snippet), nil
}
