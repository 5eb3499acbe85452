package research

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/devtools-research/pkg/firecrawl"
	"github.com/mikeboe/devtools-research/pkg/prompts"
)

type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]string
	pages    map[string]string
	searches []string
	limits   []int
	scrapes  []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	f.limits = append(f.limits, limit)

	var out []json.RawMessage
	for i, r := range f.results[query] {
		if i >= limit {
			break
		}
		out = append(out, json.RawMessage(r))
	}
	return out
}

func (f *fakeSearcher) Scrape(ctx context.Context, url string) (firecrawl.Page, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrapes = append(f.scrapes, url)

	md, ok := f.pages[url]
	if !ok {
		return firecrawl.Page{}, false
	}
	return firecrawl.Page{Markdown: md}, true
}

type promptKind int

const (
	kindExtraction promptKind = iota
	kindAnalysis
	kindRecommendation
)

type llmCall struct {
	kind    promptKind
	user    string
	options llms.CallOptions
}

// fakeLLM answers by prompt kind; a nil error with empty text is a valid answer.
type fakeLLM struct {
	mu        sync.Mutex
	responses map[promptKind]string
	errs      map[promptKind]error
	calls     []llmCall
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	system := messageText(messages[0])
	kind := kindRecommendation
	switch {
	case strings.HasPrefix(system, prompts.ToolExtractionSystem):
		kind = kindExtraction
	case strings.HasPrefix(system, prompts.ToolAnalysisSystem):
		kind = kindAnalysis
	}

	f.mu.Lock()
	f.calls = append(f.calls, llmCall{kind: kind, user: messageText(messages[1]), options: opts})
	f.mu.Unlock()

	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.responses[kind]}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeLLM) callsOf(kind promptKind) []llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llmCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func messageText(m llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

func newTestEngine(t *testing.T, searcher Searcher, llm llms.Model) *ResearchEngine {
	t.Helper()
	e, err := NewEngine(Config{Temperature: 0.1}, searcher, llm)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return e
}
