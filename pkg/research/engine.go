package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smallnest/langgraphgo/graph"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/devtools-research/pkg/config"
	"github.com/mikeboe/devtools-research/pkg/firecrawl"
	"github.com/mikeboe/devtools-research/pkg/prompts"
)

const (
	nodeExtractTools = "extract_tools"
	nodeResearch     = "research"
	nodeAnalyze      = "analyze"

	articleQuerySuffix = "tools comparison best alternatives"
	articleLimit       = 3
	articleExcerptLen  = 1500
	fallbackLimit      = 4
	maxTools           = 4
)

type ResearchEngine struct {
	Config   Config
	Searcher Searcher
	LLM      llms.Model
	Logger   *slog.Logger

	// OnStateUpdate is called with the merged state after every stage.
	OnStateUpdate func(state ResearchState)
	// OnPageScraped is called for every company that made it into the results,
	// with the full markdown of its page.
	OnPageScraped func(ctx context.Context, company CompanyInfo, markdown string)

	graph *graph.StateRunnable[*ResearchState]
}

func NewEngine(cfg Config, searcher Searcher, llm llms.Model) (*ResearchEngine, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if llm == nil {
		return nil, errors.New("llm is required")
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = config.DefaultTemperature
	}

	e := &ResearchEngine{
		Config:   cfg,
		Searcher: searcher,
		LLM:      llm,
		Logger:   slog.Default(),
	}

	workflow := graph.NewStateGraph[*ResearchState]()
	workflow.AddNode(nodeExtractTools, "Extract candidate tools from comparison articles", e.node(e.extractToolsStep))
	workflow.AddNode(nodeResearch, "Scrape and analyze each candidate tool", e.node(e.researchStep))
	workflow.AddNode(nodeAnalyze, "Recommend across all researched tools", e.node(e.analyzeStep))

	workflow.SetEntryPoint(nodeExtractTools)
	workflow.AddEdge(nodeExtractTools, nodeResearch)
	workflow.AddEdge(nodeResearch, nodeAnalyze)
	workflow.AddEdge(nodeAnalyze, graph.END)

	runnable, err := workflow.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile workflow: %w", err)
	}
	e.graph = runnable

	return e, nil
}

// Run executes extract_tools -> research -> analyze for query.
// Only a failure of the final recommendation call is returned as an error.
func (e *ResearchEngine) Run(ctx context.Context, query string) (*ResearchState, error) {
	e.Logger.Info("Starting research", "query", query)

	initial := &ResearchState{
		Query:          query,
		ExtractedTools: []string{},
		Companies:      []CompanyInfo{},
	}
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(*initial)
	}

	final, err := e.graph.Invoke(ctx, initial)
	if err != nil {
		return nil, err
	}

	e.Logger.Info("Research complete", "query", query, "companies", len(final.Companies))
	return final, nil
}

func (e *ResearchEngine) node(step func(context.Context, *ResearchState) (StateUpdate, error)) func(context.Context, *ResearchState) (*ResearchState, error) {
	return func(ctx context.Context, state *ResearchState) (*ResearchState, error) {
		update, err := step(ctx, state)
		if err != nil {
			return state, err
		}
		next := state.Merge(update)
		if e.OnStateUpdate != nil {
			e.OnStateUpdate(*next)
		}
		return next, nil
	}
}

// --- Stage Implementations ---

func (e *ResearchEngine) extractToolsStep(ctx context.Context, state *ResearchState) (StateUpdate, error) {
	e.Logger.Info("Finding articles", "query", state.Query)

	articleQuery := state.Query + " " + articleQuerySuffix
	records := e.Searcher.Search(ctx, articleQuery, articleLimit)

	var allContent strings.Builder
	for _, raw := range records {
		result, ok := firecrawl.Normalize(raw)
		if !ok {
			continue
		}
		url := result.URL()
		if url == "" {
			continue
		}

		page, ok := e.Searcher.Scrape(ctx, url)
		if !ok {
			continue
		}
		allContent.WriteString(truncate(page.Markdown, articleExcerptLen))
		allContent.WriteString("\n\n")
	}

	content, err := e.generate(ctx, prompts.ToolExtraction(state.Query, allContent.String()))
	if err != nil {
		e.Logger.Error("Tool extraction failed", "error", err)
		return StateUpdate{ExtractedTools: []string{}}, nil
	}

	toolNames := []string{}
	for _, line := range strings.Split(content, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			toolNames = append(toolNames, name)
		}
	}

	e.Logger.Info("Extracted tools", "tools", toolNames)
	return StateUpdate{ExtractedTools: toolNames}, nil
}

func (e *ResearchEngine) researchStep(ctx context.Context, state *ResearchState) (StateUpdate, error) {
	var toolNames []string
	if len(state.ExtractedTools) == 0 {
		e.Logger.Warn("No extracted tools found, falling back to direct search", "query", state.Query)
		for _, raw := range e.Searcher.Search(ctx, state.Query, fallbackLimit) {
			result, ok := firecrawl.Normalize(raw)
			if !ok {
				continue
			}
			if title := result.Title(); title != "" {
				toolNames = append(toolNames, title)
			}
		}
	} else {
		toolNames = state.ExtractedTools
		if len(toolNames) > maxTools {
			toolNames = toolNames[:maxTools]
		}
	}

	e.Logger.Info("Researching tools", "tools", strings.Join(toolNames, ", "))

	companies := []CompanyInfo{}
	for _, toolName := range toolNames {
		records := e.Searcher.Search(ctx, toolName, 1)
		if len(records) == 0 {
			e.Logger.Warn("No search results for tool", "tool", toolName)
			continue
		}

		result, ok := firecrawl.Normalize(records[0])
		if !ok {
			continue
		}
		url := result.URL()
		if url == "" {
			continue
		}

		page, ok := e.Searcher.Scrape(ctx, url)
		if !ok {
			e.Logger.Warn("Skipping tool, scrape failed", "tool", toolName, "url", url)
			continue
		}

		analysis := e.analyzeCompanyContent(ctx, toolName, page.Markdown)
		company := newCompanyInfo(toolName, url, analysis)
		companies = append(companies, company)

		if e.OnPageScraped != nil {
			e.OnPageScraped(ctx, company, page.Markdown)
		}
	}

	return StateUpdate{Companies: companies}, nil
}

// analyzeCompanyContent never fails; a model or decoding error yields FailedAnalysis.
func (e *ResearchEngine) analyzeCompanyContent(ctx context.Context, companyName, content string) CompanyAnalysis {
	raw, err := e.generate(ctx, prompts.ToolAnalysis(content), llms.WithJSONMode())
	if err != nil {
		e.Logger.Error("Company analysis failed", "company", companyName, "error", err)
		return FailedAnalysis()
	}

	var analysis CompanyAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &analysis); err != nil {
		e.Logger.Error("Company analysis returned invalid JSON", "company", companyName, "error", err, "content", raw)
		return FailedAnalysis()
	}

	analysis.TechStack = orEmpty(analysis.TechStack)
	analysis.LanguageSupport = orEmpty(analysis.LanguageSupport)
	analysis.IntegrationCapabilities = orEmpty(analysis.IntegrationCapabilities)
	return analysis
}

func (e *ResearchEngine) analyzeStep(ctx context.Context, state *ResearchState) (StateUpdate, error) {
	e.Logger.Info("Generating recommendations", "companies", len(state.Companies))

	serialized := make([]string, 0, len(state.Companies))
	for _, company := range state.Companies {
		data, err := json.Marshal(company)
		if err != nil {
			return StateUpdate{}, fmt.Errorf("failed to serialize company %s: %w", company.Name, err)
		}
		serialized = append(serialized, string(data))
	}

	content, err := e.generate(ctx, prompts.Recommendations(state.Query, strings.Join(serialized, ", ")))
	if err != nil {
		return StateUpdate{}, fmt.Errorf("recommendation failed: %w", err)
	}

	return StateUpdate{Analysis: &content}, nil
}

func (e *ResearchEngine) generate(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (string, error) {
	options = append([]llms.CallOption{llms.WithTemperature(e.Config.Temperature)}, options...)

	resp, err := e.LLM.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
