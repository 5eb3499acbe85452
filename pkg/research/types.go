package research

import (
	"context"
	"encoding/json"

	"github.com/mikeboe/devtools-research/pkg/firecrawl"
)

// Config holds runtime configuration. A zero Temperature means config.DefaultTemperature.
type Config struct {
	Temperature float64
}

// Searcher is the search/scrape backend. Implementations never fail: an
// unreachable backend yields no records or ok == false.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []json.RawMessage
	Scrape(ctx context.Context, url string) (firecrawl.Page, bool)
}

// CompanyInfo is everything gathered about one researched tool.
// A nil *bool means unknown.
type CompanyInfo struct {
	Name                    string   `json:"name"`
	Description             string   `json:"description"`
	Website                 string   `json:"website"`
	PricingModel            string   `json:"pricing_model"`
	IsOpenSource            *bool    `json:"is_open_source"`
	TechStack               []string `json:"tech_stack"`
	APIAvailable            *bool    `json:"api_available"`
	LanguageSupport         []string `json:"language_support"`
	IntegrationCapabilities []string `json:"integration_capabilities"`
	Competitors             []string `json:"competitors"`
}

// CompanyAnalysis is the structured output requested from the model for one company page.
type CompanyAnalysis struct {
	PricingModel            string   `json:"pricing_model"`
	IsOpenSource            *bool    `json:"is_open_source"`
	TechStack               []string `json:"tech_stack"`
	Description             string   `json:"description"`
	APIAvailable            *bool    `json:"api_available"`
	LanguageSupport         []string `json:"language_support"`
	IntegrationCapabilities []string `json:"integration_capabilities"`
}

// FailedAnalysis is substituted when structured extraction fails.
func FailedAnalysis() CompanyAnalysis {
	return CompanyAnalysis{
		PricingModel:            "Unknown",
		IsOpenSource:            nil,
		TechStack:               []string{},
		Description:             "Failed",
		APIAvailable:            nil,
		LanguageSupport:         []string{},
		IntegrationCapabilities: []string{},
	}
}

// ResearchState is threaded through the pipeline; each stage returns a StateUpdate merged into it.
type ResearchState struct {
	Query          string        `json:"query"`
	ExtractedTools []string      `json:"extracted_tools"`
	Companies      []CompanyInfo `json:"companies"`
	Analysis       string        `json:"analysis,omitempty"`
}

// StateUpdate is the partial result of one stage. Nil fields are left untouched.
type StateUpdate struct {
	ExtractedTools []string
	Companies      []CompanyInfo
	Analysis       *string
}

// Merge returns a copy of s with u applied.
func (s *ResearchState) Merge(u StateUpdate) *ResearchState {
	next := *s
	if u.ExtractedTools != nil {
		next.ExtractedTools = u.ExtractedTools
	}
	if u.Companies != nil {
		next.Companies = u.Companies
	}
	if u.Analysis != nil {
		next.Analysis = *u.Analysis
	}
	return &next
}

func newCompanyInfo(name, website string, a CompanyAnalysis) CompanyInfo {
	return CompanyInfo{
		Name:                    name,
		Description:             a.Description,
		Website:                 website,
		PricingModel:            a.PricingModel,
		IsOpenSource:            a.IsOpenSource,
		TechStack:               orEmpty(a.TechStack),
		APIAvailable:            a.APIAvailable,
		LanguageSupport:         orEmpty(a.LanguageSupport),
		IntegrationCapabilities: orEmpty(a.IntegrationCapabilities),
		Competitors:             []string{},
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
