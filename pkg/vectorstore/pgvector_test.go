package vectorstore

import (
	"strings"
	"testing"
)

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid default collection", "company_pages", true},
		{"Valid leading underscore", "_pages", true},
		{"Valid with numbers", "pages2026", true},
		{"Valid max length", strings.Repeat("abcdefghi", 7), true}, // 63 chars
		{"Invalid mixed case", "company_Pages", false},
		{"Invalid trailing uppercase", "pagesX", false},
		{"Invalid uppercase start", "Pages", false},
		{"Invalid start with number", "1pages", false},
		{"Invalid hyphen", "company-pages", false},
		{"Invalid space", "company pages", false},
		{"Invalid SQL injection", "pages; DROP TABLE research_jobs", false},
		{"Invalid empty", "", false},
		{"Invalid too long", strings.Repeat("abcdefghi", 7) + "_", false}, // 64 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidTableName(tt.input); got != tt.expected {
				t.Errorf("isValidTableName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewPageStore(t *testing.T) {
	for _, name := range []string{"company-pages", "company_Pages"} {
		if _, err := NewPageStore(nil, name); err == nil {
			t.Errorf("expected error for table name %q", name)
		}
	}
	s, err := NewPageStore(nil, "company_pages")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TableName() != "company_pages" {
		t.Errorf("TableName() = %q", s.TableName())
	}
}

func TestPageChunkAccessors(t *testing.T) {
	c := PageChunk{Metadata: map[string]any{"source": "https://acme.test", "company": "Acme DB"}}
	if c.Source() != "https://acme.test" || c.Company() != "Acme DB" {
		t.Errorf("Source() = %q, Company() = %q", c.Source(), c.Company())
	}
	empty := PageChunk{}
	if empty.Source() != "" || empty.Company() != "" {
		t.Error("accessors on empty metadata should return empty strings")
	}
}

func TestFilterWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    Filter
		offset    int
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "Empty filter",
			wantWhere: "TRUE",
		},
		{
			name:      "Company only",
			filter:    Filter{Company: "Acme DB"},
			wantWhere: "metadata->>'company' = $1",
			wantArgs:  []any{"Acme DB"},
		},
		{
			name:      "Source after search arguments",
			filter:    Filter{Source: "https://acme.test"},
			offset:    2,
			wantWhere: "metadata->>'source' = $3",
			wantArgs:  []any{"https://acme.test"},
		},
		{
			name:      "All fields",
			filter:    Filter{Company: "Acme DB", Source: "https://acme.test", JobID: "j1"},
			offset:    2,
			wantWhere: "metadata->>'company' = $3 AND metadata->>'source' = $4 AND metadata->>'job_id' = $5",
			wantArgs:  []any{"Acme DB", "https://acme.test", "j1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotWhere, gotArgs := tt.filter.where(tt.offset)
			if gotWhere != tt.wantWhere {
				t.Errorf("where() = %q, want %q", gotWhere, tt.wantWhere)
			}
			if len(gotArgs) != len(tt.wantArgs) {
				t.Fatalf("where() args = %v, want %v", gotArgs, tt.wantArgs)
			}
			for i := range gotArgs {
				if gotArgs[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %v, want %v", i, gotArgs[i], tt.wantArgs[i])
				}
			}
		})
	}
}
