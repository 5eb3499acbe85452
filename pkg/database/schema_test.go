package database

import (
	"strings"
	"testing"
)

func TestSchemaOrder(t *testing.T) {
	seen := map[string]int{}
	for i, m := range schema {
		if !strings.Contains(m.sql, "IF NOT EXISTS") {
			t.Errorf("%s is not idempotent", m.name)
		}
		seen[m.name] = i
	}

	jobs, ok := seen["research_jobs table"]
	if !ok {
		t.Fatal("research_jobs table missing from schema")
	}
	for name, i := range seen {
		if strings.HasPrefix(name, "research_logs") && i < jobs {
			t.Errorf("%s is created before research_jobs", name)
		}
	}
}
