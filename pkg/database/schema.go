package database

import (
	"context"
	"fmt"
)

type migration struct {
	name string
	sql  string
}

// schema is applied in order on every start; each statement is idempotent.
var schema = []migration{
	{"research_jobs table", `
		CREATE TABLE IF NOT EXISTS research_jobs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			query TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'running', 'completed', 'failed')),
			config JSONB,
			state JSONB,
			analysis TEXT,
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`},
	{"research_logs table", `
		CREATE TABLE IF NOT EXISTS research_logs (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES research_jobs(id) ON DELETE CASCADE,
			timestamp TIMESTAMPTZ DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		)`},
	{"research_logs job index", `CREATE INDEX IF NOT EXISTS idx_research_logs_job_ts ON research_logs(job_id, timestamp)`},
	{"research_jobs recency index", `CREATE INDEX IF NOT EXISTS idx_research_jobs_created_at ON research_jobs(created_at DESC)`},
	{"research_jobs status index", `CREATE INDEX IF NOT EXISTS idx_research_jobs_status ON research_jobs(status)`},
}

// InitSchema creates the job and log tables used by the server.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	for _, m := range schema {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", m.name, err)
		}
	}
	return nil
}
