package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/devtools-research/pkg/config"
	"github.com/mikeboe/devtools-research/pkg/database"
	"github.com/mikeboe/devtools-research/pkg/firecrawl"
	"github.com/mikeboe/devtools-research/pkg/research"
)

var (
	ErrEmptyQuery  = errors.New("query must not be empty")
	ErrJobNotFound = errors.New("job not found")
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Service struct {
	DB  *database.PostgresDB
	Cfg *config.Config
	LLM llms.Model
	// Knowledge is nil when page indexing is disabled.
	Knowledge *KnowledgeBase
	// Console receives a copy of every job log record.
	Console slog.Handler
}

func NewService(db *database.PostgresDB, cfg *config.Config, llm llms.Model, kb *KnowledgeBase) *Service {
	return &Service{
		DB:        db,
		Cfg:       cfg,
		LLM:       llm,
		Knowledge: kb,
		Console:   slog.Default().Handler(),
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Analysis  *string         `json:"analysis,omitempty"`
	Error     *string         `json:"error,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	Query string `json:"query"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	configJSON, _ := json.Marshal(map[string]any{
		"model":       s.Cfg.LLMModel,
		"temperature": s.Cfg.Temperature,
		"indexing":    s.Knowledge != nil,
	})

	insert := `
		INSERT INTO research_jobs (id, query, status, config)
		VALUES ($1, $2, $3, $4)
		RETURNING id, query, status, config, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, insert, uuid.New(), query, StatusPending, configJSON).Scan(
		&job.ID, &job.Query, &job.Status, &job.Config, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	go s.runWorker(job.ID, query)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, query, status, analysis, error, state, config, created_at, updated_at
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Query, &job.Status, &job.Analysis, &job.Error, &job.State, &job.Config, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, query, status, analysis, error, config, created_at, updated_at
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Query, &job.Status, &job.Analysis, &job.Error, &job.Config, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type LogEntry struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *Service) runWorker(jobID uuid.UUID, query string) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = $2, updated_at = NOW() WHERE id = $1", jobID, StatusRunning)

	jobLogger := slog.New(NewDBLogHandler(s.DB, jobID, s.Console))

	engine, err := s.newEngine(jobLogger)
	if err != nil {
		s.failJob(ctx, jobLogger, jobID, fmt.Errorf("failed to init engine: %w", err))
		return
	}

	engine.OnStateUpdate = func(state research.ResearchState) {
		s.saveState(jobLogger, jobID, state)
	}

	if s.Knowledge != nil {
		engine.OnPageScraped = func(ctx context.Context, company research.CompanyInfo, markdown string) {
			if err := s.Knowledge.IndexPage(ctx, jobID, company, markdown); err != nil {
				jobLogger.Error("Failed to index company page", "company", company.Name, "error", err)
			}
		}
	}

	state, err := engine.Run(ctx, query)
	if err != nil {
		s.failJob(ctx, jobLogger, jobID, fmt.Errorf("research failed: %w", err))
		return
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		jobLogger.Error("Failed to marshal final state", "error", err)
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = $2, analysis = $3, state = COALESCE($4, state), updated_at = NOW() WHERE id = $1",
		jobID, StatusCompleted, state.Analysis, stateJSON)
	if err != nil {
		jobLogger.Error("Failed to save analysis to DB", "error", err)
	}
}

func (s *Service) newEngine(logger *slog.Logger) (*research.ResearchEngine, error) {
	searcher, err := firecrawl.NewClient(s.Cfg.FirecrawlApiKey,
		firecrawl.WithBaseURL(s.Cfg.FirecrawlBaseURL),
		firecrawl.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	engine, err := research.NewEngine(research.Config{Temperature: s.Cfg.Temperature}, searcher, s.LLM)
	if err != nil {
		return nil, err
	}
	engine.Logger = logger
	return engine, nil
}

func (s *Service) saveState(logger *slog.Logger, jobID uuid.UUID, state research.ResearchState) {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		logger.Error("Failed to marshal state", "error", err)
		return
	}

	_, err = s.DB.Pool.Exec(context.Background(),
		"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
		jobID, stateJSON)
	if err != nil {
		logger.Error("Failed to save state to DB", "error", err)
	}
}

func (s *Service) failJob(ctx context.Context, logger *slog.Logger, jobID uuid.UUID, reason error) {
	logger.Error("Job failed", "error", reason)

	_, _ = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = $2, error = $3, updated_at = NOW() WHERE id = $1",
		jobID, StatusFailed, reason.Error())
}
