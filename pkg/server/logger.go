package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mikeboe/devtools-research/pkg/database"
)

// DBLogHandler writes every record to research_logs for one job and,
// when next is set, also passes it on (usually to the console handler).
type DBLogHandler struct {
	DB    *database.PostgresDB
	JobID uuid.UUID

	next  slog.Handler
	attrs []slog.Attr
}

func NewDBLogHandler(db *database.PostgresDB, jobID uuid.UUID, next slog.Handler) *DBLogHandler {
	return &DBLogHandler{
		DB:    db,
		JobID: jobID,
		next:  next,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	metaJSON := recordMetadata(h.attrs, r)

	query := `
		INSERT INTO research_logs (job_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`
	// Background context: the log line must survive a cancelled job context.
	_, err := h.DB.Pool.Exec(context.Background(), query, h.JobID, r.Time, r.Level.String(), r.Message, metaJSON)

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		rec := r.Clone()
		rec.AddAttrs(slog.String("job_id", h.JobID.String()))
		_ = h.next.Handle(ctx, rec)
	}
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

// WithGroup is not supported; grouped attributes are stored flat.
func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}

// recordMetadata flattens handler and record attributes into a JSON object.
func recordMetadata(base []slog.Attr, r slog.Record) []byte {
	attrs := make(map[string]any, len(base)+r.NumAttrs())
	for _, a := range base {
		attrs[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = attrValue(a.Value)
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		return []byte("{}")
	}
	return metaJSON
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}
