package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Dimension is the embedding size stored in page tables.
const Dimension = 1536

// PageChunk is one embedded piece of a scraped company page.
type PageChunk struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// Source returns the page URL the chunk was taken from.
func (c PageChunk) Source() string {
	s, _ := c.Metadata["source"].(string)
	return s
}

// Company returns the researched tool name the page belongs to.
func (c PageChunk) Company() string {
	s, _ := c.Metadata["company"].(string)
	return s
}

// ScoredChunk is a similarity search hit.
type ScoredChunk struct {
	Chunk PageChunk
	Score float64
}

// PageStore keeps scraped company pages in a pgvector table.
type PageStore struct {
	pool      *pgxpool.Pool
	tableName string
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// isValidTableName accepts lowercase PostgreSQL identifiers (max 63 chars), which read the
// same quoted and unquoted.
func isValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

func NewPageStore(pool *pgxpool.Pool, tableName string) (*PageStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only lowercase letters, digits and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &PageStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

func (s *PageStore) TableName() string {
	return s.tableName
}

// AddChunks inserts chunks in a single batch.
func (s *PageStore) AddChunks(ctx context.Context, chunks []PageChunk) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(query, chunk.Content, metadataJSON, pgvector.NewVector(chunk.Embedding))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return nil
}

// Filter narrows a lookup to chunks whose metadata matches every non-empty field.
type Filter struct {
	Company string
	Source  string
	JobID   string
}

// where renders f as a WHERE clause. Placeholders are numbered after the first offset arguments.
func (f Filter) where(offset int) (string, []any) {
	var conds []string
	var args []any
	add := func(key, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("metadata->>'%s' = $%d", key, offset+len(args)))
	}
	add("company", f.Company)
	add("source", f.Source)
	add("job_id", f.JobID)

	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// SimilaritySearch returns the topK chunks closest to queryEmbedding that match f.
func (s *PageStore) SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, f Filter) ([]ScoredChunk, error) {
	where, filterArgs := f.where(2)
	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{s.tableName}.Sanitize(), where)
	args := append([]any{pgvector.NewVector(queryEmbedding), topK}, filterArgs...)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var similarity float64
		chunk, err := scanChunk(rows, &similarity)
		if err != nil {
			return nil, err
		}
		results = append(results, ScoredChunk{Chunk: chunk, Score: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// ByCompany returns every stored chunk for one researched tool, oldest first.
func (s *PageStore) ByCompany(ctx context.Context, company string) ([]PageChunk, error) {
	return s.Find(ctx, Filter{Company: company})
}

// Find returns the chunks matching f in insertion order.
func (s *PageStore) Find(ctx context.Context, f Filter) ([]PageChunk, error) {
	where, args := f.where(0)
	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE %s
		ORDER BY created_at ASC
	`, pgx.Identifier{s.tableName}.Sanitize(), where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var chunks []PageChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return chunks, nil
}

// scanChunk reads id, content and metadata, then any extra columns into extra.
func scanChunk(row pgx.Row, extra ...any) (PageChunk, error) {
	var chunk PageChunk
	var metadataJSON []byte

	dest := append([]any{&chunk.ID, &chunk.Content, &metadataJSON}, extra...)
	if err := row.Scan(dest...); err != nil {
		return PageChunk{}, fmt.Errorf("failed to scan row: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return PageChunk{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return chunk, nil
}
