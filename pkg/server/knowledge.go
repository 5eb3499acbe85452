package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mikeboe/devtools-research/pkg/config"
	"github.com/mikeboe/devtools-research/pkg/database"
	"github.com/mikeboe/devtools-research/pkg/embeddings"
	"github.com/mikeboe/devtools-research/pkg/research"
	"github.com/mikeboe/devtools-research/pkg/splitter"
	"github.com/mikeboe/devtools-research/pkg/vectorstore"
)

// KnowledgeBase indexes scraped company pages so they can be searched after a job finishes.
type KnowledgeBase struct {
	Store    *vectorstore.PageStore
	Embedder embeddings.Embedder
	Splitter *splitter.TextSplitter
	Logger   *slog.Logger
}

func NewKnowledgeBase(ctx context.Context, db *database.PostgresDB, cfg config.KnowledgeConfig) (*KnowledgeBase, error) {
	if !cfg.Enabled() {
		return nil, errors.New("knowledge base requires GOOGLE_API_KEY")
	}

	store, err := vectorstore.NewPageStore(db.Pool, cfg.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}

	if err := db.EnsureVectorExtension(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if err := db.CreateEmbeddingsTable(ctx, store.TableName(), vectorstore.Dimension); err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey, vectorstore.Dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}

	return &KnowledgeBase{
		Store:    store,
		Embedder: embedder,
		Splitter: splitter.NewMarkdownSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Logger:   slog.Default(),
	}, nil
}

// IndexPage chunks, embeds and stores one researched company page.
func (k *KnowledgeBase) IndexPage(ctx context.Context, jobID uuid.UUID, company research.CompanyInfo, markdown string) error {
	pieces, err := k.Splitter.SplitText(markdown)
	if err != nil {
		return fmt.Errorf("failed to split page: %w", err)
	}
	if len(pieces) == 0 {
		return nil
	}

	vectors, err := k.Embedder.EmbedTexts(ctx, pieces)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(pieces) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(pieces))
	}

	if err := k.Store.AddChunks(ctx, buildChunks(jobID, company, pieces, vectors)); err != nil {
		return err
	}

	k.Logger.Info("Indexed company page", "company", company.Name, "url", company.Website, "chunks", len(pieces))
	return nil
}

// Search embeds query and returns the closest stored chunks matching f.
func (k *KnowledgeBase) Search(ctx context.Context, query string, topK int, f vectorstore.Filter) ([]vectorstore.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := k.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return k.Store.SimilaritySearch(ctx, vec, topK, f)
}

func (k *KnowledgeBase) ByCompany(ctx context.Context, name string) ([]vectorstore.PageChunk, error) {
	return k.Store.ByCompany(ctx, name)
}

func buildChunks(jobID uuid.UUID, company research.CompanyInfo, pieces []string, vectors [][]float32) []vectorstore.PageChunk {
	chunks := make([]vectorstore.PageChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = vectorstore.PageChunk{
			Content: piece,
			Metadata: map[string]any{
				"source":        company.Website,
				"company":       company.Name,
				"pricing_model": company.PricingModel,
				"job_id":        jobID.String(),
				"chunk":         i,
			},
			Embedding: vectors[i],
		}
	}
	return chunks
}
