package config

// KnowledgeConfig controls indexing of scraped company pages into the vector store.
// Indexing is disabled when GoogleApiKey is empty.
type KnowledgeConfig struct {
	GoogleApiKey   string
	EmbeddingModel string
	CollectionName string
	ChunkSize      int
	ChunkOverlap   int
}

func LoadKnowledgeConfig() KnowledgeConfig {
	return KnowledgeConfig{
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: getEnv("COLLECTION_NAME", "company_pages"),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

func (k KnowledgeConfig) Enabled() bool {
	return k.GoogleApiKey != ""
}
