package embedding

import "context"

// Embedder turns text into vectors. Both methods retry transient failures
// internally with bounded exponential backoff; a batch either succeeds whole
// or fails whole, since a partially embedded document is a failed ingestion.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
