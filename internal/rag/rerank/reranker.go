package rerank

import (
	"context"

	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
)

// Reranker reorders retrieved chunks by a secondary relevance score. It is a
// black box to the query pipeline; a failing reranker degrades to the
// original retrieval order rather than aborting the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, matches []vectorDB.Match) ([]vectorDB.Match, error)
}
