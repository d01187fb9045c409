package vectorDB

import (
	"context"

	"github.com/capturelabs/capture-engine/internal/domain/docModel"
)

// Match is one scored search hit with the chunk text and its fixed metadata.
type Match struct {
	Score    float32
	Content  string
	DocId    string
	DocType  string
	DocTitle string
	Ordinal  int
}

// SearchFilter optionally narrows a search by chunk metadata.
type SearchFilter struct {
	DocType string
}

type DataProcessor interface {
	CreateCollection(ctx context.Context, collectionName string) error

	// UpsertDocument replaces the full chunk set for a document. Point ids
	// derive from (doc_id, ordinal), so re-ingestion overwrites instead of
	// duplicating; stale points from a previous, longer chunk set are
	// removed in the same call.
	UpsertDocument(ctx context.Context, collectionName string, docId string, chunks []docModel.DocChunk, vectors [][]float32) error

	Search(ctx context.Context, collectionName string, queryVector []float32, topK int, filter *SearchFilter) ([]Match, error)

	Ping(ctx context.Context) error
}
