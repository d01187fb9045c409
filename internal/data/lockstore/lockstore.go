package lockstore

import "context"

// Locker serializes ingestion cycles per document. Locks are advisory: the
// orchestrator acquires doc-scoped locks around the PROCESSING phase so two
// cycles for the same id never interleave chunk writes.
type Locker interface {
	// TryAcquire returns true when the caller now holds the lock for docId.
	TryAcquire(ctx context.Context, docId string) (bool, error)
	Release(ctx context.Context, docId string) error
}
