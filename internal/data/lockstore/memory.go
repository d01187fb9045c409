package lockstore

import (
	"context"
	"sync"
	"time"
)

// InMemoryLocker is the fallback when Redis is offline. Expiry mirrors the
// Redis TTL so a stuck cycle eventually unblocks re-ingestion.
type InMemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	ttl   time.Duration
	clock func() time.Time
}

func InitInMemoryLocker(ttl time.Duration) *InMemoryLocker {
	return &InMemoryLocker{
		held:  make(map[string]time.Time),
		ttl:   ttl,
		clock: time.Now,
	}
}

func (l *InMemoryLocker) TryAcquire(ctx context.Context, docId string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[docId]; ok && l.clock().Before(expiry) {
		return false, nil
	}
	l.held[docId] = l.clock().Add(l.ttl)
	return true, nil
}

func (l *InMemoryLocker) Release(ctx context.Context, docId string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, docId)
	return nil
}
