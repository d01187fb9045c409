package lockstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

const lockKeyPrefix = "ingest:lock:"

// RedisLocker holds per-document advisory locks in Redis with a TTL so a
// crashed worker can never wedge a document forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger_i.Logger
}

// GetRedisLocker connects and pings. Returns nil when Redis is offline so the
// caller can fall back to the in-memory locker.
func GetRedisLocker(ctx context.Context, addr string) *RedisLocker {
	logger := logger_i.NewLogger("LockStore")

	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		DB:                    config.RedisLockDB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline:", "error", err.Error())
		return nil
	}

	locker := &RedisLocker{
		client: client,
		ttl:    config.IngestLockTTL,
		logger: logger,
	}
	go locker.closeOnDone(ctx)
	return locker
}

func (l *RedisLocker) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	l.logger.Info("Closing lock store")
	if err := l.client.Close(); err != nil {
		l.logger.Error("Error closing redis client", "error", err)
	}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, docId string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+docId, "held", l.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, docId string) error {
	return l.client.Del(ctx, lockKeyPrefix+docId).Err()
}

// NewTestLocker wires an existing client, for tests against miniredis.
func NewTestLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger_i.NewLogger("test lockstore"),
	}
}
