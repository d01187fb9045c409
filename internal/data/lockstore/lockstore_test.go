package lockstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLocker_MutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewTestLocker(client, time.Minute)

	ctx := context.Background()

	ok, err := locker.TryAcquire(ctx, "doc-1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = locker.TryAcquire(ctx, "doc-1")
	if err != nil {
		t.Fatalf("second acquire errored: %v", err)
	}
	if ok {
		t.Error("second acquire should be rejected while held")
	}

	// A different document is unaffected.
	ok, _ = locker.TryAcquire(ctx, "doc-2")
	if !ok {
		t.Error("distinct doc ids must not contend")
	}

	if err := locker.Release(ctx, "doc-1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	ok, _ = locker.TryAcquire(ctx, "doc-1")
	if !ok {
		t.Error("acquire after release should succeed")
	}
}

func TestRedisLocker_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewTestLocker(client, time.Second)

	ctx := context.Background()
	if ok, _ := locker.TryAcquire(ctx, "doc-1"); !ok {
		t.Fatal("initial acquire failed")
	}

	mr.FastForward(2 * time.Second)

	ok, err := locker.TryAcquire(ctx, "doc-1")
	if err != nil {
		t.Fatalf("acquire after expiry errored: %v", err)
	}
	if !ok {
		t.Error("lock should be reacquirable after TTL expiry")
	}
}

func TestInMemoryLocker(t *testing.T) {
	locker := InitInMemoryLocker(time.Minute)
	ctx := context.Background()

	if ok, _ := locker.TryAcquire(ctx, "doc-1"); !ok {
		t.Fatal("first acquire failed")
	}
	if ok, _ := locker.TryAcquire(ctx, "doc-1"); ok {
		t.Error("second acquire should be rejected")
	}

	locker.Release(ctx, "doc-1")
	if ok, _ := locker.TryAcquire(ctx, "doc-1"); !ok {
		t.Error("acquire after release should succeed")
	}
}

func TestInMemoryLocker_Expiry(t *testing.T) {
	locker := InitInMemoryLocker(time.Minute)
	now := time.Now()
	locker.clock = func() time.Time { return now }

	ctx := context.Background()
	locker.TryAcquire(ctx, "doc-1")

	locker.clock = func() time.Time { return now.Add(2 * time.Minute) }
	if ok, _ := locker.TryAcquire(ctx, "doc-1"); !ok {
		t.Error("expired lock should be reacquirable")
	}
}
