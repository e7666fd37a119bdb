package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, nil), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "+15550001111", "hi", Exchange{
		Utterance: "इस नंबर की जांच करें",
		Reply:     "जोखिम: MEDIUM (55%)",
		Verdict:   &VerdictSnapshot{Level: "medium", Confidence: 55},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sess, found, err := store.Get(ctx, "+15550001111")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected session")
	}
	if sess.Language != "hi" {
		t.Fatalf("expected language hi, got %q", sess.Language)
	}
	if got := sess.LastVerdict(); got == nil || got.Level != "medium" {
		t.Fatalf("expected medium verdict, got %#v", got)
	}
}

func TestRedisStoreLazyExpiry(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "id", "en", Exchange{Utterance: "a", Reply: "b"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Even if the Redis key is still present, a record idle past the TTL is
	// reported as not found.
	store.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	if _, found, _ := store.Get(ctx, "id"); found {
		t.Fatal("expected expired session to be invisible")
	}
}

func TestRedisStoreHistoryBounded(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := store.Upsert(ctx, "id", "en", Exchange{Utterance: "m", Reply: "r"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	sess, _, err := store.Get(ctx, "id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.History) != MaxHistory {
		t.Fatalf("expected %d entries, got %d", MaxHistory, len(sess.History))
	}
}

func TestRedisStoreKeyTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "id", "en", Exchange{Utterance: "a", Reply: "b"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	mr.FastForward(31 * time.Minute)
	if mr.Exists(redisKeyPrefix + "id") {
		t.Fatal("expected redis TTL to reclaim the key")
	}
}

func TestRedisStoreCleanup(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "stale", "en", Exchange{Utterance: "a", Reply: "b"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
