package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreFirstContact(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "+18001234567")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected no session before first upsert")
	}

	err = store.Upsert(ctx, "+18001234567", "en", Exchange{
		Utterance: "Check this number",
		Reply:     "Risk: LOW (81%)",
		Verdict:   &VerdictSnapshot{Level: "low", Confidence: 81},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sess, found, err := store.Get(ctx, "+18001234567")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected session after upsert")
	}
	if len(sess.History) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(sess.History))
	}
	if got := sess.LastVerdict(); got == nil || got.Level != "low" {
		t.Fatalf("expected stored low verdict, got %#v", got)
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	if err := store.Upsert(ctx, "web-1", "en", Exchange{Utterance: "hi", Reply: "hello"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// 29 minutes later the session is still live.
	clock = func() time.Time { return now.Add(29 * time.Minute) }
	if _, found, _ := store.Get(ctx, "web-1"); !found {
		t.Fatal("session should survive 29 minutes of idle time")
	}

	// 31 minutes after the last activity it is gone, without any Cleanup.
	clock = func() time.Time { return now.Add(31 * time.Minute) }
	if _, found, _ := store.Get(ctx, "web-1"); found {
		t.Fatal("session should be invisible after 31 idle minutes")
	}
}

func TestMemoryStoreExpiredSessionRestartsHistory(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	_ = store.Upsert(ctx, "id", "en", Exchange{Utterance: "first", Reply: "r1"})

	clock = func() time.Time { return now.Add(31 * time.Minute) }
	_ = store.Upsert(ctx, "id", "en", Exchange{Utterance: "second", Reply: "r2"})

	sess, found, _ := store.Get(ctx, "id")
	if !found {
		t.Fatal("expected revived session")
	}
	if len(sess.History) != 1 || sess.History[0].Utterance != "second" {
		t.Fatalf("expected history reset on revival, got %#v", sess.History)
	}
}

func TestMemoryStoreHistoryBounded(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		err := store.Upsert(ctx, "id", "en", Exchange{Utterance: fmt.Sprintf("msg-%d", i), Reply: "ok"})
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	sess, _, _ := store.Get(ctx, "id")
	if len(sess.History) != MaxHistory {
		t.Fatalf("expected %d entries, got %d", MaxHistory, len(sess.History))
	}
	// Oldest dropped first: entries 4..8 remain.
	if sess.History[0].Utterance != "msg-4" {
		t.Fatalf("expected oldest surviving entry msg-4, got %s", sess.History[0].Utterance)
	}
	if sess.History[MaxHistory-1].Utterance != "msg-8" {
		t.Fatalf("expected newest entry msg-8, got %s", sess.History[MaxHistory-1].Utterance)
	}
}

func TestMemoryStoreConcurrentUpserts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := fmt.Sprintf("id-%d", n%5)
			_ = store.Upsert(ctx, identity, "en", Exchange{Utterance: "m", Reply: "r"})
			_, _, _ = store.Get(ctx, identity)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		sess, found, _ := store.Get(ctx, fmt.Sprintf("id-%d", i))
		if !found {
			t.Fatalf("expected session id-%d", i)
		}
		if len(sess.History) != MaxHistory {
			t.Fatalf("expected full bounded history, got %d", len(sess.History))
		}
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	_ = store.Upsert(ctx, "stale", "en", Exchange{Utterance: "a", Reply: "b"})

	clock = func() time.Time { return now.Add(20 * time.Minute) }
	_ = store.Upsert(ctx, "fresh", "en", Exchange{Utterance: "c", Reply: "d"})

	clock = func() time.Time { return now.Add(40 * time.Minute) }
	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}
	if _, found, _ := store.Get(ctx, "fresh"); !found {
		t.Fatal("fresh session should survive cleanup")
	}
}
