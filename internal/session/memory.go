package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Expiry is lazy: stale
// records survive until Cleanup but are invisible to Get.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	mu      sync.Mutex
	session Session
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL overrides the session idle timeout.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore builds the default in-process store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

// Get returns the live session for identity. Sessions idle past the TTL are
// reported as not found even though the record may still exist.
func (s *MemoryStore) Get(_ context.Context, identity string) (Session, bool, error) {
	s.mu.Lock()
	entry, ok := s.sessions[identity]
	s.mu.Unlock()
	if !ok {
		return Session{}, false, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if expired(entry.session.LastActivity, s.now(), s.ttl) {
		return Session{}, false, nil
	}
	return cloneSession(entry.session), true, nil
}

// Upsert creates the session on first contact, otherwise appends the exchange
// and refreshes the activity timestamp. Calls for the same identity serialize
// on a per-entry lock; distinct identities do not contend.
func (s *MemoryStore) Upsert(_ context.Context, identity, language string, ex Exchange) error {
	if ex.Timestamp.IsZero() {
		ex.Timestamp = s.now()
	}

	s.mu.Lock()
	entry, ok := s.sessions[identity]
	if !ok {
		entry = &memoryEntry{session: Session{Identity: identity}}
		s.sessions[identity] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// A stale record being revived starts from a clean history.
	if ok && expired(entry.session.LastActivity, s.now(), s.ttl) {
		entry.session = Session{Identity: identity}
	}

	entry.session.History = appendBounded(entry.session.History, ex)
	entry.session.LastActivity = s.now()
	if language != "" {
		entry.session.Language = language
	}
	return nil
}

// Cleanup removes every expired session and reports how many were dropped.
func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, entry := range s.sessions {
		entry.mu.Lock()
		stale := expired(entry.session.LastActivity, now, s.ttl)
		entry.mu.Unlock()
		if stale {
			delete(s.sessions, identity)
			removed++
		}
	}
	return removed, nil
}

func cloneSession(src Session) Session {
	out := src
	out.History = make([]Exchange, len(src.History))
	copy(out.History, src.History)
	return out
}
