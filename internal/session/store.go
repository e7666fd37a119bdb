package session

import (
	"context"
	"time"
)

const (
	// DefaultTTL is how long a session stays answerable after its last
	// exchange. Lookups past this age behave as if the session never existed.
	DefaultTTL = 30 * time.Minute

	// MaxHistory bounds the exchange history per identity. Oldest entries
	// are dropped first.
	MaxHistory = 5
)

// VerdictSnapshot captures the parts of a risk verdict a follow-up question
// can be answered from. The full verdict is not retained.
type VerdictSnapshot struct {
	Level           string   `json:"level"`
	Confidence      float64  `json:"confidence"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Exchange is one user utterance and the reply it produced. Verdict is nil
// for follow-up replies that did not trigger a fresh analysis.
type Exchange struct {
	Utterance string           `json:"utterance"`
	Reply     string           `json:"reply"`
	Verdict   *VerdictSnapshot `json:"verdict,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Session is the short-lived conversational context bound to one identity
// (phone number or web session id).
type Session struct {
	Identity     string     `json:"identity"`
	History      []Exchange `json:"history"`
	LastActivity time.Time  `json:"last_activity"`
	Language     string     `json:"language,omitempty"`
}

// LastVerdict returns the most recent snapshot in the history, if any.
func (s *Session) LastVerdict() *VerdictSnapshot {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Verdict != nil {
			return s.History[i].Verdict
		}
	}
	return nil
}

// Store is the injectable conversation memory. Implementations must treat a
// session idle past the TTL as not found on Get even if the record still
// physically exists, and must serialize Upserts for the same identity.
type Store interface {
	Get(ctx context.Context, identity string) (Session, bool, error)
	Upsert(ctx context.Context, identity, language string, ex Exchange) error
	Cleanup(ctx context.Context) (int, error)
}

func appendBounded(history []Exchange, ex Exchange) []Exchange {
	history = append(history, ex)
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	return history
}

func expired(lastActivity, now time.Time, ttl time.Duration) bool {
	return now.Sub(lastActivity) > ttl
}
