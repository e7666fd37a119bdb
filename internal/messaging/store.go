package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the channel delivery log in Postgres. Verdicts themselves
// are not persisted; the log records what was received and what was sent,
// with the risk level for audit.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// MessageRecord is one row of the delivery log.
type MessageRecord struct {
	ID                uuid.UUID
	Channel           Channel
	Identity          string
	Direction         string
	Body              string
	RiskLevel         string
	ProviderMessageID string
	CreatedAt         time.Time
}

// InsertMessage appends a delivery log row and returns its id.
func (s *Store) InsertMessage(ctx context.Context, rec MessageRecord) (uuid.UUID, error) {
	query := `
		INSERT INTO messages (channel, identity, direction, body, risk_level, provider_message_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id
	`
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query,
		string(rec.Channel), rec.Identity, rec.Direction, rec.Body, rec.RiskLevel, rec.ProviderMessageID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("messaging: insert message: %w", err)
	}
	return id, nil
}

// HasProviderMessage reports whether a webhook with this provider message id
// was already processed. Used to drop Twilio redeliveries.
func (s *Store) HasProviderMessage(ctx context.Context, providerMessageID string) (bool, error) {
	providerMessageID = strings.TrimSpace(providerMessageID)
	if providerMessageID == "" {
		return false, nil
	}
	query := `
		SELECT 1 FROM messages
		WHERE provider_message_id = $1
		LIMIT 1
	`
	var exists int
	if err := s.pool.QueryRow(ctx, query, providerMessageID).Scan(&exists); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("messaging: check provider message: %w", err)
	}
	return true, nil
}

// RecentByIdentity returns the latest delivery log rows for one identity,
// newest first.
func (s *Store) RecentByIdentity(ctx context.Context, identity string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, channel, identity, direction, body, risk_level,
			COALESCE(provider_message_id, ''), created_at
		FROM messages
		WHERE identity = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("messaging: recent by identity: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		var channel string
		if err := rows.Scan(&rec.ID, &channel, &rec.Identity, &rec.Direction, &rec.Body, &rec.RiskLevel, &rec.ProviderMessageID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan message: %w", err)
		}
		rec.Channel = Channel(channel)
		out = append(out, rec)
	}
	return out, rows.Err()
}
