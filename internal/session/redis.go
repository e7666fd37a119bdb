package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const redisKeyPrefix = "session:"

// RedisStore persists sessions in Redis with a TTL matching the session idle
// timeout, so Redis reclaims stale records on its own. Get still applies the
// lazy-expiry check against LastActivity in case the key outlives it.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("sentinel.internal.session.redis")
	}
	return &RedisStore{
		redis:  client,
		tracer: tracer,
		ttl:    DefaultTTL,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, identity string) (Session, bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.redis.get")
	defer span.End()

	data, err := s.redis.Get(ctx, redisKeyPrefix+identity).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Session{}, false, nil
		}
		span.RecordError(err)
		return Session{}, false, fmt.Errorf("session: failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return Session{}, false, fmt.Errorf("session: failed to decode session: %w", err)
	}
	if expired(sess.LastActivity, s.now(), s.ttl) {
		return Session{}, false, nil
	}
	return sess, true, nil
}

func (s *RedisStore) Upsert(ctx context.Context, identity, language string, ex Exchange) error {
	ctx, span := s.tracer.Start(ctx, "session.redis.upsert")
	defer span.End()

	// Per-identity serialization: read-modify-write must not interleave for
	// the same phone number.
	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	if ex.Timestamp.IsZero() {
		ex.Timestamp = s.now()
	}

	sess, found, err := s.Get(ctx, identity)
	if err != nil {
		return err
	}
	if !found {
		sess = Session{Identity: identity}
	}

	sess.History = appendBounded(sess.History, ex)
	sess.LastActivity = s.now()
	if language != "" {
		sess.Language = language
	}

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, redisKeyPrefix+identity, data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}

// Cleanup is mostly a no-op for Redis since keys expire via TTL; it sweeps
// any key whose payload outlived its activity window anyway.
func (s *RedisStore) Cleanup(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "session.redis.cleanup")
	defer span.End()

	removed := 0
	iter := s.redis.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.redis.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil || expired(sess.LastActivity, s.now(), s.ttl) {
			if err := s.redis.Del(ctx, key).Err(); err == nil {
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return removed, fmt.Errorf("session: cleanup scan failed: %w", err)
	}
	return removed, nil
}

func (s *RedisStore) identityLock(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[identity] = lock
	}
	return lock
}
