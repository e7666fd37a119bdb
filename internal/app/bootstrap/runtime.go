// Package bootstrap wires configuration into concrete runtime components so
// the api and worker binaries share one construction path.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/internal/messaging"
	"github.com/sentinel-intel/sentinel/internal/session"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildSessionStore selects the conversation store backend. Unknown or
// unreachable backends fall back to process memory.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, dynamoClient *dynamodb.Client, logger *logging.Logger) session.Store {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.SessionBackend {
	case "redis":
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("using redis session store", "addr", cfg.RedisAddr)
			return session.NewRedisStore(client, nil)
		}
		logger.Warn("redis session backend unavailable, falling back to memory")
	case "dynamo":
		if dynamoClient != nil {
			logger.Info("using dynamodb session store", "table", cfg.SessionsTable)
			return session.NewDynamoStore(dynamoClient, cfg.SessionsTable, logger)
		}
		logger.Warn("dynamo session backend requested without a client, falling back to memory")
	}
	return session.NewMemoryStore()
}

// BuildMessageStore opens the Postgres message log. Returns nil when no
// DATABASE_URL is configured; delivery logging is then skipped.
func BuildMessageStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*messaging.Store, *pgxpool.Pool) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres not available, message log disabled", "error", err)
		return nil, nil
	}
	return messaging.NewStore(pool), pool
}
