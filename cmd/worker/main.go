// Command worker runs background maintenance: periodic session sweeps so
// stale conversation state never accumulates in backends without native TTL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/sentinel-intel/sentinel/cmd/mainconfig"
	"github.com/sentinel-intel/sentinel/internal/app/bootstrap"
	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

const sweepInterval = 5 * time.Minute

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sentinel worker", "env", cfg.Env, "session_backend", cfg.SessionBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var dynamoClient *dynamodb.Client
	if cfg.SessionBackend == "dynamo" {
		dynamoClient = dynamodb.NewFromConfig(awsCfg)
	}
	sessions := bootstrap.BuildSessionStore(ctx, cfg, dynamoClient, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, sweepCancel := context.WithTimeout(ctx, time.Minute)
			removed, err := sessions.Cleanup(sweepCtx)
			sweepCancel()
			if err != nil {
				logger.Error("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("session sweep completed", "removed", removed)
			}
		case <-quit:
			logger.Info("worker stopped")
			return
		}
	}
}
