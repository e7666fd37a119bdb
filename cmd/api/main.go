package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinel-intel/sentinel/cmd/mainconfig"
	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/internal/api/router"
	"github.com/sentinel-intel/sentinel/internal/app/bootstrap"
	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/internal/http/handlers"
	"github.com/sentinel-intel/sentinel/internal/media"
	"github.com/sentinel-intel/sentinel/internal/messaging"
	"github.com/sentinel-intel/sentinel/internal/notify"
	"github.com/sentinel-intel/sentinel/internal/observability/metrics"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sentinel API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

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

	registry, sourceCloser, err := bootstrap.BuildRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build source registry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sourceCloser.Close() }()

	analysisMetrics := metrics.NewAnalysisMetrics(prometheus.DefaultRegisterer)
	mediaStore := media.NewStore(s3.NewFromConfig(awsCfg), cfg.MediaBucket, logger)

	orchOpts := []analysis.Option{
		analysis.WithSourceTimeout(cfg.SourceTimeout),
		analysis.WithMetrics(analysisMetrics),
		analysis.WithMediaFetcher(mediaStore),
	}
	if extractor := bootstrap.BuildExtractor(awsCfg, cfg, logger); extractor != nil {
		orchOpts = append(orchOpts, analysis.WithExtractor(extractor))
	}
	orchestrator := analysis.NewOrchestrator(registry, sessions, logger, orchOpts...)

	var analyzer analysis.Analyzer = orchestrator
	var dispatcher *analysis.Dispatcher
	if cfg.UseMemoryQueue {
		dispatcher = analysis.NewDispatcher(orchestrator, analysis.NewMemoryQueue(64), logger,
			analysis.WithWorkerCount(cfg.WorkerCount))
		analyzer = dispatcher
	} else if cfg.AnalysisQueueURL != "" {
		queue := analysis.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.AnalysisQueueURL)
		dispatcher = analysis.NewDispatcher(orchestrator, queue, logger,
			analysis.WithWorkerCount(cfg.WorkerCount))
		analyzer = dispatcher
	}

	if alerts := bootstrap.BuildAlertService(awsCfg, cfg, logger); alerts != nil {
		analyzer = notify.WrapAnalyzer(analyzer, alerts, "")
	}

	messageStore, pool := bootstrap.BuildMessageStore(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	var twilioWebhook *messaging.WebhookHandler
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
		webhookOpts := []messaging.WebhookOption{messaging.WithChannelMetrics(analysisMetrics)}
		if cfg.TwilioWebhookURL != "" {
			webhookOpts = append(webhookOpts, messaging.WithSignatureValidation(cfg.TwilioWebhookURL))
		}
		if messageStore != nil {
			webhookOpts = append(webhookOpts, messaging.WithDeliveryLog(messageStore))
		}
		twilioWebhook = messaging.NewWebhookHandler(analyzer, sender, cfg.TwilioAccountSID, cfg.TwilioAuthToken, logger, webhookOpts...)
	} else {
		logger.Warn("twilio credentials not set, SMS and WhatsApp channels disabled")
	}

	var mediaHandler *handlers.MediaHandler
	if mediaStore.Enabled() {
		mediaHandler = handlers.NewMediaHandler(analyzer, mediaStore, logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		AnalyzeHandler:     handlers.NewAnalyzeHandler(analyzer, logger),
		MediaHandler:       mediaHandler,
		TwilioWebhook:      twilioWebhook,
		SessionsCleanup:    handlers.NewSessionsCleanupHandler(sessions, logger),
		MetricsHandler:     promhttp.Handler(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if dispatcher != nil {
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			logger.Error("dispatcher shutdown error", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
