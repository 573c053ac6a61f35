package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"

	"github.com/ohftok/ohftok-render/internal/admission"
	"github.com/ohftok/ohftok-render/internal/api"
	"github.com/ohftok/ohftok-render/internal/assets"
	"github.com/ohftok/ohftok-render/internal/blob"
	"github.com/ohftok/ohftok-render/internal/config"
	"github.com/ohftok/ohftok-render/internal/events"
	"github.com/ohftok/ohftok-render/internal/identity"
	"github.com/ohftok/ohftok-render/internal/logging"
	"github.com/ohftok/ohftok-render/internal/metadata"
	"github.com/ohftok/ohftok-render/internal/process"
	"github.com/ohftok/ohftok-render/internal/render"
	"github.com/ohftok/ohftok-render/internal/videos"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting render service",
		"version", config.Version,
		"project", cfg.ProjectID(),
		"bucket", cfg.StorageBucket(),
	)

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID())
	if err != nil {
		return fmt.Errorf("failed to init firestore: %w", err)
	}
	defer fsClient.Close()

	stClient, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer stClient.Close()

	repo := videos.NewFirestoreRepository(fsClient)
	store := blob.NewGCSStore(stClient, cfg.StorageBucket(), cfg.SignedURLTTL(), logger)

	renderClient := render.NewHTTPClient(render.DefaultBaseURL, cfg.ReplicateToken(),
		logging.WithComponent(logger, "render"))

	var enricher metadata.Enricher = metadata.Disabled{}
	if cfg.OpenAIKey() != "" {
		enricher = metadata.NewOpenAIEnricher(metadata.DefaultBaseURL, cfg.OpenAIKey(),
			logging.WithComponent(logger, "metadata"))
	} else {
		logger.Warn("no OpenAI key configured, metadata enrichment disabled")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.PubSubTopic() != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID())
		if err != nil {
			return fmt.Errorf("failed to init pubsub: %w", err)
		}
		defer psClient.Close()
		psPublisher := events.NewPubSubPublisher(psClient, cfg.PubSubTopic(),
			logging.WithComponent(logger, "events"))
		defer psPublisher.Stop()
		publisher = psPublisher
		logger.Info("processed events enabled", "topic", cfg.PubSubTopic())
	}

	ffmpeg, err := assets.NewExecFFmpeg(logging.WithComponent(logger, "ffmpeg"))
	if err != nil {
		return fmt.Errorf("failed to init ffmpeg: %w", err)
	}
	pipeline := assets.NewPipeline(ffmpeg, store, logging.WithComponent(logger, "assets"))
	processor := process.NewProcessor(pipeline, enricher, repo, publisher,
		logging.WithComponent(logger, "process"))

	guards := admission.Chain{admission.NewModerationGuard(nil)}
	if cfg.DailyLimit() > 0 {
		guards = append(guards, admission.NewDailyCapGuard(videos.NewFirestoreDailyCounter(fsClient), cfg.DailyLimit()))
	}
	var verifier identity.Verifier = identity.NewSecretVerifier(cfg.APISecret())
	if cfg.FirebaseAuth() {
		fbVerifier, err := identity.NewFirebaseVerifier(ctx)
		if err != nil {
			return fmt.Errorf("failed to init firebase auth: %w", err)
		}
		verifier = fbVerifier
		if cfg.TokenCost() > 0 {
			// The spending guard goes last so a later deny can never
			// strand a spend.
			guards = append(guards, admission.NewBalanceGuard(videos.NewFirestoreLedger(fsClient), cfg.TokenCost()))
		}
		logger.Info("firebase auth enabled", "token_cost", cfg.TokenCost())
	}

	serverCfg := api.ServerConfig{
		Port:      cfg.Port(),
		Render:    renderClient,
		Guards:    guards,
		Processor: processor,
		Videos:    repo,
		Verifier:  verifier,
		Logger:    logger,
		StartTime: startTime,
	}

	if cfg.RedisAddr() != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
		defer rdb.Close()
		serverCfg.RateLimit = api.RateLimitMiddleware(rdb, cfg.RatePerMinute(), time.Minute,
			logging.WithComponent(logger, "ratelimit"))
		logger.Info("rate limiting enabled", "addr", cfg.RedisAddr(), "per_minute", cfg.RatePerMinute())
	}

	apiServer := api.NewServer(serverCfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
