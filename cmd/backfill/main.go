// Command backfill walks the video catalog and regenerates missing
// thumbnails, previews, HLS renditions, and metadata for already-stored
// videos. Completed videos are checkpointed locally so reruns only touch
// what previously failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/ohftok/ohftok-render/internal/assets"
	"github.com/ohftok/ohftok-render/internal/backfill"
	"github.com/ohftok/ohftok-render/internal/blob"
	"github.com/ohftok/ohftok-render/internal/config"
	"github.com/ohftok/ohftok-render/internal/db"
	"github.com/ohftok/ohftok-render/internal/events"
	"github.com/ohftok/ohftok-render/internal/logging"
	"github.com/ohftok/ohftok-render/internal/metadata"
	"github.com/ohftok/ohftok-render/internal/process"
	"github.com/ohftok/ohftok-render/internal/videos"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	batchSize := flag.Int("batch", backfill.DefaultBatchSize, "videos processed concurrently per batch")
	batchDelay := flag.Duration("delay", backfill.DefaultBatchDelay, "pause between batches")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %v, finishing current batch", sig)
		cancel()
	}()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting backfill",
		"version", config.Version,
		"project", cfg.ProjectID(),
		"batch_size", *batchSize,
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

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	defer database.Close()

	repo := videos.NewFirestoreRepository(fsClient)
	store := blob.NewGCSStore(stClient, cfg.StorageBucket(), cfg.SignedURLTTL(), logger)

	ffmpeg, err := assets.NewExecFFmpeg(logging.WithComponent(logger, "ffmpeg"))
	if err != nil {
		return fmt.Errorf("failed to init ffmpeg: %w", err)
	}
	pipeline := assets.NewPipeline(ffmpeg, store, logging.WithComponent(logger, "assets"))

	var enricher metadata.Enricher = metadata.Disabled{}
	if cfg.OpenAIKey() != "" {
		enricher = metadata.NewOpenAIEnricher(metadata.DefaultBaseURL, cfg.OpenAIKey(),
			logging.WithComponent(logger, "metadata"))
	}

	processor := process.NewProcessor(pipeline, enricher, repo, events.Noop{},
		logging.WithComponent(logger, "process"))

	runner := backfill.NewRunner(repo, processor, backfill.NewSQLiteCheckpoints(database.Conn()), logger)
	runner.SetBatch(*batchSize, *batchDelay)

	start := time.Now()
	stats, err := runner.Run(ctx)
	if err != nil {
		logger.Error("backfill aborted", "error", err, "elapsed", time.Since(start))
		return err
	}

	fmt.Printf("examined %d, processed %d, skipped %d, failed %d in %s\n",
		stats.Examined, stats.Processed, stats.Skipped, stats.Failed,
		time.Since(start).Round(time.Second))

	if stats.Failed > 0 {
		os.Exit(1)
	}
	return nil
}
