// Package backfill walks the video catalog and fills in missing derived
// assets and metadata. Videos are processed in small concurrent batches
// with a fixed pause between batches; per-video failures are recorded and
// never stop the run.
package backfill

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ohftok/ohftok-render/internal/logging"
	"github.com/ohftok/ohftok-render/internal/process"
	"github.com/ohftok/ohftok-render/internal/videos"
)

const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = 5 * time.Second
)

// Processor is what the runner needs from internal/process.
type Processor interface {
	HandleSuccess(ctx context.Context, videoID, title string, machineGenerated bool, outputURL string) (*process.Outcome, error)
}

// Stats summarizes one run.
type Stats struct {
	Examined  int
	Processed int
	Skipped   int
	Failed    int
}

type Runner struct {
	videos      videos.Repository
	processor   Processor
	checkpoints Checkpoints
	logger      *slog.Logger

	batchSize  int
	batchDelay time.Duration
}

func NewRunner(repo videos.Repository, processor Processor, checkpoints Checkpoints, logger *slog.Logger) *Runner {
	return &Runner{
		videos:      repo,
		processor:   processor,
		checkpoints: checkpoints,
		logger:      logger,
		batchSize:   DefaultBatchSize,
		batchDelay:  DefaultBatchDelay,
	}
}

// SetBatch overrides the fan-out width and inter-batch delay.
func (r *Runner) SetBatch(size int, delay time.Duration) {
	if size > 0 {
		r.batchSize = size
	}
	r.batchDelay = delay
}

// Run processes every catalog video still missing assets or metadata.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	records, err := r.videos.List(ctx, 0)
	if err != nil {
		return stats, err
	}
	stats.Examined = len(records)

	var pending []*videos.Record
	for _, rec := range records {
		if !rec.NeedsAssets() && !rec.NeedsMetadata() {
			stats.Skipped++
			continue
		}
		if rec.URL == "" {
			// Nothing to derive from; the source was never persisted.
			r.logger.Warn("video has no source url, skipping", "video_id", rec.ID)
			stats.Skipped++
			continue
		}
		cp, err := r.checkpoints.Get(ctx, rec.ID)
		if err != nil {
			return stats, err
		}
		if cp != nil && cp.Status == StatusDone {
			stats.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	r.logger.Info("backfill starting",
		"examined", stats.Examined,
		"pending", len(pending),
		"batch_size", r.batchSize,
	)

	for start := 0; start < len(pending); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		end := start + r.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, rec := range batch {
			wg.Add(1)
			go func(rec *videos.Record) {
				defer wg.Done()
				ok := r.processOne(ctx, rec)
				mu.Lock()
				if ok {
					stats.Processed++
				} else {
					stats.Failed++
				}
				mu.Unlock()
			}(rec)
		}
		wg.Wait()

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(r.batchDelay):
			}
		}
	}

	r.logger.Info("backfill finished",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (r *Runner) processOne(ctx context.Context, rec *videos.Record) bool {
	logger := logging.WithVideoID(r.logger, rec.ID)
	logger.Info("processing video", "title", rec.Title)

	outcome, err := r.processor.HandleSuccess(ctx, rec.ID, rec.Title, rec.IsAIGenerated, rec.URL)
	if err != nil {
		logger.Warn("backfill processing failed", "error", err)
		r.setCheckpoint(ctx, rec.ID, StatusFailed, err.Error())
		return false
	}

	if summary := outcome.Bundle.ErrorSummary(); summary != "" {
		logger.Warn("backfill completed with stage failures", "stages", summary)
		r.setCheckpoint(ctx, rec.ID, StatusFailed, summary)
		return false
	}

	r.setCheckpoint(ctx, rec.ID, StatusDone, "")
	return true
}

func (r *Runner) setCheckpoint(ctx context.Context, videoID, status, errMsg string) {
	if err := r.checkpoints.Set(ctx, &Checkpoint{VideoID: videoID, Status: status, Error: errMsg}); err != nil {
		r.logger.Warn("checkpoint write failed", "video_id", videoID, "error", err)
	}
}
