// Package process runs the post-generation pipeline: derive assets,
// enrich metadata, persist the merged record, announce the result. It is
// the single implementation shared by the status handler and the batch
// backfill.
package process

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ohftok/ohftok-render/internal/assets"
	"github.com/ohftok/ohftok-render/internal/events"
	"github.com/ohftok/ohftok-render/internal/metadata"
	"github.com/ohftok/ohftok-render/internal/videos"
)

// AssetPipeline is what the processor needs from internal/assets.
type AssetPipeline interface {
	Process(ctx context.Context, videoID, sourceURL string) (*assets.Bundle, error)
}

// Processor wires the pipeline stages together.
type Processor struct {
	assets   AssetPipeline
	enricher metadata.Enricher
	videos   videos.Repository
	events   events.Publisher
	logger   *slog.Logger
}

func NewProcessor(assetPipeline AssetPipeline, enricher metadata.Enricher, repo videos.Repository, publisher events.Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		assets:   assetPipeline,
		enricher: enricher,
		videos:   repo,
		events:   publisher,
		logger:   logger,
	}
}

// Outcome reports what the pipeline produced for one video.
type Outcome struct {
	Bundle   *assets.Bundle
	Metadata *metadata.Result
}

// HandleSuccess processes a finished generation. Asset-stage failures are
// carried in the outcome, not returned as errors; enrichment failure
// degrades to "no metadata". The error is non-nil only when nothing was
// produced or the record write failed.
func (p *Processor) HandleSuccess(ctx context.Context, videoID, title string, machineGenerated bool, outputURL string) (*Outcome, error) {
	bundle, err := p.assets.Process(ctx, videoID, outputURL)
	if err != nil {
		return nil, fmt.Errorf("asset pipeline: %w", err)
	}

	meta, err := p.enricher.Enrich(ctx, title, machineGenerated)
	if err != nil {
		// Enrichment is best-effort; the assets still get persisted.
		p.logger.Warn("metadata enrichment failed", "video_id", videoID, "error", err)
		meta = nil
	}

	upd := videos.Update{
		Processed: videos.BoolPtr(bundle.Complete()),
	}
	if bundle.VideoURL != "" {
		upd.URL = videos.StringPtr(bundle.VideoURL)
	}
	if bundle.ThumbnailURL != "" {
		upd.ThumbnailURL = videos.StringPtr(bundle.ThumbnailURL)
	}
	if bundle.PreviewURL != "" {
		upd.PreviewURL = videos.StringPtr(bundle.PreviewURL)
	}
	if bundle.HLSURL != "" {
		upd.HLSURL = videos.StringPtr(bundle.HLSURL)
	}
	if meta != nil {
		upd.Description = videos.StringPtr(meta.Description)
		upd.Tags = meta.Tags
		if machineGenerated && meta.Title != "" {
			upd.Title = videos.StringPtr(meta.Title)
		}
	}

	if err := p.videos.ApplyUpdate(ctx, videoID, upd); err != nil {
		return nil, fmt.Errorf("persist video update: %w", err)
	}

	if err := p.events.PublishProcessed(ctx, events.ProcessedEvent{
		VideoID:      videoID,
		VideoURL:     bundle.VideoURL,
		ThumbnailURL: bundle.ThumbnailURL,
		PreviewURL:   bundle.PreviewURL,
		HLSURL:       bundle.HLSURL,
		Processed:    bundle.Complete(),
	}); err != nil {
		p.logger.Warn("processed event publish failed", "video_id", videoID, "error", err)
	}

	return &Outcome{Bundle: bundle, Metadata: meta}, nil
}
