package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ohftok/ohftok-render/internal/assets"
	"github.com/ohftok/ohftok-render/internal/events"
	"github.com/ohftok/ohftok-render/internal/metadata"
	"github.com/ohftok/ohftok-render/internal/videos"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePipeline struct {
	bundle *assets.Bundle
	err    error
}

func (p *fakePipeline) Process(_ context.Context, _, _ string) (*assets.Bundle, error) {
	return p.bundle, p.err
}

type fakeEnricher struct {
	result *metadata.Result
	err    error
}

func (e *fakeEnricher) Enrich(_ context.Context, _ string, _ bool) (*metadata.Result, error) {
	return e.result, e.err
}

type fakeRepo struct {
	videos.Repository
	updates  map[string]videos.Update
	applyErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{updates: map[string]videos.Update{}}
}

func (r *fakeRepo) ApplyUpdate(_ context.Context, id string, upd videos.Update) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	r.updates[id] = upd
	return nil
}

type fakePublisher struct {
	published []events.ProcessedEvent
	err       error
}

func (p *fakePublisher) PublishProcessed(_ context.Context, ev events.ProcessedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

func completeBundle() *assets.Bundle {
	return &assets.Bundle{
		VideoURL:     "https://store.test/videos/v1.mp4",
		ThumbnailURL: "https://store.test/thumbnails/v1.jpg",
		PreviewURL:   "https://store.test/previews/v1.mp4",
		HLSURL:       "https://store.test/videos/v1/hls/playlist.m3u8",
	}
}

func TestHandleSuccessFullOutcome(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	meta := &metadata.Result{Title: "New Title", Description: "desc", Tags: []string{"a", "b"}}

	p := NewProcessor(&fakePipeline{bundle: completeBundle()}, &fakeEnricher{result: meta}, repo, pub, testLogger())

	outcome, err := p.HandleSuccess(context.Background(), "v1", "prompt title", true, "https://cdn/out.mp4")
	if err != nil {
		t.Fatalf("HandleSuccess() error = %v", err)
	}
	if outcome.Metadata == nil || outcome.Metadata.Title != "New Title" {
		t.Errorf("Metadata = %+v", outcome.Metadata)
	}

	upd, ok := repo.updates["v1"]
	if !ok {
		t.Fatal("no update persisted")
	}
	if upd.Processed == nil || !*upd.Processed {
		t.Error("processed should be true for a complete bundle")
	}
	if upd.Title == nil || *upd.Title != "New Title" {
		t.Error("machine-generated title should be rewritten")
	}
	if upd.Description == nil || upd.Tags == nil {
		t.Error("description and tags should both be set")
	}
	if upd.URL == nil || upd.ThumbnailURL == nil || upd.PreviewURL == nil || upd.HLSURL == nil {
		t.Errorf("asset locators missing from update: %+v", upd)
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	if ev := pub.published[0]; ev.VideoID != "v1" || !ev.Processed {
		t.Errorf("event = %+v", ev)
	}
}

func TestHandleSuccessHumanTitleKept(t *testing.T) {
	repo := newFakeRepo()
	meta := &metadata.Result{Title: "LLM Title", Description: "desc", Tags: []string{"a"}}

	p := NewProcessor(&fakePipeline{bundle: completeBundle()}, &fakeEnricher{result: meta}, repo, &fakePublisher{}, testLogger())

	if _, err := p.HandleSuccess(context.Background(), "v1", "My own title", false, "u"); err != nil {
		t.Fatalf("HandleSuccess() error = %v", err)
	}
	if repo.updates["v1"].Title != nil {
		t.Error("human-authored titles must not be rewritten")
	}
}

func TestHandleSuccessEnrichmentSoftFails(t *testing.T) {
	tests := []struct {
		name     string
		enricher *fakeEnricher
	}{
		{"enricher error", &fakeEnricher{err: errors.New("llm down")}},
		{"no result", &fakeEnricher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			p := NewProcessor(&fakePipeline{bundle: completeBundle()}, tt.enricher, repo, &fakePublisher{}, testLogger())

			outcome, err := p.HandleSuccess(context.Background(), "v1", "title", true, "u")
			if err != nil {
				t.Fatalf("HandleSuccess() error = %v", err)
			}
			if outcome.Metadata != nil {
				t.Errorf("Metadata = %+v, want nil", outcome.Metadata)
			}

			upd := repo.updates["v1"]
			if upd.Description != nil || upd.Tags != nil {
				t.Error("no metadata fields should be written without a result")
			}
			if upd.URL == nil {
				t.Error("assets should still be persisted")
			}
		})
	}
}

func TestHandleSuccessPartialBundle(t *testing.T) {
	repo := newFakeRepo()
	bundle := completeBundle()
	bundle.HLSURL = ""
	bundle.StageErrors = []assets.StageError{{Stage: "hls", Err: errors.New("boom")}}

	p := NewProcessor(&fakePipeline{bundle: bundle}, &fakeEnricher{}, repo, &fakePublisher{}, testLogger())

	outcome, err := p.HandleSuccess(context.Background(), "v1", "t", true, "u")
	if err != nil {
		t.Fatalf("HandleSuccess() error = %v", err)
	}
	if outcome.Bundle.Complete() {
		t.Error("bundle should be incomplete")
	}

	upd := repo.updates["v1"]
	if upd.Processed == nil || *upd.Processed {
		t.Error("processed must stay false for a partial bundle")
	}
	if upd.HLSURL != nil {
		t.Error("failed stage must not write a locator")
	}
	if upd.ThumbnailURL == nil {
		t.Error("successful stages should be persisted")
	}
}

func TestHandleSuccessPipelineError(t *testing.T) {
	p := NewProcessor(&fakePipeline{err: errors.New("download failed")}, &fakeEnricher{}, newFakeRepo(), &fakePublisher{}, testLogger())

	if _, err := p.HandleSuccess(context.Background(), "v1", "t", true, "u"); err == nil {
		t.Fatal("HandleSuccess() expected error when pipeline produced nothing")
	}
}

func TestHandleSuccessPersistError(t *testing.T) {
	repo := newFakeRepo()
	repo.applyErr = errors.New("firestore down")

	p := NewProcessor(&fakePipeline{bundle: completeBundle()}, &fakeEnricher{}, repo, &fakePublisher{}, testLogger())

	if _, err := p.HandleSuccess(context.Background(), "v1", "t", true, "u"); err == nil {
		t.Fatal("HandleSuccess() expected error when the record write fails")
	}
}

func TestHandleSuccessPublishFailureTolerated(t *testing.T) {
	repo := newFakeRepo()
	p := NewProcessor(&fakePipeline{bundle: completeBundle()}, &fakeEnricher{}, repo, &fakePublisher{err: errors.New("topic gone")}, testLogger())

	if _, err := p.HandleSuccess(context.Background(), "v1", "t", true, "u"); err != nil {
		t.Fatalf("HandleSuccess() error = %v, publish failures must not fail the pipeline", err)
	}
	if _, ok := repo.updates["v1"]; !ok {
		t.Error("update should persist even when publishing fails")
	}
}
