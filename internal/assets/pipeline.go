// Package assets turns a raw generated video into the derived assets the
// app serves: a thumbnail, a short preview loop, and an HLS rendition.
// Everything happens in a per-job temp workspace that is removed on every
// exit path.
package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ohftok/ohftok-render/internal/blob"
)

// Object path layout, keyed by video id.
func sourceObject(id string) string    { return "videos/" + id + ".mp4" }
func thumbnailObject(id string) string { return "thumbnails/" + id + ".jpg" }
func previewObject(id string) string   { return "previews/" + id + ".mp4" }
func hlsObject(id, file string) string { return "videos/" + id + "/hls/" + file }

// StageError records a failed sub-step without aborting its siblings.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

// Bundle holds the locators of whatever assets were produced. A stage
// that failed leaves its URL empty and adds a StageError.
type Bundle struct {
	VideoURL     string
	ThumbnailURL string
	PreviewURL   string
	HLSURL       string
	StageErrors  []StageError
}

// Complete reports whether every derived asset exists.
func (b *Bundle) Complete() bool {
	return b.ThumbnailURL != "" && b.PreviewURL != "" && b.HLSURL != ""
}

// ErrorSummary joins stage failures into one message, or "" when clean.
func (b *Bundle) ErrorSummary() string {
	if len(b.StageErrors) == 0 {
		return ""
	}
	parts := make([]string, len(b.StageErrors))
	for i, e := range b.StageErrors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Pipeline downloads a source video, derives assets and uploads them.
type Pipeline struct {
	ffmpeg     FFmpeg
	store      blob.Store
	httpClient *http.Client
	logger     *slog.Logger
}

func NewPipeline(ffmpeg FFmpeg, store blob.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		ffmpeg: ffmpeg,
		store:  store,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Process fetches the source from sourceURL and runs every derivation
// stage, isolating per-stage failures. The returned bundle reports
// per-asset success; the error is non-nil only when nothing could be
// attempted (download failed). Temporary files are removed regardless.
func (p *Pipeline) Process(ctx context.Context, videoID, sourceURL string) (*Bundle, error) {
	workspace, err := os.MkdirTemp("", "ohftok-"+videoID+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			p.logger.Warn("workspace cleanup failed", "dir", workspace, "error", err)
		}
	}()

	sourcePath := filepath.Join(workspace, "source.mp4")
	if err := p.download(ctx, sourceURL, sourcePath); err != nil {
		return nil, fmt.Errorf("download source: %w", err)
	}

	bundle := &Bundle{}

	// Re-host the raw output so the record does not depend on the
	// provider's short-lived delivery URL.
	if url, err := p.store.Upload(ctx, sourceObject(videoID), sourcePath, "video/mp4"); err != nil {
		bundle.StageErrors = append(bundle.StageErrors, StageError{Stage: "source", Err: err})
	} else {
		bundle.VideoURL = url
	}

	p.runStage(ctx, bundle, "thumbnail", func() (string, error) {
		out := filepath.Join(workspace, "thumb.jpg")
		if err := p.ffmpeg.Thumbnail(ctx, sourcePath, out); err != nil {
			return "", err
		}
		return p.store.Upload(ctx, thumbnailObject(videoID), out, "image/jpeg")
	}, &bundle.ThumbnailURL)

	p.runStage(ctx, bundle, "preview", func() (string, error) {
		out := filepath.Join(workspace, "preview.mp4")
		if err := p.ffmpeg.Preview(ctx, sourcePath, out); err != nil {
			return "", err
		}
		return p.store.Upload(ctx, previewObject(videoID), out, "video/mp4")
	}, &bundle.PreviewURL)

	p.runStage(ctx, bundle, "hls", func() (string, error) {
		return p.renditionHLS(ctx, workspace, sourcePath, videoID)
	}, &bundle.HLSURL)

	p.logger.Info("asset pipeline finished",
		"video_id", videoID,
		"complete", bundle.Complete(),
		"failed_stages", len(bundle.StageErrors),
	)
	return bundle, nil
}

func (p *Pipeline) runStage(ctx context.Context, bundle *Bundle, stage string, fn func() (string, error), dest *string) {
	url, err := fn()
	if err != nil {
		p.logger.Warn("asset stage failed", "stage", stage, "error", err)
		bundle.StageErrors = append(bundle.StageErrors, StageError{Stage: stage, Err: err})
		return
	}
	*dest = url
}

// renditionHLS segments the source into a playlist plus numbered chunks
// and uploads every produced file.
func (p *Pipeline) renditionHLS(ctx context.Context, workspace, sourcePath, videoID string) (string, error) {
	hlsDir := filepath.Join(workspace, "hls")
	if err := os.MkdirAll(hlsDir, 0755); err != nil {
		return "", fmt.Errorf("create hls dir: %w", err)
	}

	playlist := filepath.Join(hlsDir, "playlist.m3u8")
	if err := p.ffmpeg.HLS(ctx, sourcePath, playlist); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(hlsDir)
	if err != nil {
		return "", fmt.Errorf("read hls dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contentType := "video/MP2T"
		if strings.HasSuffix(entry.Name(), ".m3u8") {
			contentType = "application/x-mpegURL"
		}
		local := filepath.Join(hlsDir, entry.Name())
		if _, err := p.store.Upload(ctx, hlsObject(videoID, entry.Name()), local, contentType); err != nil {
			return "", fmt.Errorf("upload %s: %w", entry.Name(), err)
		}
	}

	return p.store.ReadURL(hlsObject(videoID, "playlist.m3u8"))
}

func (p *Pipeline) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
