package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

const maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics

// Derivation parameters. Thumbnail is a single frame one second in;
// the preview is a short muted loop at reduced size and rate; HLS uses a
// baseline-compatible profile with fixed-length segments.
const (
	thumbnailOffset  = "00:00:01"
	thumbnailScale   = "scale=1280:720"
	previewDuration  = "3"
	previewScale     = "scale=480:-2"
	previewFrameRate = "15"
	hlsSegmentTime   = "10"

	thumbnailTimeout = 1 * time.Minute
	previewTimeout   = 2 * time.Minute
	hlsTimeout       = 10 * time.Minute
)

// FFmpeg derives assets from a source video. Implementations must be safe
// for concurrent use.
type FFmpeg interface {
	Thumbnail(ctx context.Context, input, output string) error
	Preview(ctx context.Context, input, output string) error
	HLS(ctx context.Context, input, playlist string) error
}

// ExecFFmpeg shells out to an ffmpeg binary.
type ExecFFmpeg struct {
	binary string
	logger *slog.Logger
}

// NewExecFFmpeg resolves the ffmpeg binary on PATH.
func NewExecFFmpeg(logger *slog.Logger) (*ExecFFmpeg, error) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	return &ExecFFmpeg{binary: bin, logger: logger}, nil
}

func (f *ExecFFmpeg) Thumbnail(ctx context.Context, input, output string) error {
	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()
	return f.run(ctx,
		"-y",
		"-ss", thumbnailOffset,
		"-i", input,
		"-vframes", "1",
		"-vf", thumbnailScale,
		output,
	)
}

func (f *ExecFFmpeg) Preview(ctx context.Context, input, output string) error {
	ctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	return f.run(ctx,
		"-y",
		"-i", input,
		"-t", previewDuration,
		"-an",
		"-vf", previewScale,
		"-r", previewFrameRate,
		output,
	)
}

func (f *ExecFFmpeg) HLS(ctx context.Context, input, playlist string) error {
	ctx, cancel := context.WithTimeout(ctx, hlsTimeout)
	defer cancel()
	return f.run(ctx,
		"-y",
		"-i", input,
		"-profile:v", "baseline",
		"-level", "3.0",
		"-start_number", "0",
		"-hls_time", hlsSegmentTime,
		"-hls_list_size", "0",
		"-f", "hls",
		playlist,
	)
}

func (f *ExecFFmpeg) run(ctx context.Context, args ...string) error {
	start := time.Now()
	cmd := exec.CommandContext(ctx, f.binary, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		f.logger.Warn("ffmpeg failed",
			"args", args,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
		return fmt.Errorf("ffmpeg %s: %w", args[len(args)-1], err)
	}

	f.logger.Debug("ffmpeg succeeded", "output", args[len(args)-1], "duration_ms", elapsed.Milliseconds())
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last `limit` bytes written.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
