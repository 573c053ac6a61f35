// Package blob uploads derived assets to durable object storage and hands
// back long-lived read URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// Store is the object storage contract used by the asset pipeline.
type Store interface {
	// Upload copies a local file to the given object path and returns a
	// read URL for it.
	Upload(ctx context.Context, object, localPath, contentType string) (string, error)

	// ReadURL returns a read URL for an already-uploaded object.
	ReadURL(object string) (string, error)
}

// GCSStore writes to a Google Cloud Storage bucket. Read URLs are V4
// signed when credentials allow it, otherwise the public object URL.
type GCSStore struct {
	client *storage.Client
	bucket string
	ttl    time.Duration
	logger *slog.Logger
}

func NewGCSStore(client *storage.Client, bucket string, ttl time.Duration, logger *slog.Logger) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, ttl: ttl, logger: logger}
}

func (s *GCSStore) Upload(ctx context.Context, object, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	wc := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, f); err != nil {
		wc.Close()
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", object, err)
	}

	return s.ReadURL(object)
}

func (s *GCSStore) ReadURL(object string) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(object, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		// No signing credentials in this environment; public URL still
		// resolves for readable buckets.
		s.logger.Debug("signed URL unavailable, using public URL", "object", object, "error", err)
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object), nil
	}
	return url, nil
}
