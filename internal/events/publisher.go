// Package events announces finished videos to downstream services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

const EventVideoProcessed = "video.processed"

// ProcessedEvent is the payload published when a video's pipeline settles.
type ProcessedEvent struct {
	VideoID      string `json:"videoId"`
	VideoURL     string `json:"videoUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	PreviewURL   string `json:"previewUrl,omitempty"`
	HLSURL       string `json:"hlsUrl,omitempty"`
	Processed    bool   `json:"processed"`
}

// Publisher emits processed events. Publishing is best-effort from the
// pipeline's point of view; a failed publish never fails the pipeline.
type Publisher interface {
	PublishProcessed(ctx context.Context, ev ProcessedEvent) error
}

// Noop is used when no topic is configured.
type Noop struct{}

func (Noop) PublishProcessed(context.Context, ProcessedEvent) error { return nil }

// PubSubPublisher sends events to a Cloud Pub/Sub topic with the event
// type carried as a message attribute.
type PubSubPublisher struct {
	topic  *pubsub.Topic
	logger *slog.Logger
}

func NewPubSubPublisher(client *pubsub.Client, topicName string, logger *slog.Logger) *PubSubPublisher {
	return &PubSubPublisher{topic: client.Topic(topicName), logger: logger}
}

func (p *PubSubPublisher) PublishProcessed(ctx context.Context, ev ProcessedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": EventVideoProcessed},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", EventVideoProcessed, err)
	}

	p.logger.Info("published processed event", "video_id", ev.VideoID)
	return nil
}

// Stop flushes pending messages. Call on shutdown.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
