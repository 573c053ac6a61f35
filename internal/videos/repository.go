package videos

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collectionVideos = "videos"

// Repository persists video records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	ApplyUpdate(ctx context.Context, id string, upd Update) error
}

// FirestoreRepository stores records in the "videos" collection, one
// document per video keyed by the provider's prediction id.
type FirestoreRepository struct {
	client *firestore.Client
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("video record requires an id")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := r.client.Collection(collectionVideos).Doc(rec.ID).Create(ctx, rec)
	if err != nil {
		return fmt.Errorf("create video %s: %w", rec.ID, err)
	}
	return nil
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*Record, error) {
	snap, err := r.client.Collection(collectionVideos).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}

	var rec Record
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode video %s: %w", id, err)
	}
	rec.ID = snap.Ref.ID
	return &rec, nil
}

func (r *FirestoreRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	q := r.client.Collection(collectionVideos).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []*Record
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
		var rec Record
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode video %s: %w", snap.Ref.ID, err)
		}
		rec.ID = snap.Ref.ID
		out = append(out, &rec)
	}
	return out, nil
}

// ApplyUpdate merges only the fields the update carries, plus the update
// timestamp. Partial updates are normal; absent fields stay untouched.
func (r *FirestoreRepository) ApplyUpdate(ctx context.Context, id string, upd Update) error {
	fields := updateFields(upd)
	if len(fields) == 0 {
		return nil
	}
	fields["updatedAt"] = firestore.ServerTimestamp

	_, err := r.client.Collection(collectionVideos).Doc(id).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("update video %s: %w", id, err)
	}
	return nil
}

func updateFields(upd Update) map[string]any {
	fields := map[string]any{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	// Both-or-none: metadata is only persisted as a complete pair.
	if upd.Description != nil && upd.Tags != nil {
		fields["description"] = *upd.Description
		fields["tags"] = upd.Tags
	}
	if upd.URL != nil {
		fields["url"] = *upd.URL
	}
	if upd.ThumbnailURL != nil {
		fields["thumbnailUrl"] = *upd.ThumbnailURL
	}
	if upd.PreviewURL != nil {
		fields["previewUrl"] = *upd.PreviewURL
	}
	if upd.HLSURL != nil {
		fields["hlsUrl"] = *upd.HLSURL
	}
	if upd.Processed != nil {
		fields["processed"] = *upd.Processed
	}
	return fields
}
