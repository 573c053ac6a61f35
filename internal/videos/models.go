package videos

import "time"

// Record is the persisted video document. Created when a generation job
// is accepted, filled in incrementally as pipeline stages complete, and
// never deleted here.
type Record struct {
	ID            string    `firestore:"-"`
	Title         string    `firestore:"title"`
	Description   string    `firestore:"description,omitempty"`
	Tags          []string  `firestore:"tags,omitempty"`
	URL           string    `firestore:"url,omitempty"`
	ThumbnailURL  string    `firestore:"thumbnailUrl,omitempty"`
	PreviewURL    string    `firestore:"previewUrl,omitempty"`
	HLSURL        string    `firestore:"hlsUrl,omitempty"`
	IsAIGenerated bool      `firestore:"isAiGenerated"`
	Processed     bool      `firestore:"processed"`
	UserID        string    `firestore:"userId,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// NeedsAssets reports whether any derived asset is missing.
func (r *Record) NeedsAssets() bool {
	return r.ThumbnailURL == "" || r.PreviewURL == "" || r.HLSURL == ""
}

// NeedsMetadata reports whether AI description/tags are missing or the
// title itself is machine generated and should be rewritten.
func (r *Record) NeedsMetadata() bool {
	return r.IsAIGenerated || r.Description == "" || len(r.Tags) == 0
}

// Update is a sparse mutation: only non-nil fields are written.
// Description and Tags travel together so a record never shows one
// without the other.
type Update struct {
	Title        *string
	Description  *string
	Tags         []string
	URL          *string
	ThumbnailURL *string
	PreviewURL   *string
	HLSURL       *string
	Processed    *bool
}

// IsZero reports whether the update would write nothing.
func (u Update) IsZero() bool {
	return u.Title == nil && u.Description == nil && u.Tags == nil &&
		u.URL == nil && u.ThumbnailURL == nil && u.PreviewURL == nil &&
		u.HLSURL == nil && u.Processed == nil
}

func StringPtr(s string) *string { return &s }
func BoolPtr(b bool) *bool       { return &b }
