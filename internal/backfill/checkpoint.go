package backfill

import (
	"context"
	"database/sql"
	"time"
)

// Checkpoint statuses.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// Checkpoint records the outcome of one video in a backfill run so a
// rerun can skip it.
type Checkpoint struct {
	VideoID     string
	Status      string
	Error       string
	ProcessedAt time.Time
}

// Checkpoints persists per-video outcomes between runs.
type Checkpoints interface {
	Get(ctx context.Context, videoID string) (*Checkpoint, error)
	Set(ctx context.Context, cp *Checkpoint) error
}

// SQLiteCheckpoints stores checkpoints in the local backfill database.
type SQLiteCheckpoints struct {
	db *sql.DB
}

func NewSQLiteCheckpoints(db *sql.DB) *SQLiteCheckpoints {
	return &SQLiteCheckpoints{db: db}
}

func (r *SQLiteCheckpoints) Get(ctx context.Context, videoID string) (*Checkpoint, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT video_id, status, error, processed_at
		FROM checkpoints WHERE video_id = ?
	`, videoID)

	var cp Checkpoint
	var errMsg sql.NullString
	var processedAt string

	err := row.Scan(&cp.VideoID, &cp.Status, &errMsg, &processedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cp.Error = errMsg.String
	cp.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
	return &cp, nil
}

func (r *SQLiteCheckpoints) Set(ctx context.Context, cp *Checkpoint) error {
	if cp.ProcessedAt.IsZero() {
		cp.ProcessedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkpoints (video_id, status, error, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			processed_at = excluded.processed_at
	`, cp.VideoID, cp.Status, nullString(cp.Error), cp.ProcessedAt.Format(time.RFC3339))
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
