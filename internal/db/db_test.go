package db

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "backfill.db")

	database, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	var name string
	err = database.Conn().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='checkpoints'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("checkpoints table missing: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backfill.db")

	first, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := first.Conn().Exec(
		"INSERT INTO checkpoints (video_id, status, processed_at) VALUES ('v1', 'done', '2026-01-01T00:00:00Z')",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	first.Close()

	second, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	var count int
	if err := second.Conn().QueryRow("SELECT COUNT(*) FROM checkpoints").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1; reopening must not reset data", count)
	}
}
