package library

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the videos table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE videos (
			path TEXT PRIMARY KEY,
			title TEXT,
			custom_start_time REAL NOT NULL DEFAULT 0,
			custom_end_time REAL,
			duration REAL,
			size INTEGER,
			modified_time INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			is_youtube INTEGER NOT NULL DEFAULT 0,
			youtube_id TEXT,
			youtube_url TEXT,
			stream_url TEXT,
			stream_expires TEXT,
			download_path TEXT,
			quality TEXT
		);
		CREATE INDEX idx_videos_updated_at ON videos(updated_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRepository_UpsertAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	v := &Video{
		Path:        "/videos/birds.mp4",
		Title:       "Birds",
		CustomStart: 5,
		Duration:    300,
		Size:        1 << 20,
		ModTime:     1700000000,
	}
	if err := repo.Upsert(ctx, v); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.Get(ctx, "/videos/birds.mp4")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Birds" || got.Duration != 300 || got.CustomStart != 5 {
		t.Errorf("Get() = %+v, want stored fields back", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on insert")
	}

	// Updating keeps created_at.
	created := got.CreatedAt
	got.Duration = 400
	if err := repo.Upsert(ctx, got); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	again, err := repo.Get(ctx, "/videos/birds.mp4")
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if again.Duration != 400 {
		t.Errorf("Duration after update = %v, want 400", again.Duration)
	}
	if !again.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created, again.CreatedAt)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), "/videos/missing.mp4")
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("Get(missing) = %v, want ErrVideoNotFound", err)
	}
}

func TestSQLiteRepository_YouTubeFields(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	expires := time.Now().UTC().Add(6 * time.Hour).Truncate(time.Second)
	v := &Video{
		Path:          "youtube://dQw4w9WgXcQ",
		Title:         "Cat Compilation",
		Duration:      212,
		IsYouTube:     true,
		YouTubeID:     "dQw4w9WgXcQ",
		YouTubeURL:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		StreamURL:     "https://cdn.example/stream",
		StreamExpires: expires,
		Quality:       "720p",
	}
	if err := repo.Upsert(ctx, v); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.Get(ctx, v.Path)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsYouTube || got.YouTubeID != "dQw4w9WgXcQ" {
		t.Errorf("youtube identity = %v/%q, want true/dQw4w9WgXcQ", got.IsYouTube, got.YouTubeID)
	}
	if !got.StreamExpires.Equal(expires) {
		t.Errorf("StreamExpires = %v, want %v", got.StreamExpires, expires)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &Video{Path: "/videos/a.mp4"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Delete(ctx, "/videos/a.mp4"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "/videos/a.mp4"); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("Delete(gone) = %v, want ErrVideoNotFound", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, path := range []string{"/videos/a.mp4", "/videos/b.mp4", "youtube://dQw4w9WgXcQ"} {
		if err := repo.Upsert(ctx, &Video{Path: path}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", path, err)
		}
	}

	videos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(videos) != 3 {
		t.Errorf("List() returned %d entries, want 3", len(videos))
	}
}

func TestSQLiteRepository_UpdateMetadata(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &Video{Path: "/videos/a.mp4", Duration: 300}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	t.Run("sets title and window", func(t *testing.T) {
		title := "  Garden Cam  "
		got, err := repo.UpdateMetadata(ctx, "/videos/a.mp4", MetadataUpdate{
			Title:       &title,
			CustomStart: f(10),
			CustomEnd:   f(200),
		})
		if err != nil {
			t.Fatalf("UpdateMetadata() error = %v", err)
		}
		if got.Title != "Garden Cam" {
			t.Errorf("Title = %q, want trimmed %q", got.Title, "Garden Cam")
		}
		if got.CustomStart != 10 || got.CustomEnd == nil || *got.CustomEnd != 200 {
			t.Errorf("window = [%v, %v], want [10, 200]", got.CustomStart, got.CustomEnd)
		}
	})

	t.Run("clamps bounds", func(t *testing.T) {
		got, err := repo.UpdateMetadata(ctx, "/videos/a.mp4", MetadataUpdate{
			CustomStart: f(-5),
			CustomEnd:   f(900),
		})
		if err != nil {
			t.Fatalf("UpdateMetadata() error = %v", err)
		}
		if got.CustomStart != 0 {
			t.Errorf("CustomStart = %v, want clamped 0", got.CustomStart)
		}
		if got.CustomEnd == nil || *got.CustomEnd != 300 {
			t.Errorf("CustomEnd = %v, want clamped to duration 300", got.CustomEnd)
		}
	})

	t.Run("inverted window clears the end", func(t *testing.T) {
		got, err := repo.UpdateMetadata(ctx, "/videos/a.mp4", MetadataUpdate{
			CustomStart: f(100),
			CustomEnd:   f(50),
		})
		if err != nil {
			t.Fatalf("UpdateMetadata() error = %v", err)
		}
		if got.CustomEnd != nil {
			t.Errorf("CustomEnd = %v, want nil for an inverted window", *got.CustomEnd)
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		_, err := repo.UpdateMetadata(ctx, "/videos/missing.mp4", MetadataUpdate{})
		if !errors.Is(err, ErrVideoNotFound) {
			t.Errorf("UpdateMetadata(missing) = %v, want ErrVideoNotFound", err)
		}
	})
}
