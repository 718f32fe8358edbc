package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the catalogue persistence operations. The SQLite
// implementation is the only production one; tests may substitute fakes.
type Repository interface {
	// Get retrieves an entry by path.
	// Returns ErrVideoNotFound if no entry exists.
	Get(ctx context.Context, path string) (*Video, error)

	// List retrieves all entries, most recently updated first.
	List(ctx context.Context) ([]Video, error)

	// Upsert inserts or replaces an entry.
	Upsert(ctx context.Context, v *Video) error

	// Delete removes an entry by path.
	// Returns ErrVideoNotFound if no entry exists.
	Delete(ctx context.Context, path string) error

	// UpdateMetadata applies a partial metadata update.
	UpdateMetadata(ctx context.Context, path string, update MetadataUpdate) (*Video, error)
}

// MetadataUpdate carries the user-editable fields of an entry. Nil fields
// are left unchanged.
type MetadataUpdate struct {
	Title       *string  `json:"title,omitempty"`
	CustomStart *float64 `json:"custom_start_time,omitempty"`
	CustomEnd   *float64 `json:"custom_end_time,omitempty"`
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const videoColumns = `path, title, custom_start_time, custom_end_time, duration,
	size, modified_time, created_at, updated_at, is_youtube, youtube_id,
	youtube_url, stream_url, stream_expires, download_path, quality`

// Get retrieves an entry by path.
func (r *SQLiteRepository) Get(ctx context.Context, path string) (*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE path = ?`

	v, err := scanVideo(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("querying video by path: %w", err)
	}
	return v, nil
}

// List retrieves all entries, most recently updated first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying videos: %w", err)
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning video row: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating video rows: %w", err)
	}
	return videos, nil
}

// Upsert inserts or replaces an entry. CreatedAt is preserved for
// existing rows; UpdatedAt is always refreshed.
func (r *SQLiteRepository) Upsert(ctx context.Context, v *Video) error {
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	query := `
		INSERT INTO videos (` + videoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			custom_start_time = excluded.custom_start_time,
			custom_end_time = excluded.custom_end_time,
			duration = excluded.duration,
			size = excluded.size,
			modified_time = excluded.modified_time,
			updated_at = excluded.updated_at,
			is_youtube = excluded.is_youtube,
			youtube_id = excluded.youtube_id,
			youtube_url = excluded.youtube_url,
			stream_url = excluded.stream_url,
			stream_expires = excluded.stream_expires,
			download_path = excluded.download_path,
			quality = excluded.quality`

	_, err := r.db.ExecContext(ctx, query,
		v.Path,
		nullString(v.Title),
		v.CustomStart,
		v.CustomEnd,
		nullFloat(v.Duration),
		nullInt(v.Size),
		nullInt(v.ModTime),
		v.CreatedAt.Format(time.RFC3339),
		v.UpdatedAt.Format(time.RFC3339),
		v.IsYouTube,
		nullString(v.YouTubeID),
		nullString(v.YouTubeURL),
		nullString(v.StreamURL),
		nullTime(v.StreamExpires),
		nullString(v.DownloadPath),
		nullString(v.Quality),
	)
	if err != nil {
		return fmt.Errorf("upserting video %s: %w", v.Path, err)
	}
	return nil
}

// Delete removes an entry by path.
func (r *SQLiteRepository) Delete(ctx context.Context, path string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("deleting video %s: %w", path, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// UpdateMetadata applies a partial metadata update and returns the stored
// entry.
//
// Bounds are clamped rather than rejected: a negative start becomes 0, an
// end beyond the known duration becomes the duration, and an end at or
// before the start clears the custom end entirely (play to the end).
func (r *SQLiteRepository) UpdateMetadata(ctx context.Context, path string, update MetadataUpdate) (*Video, error) {
	v, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		v.Title = strings.TrimSpace(*update.Title)
	}
	if update.CustomStart != nil {
		start := *update.CustomStart
		if start < 0 {
			start = 0
		}
		v.CustomStart = start
	}
	if update.CustomEnd != nil {
		end := *update.CustomEnd
		switch {
		case v.Duration > 0 && end > v.Duration:
			v.CustomEnd = &v.Duration
		case end <= v.CustomStart:
			v.CustomEnd = nil
		default:
			v.CustomEnd = &end
		}
	}

	if err := r.Upsert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// scanner abstracts sql.Row and sql.Rows for scanVideo.
type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(s scanner) (*Video, error) {
	var (
		v             Video
		title         sql.NullString
		customEnd     sql.NullFloat64
		duration      sql.NullFloat64
		size          sql.NullInt64
		modTime       sql.NullInt64
		createdAt     string
		updatedAt     string
		youtubeID     sql.NullString
		youtubeURL    sql.NullString
		streamURL     sql.NullString
		streamExpires sql.NullString
		downloadPath  sql.NullString
		quality       sql.NullString
	)

	err := s.Scan(
		&v.Path, &title, &v.CustomStart, &customEnd, &duration,
		&size, &modTime, &createdAt, &updatedAt, &v.IsYouTube,
		&youtubeID, &youtubeURL, &streamURL, &streamExpires,
		&downloadPath, &quality,
	)
	if err != nil {
		return nil, err
	}

	v.Title = title.String
	if customEnd.Valid {
		v.CustomEnd = &customEnd.Float64
	}
	v.Duration = duration.Float64
	v.Size = size.Int64
	v.ModTime = modTime.Int64
	v.YouTubeID = youtubeID.String
	v.YouTubeURL = youtubeURL.String
	v.StreamURL = streamURL.String
	v.DownloadPath = downloadPath.String
	v.Quality = quality.String

	if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if v.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if streamExpires.Valid && streamExpires.String != "" {
		if v.StreamExpires, err = time.Parse(time.RFC3339, streamExpires.String); err != nil {
			return nil, fmt.Errorf("parsing stream_expires: %w", err)
		}
	}

	return &v, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullInt(i int64) any {
	if i == 0 {
		return nil
	}
	return i
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}
