// Package stats records usage events (plays, viewing sessions, button
// presses, API calls) into SQLite and aggregates them with SQL at read
// time. Recording failures are logged by the caller and never affect
// playback.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pawvision/core/internal/player"
)

// Event types stored in the events table.
const (
	eventVideoPlay          = "video_play"
	eventVideoViewing       = "video_viewing"
	eventButtonPress        = "button_press"
	eventButtonInterruption = "button_interruption"
	eventAPICall            = "api_call"
)

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SessionExporter receives finished viewing sessions for time-series
// export. Implementations must not block; export failures are their own
// concern.
type SessionExporter interface {
	ExportViewingSession(ev player.PlayEnded)
}

// Recorder is the SQLite-backed statistics store. It implements the
// orchestrator's StatsSink.
type Recorder struct {
	db       *sql.DB
	logger   Logger
	exporter SessionExporter // optional
	now      func() time.Time
}

// NewRecorder returns a Recorder writing to db. exporter may be nil.
func NewRecorder(db *sql.DB, exporter SessionExporter, logger Logger) *Recorder {
	return &Recorder{
		db:       db,
		logger:   logger,
		exporter: exporter,
		now:      time.Now,
	}
}

// insertEvent appends one row to the events table.
func (r *Recorder) insertEvent(ctx context.Context, eventType, action, videoPath, videoTitle, source string, duration float64, endReason string) error {
	query := `
		INSERT INTO events (event_type, action, video_path, video_title, source, duration, end_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		eventType,
		nullable(action),
		nullable(videoPath),
		nullable(videoTitle),
		nullable(source),
		duration,
		nullable(endReason),
		r.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting %s event: %w", eventType, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RecordPlayStarted logs the start of a playback session.
func (r *Recorder) RecordPlayStarted(ctx context.Context, ev player.PlayStarted) error {
	return r.insertEvent(ctx, eventVideoPlay, "start",
		ev.VideoID, ev.Title, string(ev.Trigger), 0, "")
}

// RecordPlayEnded logs a finished viewing session and hands it to the
// exporter when one is configured.
func (r *Recorder) RecordPlayEnded(ctx context.Context, ev player.PlayEnded) error {
	if r.exporter != nil {
		r.exporter.ExportViewingSession(ev)
	}
	return r.insertEvent(ctx, eventVideoViewing, "complete",
		ev.VideoID, ev.Title, string(ev.Trigger), ev.Viewed.Seconds(), string(ev.Reason))
}

// RecordButtonPress logs a physical button press. action is "play" or
// "stop"; interruption marks a press that cut a running session short.
func (r *Recorder) RecordButtonPress(ctx context.Context, action string, interruption bool) {
	eventType := eventButtonPress
	if interruption {
		eventType = eventButtonInterruption
	}
	if err := r.insertEvent(ctx, eventType, action, "", "", "button", 0, ""); err != nil {
		r.logger.Error("recording button press", "error", err)
	}
}

// RecordAPICall logs one API-initiated action.
func (r *Recorder) RecordAPICall(ctx context.Context, action string) {
	if err := r.insertEvent(ctx, eventAPICall, action, "", "", "api", 0, ""); err != nil {
		r.logger.Error("recording api call", "error", err)
	}
}

// Clear deletes all recorded events.
func (r *Recorder) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clearing events: %w", err)
	}
	r.logger.Debug("statistics cleared")
	return nil
}

// Summary is the aggregated statistics snapshot served by the API.
type Summary struct {
	Plays struct {
		Total   int            `json:"total"`
		ByVideo map[string]int `json:"by_video"`
		ByDay   map[string]int `json:"daily"`
	} `json:"video_plays"`

	Viewing struct {
		Sessions       int                   `json:"total_sessions"`
		TotalSeconds   float64               `json:"total_duration"`
		AverageSeconds float64               `json:"average_duration"`
		ByEndReason    map[string]int        `json:"by_end_reason"`
		ByDay          map[string]DayViewing `json:"daily"`
	} `json:"video_viewing"`

	Button struct {
		Total         int `json:"total"`
		PlayActions   int `json:"play_actions"`
		StopActions   int `json:"stop_actions"`
		Interruptions int `json:"interruptions"`
	} `json:"button_presses"`

	APICalls    int       `json:"api_calls"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DayViewing is one day's viewing aggregate.
type DayViewing struct {
	Sessions int     `json:"sessions"`
	Seconds  float64 `json:"duration"`
}

// Summary aggregates the event log.
func (r *Recorder) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{GeneratedAt: r.now()}
	s.Plays.ByVideo = make(map[string]int)
	s.Plays.ByDay = make(map[string]int)
	s.Viewing.ByEndReason = make(map[string]int)
	s.Viewing.ByDay = make(map[string]DayViewing)

	// Plays.
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE event_type = ?`, eventVideoPlay,
	).Scan(&s.Plays.Total)
	if err != nil {
		return nil, fmt.Errorf("counting plays: %w", err)
	}

	if err := r.groupCount(ctx, s.Plays.ByVideo,
		`SELECT COALESCE(video_title, video_path), COUNT(*)
		 FROM events WHERE event_type = ? AND video_path IS NOT NULL
		 GROUP BY 1`, eventVideoPlay); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, s.Plays.ByDay,
		`SELECT date(created_at), COUNT(*)
		 FROM events WHERE event_type = ?
		 GROUP BY 1`, eventVideoPlay); err != nil {
		return nil, err
	}

	// Viewing sessions.
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration), 0), COALESCE(AVG(duration), 0)
		 FROM events WHERE event_type = ?`, eventVideoViewing,
	).Scan(&s.Viewing.Sessions, &s.Viewing.TotalSeconds, &s.Viewing.AverageSeconds)
	if err != nil {
		return nil, fmt.Errorf("aggregating viewing sessions: %w", err)
	}

	if err := r.groupCount(ctx, s.Viewing.ByEndReason,
		`SELECT end_reason, COUNT(*)
		 FROM events WHERE event_type = ? AND end_reason IS NOT NULL
		 GROUP BY 1`, eventVideoViewing); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT date(created_at), COUNT(*), COALESCE(SUM(duration), 0)
		 FROM events WHERE event_type = ?
		 GROUP BY 1`, eventVideoViewing)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily viewing: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		var dv DayViewing
		if err := rows.Scan(&day, &dv.Sessions, &dv.Seconds); err != nil {
			return nil, fmt.Errorf("scanning daily viewing: %w", err)
		}
		s.Viewing.ByDay[day] = dv
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily viewing: %w", err)
	}

	// Button presses.
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN action = 'play' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN action = 'stop' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0)
		FROM events WHERE event_type IN (?, ?)`,
		eventButtonInterruption, eventButtonPress, eventButtonInterruption,
	).Scan(&s.Button.Total, &s.Button.PlayActions, &s.Button.StopActions, &s.Button.Interruptions)
	if err != nil {
		return nil, fmt.Errorf("aggregating button presses: %w", err)
	}

	// API calls.
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE event_type = ?`, eventAPICall,
	).Scan(&s.APICalls)
	if err != nil {
		return nil, fmt.Errorf("counting api calls: %w", err)
	}

	return s, nil
}

// groupCount runs a two-column (key, count) query into dst.
func (r *Recorder) groupCount(ctx context.Context, dst map[string]int, query string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("grouped count: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scanning grouped count: %w", err)
		}
		dst[key] = count
	}
	return rows.Err()
}

// Hourly returns play counts bucketed by hour of day (0-23). Hours with
// no plays are present with a zero count so charts stay dense.
func (r *Recorder) Hourly(ctx context.Context) ([24]int, error) {
	var buckets [24]int

	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%H', created_at) AS INTEGER), COUNT(*)
		 FROM events WHERE event_type = ?
		 GROUP BY 1`, eventVideoPlay)
	if err != nil {
		return buckets, fmt.Errorf("aggregating hourly plays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return buckets, fmt.Errorf("scanning hourly plays: %w", err)
		}
		if hour >= 0 && hour < 24 {
			buckets[hour] = count
		}
	}
	return buckets, rows.Err()
}
