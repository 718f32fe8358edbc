package library

import (
	"path/filepath"
	"time"
)

// Video is one catalogue entry. Local files are keyed by their absolute
// path; YouTube entries use a youtube://<id> pseudo-path.
type Video struct {
	Path        string    `json:"path"`
	Title       string    `json:"title,omitempty"`
	CustomStart float64   `json:"custom_start_time"`         // seconds from beginning
	CustomEnd   *float64  `json:"custom_end_time,omitempty"` // nil = play to the end
	Duration    float64   `json:"duration,omitempty"`        // full duration, 0 = unknown
	Size        int64     `json:"size,omitempty"`            // bytes, local files only
	ModTime     int64     `json:"modified_time,omitempty"`   // unix seconds, local files only
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// YouTube fields. IsYouTube gates all of them.
	IsYouTube     bool      `json:"is_youtube"`
	YouTubeID     string    `json:"youtube_id,omitempty"`
	YouTubeURL    string    `json:"youtube_url,omitempty"`
	StreamURL     string    `json:"stream_url,omitempty"`
	StreamExpires time.Time `json:"stream_expires,omitzero"`
	DownloadPath  string    `json:"download_path,omitempty"`
	Quality       string    `json:"quality,omitempty"`
}

// EffectiveDuration returns the playable window length in seconds after
// applying the custom start/end bounds, or 0 when the duration is unknown
// or the bounds leave nothing to play.
func (v *Video) EffectiveDuration() float64 {
	if v.Duration <= 0 {
		return 0
	}

	start := v.CustomStart
	if start < 0 {
		start = 0
	}
	end := v.Duration
	if v.CustomEnd != nil && *v.CustomEnd < end {
		end = *v.CustomEnd
	}

	if end <= start {
		return 0
	}
	return end - start
}

// DisplayTitle returns the custom title when set, falling back to the
// YouTube ID or the file's base name.
func (v *Video) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	if v.IsYouTube {
		if v.YouTubeID != "" {
			return "YouTube Video " + v.YouTubeID
		}
		return "YouTube Video"
	}
	return filepath.Base(v.Path)
}

// StreamValid reports whether the cached stream URL can still be handed
// to the player.
func (v *Video) StreamValid(now time.Time) bool {
	return v.StreamURL != "" && !v.StreamExpires.IsZero() && now.Before(v.StreamExpires)
}
