package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// defaultExtensions are the container formats mpv handles out of the box.
var defaultExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm"}

// ManagerConfig parameterizes a Manager.
type ManagerConfig struct {
	// Directories are scanned for local video files.
	Directories []string

	// Extensions overrides the accepted file extensions (with dots).
	Extensions []string

	// PreferredQuality is the default YouTube quality label.
	PreferredQuality string
}

// Manager ties the catalogue together: filesystem sync, playability
// checks, playback path resolution and the YouTube workflows.
type Manager struct {
	repo       Repository
	prober     *Prober
	youtube    *YouTube
	dirs       []string
	extensions map[string]bool
	quality    string
	logger     Logger
	now        func() time.Time
}

// NewManager builds a Manager over the given repository and helpers.
func NewManager(cfg ManagerConfig, repo Repository, prober *Prober, youtube *YouTube, logger Logger) *Manager {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = defaultExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	quality := cfg.PreferredQuality
	if quality == "" {
		quality = "720p"
	}

	return &Manager{
		repo:       repo,
		prober:     prober,
		youtube:    youtube,
		dirs:       cfg.Directories,
		extensions: extSet,
		quality:    quality,
		logger:     logger,
		now:        time.Now,
	}
}

// SyncResult reports what a filesystem sync changed.
type SyncResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// Sync reconciles the catalogue with the video directories.
//
// New files are probed and added, files whose mtime or size changed are
// re-probed, and entries whose file vanished are removed. YouTube entries
// have no backing file and are never removed by sync. Probe failures keep
// the entry with an unknown duration so a later sync can retry.
func (m *Manager) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	existing, err := m.repo.List(ctx)
	if err != nil {
		return result, fmt.Errorf("listing catalogue: %w", err)
	}
	byPath := make(map[string]*Video, len(existing))
	for i := range existing {
		byPath[existing[i].Path] = &existing[i]
	}

	found := make(map[string]bool)
	for _, dir := range m.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				m.logger.Warn("scanning video directory", "path", path, "error", err)
				return nil
			}
			if d.IsDir() || !m.extensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			found[path] = true

			info, err := d.Info()
			if err != nil {
				m.logger.Warn("reading file info", "path", path, "error", err)
				return nil
			}

			entry, known := byPath[path]
			switch {
			case !known:
				v := &Video{
					Path:    path,
					Size:    info.Size(),
					ModTime: info.ModTime().Unix(),
				}
				v.Duration = m.probe(ctx, path)
				if err := m.repo.Upsert(ctx, v); err != nil {
					m.logger.Error("adding video", "path", path, "error", err)
					return nil
				}
				result.Added++
			case entry.ModTime != info.ModTime().Unix() || entry.Size != info.Size() || entry.Duration <= 0:
				entry.Size = info.Size()
				entry.ModTime = info.ModTime().Unix()
				entry.Duration = m.probe(ctx, path)
				if err := m.repo.Upsert(ctx, entry); err != nil {
					m.logger.Error("updating video", "path", path, "error", err)
					return nil
				}
				result.Updated++
			}
			return nil
		})
		if err != nil {
			m.logger.Warn("walking video directory", "dir", dir, "error", err)
		}
	}

	for path, entry := range byPath {
		if entry.IsYouTube || found[path] {
			continue
		}
		if err := m.repo.Delete(ctx, path); err != nil {
			m.logger.Error("removing vanished video", "path", path, "error", err)
			continue
		}
		result.Removed++
	}

	if result.Added > 0 || result.Updated > 0 || result.Removed > 0 {
		m.logger.Info("library sync completed",
			"added", result.Added, "updated", result.Updated, "removed", result.Removed)
	}
	return result, nil
}

// probe reads a duration, returning 0 on failure so the entry stays in
// the catalogue as not-yet-playable.
func (m *Manager) probe(ctx context.Context, path string) float64 {
	duration, err := m.prober.Duration(ctx, path)
	if err != nil {
		m.logger.Warn("probing video duration", "path", path, "error", err)
		return 0
	}
	return duration
}

// List returns the whole catalogue.
func (m *Manager) List(ctx context.Context) ([]Video, error) {
	return m.repo.List(ctx)
}

// Get returns one entry by path.
func (m *Manager) Get(ctx context.Context, path string) (*Video, error) {
	return m.repo.Get(ctx, path)
}

// Delete removes one entry by path.
func (m *Manager) Delete(ctx context.Context, path string) error {
	return m.repo.Delete(ctx, path)
}

// UpdateMetadata applies a partial metadata update.
func (m *Manager) UpdateMetadata(ctx context.Context, path string, update MetadataUpdate) (*Video, error) {
	return m.repo.UpdateMetadata(ctx, path, update)
}

// Playable returns the entries that could start a session right now: a
// positive effective duration and, for local files, a file that still
// exists.
func (m *Manager) Playable(ctx context.Context) ([]Video, error) {
	all, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	playable := make([]Video, 0, len(all))
	for _, v := range all {
		if v.EffectiveDuration() <= 0 {
			continue
		}
		if !v.IsYouTube {
			if _, err := os.Stat(v.Path); err != nil {
				continue
			}
		}
		playable = append(playable, v)
	}
	return playable, nil
}

// ResolvePlaybackPath turns an entry into something mpv can open.
//
// Local entries resolve to their path when the file still exists. YouTube
// entries prefer a completed download, then a still-valid stream URL, and
// finally a fresh stream URL extracted on the spot (persisted for reuse).
func (m *Manager) ResolvePlaybackPath(ctx context.Context, path string) (string, error) {
	v, err := m.repo.Get(ctx, path)
	if err != nil {
		return "", err
	}

	if !v.IsYouTube {
		if _, err := os.Stat(v.Path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrUnresolvable, v.Path, err)
		}
		return v.Path, nil
	}

	if v.DownloadPath != "" {
		if _, err := os.Stat(v.DownloadPath); err == nil {
			return v.DownloadPath, nil
		}
	}
	if v.StreamValid(m.now()) {
		return v.StreamURL, nil
	}

	url, expires, err := m.youtube.StreamURL(ctx, v.YouTubeID, v.Quality)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvable, v.Path, err)
	}
	v.StreamURL = url
	v.StreamExpires = expires
	if err := m.repo.Upsert(ctx, v); err != nil {
		m.logger.Warn("persisting refreshed stream url", "path", v.Path, "error", err)
	}
	return url, nil
}

// AddYouTubeRequest carries the parameters for adding a YouTube entry.
type AddYouTubeRequest struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	CustomStart float64  `json:"custom_start_time,omitempty"`
	EndOffset   *float64 `json:"custom_end_offset,omitempty"` // seconds trimmed off the end
	Quality     string   `json:"quality,omitempty"`
	Download    bool     `json:"download,omitempty"`
}

// AddYouTube validates the URL, probes the video and stores the entry.
// The end offset is relative to the end of the video; it is converted to
// an absolute custom end time against the probed duration.
func (m *Manager) AddYouTube(ctx context.Context, req AddYouTubeRequest) (*Video, error) {
	videoID, err := ExtractVideoID(req.URL)
	if err != nil {
		return nil, err
	}

	title, duration, err := m.youtube.Probe(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		title = req.Title
	}

	quality := req.Quality
	if quality == "" {
		quality = m.quality
	}

	v := &Video{
		Path:        "youtube://" + videoID,
		Title:       title,
		CustomStart: req.CustomStart,
		Duration:    duration,
		IsYouTube:   true,
		YouTubeID:   videoID,
		YouTubeURL:  req.URL,
		Quality:     quality,
	}
	if req.EndOffset != nil && duration > 0 {
		end := duration - *req.EndOffset
		if end > 0 {
			v.CustomEnd = &end
		}
	}

	if url, expires, err := m.youtube.StreamURL(ctx, videoID, quality); err == nil {
		v.StreamURL = url
		v.StreamExpires = expires
	} else {
		m.logger.Warn("extracting initial stream url", "video_id", videoID, "error", err)
	}

	if req.Download {
		if path, err := m.youtube.Download(ctx, videoID, quality); err == nil {
			v.DownloadPath = path
		} else {
			m.logger.Warn("downloading youtube video", "video_id", videoID, "error", err)
		}
	}

	if err := m.repo.Upsert(ctx, v); err != nil {
		return nil, err
	}
	m.logger.Info("added youtube video", "video_id", videoID, "title", v.DisplayTitle())
	return v, nil
}

// RefreshStreams re-extracts stream URLs for YouTube entries whose cached
// URL expired. Returns how many were refreshed.
func (m *Manager) RefreshStreams(ctx context.Context) (int, error) {
	all, err := m.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	now := m.now()
	for i := range all {
		v := &all[i]
		if !v.IsYouTube || v.StreamValid(now) {
			continue
		}
		url, expires, err := m.youtube.StreamURL(ctx, v.YouTubeID, v.Quality)
		if err != nil {
			m.logger.Warn("refreshing stream url", "video_id", v.YouTubeID, "error", err)
			continue
		}
		v.StreamURL = url
		v.StreamExpires = expires
		if err := m.repo.Upsert(ctx, v); err != nil {
			m.logger.Error("persisting refreshed stream url", "path", v.Path, "error", err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		m.logger.Info("refreshed youtube stream urls", "count", refreshed)
	}
	return refreshed, nil
}

// DownloadYouTube fetches an existing YouTube entry for offline playback.
func (m *Manager) DownloadYouTube(ctx context.Context, path string) (*Video, error) {
	v, err := m.repo.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !v.IsYouTube {
		return nil, fmt.Errorf("%w: not a youtube entry: %s", ErrUnresolvable, path)
	}

	downloadPath, err := m.youtube.Download(ctx, v.YouTubeID, v.Quality)
	if err != nil {
		return nil, err
	}
	v.DownloadPath = downloadPath
	if err := m.repo.Upsert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}
