package library

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// streamURLTTL is how long an extracted stream URL is trusted.
	// YouTube's signed URLs expire after roughly six hours.
	streamURLTTL = 6 * time.Hour

	// infoTimeout bounds metadata extraction; downloads get longer.
	infoTimeout     = 60 * time.Second
	downloadTimeout = 30 * time.Minute
)

// youtubeIDPatterns match the URL shapes we accept. An 11-character ID on
// its own is also accepted.
var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

var bareYouTubeID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID pulls the 11-character video ID out of a YouTube URL.
func ExtractVideoID(url string) (string, error) {
	for _, pattern := range youtubeIDPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	if bareYouTubeID.MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidYouTubeURL, url)
}

// formatSelector maps a quality label to a yt-dlp format expression.
func formatSelector(quality string) string {
	selectors := map[string]string{
		"144p":  "worst[height<=144]",
		"240p":  "worst[height<=240]",
		"360p":  "best[height<=360]",
		"480p":  "best[height<=480]",
		"720p":  "best[height<=720]",
		"1080p": "best[height<=1080]",
		"best":  "best",
		"worst": "worst",
	}
	if s, ok := selectors[quality]; ok {
		return s
	}
	return "best[height<=720]"
}

// YouTube wraps the yt-dlp binary for metadata, stream URL extraction and
// offline downloads.
type YouTube struct {
	downloadDir string
	quality     string
	logger      Logger
	now         func() time.Time
	run         func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYouTube returns a helper that downloads into downloadDir and prefers
// the given quality when none is requested per call.
func NewYouTube(downloadDir, quality string, logger Logger) *YouTube {
	return &YouTube{
		downloadDir: downloadDir,
		quality:     quality,
		logger:      logger,
		now:         time.Now,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Probe fetches the title and duration for a video.
func (y *YouTube) Probe(ctx context.Context, videoID string) (title string, duration float64, err error) {
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	out, err := y.run(ctx, "yt-dlp",
		"--quiet", "--no-warnings", "--skip-download",
		"--print", "%(title)s",
		"--print", "%(duration)s",
		watchURL(videoID),
	)
	if err != nil {
		return "", 0, fmt.Errorf("probing youtube video %s: %w", videoID, err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return "", 0, fmt.Errorf("probing youtube video %s: unexpected output %q", videoID, out)
	}
	title = strings.TrimSpace(lines[0])
	duration, err = strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
	if err != nil {
		return "", 0, fmt.Errorf("probing youtube video %s: parsing duration: %w", videoID, err)
	}
	return title, duration, nil
}

// StreamURL extracts a direct stream URL and its expiry.
func (y *YouTube) StreamURL(ctx context.Context, videoID, quality string) (url string, expires time.Time, err error) {
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	if quality == "" {
		quality = y.quality
	}
	out, err := y.run(ctx, "yt-dlp",
		"--quiet", "--no-warnings",
		"--format", formatSelector(quality),
		"--get-url",
		watchURL(videoID),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting stream url for %s: %w", videoID, err)
	}

	url = strings.TrimSpace(string(out))
	if url == "" {
		return "", time.Time{}, fmt.Errorf("getting stream url for %s: empty output", videoID)
	}
	return url, y.now().Add(streamURLTTL), nil
}

// Download fetches the video for offline playback and returns the local
// path. The extension is whatever yt-dlp chose, so the file is located by
// its ID prefix afterwards.
func (y *YouTube) Download(ctx context.Context, videoID, quality string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	if quality == "" {
		quality = y.quality
	}
	if err := os.MkdirAll(y.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}

	outTemplate := filepath.Join(y.downloadDir, videoID+".%(ext)s")
	if _, err := y.run(ctx, "yt-dlp",
		"--quiet", "--no-warnings",
		"--format", formatSelector(quality),
		"--output", outTemplate,
		watchURL(videoID),
	); err != nil {
		return "", fmt.Errorf("downloading %s: %w", videoID, err)
	}

	matches, err := filepath.Glob(filepath.Join(y.downloadDir, videoID+".*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("downloaded file for %s not found", videoID)
	}
	y.logger.Info("downloaded youtube video", "video_id", videoID, "path", matches[0])
	return matches[0], nil
}

// CleanupDownloads removes downloaded YouTube files older than maxAge.
// Only files named like <11-char-id>.<ext> are touched.
func (y *YouTube) CleanupDownloads(maxAge time.Duration) int {
	entries, err := os.ReadDir(y.downloadDir)
	if err != nil {
		return 0
	}

	downloadName := regexp.MustCompile(`^[a-zA-Z0-9_-]{11}\.\w+$`)
	cutoff := y.now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !downloadName.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(y.downloadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			y.logger.Warn("removing old download", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		y.logger.Info("cleaned up old youtube downloads", "count", removed)
	}
	return removed
}
