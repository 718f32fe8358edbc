package library

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// probeTimeout bounds one mediainfo invocation.
const probeTimeout = 30 * time.Second

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Prober reads video durations with mediainfo. Results are not cached
// here: the Manager re-probes only when a file's mtime or size changed,
// using the catalogue row as the cache.
type Prober struct {
	logger Logger
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewProber returns a Prober shelling out to mediainfo.
func NewProber(logger Logger) *Prober {
	return &Prober{
		logger: logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Duration returns the video duration in seconds.
//
// mediainfo reports milliseconds; an empty report (no video track) is an
// error.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := p.run(ctx, "mediainfo", "--Inform=Video;%Duration%", path)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", path, err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return 0, fmt.Errorf("probing %s: no video track", path)
	}

	ms, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("probing %s: parsing duration %q: %w", path, text, err)
	}

	seconds := ms / 1000
	p.logger.Debug("probed video duration", "path", path, "seconds", seconds)
	return seconds, nil
}
