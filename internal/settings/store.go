// Package settings owns the runtime-adjustable playback configuration.
//
// The Store holds the live copy of the playback section, serves snapshots
// to the orchestrator and trigger adapters, and persists API updates back
// to the YAML config file so they survive restarts. All other config
// sections are fixed at startup.
package settings

import (
	"fmt"
	"sync"
	"time"

	"github.com/pawvision/core/internal/infrastructure/config"
	"github.com/pawvision/core/internal/player"
	"github.com/pawvision/core/internal/timeutil"
	"github.com/pawvision/core/internal/trigger"
)

// Logger defines the logging interface used by the store.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store is the single mutable view of playback settings.
type Store struct {
	logger Logger
	path   string // config file to persist updates into

	mu  sync.RWMutex
	cfg *config.Config
}

// NewStore wraps a loaded configuration. path is where updates are saved;
// empty disables persistence (tests, read-only filesystems).
func NewStore(cfg *config.Config, path string, logger Logger) *Store {
	return &Store{cfg: cfg, path: path, logger: logger}
}

// Snapshot returns a copy of the current playback section.
func (s *Store) Snapshot() config.PlaybackConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cfg.Playback
	out.PlaySchedule = append([]string(nil), s.cfg.Playback.PlaySchedule...)
	return out
}

// Patch is a partial settings update. Nil fields are left unchanged; an
// empty string clears the button disable window bounds.
type Patch struct {
	MaxDurationMinutes *int `json:"max_duration_minutes,omitempty"`
	CooldownMinutes    *int `json:"cooldown_minutes,omitempty"`
	Volume             *int `json:"volume,omitempty"`

	NightModeEnabled *bool   `json:"night_mode_enabled,omitempty"`
	NightModeStart   *string `json:"night_mode_start,omitempty"`
	NightModeEnd     *string `json:"night_mode_end,omitempty"`

	ButtonEnabled         *bool   `json:"button_enabled,omitempty"`
	ButtonDisableStart    *string `json:"button_disable_start,omitempty"`
	ButtonDisableEnd      *string `json:"button_disable_end,omitempty"`
	SecondPressStops      *bool   `json:"second_press_stops,omitempty"`
	ButtonCooldownSeconds *int    `json:"button_cooldown_seconds,omitempty"`

	PlaySchedule []string `json:"play_schedule,omitempty"`
}

// Update applies a patch, validates the result, persists it, and swaps it
// in. On any failure the previous settings stay in effect.
func (s *Store) Update(patch Patch) (config.PlaybackConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cfg
	next.Playback = s.cfg.Playback
	next.Playback.PlaySchedule = append([]string(nil), s.cfg.Playback.PlaySchedule...)
	applyPatch(&next.Playback, patch)

	if err := next.ValidatePlayback(); err != nil {
		return config.PlaybackConfig{}, err
	}

	if s.path != "" {
		if err := next.Save(s.path); err != nil {
			return config.PlaybackConfig{}, fmt.Errorf("persisting settings: %w", err)
		}
	}

	s.cfg = &next
	s.logger.Info("settings updated", "volume", next.Playback.Volume,
		"max_duration_minutes", next.Playback.MaxDurationMinutes,
		"schedule_entries", len(next.Playback.PlaySchedule),
	)
	return next.Playback, nil
}

func applyPatch(p *config.PlaybackConfig, patch Patch) {
	if patch.MaxDurationMinutes != nil {
		p.MaxDurationMinutes = *patch.MaxDurationMinutes
	}
	if patch.CooldownMinutes != nil {
		p.CooldownMinutes = *patch.CooldownMinutes
	}
	if patch.Volume != nil {
		p.Volume = *patch.Volume
	}
	if patch.NightModeEnabled != nil {
		p.NightModeEnabled = *patch.NightModeEnabled
	}
	if patch.NightModeStart != nil {
		p.NightModeStart = *patch.NightModeStart
	}
	if patch.NightModeEnd != nil {
		p.NightModeEnd = *patch.NightModeEnd
	}
	if patch.ButtonEnabled != nil {
		p.ButtonEnabled = *patch.ButtonEnabled
	}
	if patch.ButtonDisableStart != nil {
		p.ButtonDisableStart = *patch.ButtonDisableStart
	}
	if patch.ButtonDisableEnd != nil {
		p.ButtonDisableEnd = *patch.ButtonDisableEnd
	}
	if patch.SecondPressStops != nil {
		p.SecondPressStops = *patch.SecondPressStops
	}
	if patch.ButtonCooldownSeconds != nil {
		p.ButtonCooldownSeconds = *patch.ButtonCooldownSeconds
	}
	if patch.PlaySchedule != nil {
		p.PlaySchedule = append([]string(nil), patch.PlaySchedule...)
	}
}

// Playback implements player.SettingsProvider. Clock values were validated
// at load and on every update, so parse errors cannot occur here.
func (s *Store) Playback() player.Settings {
	s.mu.RLock()
	p := s.cfg.Playback
	s.mu.RUnlock()

	start, _ := timeutil.ParseClock(p.NightModeStart)
	end, _ := timeutil.ParseClock(p.NightModeEnd)

	return player.Settings{
		MaxDuration:      time.Duration(p.MaxDurationMinutes) * time.Minute,
		Cooldown:         time.Duration(p.CooldownMinutes) * time.Minute,
		Volume:           p.Volume,
		NightModeEnabled: p.NightModeEnabled,
		NightStart:       start,
		NightEnd:         end,
	}
}

// Button implements trigger.ButtonSettingsProvider.
func (s *Store) Button() trigger.ButtonSettings {
	s.mu.RLock()
	p := s.cfg.Playback
	s.mu.RUnlock()

	out := trigger.ButtonSettings{
		Enabled:          p.ButtonEnabled,
		SecondPressStops: p.SecondPressStops,
		Cooldown:         time.Duration(p.ButtonCooldownSeconds) * time.Second,
	}
	if p.ButtonDisableStart != "" && p.ButtonDisableEnd != "" {
		out.DisableWindowSet = true
		out.DisableStart, _ = timeutil.ParseClock(p.ButtonDisableStart)
		out.DisableEnd, _ = timeutil.ParseClock(p.ButtonDisableEnd)
	}
	return out
}

// Schedule implements trigger.ScheduleProvider.
func (s *Store) Schedule() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.cfg.Playback.PlaySchedule...)
}
