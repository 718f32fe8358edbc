package trigger

import (
	"context"
	"time"

	"github.com/pawvision/core/internal/player"
	"github.com/pawvision/core/internal/timeutil"
)

// tickInterval is how often the scheduler compares the wall clock against
// the schedule. Well under a minute so no scheduled minute is missed.
const tickInterval = 10 * time.Second

// ScheduleProvider returns the configured play times as "HH:MM" strings.
// A fresh snapshot is taken on every tick so edits apply immediately.
type ScheduleProvider interface {
	Schedule() []string
}

// Scheduler fires play requests at configured wall-clock times.
//
// Each scheduled minute fires at most once: the first tick inside a new
// minute claims it, whether or not a play resulted. A scheduled time that
// lands during playback is skipped, not deferred.
type Scheduler struct {
	playback Playback
	schedule ScheduleProvider
	logger   Logger

	now func() time.Time

	lastChecked string // last HH:MM minute already claimed
}

// NewScheduler creates the scheduler. Call Run to start it.
func NewScheduler(playback Playback, schedule ScheduleProvider, logger Logger) *Scheduler {
	return &Scheduler{
		playback: playback,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Blocks; run in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "entries", len(s.schedule.Schedule()))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick claims the current minute and fires if it is scheduled.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	minute := timeutil.MinuteString(now)
	if minute == s.lastChecked {
		return
	}
	s.lastChecked = minute

	if !s.scheduledAt(minute) {
		return
	}
	if s.playback.IsPlaying() {
		s.logger.Debug("scheduled play skipped: playback active", "time", minute)
		return
	}

	s.logger.Info("scheduled play time reached", "time", minute)
	if err := s.playback.RequestPlay(ctx, player.TriggerScheduled); err != nil {
		if player.Rejected(err) {
			s.logger.Debug("scheduled play refused", "time", minute, "reason", err)
			return
		}
		s.logger.Warn("scheduled play failed", "time", minute, "error", err)
	}
}

// scheduledAt reports whether the given HH:MM minute is in the schedule.
// Entries are normalized through ParseClock so "8:05" matches "08:05".
func (s *Scheduler) scheduledAt(minute string) bool {
	for _, entry := range s.schedule.Schedule() {
		c, err := timeutil.ParseClock(entry)
		if err != nil {
			s.logger.Warn("invalid schedule entry", "entry", entry, "error", err)
			continue
		}
		if c.String() == minute {
			return true
		}
	}
	return false
}

// NextPlay returns the next scheduled play time, or false when the
// schedule is empty or entirely invalid.
func (s *Scheduler) NextPlay() (time.Time, bool) {
	now := s.now()

	var next time.Time
	for _, entry := range s.schedule.Schedule() {
		c, err := timeutil.ParseClock(entry)
		if err != nil {
			continue
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next, !next.IsZero()
}
