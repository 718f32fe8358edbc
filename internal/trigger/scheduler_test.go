package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/pawvision/core/internal/player"
)

type fakeSchedule struct {
	entries []string
}

func (f *fakeSchedule) Schedule() []string { return f.entries }

func newTestScheduler(pb *fakePlayback, entries ...string) *Scheduler {
	s := NewScheduler(pb, &fakeSchedule{entries: entries}, nopLogger{})
	s.now = func() time.Time {
		return time.Date(2026, 5, 1, 14, 30, 5, 0, time.Local)
	}
	return s
}

func TestScheduler_FiresAtScheduledMinute(t *testing.T) {
	pb := newFakePlayback()
	s := newTestScheduler(pb, "08:00", "14:30")

	s.tick(context.Background())

	if len(pb.plays) != 1 || pb.plays[0] != player.TriggerScheduled {
		t.Errorf("plays = %v, want one scheduled trigger", pb.plays)
	}
}

func TestScheduler_FiresOncePerMinute(t *testing.T) {
	pb := newFakePlayback()
	s := newTestScheduler(pb, "14:30")

	base := time.Date(2026, 5, 1, 14, 30, 5, 0, time.Local)
	now := base
	s.now = func() time.Time { return now }

	s.tick(context.Background())
	pb.playing = false // session already over, still same minute

	now = base.Add(10 * time.Second)
	s.tick(context.Background())
	now = base.Add(20 * time.Second)
	s.tick(context.Background())

	if len(pb.plays) != 1 {
		t.Errorf("plays within one minute = %d, want 1", len(pb.plays))
	}

	// Once the clock leaves the minute and returns to it, it fires again.
	now = base.Add(time.Minute)
	s.tick(context.Background())
	pb.playing = false
	now = base.AddDate(0, 0, 1)
	s.tick(context.Background())
	if len(pb.plays) != 2 {
		t.Errorf("plays after a day = %d, want 2", len(pb.plays))
	}
}

func TestScheduler_SkipsWhileBusy(t *testing.T) {
	pb := newFakePlayback()
	pb.playing = true
	s := newTestScheduler(pb, "14:30")

	s.tick(context.Background())

	if len(pb.plays) != 0 {
		t.Errorf("plays = %d, want 0 while busy", len(pb.plays))
	}

	// The minute was claimed: stopping within it does not revive the slot.
	pb.playing = false
	s.now = func() time.Time {
		return time.Date(2026, 5, 1, 14, 30, 45, 0, time.Local)
	}
	s.tick(context.Background())
	if len(pb.plays) != 0 {
		t.Errorf("plays = %d, want claimed minute not to fire late", len(pb.plays))
	}
}

func TestScheduler_OffScheduleMinute(t *testing.T) {
	pb := newFakePlayback()
	s := newTestScheduler(pb, "08:00", "20:15")

	s.tick(context.Background())

	if len(pb.plays) != 0 {
		t.Errorf("plays = %d, want 0 off schedule", len(pb.plays))
	}
}

func TestScheduler_NormalizesEntries(t *testing.T) {
	pb := newFakePlayback()
	s := newTestScheduler(pb, "bogus", "14:3") // "14:3" parses as 14:03

	s.tick(context.Background())
	if len(pb.plays) != 0 {
		t.Errorf("plays = %d, want 0 for non-matching entries", len(pb.plays))
	}

	s2 := newTestScheduler(newFakePlayback(), "14:30")
	s2.now = func() time.Time {
		return time.Date(2026, 5, 1, 14, 30, 0, 0, time.Local)
	}
	if !s2.scheduledAt("14:30") {
		t.Error("scheduledAt(14:30) = false, want true")
	}
}

func TestScheduler_NextPlay(t *testing.T) {
	pb := newFakePlayback()

	t.Run("later today", func(t *testing.T) {
		s := newTestScheduler(pb, "08:00", "20:15")
		next, ok := s.NextPlay()
		if !ok {
			t.Fatal("NextPlay() ok = false, want true")
		}
		want := time.Date(2026, 5, 1, 20, 15, 0, 0, time.Local)
		if !next.Equal(want) {
			t.Errorf("NextPlay() = %v, want %v", next, want)
		}
	})

	t.Run("wraps to tomorrow", func(t *testing.T) {
		s := newTestScheduler(pb, "08:00")
		next, ok := s.NextPlay()
		if !ok {
			t.Fatal("NextPlay() ok = false, want true")
		}
		want := time.Date(2026, 5, 2, 8, 0, 0, 0, time.Local)
		if !next.Equal(want) {
			t.Errorf("NextPlay() = %v, want %v", next, want)
		}
	})

	t.Run("empty schedule", func(t *testing.T) {
		s := newTestScheduler(pb)
		if _, ok := s.NextPlay(); ok {
			t.Error("NextPlay() on empty schedule ok = true, want false")
		}
	})
}
