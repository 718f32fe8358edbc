package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pawvision/core/internal/timeutil"
)

// testClock is a manually advanced clock shared by an orchestrator under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeLibrary struct {
	mu         sync.Mutex
	items      []Item
	resolveErr map[string]error
}

func (l *fakeLibrary) Playable(context.Context) ([]Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...), nil
}

func (l *fakeLibrary) ResolvePlaybackPath(_ context.Context, id string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.resolveErr[id]; ok {
		return "", err
	}
	return "/videos/" + id + ".mp4", nil
}

type fakeStats struct {
	mu      sync.Mutex
	started []PlayStarted
	ended   []PlayEnded
}

func (s *fakeStats) RecordPlayStarted(_ context.Context, ev PlayStarted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, ev)
	return nil
}

func (s *fakeStats) RecordPlayEnded(_ context.Context, ev PlayEnded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, ev)
	return nil
}

func (s *fakeStats) endedEvents() []PlayEnded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlayEnded(nil), s.ended...)
}

type fakeMonitor struct {
	mu  sync.Mutex
	on  int
	off int
}

func (m *fakeMonitor) On(context.Context) {
	m.mu.Lock()
	m.on++
	m.mu.Unlock()
}

func (m *fakeMonitor) Off(context.Context) {
	m.mu.Lock()
	m.off++
	m.mu.Unlock()
}

func (m *fakeMonitor) counts() (on, off int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on, m.off
}

type fakeSettings struct {
	mu sync.Mutex
	st Settings
}

func (s *fakeSettings) Playback() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *fakeSettings) set(st Settings) {
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}

type fakeHandle struct {
	mu    sync.Mutex
	alive bool
	stops int
}

func (h *fakeHandle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *fakeHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alive = false
	h.stops++
	return nil
}

func (h *fakeHandle) kill() {
	h.mu.Lock()
	h.alive = false
	h.mu.Unlock()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// harness bundles an orchestrator with its fakes.
type harness struct {
	orch     *Orchestrator
	clock    *testClock
	library  *fakeLibrary
	stats    *fakeStats
	monitor  *fakeMonitor
	settings *fakeSettings

	spawnMu  sync.Mutex
	spawned  []SpawnSpec
	handles  []*fakeHandle
	spawnErr error
}

func (h *harness) spawn(_ context.Context, spec SpawnSpec) (Handle, error) {
	h.spawnMu.Lock()
	defer h.spawnMu.Unlock()
	if h.spawnErr != nil {
		return nil, h.spawnErr
	}
	h.spawned = append(h.spawned, spec)
	handle := &fakeHandle{alive: true}
	h.handles = append(h.handles, handle)
	return handle, nil
}

func (h *harness) lastSpawn(t *testing.T) SpawnSpec {
	t.Helper()
	h.spawnMu.Lock()
	defer h.spawnMu.Unlock()
	if len(h.spawned) == 0 {
		t.Fatal("nothing spawned")
	}
	return h.spawned[len(h.spawned)-1]
}

func (h *harness) lastHandle(t *testing.T) *fakeHandle {
	t.Helper()
	h.spawnMu.Lock()
	defer h.spawnMu.Unlock()
	if len(h.handles) == 0 {
		t.Fatal("nothing spawned")
	}
	return h.handles[len(h.handles)-1]
}

func newHarness() *harness {
	h := &harness{
		clock: newTestClock(),
		library: &fakeLibrary{
			items: []Item{{ID: "vid-1", Title: "Birds", Seconds: 120}},
		},
		stats:   &fakeStats{},
		monitor: &fakeMonitor{},
		settings: &fakeSettings{st: Settings{
			MaxDuration: 5 * time.Minute,
			Cooldown:    time.Minute,
			Volume:      80,
		}},
	}
	h.orch = New(Config{
		Library:  h.library,
		Stats:    h.stats,
		Monitor:  h.monitor,
		Settings: h.settings,
		Spawn:    h.spawn,
		Logger:   nopLogger{},
	})
	h.orch.now = h.clock.Now
	h.orch.randIntN = func(int64) int64 { return 0 }
	return h
}

func TestRequestPlay_StartsSession(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}

	if !h.orch.IsPlaying() {
		t.Error("IsPlaying = false after successful play")
	}
	spec := h.lastSpawn(t)
	if spec.Path != "/videos/vid-1.mp4" {
		t.Errorf("spawned path = %q, want /videos/vid-1.mp4", spec.Path)
	}
	if spec.Volume != 80 {
		t.Errorf("spawned volume = %d, want 80", spec.Volume)
	}
	if on, _ := h.monitor.counts(); on != 1 {
		t.Errorf("monitor on count = %d, want 1", on)
	}
	h.stats.mu.Lock()
	started := len(h.stats.started)
	h.stats.mu.Unlock()
	if started != 1 {
		t.Errorf("recorded %d PlayStarted events, want 1", started)
	}
}

func TestRequestPlay_RejectsWhileBusy(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("first RequestPlay returned %v", err)
	}
	err := h.orch.RequestPlay(ctx, TriggerAPI)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second RequestPlay = %v, want ErrBusy", err)
	}
	if !Rejected(err) {
		t.Error("ErrBusy should be classified as Rejected")
	}
}

func TestRequestPlay_ConcurrentSingleWinner(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.orch.RequestPlay(ctx, TriggerAPI); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("%d concurrent plays succeeded, want exactly 1", successes)
	}
	h.spawnMu.Lock()
	spawns := len(h.spawned)
	h.spawnMu.Unlock()
	if spawns != 1 {
		t.Errorf("%d processes spawned, want 1", spawns)
	}
}

func TestCooldown(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	if !h.orch.RequestStop(ctx, EndManual) {
		t.Fatal("RequestStop returned false with an active session")
	}

	h.clock.Advance(10 * time.Second)
	err := h.orch.RequestPlay(ctx, TriggerButton)
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("RequestPlay 10s after end = %v, want ErrCooldownActive", err)
	}
	if got := h.orch.TimeUntilCooldownEnds(); got != 50*time.Second {
		t.Errorf("TimeUntilCooldownEnds = %v, want 50s", got)
	}

	h.clock.Advance(51 * time.Second) // 61s after end
	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Errorf("RequestPlay 61s after end = %v, want nil", err)
	}
}

func TestNightMode_MutesVolume(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.settings.set(Settings{
		MaxDuration:      5 * time.Minute,
		Volume:           80,
		NightModeEnabled: true,
		NightStart:       timeutil.MustParseClock("22:00"),
		NightEnd:         timeutil.MustParseClock("06:00"),
	})

	h.clock.Set(time.Date(2026, 5, 1, 23, 30, 0, 0, time.Local))
	if err := h.orch.RequestPlay(ctx, TriggerScheduled); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	if spec := h.lastSpawn(t); spec.Volume != 0 {
		t.Errorf("night-time volume = %d, want 0", spec.Volume)
	}
	h.orch.RequestStop(ctx, EndManual)

	h.clock.Set(time.Date(2026, 5, 2, 14, 0, 0, 0, time.Local))
	if err := h.orch.RequestPlay(ctx, TriggerScheduled); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	if spec := h.lastSpawn(t); spec.Volume != 80 {
		t.Errorf("daytime volume = %d, want 80", spec.Volume)
	}
}

func TestRequestStop_Idempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	if !h.orch.RequestStop(ctx, EndManualInterruption) {
		t.Error("first RequestStop = false, want true")
	}
	if h.orch.RequestStop(ctx, EndManual) {
		t.Error("second RequestStop = true, want false")
	}

	ended := h.stats.endedEvents()
	if len(ended) != 1 {
		t.Fatalf("recorded %d PlayEnded events, want 1", len(ended))
	}
	if ended[0].Reason != EndManualInterruption {
		t.Errorf("end reason = %q, want %q", ended[0].Reason, EndManualInterruption)
	}
	if stops := h.lastHandle(t).stops; stops != 1 {
		t.Errorf("handle stopped %d times, want 1", stops)
	}
}

func TestTimerFire_EndsWithTimeout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	// 50ms planned duration so the real timer fires quickly.
	h.library.items = []Item{{ID: "vid-1", Title: "Birds", Seconds: 0.05}}

	if err := h.orch.RequestPlay(ctx, TriggerAPI); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if len(h.stats.endedEvents()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timer never ended the session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ended := h.stats.endedEvents()
	if len(ended) != 1 {
		t.Fatalf("recorded %d PlayEnded events, want 1", len(ended))
	}
	if ended[0].Reason != EndTimeout {
		t.Errorf("end reason = %q, want %q", ended[0].Reason, EndTimeout)
	}
	if h.orch.IsPlaying() {
		t.Error("IsPlaying = true after timer fired")
	}
}

func TestStaleTimerFire_NoDoubleEnd(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	h.orch.mu.Lock()
	staleGen := h.orch.sess.gen
	h.orch.mu.Unlock()

	h.orch.RequestStop(ctx, EndManual)
	h.settings.set(Settings{MaxDuration: 5 * time.Minute, Volume: 80}) // no cooldown
	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("second RequestPlay returned %v", err)
	}

	// A late fire from the first session's timer must not touch the
	// second session.
	h.orch.timerFired(staleGen)

	if !h.orch.IsPlaying() {
		t.Error("stale timer fire ended the wrong session")
	}
	if ended := h.stats.endedEvents(); len(ended) != 1 {
		t.Errorf("recorded %d PlayEnded events, want 1", len(ended))
	}
}

func TestCrashDetection(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	h.lastHandle(t).kill()

	if h.orch.IsPlaying() {
		t.Error("IsPlaying = true with a dead player process")
	}

	// The next play request reaps the crashed session. The crash marks
	// the cooldown gate like any other playback end, so with a cooldown
	// configured the request itself is refused.
	err := h.orch.RequestPlay(ctx, TriggerButton)
	if !errors.Is(err, ErrCooldownActive) {
		t.Errorf("RequestPlay after crash = %v, want ErrCooldownActive", err)
	}

	ended := h.stats.endedEvents()
	if len(ended) != 1 {
		t.Fatalf("recorded %d PlayEnded events, want 1", len(ended))
	}
	if ended[0].Reason != EndCrashed {
		t.Errorf("end reason = %q, want %q", ended[0].Reason, EndCrashed)
	}

	h.clock.Advance(2 * time.Minute)
	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Errorf("RequestPlay after crash cooldown = %v, want nil", err)
	}
}

func TestSpawnFailure_RevertsMonitor(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.spawnErr = errors.New("mpv: executable not found")

	err := h.orch.RequestPlay(ctx, TriggerAPI)
	if !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("RequestPlay = %v, want ErrSpawnFailed", err)
	}
	if Rejected(err) {
		t.Error("spawn failure should not be classified as Rejected")
	}
	if h.orch.IsPlaying() {
		t.Error("IsPlaying = true after spawn failure")
	}
	on, off := h.monitor.counts()
	if on != 1 || off != 1 {
		t.Errorf("monitor on/off = %d/%d, want 1/1", on, off)
	}

	// The failed attempt must not leave the admission flag stuck.
	h.spawnErr = nil
	if err := h.orch.RequestPlay(ctx, TriggerAPI); err != nil {
		t.Errorf("RequestPlay after spawn failure = %v, want nil", err)
	}
}

func TestRequestPlay_EmptyLibrary(t *testing.T) {
	h := newHarness()
	h.library.items = nil

	err := h.orch.RequestPlay(context.Background(), TriggerScheduled)
	if !errors.Is(err, ErrNoPlayableVideo) {
		t.Errorf("RequestPlay = %v, want ErrNoPlayableVideo", err)
	}
}

func TestRequestPlay_RetriesUnresolvableEntries(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.library.items = []Item{
		{ID: "gone", Title: "Deleted", Seconds: 60},
		{ID: "ok", Title: "Squirrels", Seconds: 60},
	}
	h.library.resolveErr = map[string]error{
		"gone": errors.New("file vanished"),
	}

	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	if spec := h.lastSpawn(t); spec.Path != "/videos/ok.mp4" {
		t.Errorf("spawned path = %q, want the resolvable entry", spec.Path)
	}

	h.orch.RequestStop(ctx, EndManual)
	h.clock.Advance(2 * time.Minute)

	// With every entry unresolvable the request is a library refusal.
	h.library.resolveErr["ok"] = errors.New("stream expired")
	err := h.orch.RequestPlay(ctx, TriggerButton)
	if !errors.Is(err, ErrNoPlayableVideo) {
		t.Errorf("RequestPlay with no resolvable entries = %v, want ErrNoPlayableVideo", err)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	st := h.orch.Status()
	if st.Playing {
		t.Error("Status.Playing = true before any session")
	}

	if err := h.orch.RequestPlay(ctx, TriggerScheduled); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	st = h.orch.Status()
	if !st.Playing || st.VideoID != "vid-1" || st.Trigger != TriggerScheduled {
		t.Errorf("Status = %+v, want playing vid-1 via scheduled", st)
	}
	if st.Planned != 2*time.Minute {
		t.Errorf("Status.Planned = %v, want 2m", st.Planned)
	}

	h.orch.RequestStop(ctx, EndManual)
	h.clock.Advance(15 * time.Second)
	st = h.orch.Status()
	if st.Playing {
		t.Error("Status.Playing = true after stop")
	}
	if st.CooldownRemaining != 45*time.Second {
		t.Errorf("Status.CooldownRemaining = %v, want 45s", st.CooldownRemaining)
	}
}

func TestStateListener(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	var mu sync.Mutex
	var events []StateEvent
	h.orch.SetStateListener(func(ev StateEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if err := h.orch.RequestPlay(ctx, TriggerMQTT); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	h.orch.RequestStop(ctx, EndMotionLost)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("listener received %d events, want 2", len(events))
	}
	if !events[0].Playing || events[0].Trigger != TriggerMQTT {
		t.Errorf("first event = %+v, want playing via mqtt", events[0])
	}
	if events[1].Playing || events[1].Reason != EndMotionLost {
		t.Errorf("second event = %+v, want stopped with motion_lost", events[1])
	}
}

// TestFullCycle walks the trigger-to-cooldown lifecycle end to end.
func TestFullCycle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	// Button press starts playback.
	if err := h.orch.RequestPlay(ctx, TriggerButton); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}

	// A second press during playback interrupts it.
	h.clock.Advance(30 * time.Second)
	if !h.orch.RequestStop(ctx, EndManualInterruption) {
		t.Fatal("interrupting stop returned false")
	}
	ended := h.stats.endedEvents()
	if len(ended) != 1 || ended[0].Viewed != 30*time.Second {
		t.Fatalf("ended events = %+v, want one with 30s viewed", ended)
	}

	// Triggers inside the cooldown are refused.
	h.clock.Advance(20 * time.Second)
	if err := h.orch.RequestPlay(ctx, TriggerScheduled); !errors.Is(err, ErrCooldownActive) {
		t.Errorf("play during cooldown = %v, want ErrCooldownActive", err)
	}

	// After the cooldown a new session starts cleanly.
	h.clock.Advance(time.Minute)
	if err := h.orch.RequestPlay(ctx, TriggerScheduled); err != nil {
		t.Errorf("play after cooldown = %v, want nil", err)
	}
	if !h.orch.IsPlaying() {
		t.Error("IsPlaying = false after post-cooldown play")
	}
}

func TestShutdown_StopsActiveSession(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if err := h.orch.RequestPlay(ctx, TriggerAPI); err != nil {
		t.Fatalf("RequestPlay returned %v", err)
	}
	h.orch.Shutdown(ctx)

	ended := h.stats.endedEvents()
	if len(ended) != 1 || ended[0].Reason != EndShutdown {
		t.Fatalf("ended events = %+v, want one with reason shutdown", ended)
	}
	if h.orch.IsPlaying() {
		t.Error("IsPlaying = true after Shutdown")
	}
}
