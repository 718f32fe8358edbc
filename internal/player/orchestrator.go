package player

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pawvision/core/internal/timeutil"
)

// Logger defines the logging interface used by the orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Item is a playable library entry as the orchestrator sees it.
type Item struct {
	ID           string
	Title        string
	StartSeconds float64 // configured start of the playable window
	Seconds      float64 // effective playable duration
}

// Library supplies playable entries and resolves them to player paths.
type Library interface {
	// Playable returns every entry that can be played right now.
	Playable(ctx context.Context) ([]Item, error)

	// ResolvePlaybackPath turns an entry into a path or URL the media
	// player can open. May involve network work for streamed entries.
	ResolvePlaybackPath(ctx context.Context, id string) (string, error)
}

// StatsSink receives playback lifecycle events for recording. Sink
// failures are logged by the orchestrator and never affect playback.
type StatsSink interface {
	RecordPlayStarted(ctx context.Context, ev PlayStarted) error
	RecordPlayEnded(ctx context.Context, ev PlayEnded) error
}

// Monitor switches the display on and off. Implementations are
// fire-and-forget and must not block on hardware.
type Monitor interface {
	On(ctx context.Context)
	Off(ctx context.Context)
}

// Settings is the snapshot of playback configuration used for one request.
type Settings struct {
	MaxDuration      time.Duration // session cap, 0 = play whole window
	Cooldown         time.Duration // spacing between sessions
	Volume           int           // 0-100
	NightModeEnabled bool
	NightStart       timeutil.Clock
	NightEnd         timeutil.Clock
}

// SettingsProvider returns the current playback settings. The orchestrator
// takes a fresh snapshot for every request and never caches one.
type SettingsProvider interface {
	Playback() Settings
}

// SpawnSpec describes a media player invocation.
type SpawnSpec struct {
	Path        string
	StartOffset float64 // seconds
	Volume      int
}

// Handle is the orchestrator's view of a running player process.
type Handle interface {
	Alive() bool
	Stop() error
}

// SpawnFunc launches the media player. The returned Handle owns the
// process for the session's lifetime.
type SpawnFunc func(ctx context.Context, spec SpawnSpec) (Handle, error)

// session is the single unit of playback state. It exists only while
// owned by the orchestrator; once detached it is finished exactly once.
type session struct {
	item      Item
	handle    Handle
	trigger   Trigger
	startedAt time.Time
	planned   time.Duration
	timer     *time.Timer
	gen       uint64
}

// Config wires an Orchestrator's collaborators.
type Config struct {
	Library  Library
	Stats    StatsSink
	Monitor  Monitor
	Settings SettingsProvider
	Spawn    SpawnFunc
	Logger   Logger
}

// Orchestrator is the single authority over playback state.
//
// All transitions are serialized behind one mutex. The auto-stop timer
// re-enters through the same detach path as manual stops, guarded by a
// per-session generation token, so a racing timer and stop produce exactly
// one PlayEnded. Cooldown is not a held state: it is observed lazily by
// consulting the playback-end gate on the next play request.
type Orchestrator struct {
	library  Library
	stats    StatsSink
	monitor  Monitor
	settings SettingsProvider
	spawn    SpawnFunc
	logger   Logger
	gate     *Gate

	// injectable for tests
	now      func() time.Time
	randIntN func(n int64) int64

	mu       sync.Mutex
	sess     *session
	gen      uint64
	starting bool // play admission held while resolving/spawning

	listenerMu sync.Mutex
	listener   func(StateEvent)
}

// New creates an Orchestrator. All Config fields are required except
// Stats, which may be nil when statistics are disabled.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		library:  cfg.Library,
		stats:    cfg.Stats,
		monitor:  cfg.Monitor,
		settings: cfg.Settings,
		spawn:    cfg.Spawn,
		logger:   cfg.Logger,
		gate:     NewGate(),
		now:      time.Now,
		randIntN: rand.Int63n,
	}
}

// Gate exposes the shared action gate so trigger adapters (button spacing)
// and the statistics reset can use the same instance.
func (o *Orchestrator) Gate() *Gate {
	return o.gate
}

// SetStateListener registers the observer notified on every playback state
// transition. Call before triggers start; the listener must not block.
func (o *Orchestrator) SetStateListener(fn func(StateEvent)) {
	o.listenerMu.Lock()
	o.listener = fn
	o.listenerMu.Unlock()
}

// RequestPlay starts a playback session for the given trigger.
//
// Returns nil when a session started, or a sentinel error describing the
// refusal: ErrBusy while a session is live, ErrCooldownActive inside the
// post-playback cooldown, ErrNoPlayableVideo for an empty or unresolvable
// library, ErrSpawnFailed when the player could not be launched. Use
// Rejected to distinguish state refusals from faults.
func (o *Orchestrator) RequestPlay(ctx context.Context, trigger Trigger) error {
	o.mu.Lock()
	if o.starting {
		o.mu.Unlock()
		return ErrBusy
	}
	if s := o.sess; s != nil {
		if s.handle.Alive() {
			o.mu.Unlock()
			return ErrBusy
		}
		// Player died on its own. Reap it before admitting the new
		// request; the crash marks the cooldown gate like any other
		// playback end.
		o.sess = nil
		s.timer.Stop()
		o.mu.Unlock()
		o.logger.Warn("player process died unexpectedly",
			"video_id", s.item.ID, "title", s.item.Title)
		o.finish(ctx, s, EndCrashed)

		o.mu.Lock()
		if o.starting || o.sess != nil {
			o.mu.Unlock()
			return ErrBusy
		}
	}

	now := o.now()
	st := o.settings.Playback()
	if remaining := o.gate.Remaining(GatePlaybackEnd, now, st.Cooldown); remaining > 0 {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s remaining", ErrCooldownActive, remaining.Round(time.Second))
	}
	o.starting = true
	o.mu.Unlock()

	err := o.startSession(ctx, trigger, st)
	if err != nil {
		o.mu.Lock()
		o.starting = false
		o.mu.Unlock()
	}
	return err
}

// startSession runs the slow half of a play request (library resolution
// and process spawn) while holding the starting flag instead of the mutex,
// so state reads stay fast. On success it commits the session and clears
// the flag itself.
func (o *Orchestrator) startSession(ctx context.Context, trigger Trigger, st Settings) error {
	items, err := o.library.Playable(ctx)
	if err != nil {
		return fmt.Errorf("listing playable videos: %w", err)
	}
	if len(items) == 0 {
		return ErrNoPlayableVideo
	}

	// Pick uniformly; entries whose path cannot be resolved (vanished
	// file, stale stream) are dropped and another is tried.
	var item Item
	var path string
	for len(items) > 0 {
		i := int(o.randIntN(int64(len(items))))
		candidate := items[i]

		path, err = o.library.ResolvePlaybackPath(ctx, candidate.ID)
		if err == nil {
			item = candidate
			break
		}
		o.logger.Warn("skipping unresolvable video",
			"video_id", candidate.ID, "title", candidate.Title, "error", err)
		items = append(items[:i], items[i+1:]...)
	}
	if path == "" {
		return fmt.Errorf("%w: no entry resolved", ErrNoPlayableVideo)
	}

	offset, plannedSec := startOffset(item.StartSeconds, item.Seconds, st.MaxDuration.Seconds(), o.randIntN)
	planned := time.Duration(plannedSec * float64(time.Second))

	volume := st.Volume
	if st.NightModeEnabled && timeutil.InRange(st.NightStart, st.NightEnd, o.now()) {
		volume = 0
	}

	o.monitor.On(ctx)

	handle, err := o.spawn(ctx, SpawnSpec{Path: path, StartOffset: offset, Volume: volume})
	if err != nil {
		o.monitor.Off(ctx)
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	startedAt := o.now()

	o.mu.Lock()
	o.gen++
	s := &session{
		item:      item,
		handle:    handle,
		trigger:   trigger,
		startedAt: startedAt,
		planned:   planned,
		gen:       o.gen,
	}
	gen := s.gen
	s.timer = time.AfterFunc(planned, func() { o.timerFired(gen) })
	o.sess = s
	o.starting = false
	o.mu.Unlock()

	started := PlayStarted{
		VideoID:     item.ID,
		Title:       item.Title,
		Trigger:     trigger,
		StartOffset: offset,
		Planned:     planned,
		StartedAt:   startedAt,
		Volume:      volume,
	}
	o.logger.Info("playback started",
		"video_id", item.ID,
		"title", item.Title,
		"trigger", string(trigger),
		"start_offset", offset,
		"planned_seconds", planned.Seconds(),
		"volume", volume,
	)
	if o.stats != nil {
		if err := o.stats.RecordPlayStarted(ctx, started); err != nil {
			o.logger.Error("recording play start", "error", err)
		}
	}
	o.notify(StateEvent{
		Playing:   true,
		VideoID:   item.ID,
		Title:     item.Title,
		Trigger:   trigger,
		Timestamp: startedAt,
	})
	return nil
}

// RequestStop ends the current session with the given reason.
//
// Returns true when a session was stopped, false when nothing was playing.
// Safe to call concurrently and repeatedly: the session is detached under
// the lock, so only one caller (or the timer) finishes it.
func (o *Orchestrator) RequestStop(ctx context.Context, reason EndReason) bool {
	o.mu.Lock()
	s := o.sess
	if s == nil {
		o.mu.Unlock()
		return false
	}
	o.sess = nil
	s.timer.Stop()
	o.mu.Unlock()

	o.finish(ctx, s, reason)
	return true
}

// timerFired handles planned-duration expiry. The generation token rejects
// fires for sessions that were already stopped and replaced.
func (o *Orchestrator) timerFired(gen uint64) {
	o.mu.Lock()
	s := o.sess
	if s == nil || s.gen != gen {
		o.mu.Unlock()
		return
	}
	o.sess = nil
	o.mu.Unlock()

	o.finish(context.Background(), s, EndTimeout)
}

// finish terminates a detached session and emits its PlayEnded exactly
// once. Runs outside the state mutex: the termination grace period must
// not block state reads.
func (o *Orchestrator) finish(ctx context.Context, s *session, reason EndReason) {
	if err := s.handle.Stop(); err != nil {
		o.logger.Warn("stopping player process", "error", err)
	}
	o.monitor.Off(ctx)

	now := o.now()
	o.gate.Mark(GatePlaybackEnd, now)

	ended := PlayEnded{
		VideoID:   s.item.ID,
		Title:     s.item.Title,
		Trigger:   s.trigger,
		Reason:    reason,
		Viewed:    now.Sub(s.startedAt),
		StartedAt: s.startedAt,
		EndedAt:   now,
	}
	o.logger.Info("playback ended",
		"video_id", s.item.ID,
		"title", s.item.Title,
		"reason", string(reason),
		"viewed_seconds", ended.Viewed.Seconds(),
	)
	if o.stats != nil {
		if err := o.stats.RecordPlayEnded(ctx, ended); err != nil {
			o.logger.Error("recording play end", "error", err)
		}
	}
	o.notify(StateEvent{
		Playing:   false,
		VideoID:   s.item.ID,
		Title:     s.item.Title,
		Trigger:   s.trigger,
		Reason:    reason,
		Timestamp: now,
	})
}

// notify delivers a state transition to the registered listener, if any.
func (o *Orchestrator) notify(ev StateEvent) {
	o.listenerMu.Lock()
	fn := o.listener
	o.listenerMu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// IsPlaying reports whether a session is live. It holds the mutex only for
// a field read and never waits on process termination.
func (o *Orchestrator) IsPlaying() bool {
	o.mu.Lock()
	s := o.sess
	o.mu.Unlock()
	return s != nil && s.handle.Alive()
}

// TimeUntilCooldownEnds returns how long until a new session may start, or
// zero when the cooldown has elapsed (or never began).
func (o *Orchestrator) TimeUntilCooldownEnds() time.Duration {
	return o.gate.Remaining(GatePlaybackEnd, o.now(), o.settings.Playback().Cooldown)
}

// Status is a point-in-time snapshot for the API and state publishers.
type Status struct {
	Playing           bool          `json:"playing"`
	VideoID           string        `json:"video_id,omitempty"`
	Title             string        `json:"title,omitempty"`
	Trigger           Trigger       `json:"trigger,omitempty"`
	StartedAt         time.Time     `json:"started_at,omitzero"`
	Planned           time.Duration `json:"-"`
	CooldownRemaining time.Duration `json:"-"`
	NightMode         bool          `json:"night_mode"`
}

// Status returns the current playback snapshot.
func (o *Orchestrator) Status() Status {
	now := o.now()
	st := o.settings.Playback()

	out := Status{
		CooldownRemaining: o.gate.Remaining(GatePlaybackEnd, now, st.Cooldown),
		NightMode:         st.NightModeEnabled && timeutil.InRange(st.NightStart, st.NightEnd, now),
	}

	o.mu.Lock()
	if s := o.sess; s != nil && s.handle.Alive() {
		out.Playing = true
		out.VideoID = s.item.ID
		out.Title = s.item.Title
		out.Trigger = s.trigger
		out.StartedAt = s.startedAt
		out.Planned = s.planned
	}
	o.mu.Unlock()

	return out
}

// Shutdown stops any active session with reason shutdown. Called once
// during daemon teardown.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.RequestStop(ctx, EndShutdown)
}
