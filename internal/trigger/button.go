package trigger

import (
	"context"
	"time"

	"github.com/pawvision/core/internal/player"
	"github.com/pawvision/core/internal/timeutil"
)

// ButtonSettings is the snapshot of button behaviour used for one press.
type ButtonSettings struct {
	Enabled          bool
	SecondPressStops bool          // press during playback stops it
	Cooldown         time.Duration // minimum spacing between accepted presses
	DisableWindowSet bool
	DisableStart     timeutil.Clock
	DisableEnd       timeutil.Clock
}

// ButtonSettingsProvider returns the current button settings. A fresh
// snapshot is taken for every press.
type ButtonSettingsProvider interface {
	Button() ButtonSettings
}

// PressRecorder records accepted button presses for statistics.
// Implementations log their own failures and must not block.
type PressRecorder interface {
	RecordButtonPress(ctx context.Context, action string, interruption bool)
}

// Button maps presses (physical GPIO or MQTT) onto playback actions.
//
// A press while idle requests playback; a press during playback stops the
// session when second_press_stops is enabled, and is ignored otherwise.
// Both directions share the button gate, so rapid presses inside the
// button cooldown are dropped before they reach the orchestrator.
type Button struct {
	playback Playback
	settings ButtonSettingsProvider
	stats    PressRecorder // optional
	logger   Logger

	now func() time.Time
}

// NewButton creates the button adapter. stats may be nil.
func NewButton(playback Playback, settings ButtonSettingsProvider, stats PressRecorder, logger Logger) *Button {
	return &Button{
		playback: playback,
		settings: settings,
		stats:    stats,
		logger:   logger,
		now:      time.Now,
	}
}

// HandlePress processes one debounced press.
func (b *Button) HandlePress(ctx context.Context) {
	st := b.settings.Button()
	if !st.Enabled {
		b.logger.Debug("button press ignored: button disabled")
		return
	}

	now := b.now()
	if st.DisableWindowSet && timeutil.InRange(st.DisableStart, st.DisableEnd, now) {
		b.logger.Debug("button press ignored: inside disable window",
			"window_start", st.DisableStart.String(),
			"window_end", st.DisableEnd.String(),
		)
		return
	}

	if b.playback.IsPlaying() {
		if !st.SecondPressStops {
			b.logger.Debug("button press ignored: playback active")
			return
		}
		if !b.playback.Gate().Allow(player.GateButton, now, st.Cooldown) {
			b.logger.Debug("button press ignored: inside button cooldown")
			return
		}
		if b.stats != nil {
			b.stats.RecordButtonPress(ctx, "stop", true)
		}
		b.playback.RequestStop(ctx, player.EndManualInterruption)
		return
	}

	if !b.playback.Gate().Allow(player.GateButton, now, st.Cooldown) {
		b.logger.Debug("button press ignored: inside button cooldown")
		return
	}
	if b.stats != nil {
		b.stats.RecordButtonPress(ctx, "play", false)
	}

	if err := b.playback.RequestPlay(ctx, player.TriggerButton); err != nil {
		if player.Rejected(err) {
			b.logger.Debug("button play request refused", "reason", err)
			return
		}
		b.logger.Warn("button play request failed", "error", err)
	}
}
