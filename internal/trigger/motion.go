package trigger

import (
	"context"

	"github.com/pawvision/core/internal/player"
)

// Motion maps PIR sensor transitions onto playback actions.
//
// Motion appearing never starts playback (the cat walking past should not
// wake the screen); motion disappearing ends a running session, because an
// empty room has no audience. No gate applies: loss of presence stops
// playback unconditionally.
type Motion struct {
	playback Playback
	logger   Logger
}

// NewMotion creates the motion adapter.
func NewMotion(playback Playback, logger Logger) *Motion {
	return &Motion{playback: playback, logger: logger}
}

// HandleMotion processes a motion-detected transition.
func (m *Motion) HandleMotion(_ context.Context) {
	m.logger.Debug("motion detected")
}

// HandleMotionLost processes a motion-lost transition, stopping any
// running session.
func (m *Motion) HandleMotionLost(ctx context.Context) {
	if m.playback.RequestStop(ctx, player.EndMotionLost) {
		m.logger.Info("playback stopped: motion lost")
	} else {
		m.logger.Debug("motion lost while idle")
	}
}
