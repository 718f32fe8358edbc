// Package trigger contains the input adapters that start and stop
// playback: the physical button, the PIR motion sensor, the play
// schedule, and the MQTT event bridge.
//
// Adapters translate raw inputs into orchestrator calls and own the
// policy around them (enable flags, disable windows, press spacing).
// Everything after admission belongs to the orchestrator: adapters
// never track playback state themselves.
package trigger

import (
	"context"

	"github.com/pawvision/core/internal/player"
)

// Playback is the adapters' view of the orchestrator.
type Playback interface {
	RequestPlay(ctx context.Context, trigger player.Trigger) error
	RequestStop(ctx context.Context, reason player.EndReason) bool
	IsPlaying() bool
	Gate() *player.Gate
}

// Logger defines the logging interface used by the adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}
