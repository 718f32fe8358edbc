package player

import "time"

// Trigger identifies what initiated a play request.
type Trigger string

const (
	TriggerButton    Trigger = "button"
	TriggerScheduled Trigger = "scheduled"
	TriggerAPI       Trigger = "api"
	TriggerMQTT      Trigger = "mqtt"
)

// EndReason identifies why a playback session ended.
type EndReason string

const (
	// EndManual is an explicit stop request (API, MQTT).
	EndManual EndReason = "manual"

	// EndManualInterruption is a stop caused by a second button press
	// during playback. Tracked separately from EndManual so statistics
	// can distinguish "the pet's human stopped it" from "the button
	// cut a session short".
	EndManualInterruption EndReason = "manual_interruption"

	// EndTimeout is the planned duration elapsing.
	EndTimeout EndReason = "timeout"

	// EndMotionLost is the motion sensor reporting an empty room.
	EndMotionLost EndReason = "motion_lost"

	// EndCrashed is the player process dying on its own, detected
	// lazily on the next state inspection.
	EndCrashed EndReason = "crashed"

	// EndShutdown is the daemon stopping.
	EndShutdown EndReason = "shutdown"
)

// PlayStarted describes a session that just began.
type PlayStarted struct {
	VideoID     string
	Title       string
	Trigger     Trigger
	StartOffset float64 // seconds into the file
	Planned     time.Duration
	StartedAt   time.Time
	Volume      int
}

// PlayEnded describes a session that just finished.
type PlayEnded struct {
	VideoID   string
	Title     string
	Trigger   Trigger
	Reason    EndReason
	Viewed    time.Duration
	StartedAt time.Time
	EndedAt   time.Time
}

// StateEvent is a playback state transition published to observers
// (WebSocket hub, MQTT retained state).
type StateEvent struct {
	Playing   bool      `json:"playing"`
	VideoID   string    `json:"video_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Trigger   Trigger   `json:"trigger,omitempty"`
	Reason    EndReason `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
