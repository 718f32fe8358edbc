package player

import "errors"

var (
	// ErrBusy indicates a play request arrived while a session is active.
	ErrBusy = errors.New("player: playback already in progress")

	// ErrCooldownActive indicates a play request arrived before the
	// post-playback cooldown elapsed.
	ErrCooldownActive = errors.New("player: cooldown active")

	// ErrNoPlayableVideo indicates the library has no entry that can be
	// played right now.
	ErrNoPlayableVideo = errors.New("player: no playable videos")

	// ErrSpawnFailed indicates the media player process could not be
	// started.
	ErrSpawnFailed = errors.New("player: failed to start media player")
)

// Rejected reports whether err is a state-based refusal of a play request
// (busy, cooling down, or nothing to play) rather than a fault.
func Rejected(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrCooldownActive) ||
		errors.Is(err, ErrNoPlayableVideo)
}
