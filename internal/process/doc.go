// Package process spawns and terminates the media player subprocess.
//
// A Handle owns exactly one process for one playback session. There is no
// restart logic on purpose: a player that dies mid-session is reported via
// Alive and the orchestrator decides what happens next. Processes run in
// their own process group so termination reaches any children the player
// forks.
//
// Example usage:
//
//	h, err := process.Start(ctx, process.Config{
//	    Name:   "mpv",
//	    Binary: "/usr/bin/mpv",
//	    Args:   []string{"--fs", "--really-quiet", path},
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Stop()
package process
