// Package player implements the playback orchestrator, the single
// authority over the media player subprocess.
//
// The orchestrator serializes every lifecycle decision behind one mutex:
// at most one playback session exists at any instant, and every trigger
// source (button, motion, scheduler, MQTT, HTTP API) funnels into the same
// RequestPlay/RequestStop pair. Post-playback cooldown is tracked by a
// Gate and observed lazily; there is no background state-machine loop.
//
// Collaborators (video library, statistics sink, monitor control, settings
// store) are consumed through interfaces defined here so the orchestrator
// can be exercised with fakes.
package player
