// Package library manages the video catalogue: local files discovered by
// filesystem sync, YouTube entries added through the API, and the
// per-video playback metadata (custom start/end window, display title).
//
// The catalogue lives in SQLite keyed by path; YouTube entries use a
// youtube://<id> pseudo-path. Durations come from a mediainfo probe and
// are re-read only when a file's mtime or size changes, so the row itself
// acts as the probe cache. YouTube stream URLs expire and are refreshed
// through yt-dlp on demand.
package library
