package library

import "errors"

var (
	// ErrVideoNotFound indicates the requested entry is not in the catalogue.
	ErrVideoNotFound = errors.New("library: video not found")

	// ErrInvalidYouTubeURL indicates no video ID could be extracted.
	ErrInvalidYouTubeURL = errors.New("library: invalid youtube url")

	// ErrUnresolvable indicates an entry has no usable playback source.
	ErrUnresolvable = errors.New("library: entry cannot be resolved for playback")
)
