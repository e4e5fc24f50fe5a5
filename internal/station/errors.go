package station

import "errors"

var (
	// ErrAlreadyActive is returned by Registry.GetOrCreate when a session
	// already exists for the key.
	ErrAlreadyActive = errors.New("session already active")

	// ErrNoHistory is returned by Previous when nothing has played yet.
	ErrNoHistory = errors.New("no previous track")

	ErrNoTrack    = errors.New("no track playing")
	ErrNotPlaying = errors.New("not playing")
	ErrNotPaused  = errors.New("not paused")
	ErrStopped    = errors.New("session stopped")
	ErrBusy       = errors.New("a track change is already in progress")
	ErrExhausted  = errors.New("station has no more tracks")

	// ErrNoStream is returned by providers when a track has no playable
	// stream location.
	ErrNoStream = errors.New("no stream location for track")
)
