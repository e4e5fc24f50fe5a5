package station

import "context"

// Provider is the catalog collaborator: it supplies tracks for a station,
// resolves stream locations, and accepts playback feedback.
type Provider interface {
	// StationTracks returns the next batch of tracks for a station. An empty
	// batch means the station is exhausted.
	StationTracks(ctx context.Context, stationID string) ([]Track, error)

	// StreamURL resolves a playable stream location for a track. Returns
	// ErrNoStream (possibly wrapped) when none exists.
	StreamURL(ctx context.Context, trackID string) (string, error)

	// TrackStarted reports that playback of a track began. Fire-and-forget:
	// failures are logged by implementations, never surfaced to the session.
	TrackStarted(ctx context.Context, stationID, trackID string)

	// Like tags a track as liked on behalf of a user.
	Like(ctx context.Context, userID, trackID string) error
}
