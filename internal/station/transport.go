package station

import "context"

// PlayerEventType classifies asynchronous transport events.
type PlayerEventType int

const (
	// EventIdle means the transport finished emitting audio for the current
	// track (end of stream).
	EventIdle PlayerEventType = iota
	// EventError means playback failed mid-track.
	EventError
	// EventDisconnected means the voice connection dropped.
	EventDisconnected
)

// PlayerEvent is one transport lifecycle event.
type PlayerEvent struct {
	Type PlayerEventType
	Err  error
}

// Connection is one live voice connection with an attached player.
// Stop is silent: it never emits an EventIdle, so a session can tear a track
// down without triggering its own advance logic twice.
type Connection interface {
	// Play starts streaming the given location. It returns once the stream is
	// handed to the transport; completion and failure arrive on Events.
	Play(ctx context.Context, streamURL string) error
	Pause() error
	Unpause() error
	Stop()
	// Rejoin re-signals the voice connection after a drop.
	Rejoin(ctx context.Context) error
	Disconnect()
	Events() <-chan PlayerEvent
}

// Transport joins voice channels. Join must confirm the connection is ready
// before returning; callers bound it with a context deadline.
type Transport interface {
	Join(ctx context.Context, guildID, channelID string) (Connection, error)
}
