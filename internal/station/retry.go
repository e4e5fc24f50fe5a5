package station

import "time"

// Decision is the outcome of classifying a playback end/failure.
type Decision int

const (
	// DecideRetry replays the same track after a backoff wait.
	DecideRetry Decision = iota
	// DecideAdvance moves on to the next queued track.
	DecideAdvance
)

// RetryPolicy holds the timing knobs for interruption recovery.
type RetryPolicy struct {
	// MinPlay is the minimum elapsed play time for an ended track to count as
	// a natural completion instead of a premature interruption.
	MinPlay time.Duration
	// MaxRetries bounds replays of the same track between successful starts.
	MaxRetries int
	// Backoff is the wait before replaying an interrupted track, and before a
	// queue-level retry after a failed start.
	Backoff time.Duration
	// RefillDelay is the wait after appending a refill batch before loading
	// from it.
	RefillDelay time.Duration
	// ConnectTimeout bounds voice joins and reconnect attempts.
	ConnectTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MinPlay:        10 * time.Second,
		MaxRetries:     3,
		Backoff:        3 * time.Second,
		RefillDelay:    time.Second,
		ConnectTimeout: 5 * time.Second,
	}
}

// Decide classifies an ended or failed playback. A premature interruption
// (short elapsed time, retries left, track still present) is worth replaying;
// anything else advances the queue.
func (p RetryPolicy) Decide(elapsed time.Duration, retries int, hasTrack bool) Decision {
	if hasTrack && elapsed < p.MinPlay && retries < p.MaxRetries {
		return DecideRetry
	}
	return DecideAdvance
}
