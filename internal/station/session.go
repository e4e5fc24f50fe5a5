package station

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle phase of one playback session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateLoading
	StatePlaying
	StatePaused
	StateRecovering
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateRecovering:
		return "recovering"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Params configures a new session.
type Params struct {
	ChannelID string
	StationID string
	UserID    string

	Transport Transport
	Provider  Provider
	Notifier  Notifier

	// Policy defaults to DefaultRetryPolicy when zero.
	Policy RetryPolicy

	// OnClose runs once after the session reaches StateStopped and its
	// transport handles are released.
	OnClose func()
}

// Session is the playback state machine for one voice channel. All state is
// guarded by mu; command handlers and transport events for the same session
// funnel through it, so transitions never interleave. Blocking work (joins,
// stream resolution, backoff waits) happens outside the lock and re-checks
// state afterwards.
type Session struct {
	key       string
	channelID string
	stationID string
	userID    string

	transport Transport
	provider  Provider
	notifier  Notifier
	policy    RetryPolicy

	ctx     context.Context
	cancel  context.CancelFunc
	onClose func()

	mu          sync.Mutex
	conn        Connection
	state       State
	current     *Track
	queue       Queue
	history     History
	retryCount  int
	trackStart  time.Time
	lastTrackID string
	isLoading   bool
	exhausted   bool
	retryTimer  *time.Timer
}

func newSession(key string, p Params) *Session {
	pol := p.Policy
	if pol == (RetryPolicy{}) {
		pol = DefaultRetryPolicy()
	}
	nt := p.Notifier
	if nt == nil {
		nt = NopNotifier{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		key:       key,
		channelID: p.ChannelID,
		stationID: p.StationID,
		userID:    p.UserID,
		transport: p.Transport,
		provider:  p.Provider,
		notifier:  nt,
		policy:    pol,
		ctx:       ctx,
		cancel:    cancel,
		onClose:   p.OnClose,
		state:     StateIdle,
	}
}

// Start joins the voice channel and begins playing the station. The join must
// confirm ready within the policy's connect timeout or the session is torn
// down with a fatal connection error.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("session in state %s, cannot start", st)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	joinCtx, cancel := context.WithTimeout(s.ctx, s.policy.ConnectTimeout)
	defer cancel()
	conn, err := s.transport.Join(joinCtx, s.key, s.channelID)
	if err != nil {
		slog.Error("voice join failed", "guildID", s.key, "channelID", s.channelID, "err", err)
		s.notifier.Error("couldn't join the voice channel")
		s.teardown(false)
		return fmt.Errorf("join voice: %w", err)
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		conn.Disconnect()
		return ErrStopped
	}
	s.conn = conn
	s.state = StateLoading
	s.mu.Unlock()

	go s.eventLoop(conn.Events())
	go s.advance()
	return nil
}

func (s *Session) eventLoop(events <-chan PlayerEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case EventIdle:
				s.onPlaybackEnded(nil)
			case EventError:
				s.onPlaybackEnded(ev.Err)
			case EventDisconnected:
				s.onDisconnected()
			}
		}
	}
}

// onPlaybackEnded reconciles a track-end or track-error event against the
// retry policy. Events arriving while a track change is in flight are
// ignored; the guard trusts exactly one in-flight operation per session.
func (s *Session) onPlaybackEnded(cause error) {
	s.mu.Lock()
	if s.state == StateStopped || s.isLoading {
		s.mu.Unlock()
		return
	}
	var elapsed time.Duration
	if !s.trackStart.IsZero() {
		elapsed = time.Since(s.trackStart)
	}
	if s.policy.Decide(elapsed, s.retryCount, s.current != nil) == DecideRetry {
		s.retryCount++
		s.state = StateRecovering
		cur := *s.current
		attempt := s.retryCount
		s.mu.Unlock()

		slog.Warn("premature interruption, will retry",
			"guildID", s.key,
			"trackID", cur.ID,
			"elapsedMs", elapsed.Milliseconds(),
			"attempt", attempt,
			"cause", cause)
		if cause != nil {
			s.notifier.Error("playback hiccup, retrying…")
		}

		s.mu.Lock()
		if s.state != StateRecovering {
			// stopped or changed while notifying
			s.mu.Unlock()
			return
		}
		if s.retryTimer != nil {
			s.retryTimer.Stop()
		}
		s.retryTimer = time.AfterFunc(s.policy.Backoff, func() { s.replay(cur) })
		s.mu.Unlock()
		return
	}

	s.retryCount = 0
	s.mu.Unlock()
	go s.advance()
}

// replay re-issues an interrupted track after the backoff wait.
func (s *Session) replay(t Track) {
	s.mu.Lock()
	if s.state == StateStopped || s.isLoading {
		s.mu.Unlock()
		return
	}
	s.retryTimer = nil
	s.isLoading = true
	s.mu.Unlock()

	err := s.startTrack(t)

	s.mu.Lock()
	s.isLoading = false
	s.mu.Unlock()

	if err != nil {
		slog.Warn("retry start failed", "guildID", s.key, "trackID", t.ID, "err", err)
		s.onPlaybackEnded(err)
	}
}

// advance implements the advance-to-next procedure: pop the queue head, start
// it, refill from the provider when the queue runs dry. The isLoading guard
// makes overlapping invocations no-ops, and every exit path clears it.
func (s *Session) advance() {
	s.mu.Lock()
	if s.state == StateStopped || s.isLoading || s.exhausted {
		s.mu.Unlock()
		return
	}
	s.isLoading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.isLoading = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.mu.Lock()
		next, ok := s.queue.Pop()
		if ok {
			if s.current != nil {
				s.history.Push(*s.current)
				s.current = nil
			}
			s.mu.Unlock()

			if err := s.startTrack(next); err != nil {
				// Queue-level retry: drop the track, wait, move on. Bounded
				// by queue size, not by retryCount.
				slog.Warn("track start failed, advancing",
					"guildID", s.key, "trackID", next.ID, "err", err)
				if !s.sleep(s.policy.Backoff) {
					return
				}
				continue
			}
			return
		}
		s.mu.Unlock()

		tracks, err := s.provider.StationTracks(s.ctx, s.stationID)
		if err != nil {
			slog.Error("station refill failed", "guildID", s.key, "stationID", s.stationID, "err", err)
			tracks = nil
		}
		if len(tracks) == 0 {
			s.markExhausted()
			return
		}

		slog.Info("station refill", "guildID", s.key, "stationID", s.stationID, "tracks", len(tracks))
		s.mu.Lock()
		s.queue.Push(tracks...)
		s.mu.Unlock()
		if !s.sleep(s.policy.RefillDelay) {
			return
		}
	}
}

// markExhausted leaves the session inert with the transport still connected.
// Only an explicit Stop moves it on from here.
func (s *Session) markExhausted() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.exhausted = true
	s.state = StateIdle
	s.current = nil
	s.mu.Unlock()

	slog.Info("station exhausted", "guildID", s.key, "stationID", s.stationID)
	s.notifier.Exhausted()
	s.notifier.ControlsChanged(false)
}

// startTrack runs the track start procedure: loading notice, fire-and-forget
// started feedback, stream resolution, hand-off to the transport. On success
// it commits the track as current and announces it.
func (s *Session) startTrack(t Track) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.state = StateLoading
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrStopped
	}

	s.notifier.Loading(t)
	go s.provider.TrackStarted(s.ctx, s.stationID, t.ID)

	streamURL, err := s.provider.StreamURL(s.ctx, t.ID)
	if err != nil {
		return fmt.Errorf("stream fetch for %s: %w", t.ID, err)
	}
	if err := conn.Play(s.ctx, streamURL); err != nil {
		return fmt.Errorf("transport play: %w", err)
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		conn.Stop()
		return ErrStopped
	}
	tt := t
	s.current = &tt
	s.trackStart = time.Now()
	if t.ID != s.lastTrackID {
		// A replay of the same track keeps its retry accounting; only a new
		// track resets it.
		s.retryCount = 0
	}
	s.lastTrackID = t.ID
	s.state = StatePlaying
	s.mu.Unlock()

	slog.Info("now playing", "guildID", s.key, "trackID", t.ID, "title", t.Title, "artist", t.Artist)
	s.notifier.NowPlaying(t)
	s.notifier.ControlsChanged(true)
	return nil
}

// sleep waits for d unless the session is torn down first.
func (s *Session) sleep(d time.Duration) bool {
	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Play resumes paused playback.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return ErrNotPaused
	}
	conn := s.conn
	if err := conn.Unpause(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StatePlaying
	s.mu.Unlock()

	s.notifier.ControlsChanged(true)
	return nil
}

// Pause suspends playback without losing the loaded track.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	conn := s.conn
	if err := conn.Pause(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StatePaused
	s.mu.Unlock()

	s.notifier.ControlsChanged(false)
	return nil
}

// Next forces the advance logic, as if the transport had reported the current
// track finished.
func (s *Session) Next() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.exhausted {
		s.mu.Unlock()
		return ErrExhausted
	}
	if s.isLoading {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.retryCount = 0
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.Stop()
	}
	go s.advance()
	return nil
}

// Previous restores the most recently played track. The interrupted current
// track goes back to the front of the queue so it replays after the restored
// track finishes.
func (s *Session) Previous() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.isLoading {
		s.mu.Unlock()
		return ErrBusy
	}
	prev, ok := s.history.Pop()
	if !ok {
		s.mu.Unlock()
		return ErrNoHistory
	}
	if s.current != nil {
		s.queue.PushFront(*s.current)
		s.current = nil
	}
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.retryCount = 0
	s.exhausted = false
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.Stop()
	}
	go s.playNow(prev)
	return nil
}

// playNow loads one specific track outside the queue order.
func (s *Session) playNow(t Track) {
	s.mu.Lock()
	if s.state == StateStopped || s.isLoading {
		s.mu.Unlock()
		return
	}
	s.isLoading = true
	s.mu.Unlock()

	err := s.startTrack(t)

	s.mu.Lock()
	s.isLoading = false
	s.mu.Unlock()

	if err != nil {
		slog.Warn("direct track start failed", "guildID", s.key, "trackID", t.ID, "err", err)
		if s.sleep(s.policy.Backoff) {
			s.advance()
		}
	}
}

// Like tags the current track with the provider.
func (s *Session) Like() error {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur == nil {
		return ErrNoTrack
	}
	if err := s.provider.Like(s.ctx, s.userID, cur.ID); err != nil {
		return fmt.Errorf("like track %s: %w", cur.ID, err)
	}
	return nil
}

// Stop tears the session down: pending timers cancelled, queue and history
// abandoned, transport stopped and disconnected, registry entry released.
// Effective from any state, including mid-retry and mid-refill.
func (s *Session) Stop() {
	s.teardown(true)
}

func (s *Session) teardown(notifyStopped bool) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.queue.Clear()
	s.history.Clear()
	s.current = nil
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		conn.Stop()
		conn.Disconnect()
	}
	slog.Info("session stopped", "guildID", s.key, "stationID", s.stationID)
	if notifyStopped {
		s.notifier.Stopped()
	}
	if s.onClose != nil {
		s.onClose()
	}
}

// onDisconnected handles a dropped voice connection: re-signal within the
// grace window, then replay the current track; escalate to teardown when
// re-signalling fails.
func (s *Session) onDisconnected() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.state = StateConnecting
	s.mu.Unlock()
	if conn == nil {
		return
	}

	slog.Warn("voice connection lost, resignalling", "guildID", s.key)
	rctx, cancel := context.WithTimeout(s.ctx, s.policy.ConnectTimeout)
	err := conn.Rejoin(rctx)
	cancel()
	if err != nil {
		slog.Error("voice resignal failed", "guildID", s.key, "err", err)
		s.notifier.Error("lost the voice connection")
		s.teardown(true)
		return
	}
	s.onPlaybackEnded(fmt.Errorf("voice connection resumed"))
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a copy of the playing track, if any.
func (s *Session) Current() (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Track{}, false
	}
	return *s.current, true
}

// Elapsed is the play time since the current track last started.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.trackStart.IsZero() {
		return 0
	}
	return time.Since(s.trackStart)
}

// QueueTracks returns a copy of the upcoming tracks.
func (s *Session) QueueTracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Snapshot()
}

// HistoryTracks returns a copy of the played ring, oldest first.
func (s *Session) HistoryTracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Snapshot()
}

// StationID returns the station this session plays.
func (s *Session) StationID() string { return s.stationID }

// ChannelID returns the voice channel this session occupies.
func (s *Session) ChannelID() string { return s.channelID }
