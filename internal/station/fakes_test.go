package station

import (
	"context"
	"sync"
	"time"
)

type fakeConn struct {
	mu          sync.Mutex
	events      chan PlayerEvent
	plays       []string
	playErr     error
	stops       int
	disconnects int
	rejoins     int
	rejoinErr   error
	paused      bool
	closeOnce   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan PlayerEvent, 16)}
}

func (c *fakeConn) Play(ctx context.Context, streamURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playErr != nil {
		return c.playErr
	}
	c.plays = append(c.plays, streamURL)
	c.paused = false
	return nil
}

func (c *fakeConn) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	return nil
}

func (c *fakeConn) Unpause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	return nil
}

func (c *fakeConn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *fakeConn) Rejoin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejoins++
	return c.rejoinErr
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.events) })
}

func (c *fakeConn) Events() <-chan PlayerEvent { return c.events }

func (c *fakeConn) emit(ev PlayerEvent) { c.events <- ev }

func (c *fakeConn) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plays)
}

func (c *fakeConn) playedURLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.plays))
	copy(out, c.plays)
	return out
}

func (c *fakeConn) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *fakeConn) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

type fakeTransport struct {
	mu      sync.Mutex
	conn    *fakeConn
	joinErr error
	joins   int
}

func (t *fakeTransport) Join(ctx context.Context, guildID, channelID string) (Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joinErr != nil {
		return nil, t.joinErr
	}
	t.joins++
	return t.conn, nil
}

type fakeProvider struct {
	mu        sync.Mutex
	batches   [][]Track
	streamErr map[string]error
	started   []string
	likes     []string
	refills   int
}

func (p *fakeProvider) StationTracks(ctx context.Context, stationID string) ([]Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refills++
	if len(p.batches) == 0 {
		return nil, nil
	}
	b := p.batches[0]
	p.batches = p.batches[1:]
	return b, nil
}

func (p *fakeProvider) StreamURL(ctx context.Context, trackID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.streamErr[trackID]; ok {
		return "", err
	}
	return "stream://" + trackID, nil
}

func (p *fakeProvider) TrackStarted(ctx context.Context, stationID, trackID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, trackID)
}

func (p *fakeProvider) Like(ctx context.Context, userID, trackID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.likes = append(p.likes, userID+":"+trackID)
	return nil
}

func (p *fakeProvider) likedTracks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.likes))
	copy(out, p.likes)
	return out
}

type fakeNotifier struct {
	mu        sync.Mutex
	loading   []Track
	playing   []Track
	errors    []string
	stopped   int
	exhausted int
	controls  []bool
}

func (n *fakeNotifier) Loading(t Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = append(n.loading, t)
}

func (n *fakeNotifier) NowPlaying(t Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = append(n.playing, t)
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *fakeNotifier) Stopped() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped++
}

func (n *fakeNotifier) Exhausted() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exhausted++
}

func (n *fakeNotifier) ControlsChanged(isPlaying bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.controls = append(n.controls, isPlaying)
}

func (n *fakeNotifier) stoppedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

func (n *fakeNotifier) exhaustedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.exhausted
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MinPlay:        10 * time.Second,
		MaxRetries:     3,
		Backoff:        5 * time.Millisecond,
		RefillDelay:    time.Millisecond,
		ConnectTimeout: 200 * time.Millisecond,
	}
}
