package station

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

type testRig struct {
	reg      *Registry
	sess     *Session
	conn     *fakeConn
	provider *fakeProvider
	notifier *fakeNotifier
}

func newTestRig(t *testing.T, policy RetryPolicy, batches ...[]Track) *testRig {
	t.Helper()
	conn := newFakeConn()
	provider := &fakeProvider{batches: batches, streamErr: map[string]error{}}
	notifier := &fakeNotifier{}
	reg := NewRegistry()
	sess, err := reg.GetOrCreate("guild-1", Params{
		ChannelID: "voice-1",
		StationID: "station-1",
		UserID:    "user-1",
		Transport: &fakeTransport{conn: conn},
		Provider:  provider,
		Notifier:  notifier,
		Policy:    policy,
	})
	require.NoError(t, err)
	t.Cleanup(sess.Stop)
	return &testRig{reg: reg, sess: sess, conn: conn, provider: provider, notifier: notifier}
}

func (r *testRig) waitPlays(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.conn.playCount() >= n }, waitFor, tick)
}

func (r *testRig) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return r.sess.State() == want }, waitFor, tick)
}

// forceNaturalEnd backdates the track start so the next idle event classifies
// as a natural completion instead of a premature interruption.
func (r *testRig) forceNaturalEnd() {
	r.sess.mu.Lock()
	r.sess.trackStart = time.Now().Add(-time.Minute)
	r.sess.mu.Unlock()
	r.conn.emit(PlayerEvent{Type: EventIdle})
}

func (r *testRig) retryCount() int {
	r.sess.mu.Lock()
	defer r.sess.mu.Unlock()
	return r.sess.retryCount
}

func TestSessionPlaysFirstTrack(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a"), mkTrack("b")})
	require.NoError(t, rig.sess.Start())

	rig.waitPlays(t, 1)
	assert.Equal(t, []string{"stream://a"}, rig.conn.playedURLs())
	rig.waitState(t, StatePlaying)

	cur, ok := rig.sess.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Zero(t, rig.retryCount())

	// started feedback is fire-and-forget but must be sent
	require.Eventually(t, func() bool {
		rig.provider.mu.Lock()
		defer rig.provider.mu.Unlock()
		return len(rig.provider.started) == 1
	}, waitFor, tick)
}

func TestNaturalEndAdvances(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a"), mkTrack("b")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.forceNaturalEnd()
	rig.waitPlays(t, 2)

	assert.Equal(t, []string{"stream://a", "stream://b"}, rig.conn.playedURLs())
	hist := rig.sess.HistoryTracks()
	require.Len(t, hist, 1)
	assert.Equal(t, "a", hist[0].ID)
}

func TestPrematureInterruptionRetriesSameTrack(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("c"), mkTrack("a")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.conn.emit(PlayerEvent{Type: EventIdle})
	rig.waitPlays(t, 2)

	assert.Equal(t, []string{"stream://c", "stream://c"}, rig.conn.playedURLs())
	assert.Equal(t, 1, rig.retryCount())
	// queue untouched by the retry
	queued := rig.sess.QueueTracks()
	require.Len(t, queued, 1)
	assert.Equal(t, "a", queued[0].ID)
}

func TestRetriesExhaustedThenAdvance(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("c"), mkTrack("a"), mkTrack("b")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	// three premature interruptions, each replaying c
	for i := 1; i <= 3; i++ {
		rig.conn.emit(PlayerEvent{Type: EventIdle})
		rig.waitPlays(t, i+1)
		assert.Equal(t, i, rig.retryCount())
	}
	assert.Equal(t,
		[]string{"stream://c", "stream://c", "stream://c", "stream://c"},
		rig.conn.playedURLs())

	// retries exhausted: the next interruption advances to a
	rig.conn.emit(PlayerEvent{Type: EventIdle})
	rig.waitPlays(t, 5)

	urls := rig.conn.playedURLs()
	assert.Equal(t, "stream://a", urls[4])

	cur, ok := rig.sess.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Zero(t, rig.retryCount())

	hist := rig.sess.HistoryTracks()
	require.Len(t, hist, 1)
	assert.Equal(t, "c", hist[0].ID)

	queued := rig.sess.QueueTracks()
	require.Len(t, queued, 1)
	assert.Equal(t, "b", queued[0].ID)
}

func TestErrorEventSurfacesTransientNotice(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("c")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.conn.emit(PlayerEvent{Type: EventError, Err: errors.New("stream reset")})
	rig.waitPlays(t, 2)

	require.Eventually(t, func() bool { return rig.notifier.errorCount() >= 1 }, waitFor, tick)
	assert.Equal(t, 1, rig.retryCount())
}

func TestStreamFetchErrorSkipsToNextQueued(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("bad"), mkTrack("good")})
	rig.provider.streamErr["bad"] = ErrNoStream
	require.NoError(t, rig.sess.Start())

	rig.waitPlays(t, 1)
	assert.Equal(t, []string{"stream://good"}, rig.conn.playedURLs())
	cur, ok := rig.sess.Current()
	require.True(t, ok)
	assert.Equal(t, "good", cur.ID)
}

func TestNextForcesAdvance(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a"), mkTrack("b")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	require.NoError(t, rig.sess.Next())
	rig.waitPlays(t, 2)

	assert.Equal(t, "stream://b", rig.conn.playedURLs()[1])
	hist := rig.sess.HistoryTracks()
	require.Len(t, hist, 1)
	assert.Equal(t, "a", hist[0].ID)
}

func TestPreviousWithEmptyHistoryRejected(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	err := rig.sess.Previous()
	assert.ErrorIs(t, err, ErrNoHistory)

	// no mutation: still playing a
	assert.Equal(t, StatePlaying, rig.sess.State())
	cur, ok := rig.sess.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, 1, rig.conn.playCount())
}

func TestPreviousRestoresAndRequeuesCurrent(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a"), mkTrack("b"), mkTrack("c")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.forceNaturalEnd()
	rig.waitPlays(t, 2) // b playing, history [a]

	require.NoError(t, rig.sess.Previous())
	rig.waitPlays(t, 3)

	assert.Equal(t, "stream://a", rig.conn.playedURLs()[2])
	cur, ok := rig.sess.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)

	// the interrupted b plays next, before c
	queued := rig.sess.QueueTracks()
	require.Len(t, queued, 2)
	assert.Equal(t, "b", queued[0].ID)
	assert.Equal(t, "c", queued[1].ID)
	assert.Empty(t, rig.sess.HistoryTracks())
}

func TestPauseAndResume(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	assert.ErrorIs(t, rig.sess.Play(), ErrNotPaused)

	require.NoError(t, rig.sess.Pause())
	assert.Equal(t, StatePaused, rig.sess.State())
	assert.True(t, rig.conn.isPaused())
	assert.ErrorIs(t, rig.sess.Pause(), ErrNotPlaying)

	require.NoError(t, rig.sess.Play())
	assert.Equal(t, StatePlaying, rig.sess.State())
	assert.False(t, rig.conn.isPaused())
}

func TestStopCancelsPendingRetry(t *testing.T) {
	// long backoff so the retry timer is still pending when Stop lands
	pol := testPolicy()
	pol.Backoff = time.Minute
	rig := newTestRig(t, pol, []Track{mkTrack("c")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.conn.emit(PlayerEvent{Type: EventIdle})
	rig.waitState(t, StateRecovering)

	rig.sess.Stop()
	assert.Equal(t, StateStopped, rig.sess.State())
	require.Eventually(t, func() bool { return rig.conn.disconnectCount() == 1 }, waitFor, tick)

	// the pending retry must never fire
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rig.conn.playCount())
	assert.Empty(t, rig.sess.QueueTracks())
	assert.Empty(t, rig.sess.HistoryTracks())

	_, ok := rig.reg.Get("guild-1")
	assert.False(t, ok, "stop must release the registry entry")
	require.Eventually(t, func() bool { return rig.notifier.stoppedCount() == 1 }, waitFor, tick)
}

func TestProviderExhaustionLeavesSessionInert(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.forceNaturalEnd() // queue empty, refill returns nothing

	rig.waitState(t, StateIdle)
	require.Eventually(t, func() bool { return rig.notifier.exhaustedCount() == 1 }, waitFor, tick)
	assert.Zero(t, rig.notifier.stoppedCount(), "running dry is announced as exhaustion, not a stop")

	// connection stays up, next has no effect
	assert.Zero(t, rig.conn.disconnectCount())
	assert.ErrorIs(t, rig.sess.Next(), ErrExhausted)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rig.conn.playCount())

	rig.sess.Stop()
	require.Eventually(t, func() bool { return rig.conn.disconnectCount() == 1 }, waitFor, tick)
}

func TestJoinFailureTearsDown(t *testing.T) {
	conn := newFakeConn()
	reg := NewRegistry()
	notifier := &fakeNotifier{}
	sess, err := reg.GetOrCreate("guild-1", Params{
		ChannelID: "voice-1",
		StationID: "station-1",
		Transport: &fakeTransport{conn: conn, joinErr: errors.New("timed out")},
		Provider:  &fakeProvider{},
		Notifier:  notifier,
		Policy:    testPolicy(),
	})
	require.NoError(t, err)

	require.Error(t, sess.Start())
	assert.Equal(t, StateStopped, sess.State())
	assert.Equal(t, 1, notifier.errorCount())
	_, ok := reg.Get("guild-1")
	assert.False(t, ok)
}

func TestDisconnectRejoinsAndReplays(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.conn.emit(PlayerEvent{Type: EventDisconnected})
	rig.waitPlays(t, 2)

	rig.conn.mu.Lock()
	rejoins := rig.conn.rejoins
	rig.conn.mu.Unlock()
	assert.Equal(t, 1, rejoins)
	assert.Equal(t, "stream://a", rig.conn.playedURLs()[1])
}

func TestDisconnectRejoinFailureIsFatal(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a")})
	rig.conn.rejoinErr = errors.New("no route")
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	rig.conn.emit(PlayerEvent{Type: EventDisconnected})
	rig.waitState(t, StateStopped)
	_, ok := rig.reg.Get("guild-1")
	assert.False(t, ok)
}

func TestLikeCurrentTrack(t *testing.T) {
	rig := newTestRig(t, testPolicy(), []Track{mkTrack("a")})
	require.NoError(t, rig.sess.Start())
	rig.waitPlays(t, 1)

	require.NoError(t, rig.sess.Like())
	assert.Equal(t, []string{"user-1:a"}, rig.provider.likedTracks())
}

func TestLikeWithoutTrackRejected(t *testing.T) {
	rig := newTestRig(t, testPolicy())
	assert.ErrorIs(t, rig.sess.Like(), ErrNoTrack)
}
