package station

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkTrack(id string) Track {
	return Track{ID: id, Title: "title " + id, Artist: "artist"}
}

func TestQueueFIFO(t *testing.T) {
	var q Queue
	q.Push(mkTrack("a"), mkTrack("b"))
	q.Push(mkTrack("c"))

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	q.PushFront(mkTrack("front"))
	got, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "front", got.ID)

	assert.Equal(t, 2, q.Len())
	q.Clear()
	assert.Equal(t, 0, q.Len())
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueSnapshotIsCopy(t *testing.T) {
	var q Queue
	q.Push(mkTrack("a"))
	snap := q.Snapshot()
	snap[0].ID = "mutated"
	got, _ := q.Pop()
	assert.Equal(t, "a", got.ID)
}

func TestHistoryEvictsOldest(t *testing.T) {
	var h History
	for i := 0; i < HistorySize+5; i++ {
		h.Push(mkTrack(fmt.Sprintf("t%d", i)))
		assert.LessOrEqual(t, h.Len(), HistorySize)
	}
	require.Equal(t, HistorySize, h.Len())

	snap := h.Snapshot()
	// t0..t4 evicted, oldest remaining is t5
	assert.Equal(t, "t5", snap[0].ID)
	assert.Equal(t, "t14", snap[len(snap)-1].ID)
}

func TestHistoryPopNewestFirst(t *testing.T) {
	var h History
	h.Push(mkTrack("old"))
	h.Push(mkTrack("new"))

	got, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, "new", got.ID)
	got, ok = h.Pop()
	require.True(t, ok)
	assert.Equal(t, "old", got.ID)
	_, ok = h.Pop()
	assert.False(t, ok)
}
