package station

// HistorySize caps the played-track ring.
const HistorySize = 10

// Queue is the FIFO of upcoming tracks. Not safe for concurrent use; the
// owning session serializes access.
type Queue struct {
	items []Track
}

func (q *Queue) Push(ts ...Track) {
	q.items = append(q.items, ts...)
}

// PushFront puts a track at the head so it plays next.
func (q *Queue) PushFront(t Track) {
	q.items = append([]Track{t}, q.items...)
}

func (q *Queue) Pop() (Track, bool) {
	if len(q.items) == 0 {
		return Track{}, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Clear() { q.items = nil }

func (q *Queue) Snapshot() []Track {
	out := make([]Track, len(q.items))
	copy(out, q.items)
	return out
}

// History is the ring of recently played tracks, newest last, oldest evicted
// beyond HistorySize.
type History struct {
	items []Track
}

func (h *History) Push(t Track) {
	h.items = append(h.items, t)
	if len(h.items) > HistorySize {
		h.items = h.items[len(h.items)-HistorySize:]
	}
}

// Pop removes and returns the most recently played track.
func (h *History) Pop() (Track, bool) {
	if len(h.items) == 0 {
		return Track{}, false
	}
	t := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return t, true
}

func (h *History) Len() int { return len(h.items) }

func (h *History) Clear() { h.items = nil }

func (h *History) Snapshot() []Track {
	out := make([]Track, len(h.items))
	copy(out, h.items)
	return out
}
