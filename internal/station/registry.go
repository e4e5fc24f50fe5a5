package station

import "sync"

// Registry is the process-wide table of playback sessions, one per session
// key (guild). It is the only way sessions come into existence and the owner
// of their lifecycle.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate creates a session for key. If one already exists it is NOT
// reused: the call is rejected with ErrAlreadyActive so callers never end up
// with two sessions driving one voice channel.
func (r *Registry) GetOrCreate(key string, p Params) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; ok {
		return nil, ErrAlreadyActive
	}
	s := newSession(key, p)
	userClose := s.onClose
	s.onClose = func() {
		r.Remove(key)
		if userClose != nil {
			userClose()
		}
	}
	r.sessions[key] = s
	return s, nil
}

// Get fetches the session for key, if present.
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Remove deletes the entry for key. No-op when absent.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
