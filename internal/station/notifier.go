package station

// Notifier is the presentation collaborator. The engine calls it on state
// changes and never depends on how notices are rendered.
type Notifier interface {
	Loading(t Track)
	NowPlaying(t Track)
	Error(msg string)
	Stopped()
	// Exhausted signals the station ran out of tracks. The session stays
	// alive awaiting an explicit stop, so this must render visibly.
	Exhausted()
	ControlsChanged(isPlaying bool)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Loading(Track)        {}
func (NopNotifier) NowPlaying(Track)     {}
func (NopNotifier) Error(string)         {}
func (NopNotifier) Stopped()             {}
func (NopNotifier) Exhausted()           {}
func (NopNotifier) ControlsChanged(bool) {}
