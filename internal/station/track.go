package station

// Track describes one playable item produced by the catalog provider.
// The engine treats tracks as immutable once queued.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	CoverURL string
}
