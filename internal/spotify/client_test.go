package spotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStationRef(t *testing.T) {
	cases := []struct {
		in      string
		typ     string
		id      string
		wantErr bool
	}{
		{in: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", typ: "playlist", id: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "spotify:album:4aawyAB9vmqN3uQ7FjRGTy", typ: "album", id: "4aawyAB9vmqN3uQ7FjRGTy"},
		{in: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", typ: "playlist", id: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF", typ: "artist", id: "0OdUWJ0sBjDrqHygGUXeCF"},
		{in: "album:4aawyAB9vmqN3uQ7FjRGTy", typ: "album", id: "4aawyAB9vmqN3uQ7FjRGTy"},
		{in: "37i9dQZF1DXcBWIGoYBM5M", typ: "playlist", id: "37i9dQZF1DXcBWIGoYBM5M"},
		{in: "", wantErr: true},
		{in: "spotify:oops", wantErr: true},
		{in: "https://example.com/playlist/x", wantErr: true},
		{in: "https://open.spotify.com/track/abc", wantErr: true},
		{in: "show:abc", wantErr: true},
	}
	for _, c := range cases {
		typ, id, err := ParseStationRef(c.in)
		if c.wantErr {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.typ, typ, c.in)
		assert.Equal(t, c.id, string(id), c.in)
	}
}
