package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

type Client struct {
	raw *spotify.Client
}

func NewClientCredentials(clientID, clientSecret string) (*Client, error) {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cfg.Client(context.Background())
	cl := spotify.New(httpClient, spotify.WithRetry(true))
	return &Client{raw: cl}, nil
}

func (c *Client) Raw() *spotify.Client { return c.raw }

// ParseStationRef maps a station reference to its catalog type and id.
// Accepted forms: spotify:playlist:ID URIs, open.spotify.com URLs, and the
// shorthand playlist:ID / album:ID / artist:ID. A bare id is treated as a
// playlist.
func ParseStationRef(raw string) (typ string, id spotify.ID, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty station reference")
	}

	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) == 3 {
			return parts[1], spotify.ID(parts[2]), nil
		}
		return "", "", fmt.Errorf("invalid spotify URI")
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", err
		}
		if u.Host != "open.spotify.com" && u.Host != "www.open.spotify.com" {
			return "", "", fmt.Errorf("not a spotify URL")
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 {
			return "", "", fmt.Errorf("invalid spotify URL path")
		}
		switch parts[0] {
		case "album", "playlist", "artist":
			return parts[0], spotify.ID(parts[1]), nil
		}
		return "", "", fmt.Errorf("unsupported spotify type %q", parts[0])
	}

	if i := strings.IndexByte(raw, ':'); i > 0 {
		typ := raw[:i]
		switch typ {
		case "album", "playlist", "artist":
			return typ, spotify.ID(raw[i+1:]), nil
		}
		return "", "", fmt.Errorf("unsupported station type %q", typ)
	}

	return "playlist", spotify.ID(raw), nil
}
