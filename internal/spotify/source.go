package spotify

import (
	"context"
	"fmt"
	"sync"

	"github.com/zmb3/spotify/v2"

	"github.com/lostisle/stationbot/internal/station"
)

// Source pages through a station's catalog. Each station keeps a cursor so
// successive refills return fresh batches; once the catalog runs out the
// source keeps returning empty batches until Reset.
type Source struct {
	client *Client
	batch  int

	mu       sync.Mutex
	cursors  map[string]int
	done     map[string]bool
	previews map[string]string
	meta     map[string]station.Track
}

func NewSource(client *Client, batchSize int) *Source {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Source{
		client:   client,
		batch:    batchSize,
		cursors:  make(map[string]int),
		done:     make(map[string]bool),
		previews: make(map[string]string),
		meta:     make(map[string]station.Track),
	}
}

func (s *Source) Tracks(ctx context.Context, stationID string) ([]station.Track, error) {
	s.mu.Lock()
	if s.done[stationID] {
		s.mu.Unlock()
		return nil, nil
	}
	offset := s.cursors[stationID]
	s.mu.Unlock()

	typ, id, err := ParseStationRef(stationID)
	if err != nil {
		return nil, fmt.Errorf("station ref: %w", err)
	}

	var tracks []station.Track
	switch typ {
	case "playlist":
		tracks, err = s.playlistBatch(ctx, id, offset)
	case "album":
		tracks, err = s.albumBatch(ctx, id, offset)
	case "artist":
		// Top tracks come as one fixed batch; no paging.
		if offset > 0 {
			tracks = nil
		} else {
			tracks, err = s.artistBatch(ctx, id)
		}
	default:
		return nil, fmt.Errorf("unsupported station type %q", typ)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tracks) == 0 {
		s.done[stationID] = true
		return nil, nil
	}
	s.cursors[stationID] = offset + len(tracks)
	for _, t := range tracks {
		s.meta[t.ID] = t
	}
	return tracks, nil
}

// Reset clears a station's cursor so a fresh session starts from the top.
func (s *Source) Reset(stationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, stationID)
	delete(s.done, stationID)
}

// StreamURL returns the track's preview stream, preferring what the batch
// fetch already recorded over an extra catalog call.
func (s *Source) StreamURL(ctx context.Context, trackID string) (string, error) {
	s.mu.Lock()
	url, ok := s.previews[trackID]
	s.mu.Unlock()
	if ok {
		if url == "" {
			return "", station.ErrNoStream
		}
		return url, nil
	}

	t, err := s.client.raw.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return "", fmt.Errorf("get track: %w", err)
	}
	s.mu.Lock()
	s.previews[trackID] = t.PreviewURL
	s.mu.Unlock()
	if t.PreviewURL == "" {
		return "", station.ErrNoStream
	}
	return t.PreviewURL, nil
}

// Meta returns track metadata seen during a batch fetch.
func (s *Source) Meta(trackID string) (station.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.meta[trackID]
	return t, ok
}

func (s *Source) playlistBatch(ctx context.Context, id spotify.ID, offset int) ([]station.Track, error) {
	page, err := s.client.raw.GetPlaylistItems(ctx, id, spotify.Limit(s.batch), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("playlist items: %w", err)
	}
	out := make([]station.Track, 0, len(page.Items))
	for _, it := range page.Items {
		t := it.Track.Track
		if t == nil {
			continue
		}
		out = append(out, s.fromFullTrack(*t))
	}
	return out, nil
}

func (s *Source) albumBatch(ctx context.Context, id spotify.ID, offset int) ([]station.Track, error) {
	alb, err := s.client.raw.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("album: %w", err)
	}
	cover := ""
	if len(alb.Images) > 0 {
		cover = alb.Images[0].URL
	}
	page, err := s.client.raw.GetAlbumTracks(ctx, id, spotify.Limit(s.batch), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("album tracks: %w", err)
	}
	out := make([]station.Track, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		out = append(out, s.fromSimpleTrack(t, alb.Name, cover))
	}
	return out, nil
}

func (s *Source) artistBatch(ctx context.Context, id spotify.ID) ([]station.Track, error) {
	full, err := s.client.raw.GetArtistsTopTracks(ctx, id, "US")
	if err != nil {
		return nil, fmt.Errorf("artist top tracks: %w", err)
	}
	out := make([]station.Track, 0, len(full))
	for _, t := range full {
		out = append(out, s.fromFullTrack(t))
	}
	return out, nil
}

func (s *Source) fromFullTrack(t spotify.FullTrack) station.Track {
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	cover := ""
	if len(t.Album.Images) > 0 {
		cover = t.Album.Images[0].URL
	}
	s.mu.Lock()
	s.previews[string(t.ID)] = t.PreviewURL
	s.mu.Unlock()
	return station.Track{
		ID:       string(t.ID),
		Title:    t.Name,
		Artist:   artist,
		Album:    t.Album.Name,
		CoverURL: cover,
	}
}

func (s *Source) fromSimpleTrack(t spotify.SimpleTrack, album, cover string) station.Track {
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	s.mu.Lock()
	s.previews[string(t.ID)] = t.PreviewURL
	s.mu.Unlock()
	return station.Track{
		ID:       string(t.ID),
		Title:    t.Name,
		Artist:   artist,
		Album:    album,
		CoverURL: cover,
	}
}
