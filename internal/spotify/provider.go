package spotify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zmb3/spotify/v2"

	"github.com/lostisle/stationbot/internal/repository"
	"github.com/lostisle/stationbot/internal/station"
)

// GuildProvider scopes a catalog source to one guild so playback feedback
// lands in that guild's history.
type GuildProvider struct {
	src     *Source
	repo    *repository.Repo
	guildID string
}

var _ station.Provider = (*GuildProvider)(nil)

func NewGuildProvider(src *Source, repo *repository.Repo, guildID string) *GuildProvider {
	return &GuildProvider{src: src, repo: repo, guildID: guildID}
}

func (p *GuildProvider) StationTracks(ctx context.Context, stationID string) ([]station.Track, error) {
	return p.src.Tracks(ctx, stationID)
}

func (p *GuildProvider) StreamURL(ctx context.Context, trackID string) (string, error) {
	return p.src.StreamURL(ctx, trackID)
}

func (p *GuildProvider) TrackStarted(ctx context.Context, stationID, trackID string) {
	if p.repo == nil {
		return
	}
	t, _ := p.src.Meta(trackID)
	err := p.repo.AddPlay(ctx, &repository.Play{
		GuildID:   p.guildID,
		StationID: stationID,
		TrackID:   trackID,
		Title:     t.Title,
		Artist:    t.Artist,
	})
	if err != nil {
		slog.Warn("record play failed", "guild", p.guildID, "track", trackID, "error", err)
	}
}

func (p *GuildProvider) Like(ctx context.Context, userID, trackID string) error {
	t, ok := p.src.Meta(trackID)
	if !ok {
		full, err := p.src.client.raw.GetTrack(ctx, spotify.ID(trackID))
		if err != nil {
			return fmt.Errorf("like lookup: %w", err)
		}
		t = p.src.fromFullTrack(*full)
	}
	if p.repo == nil {
		return nil
	}
	return p.repo.AddLike(ctx, &repository.Like{
		UserID:  userID,
		TrackID: trackID,
		Title:   t.Title,
		Artist:  t.Artist,
	})
}
