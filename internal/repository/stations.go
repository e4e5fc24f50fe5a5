package repository

import (
	"context"
	"strings"
)

// StationService manages named station aliases for a guild.
type StationService struct {
	repo *Repo
}

func NewStationService(repo *Repo) *StationService {
	return &StationService{repo: repo}
}

func (s *StationService) Create(ctx context.Context, guild, author, name, stationID string) error {
	return s.repo.AddStationAlias(ctx, &StationAlias{
		GuildID: guild, Author: author,
		Name:      strings.TrimSpace(name),
		StationID: strings.TrimSpace(stationID),
	})
}

func (s *StationService) Remove(ctx context.Context, guild, name string) (int64, error) {
	return s.repo.RemoveStationAlias(ctx, guild, strings.TrimSpace(name))
}

// Resolve maps an alias to its station id; unknown names pass through
// unchanged so raw station references still work.
func (s *StationService) Resolve(ctx context.Context, guild, nameOrID string) string {
	a, err := s.repo.FindStationAlias(ctx, guild, strings.TrimSpace(nameOrID))
	if err != nil || a == nil {
		return strings.TrimSpace(nameOrID)
	}
	return a.StationID
}

func (s *StationService) List(ctx context.Context, guild string) ([]StationAlias, error) {
	return s.repo.ListStationAliases(ctx, guild)
}
