package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

type Settings struct {
	GuildID            string
	DefaultStation     string
	AnnounceNowPlaying bool
	LeaveIfNoListeners bool
}

// StationAlias names a provider station id so users don't paste raw ids.
type StationAlias struct {
	ID        int64
	GuildID   string
	Author    string
	Name      string
	StationID string
}

// Play is one persisted play-history row.
type Play struct {
	ID        int64
	GuildID   string
	StationID string
	TrackID   string
	Title     string
	Artist    string
	PlayedAt  int64 // unix seconds
}

// Like is one locally recorded liked track.
type Like struct {
	ID      int64
	UserID  string
	TrackID string
	Title   string
	Artist  string
	LikedAt int64
}
