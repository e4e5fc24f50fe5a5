package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertSettings(ctx context.Context, guild string) (*Settings, error) {
	_, _ = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(guild_id) VALUES (?)`, guild,
	)
	return r.GetSettings(ctx, guild)
}

func (r *Repo) GetSettings(ctx context.Context, guild string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, default_station, announce_now_playing, leave_if_no_listeners
	FROM settings WHERE guild_id = ?`, guild)

	var s Settings
	var b1, b2 int
	if err := row.Scan(&s.GuildID, &s.DefaultStation, &b1, &b2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	s.AnnounceNowPlaying = b1 != 0
	s.LeaveIfNoListeners = b2 != 0
	return &s, nil
}

func (r *Repo) UpdateSettings(ctx context.Context, s *Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settings SET
		  default_station=?,
		  announce_now_playing=?,
		  leave_if_no_listeners=?
		WHERE guild_id=?`,
		s.DefaultStation, boolToInt(s.AnnounceNowPlaying),
		boolToInt(s.LeaveIfNoListeners), s.GuildID,
	)
	return err
}

func (r *Repo) AddStationAlias(ctx context.Context, a *StationAlias) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stations(guild_id, author_id, name, station_id) VALUES (?,?,?,?)`,
		a.GuildID, a.Author, a.Name, a.StationID,
	)
	return err
}

func (r *Repo) RemoveStationAlias(ctx context.Context, guild, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE guild_id=? AND name=?`, guild, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) FindStationAlias(ctx context.Context, guild, name string) (*StationAlias, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, guild_id, author_id, name, station_id FROM stations WHERE guild_id=? AND name=?`,
		guild, name)
	var a StationAlias
	if err := row.Scan(&a.ID, &a.GuildID, &a.Author, &a.Name, &a.StationID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) ListStationAliases(ctx context.Context, guild string) ([]StationAlias, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, guild_id, author_id, name, station_id FROM stations WHERE guild_id=? ORDER BY name ASC`,
		guild)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StationAlias
	for rows.Next() {
		var a StationAlias
		if err := rows.Scan(&a.ID, &a.GuildID, &a.Author, &a.Name, &a.StationID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) AddPlay(ctx context.Context, p *Play) error {
	if p.PlayedAt == 0 {
		p.PlayedAt = time.Now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plays(guild_id, station_id, track_id, title, artist, played_at) VALUES (?,?,?,?,?,?)`,
		p.GuildID, p.StationID, p.TrackID, p.Title, p.Artist, p.PlayedAt,
	)
	return err
}

func (r *Repo) RecentPlays(ctx context.Context, guild string, limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, station_id, track_id, title, artist, played_at
		FROM plays WHERE guild_id=? ORDER BY played_at DESC LIMIT ?`, guild, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Play
	for rows.Next() {
		var p Play
		if err := rows.Scan(&p.ID, &p.GuildID, &p.StationID, &p.TrackID, &p.Title, &p.Artist, &p.PlayedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) AddLike(ctx context.Context, l *Like) error {
	if l.LikedAt == 0 {
		l.LikedAt = time.Now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO likes(user_id, track_id, title, artist, liked_at) VALUES (?,?,?,?,?)`,
		l.UserID, l.TrackID, l.Title, l.Artist, l.LikedAt,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
