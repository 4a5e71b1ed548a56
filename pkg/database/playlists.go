package database

import (
	"context"
	"database/sql"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

var ErrPlaylistExists = errors.New("playlist already exists")

type Playlist struct {
	ID        uuid.UUID    `db:"id"`
	GuildID   snowflake.ID `db:"guild_id"`
	OwnerID   snowflake.ID `db:"owner_id"`
	Name      string       `db:"name"`
	CreatedAt time.Time    `db:"created_at"`
}

// PlaylistSummary is a playlist with aggregate track information.
type PlaylistSummary struct {
	Playlist
	TrackCount    int   `db:"track_count"`
	TotalLengthMS int64 `db:"total_length_ms"`
}

type PlaylistTrack struct {
	PlaylistID uuid.UUID `db:"playlist_id"`
	Position   int       `db:"position"`
	Encoded    string    `db:"encoded"`
	Title      string    `db:"title"`
	Author     string    `db:"author"`
	URI        string    `db:"uri"`
	LengthMS   int64     `db:"length_ms"`
}

// CreatePlaylist stores a playlist with its tracks in order. Names are unique
// per guild.
func (d *DB) CreatePlaylist(ctx context.Context, p Playlist, tracks []PlaylistTrack) (*Playlist, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	tx, err := d.dbx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.WrapIf(err, "starting transaction")
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, `SELECT 1 FROM playlists WHERE guild_id = $1 AND name = $2`, p.GuildID, p.Name)
	switch {
	case err == nil:
		return nil, ErrPlaylistExists
	case !errors.Is(err, sql.ErrNoRows):
		return nil, errors.WrapIf(err, "checking playlist name")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO playlists (id, guild_id, owner_id, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.GuildID, p.OwnerID, p.Name, p.CreatedAt,
	); err != nil {
		return nil, errors.WrapIfWithDetails(err, "inserting playlist", "name", p.Name)
	}

	if len(tracks) > 0 {
		insert := sq.Insert("playlist_tracks").
			Columns("playlist_id", "position", "encoded", "title", "author", "uri", "length_ms")
		for i, t := range tracks {
			insert = insert.Values(p.ID, i, t.Encoded, t.Title, t.Author, t.URI, t.LengthMS)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return nil, errors.WrapIf(err, "building track insert")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, errors.WrapIfWithDetails(err, "inserting playlist tracks", "name", p.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.WrapIf(err, "committing playlist")
	}
	return &p, nil
}

// PlaylistByName returns the playlist and its tracks ordered by position.
func (d *DB) PlaylistByName(ctx context.Context, guildID snowflake.ID, name string) (*Playlist, []PlaylistTrack, error) {
	var p Playlist
	if err := d.dbx.GetContext(ctx, &p,
		`SELECT id, guild_id, owner_id, name, created_at FROM playlists WHERE guild_id = $1 AND name = $2`,
		guildID, name,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, errors.WrapIfWithDetails(err, "fetching playlist", "name", name)
	}

	var tracks []PlaylistTrack
	if err := d.dbx.SelectContext(ctx, &tracks,
		`SELECT playlist_id, position, encoded, title, author, uri, length_ms FROM playlist_tracks WHERE playlist_id = $1 ORDER BY position`,
		p.ID,
	); err != nil {
		return nil, nil, errors.WrapIfWithDetails(err, "fetching playlist tracks", "name", name)
	}
	return &p, tracks, nil
}

func (d *DB) Playlists(ctx context.Context, guildID snowflake.ID) ([]PlaylistSummary, error) {
	query, args, err := sq.Select(
		"p.id", "p.guild_id", "p.owner_id", "p.name", "p.created_at",
		"COUNT(t.position) AS track_count",
		"CAST(COALESCE(SUM(t.length_ms), 0) AS BIGINT) AS total_length_ms",
	).
		From("playlists p").
		LeftJoin("playlist_tracks t ON t.playlist_id = p.id").
		Where("p.guild_id = ?", guildID).
		GroupBy("p.id", "p.guild_id", "p.owner_id", "p.name", "p.created_at").
		OrderBy("p.name").
		ToSql()
	if err != nil {
		return nil, errors.WrapIf(err, "building playlist query")
	}

	var out []PlaylistSummary
	if err := d.dbx.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errors.WrapIfWithDetails(err, "listing playlists", "guild_id", guildID)
	}
	return out, nil
}

// DeletePlaylist removes the playlist and its tracks.
func (d *DB) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	tx, err := d.dbx.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WrapIf(err, "starting transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = $1`, id); err != nil {
		return errors.WrapIf(err, "deleting playlist tracks")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return errors.WrapIf(err, "deleting playlist")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return errors.WrapIf(tx.Commit(), "committing playlist delete")
}
