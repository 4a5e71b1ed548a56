package database

import (
	"context"
	"database/sql"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
)

// Guild is the per-guild settings row.
type Guild struct {
	ID             snowflake.ID  `db:"id"`
	Prefix         *string       `db:"prefix"`
	MusicChannelID *snowflake.ID `db:"music_channel_id"`
	LogChannelID   *snowflake.ID `db:"log_channel_id"`
}

func (d *DB) Guild(ctx context.Context, guildID snowflake.ID) (*Guild, error) {
	var g Guild
	if err := d.dbx.GetContext(ctx, &g, `SELECT id, prefix, music_channel_id, log_channel_id FROM guilds WHERE id = $1`, guildID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.WrapIfWithDetails(err, "fetching guild", "guild_id", guildID)
	}
	return &g, nil
}

// CreateGuild inserts an empty settings row. An existing row is left alone.
func (d *DB) CreateGuild(ctx context.Context, guildID snowflake.ID) error {
	_, err := d.dbx.ExecContext(ctx, `INSERT INTO guilds (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, guildID)
	return errors.WrapIfWithDetails(err, "creating guild", "guild_id", guildID)
}

func (d *DB) SetPrefix(ctx context.Context, guildID snowflake.ID, prefix string) error {
	_, err := d.dbx.ExecContext(ctx, `UPDATE guilds SET prefix = $1 WHERE id = $2`, prefix, guildID)
	return errors.WrapIfWithDetails(err, "setting prefix", "guild_id", guildID)
}

// SetMusicChannel stores channelID, or NULL when channelID is nil.
func (d *DB) SetMusicChannel(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID) error {
	_, err := d.dbx.ExecContext(ctx, `UPDATE guilds SET music_channel_id = $1 WHERE id = $2`, channelID, guildID)
	return errors.WrapIfWithDetails(err, "setting music channel", "guild_id", guildID)
}

// SetLogChannel stores channelID, or NULL when channelID is nil.
func (d *DB) SetLogChannel(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID) error {
	_, err := d.dbx.ExecContext(ctx, `UPDATE guilds SET log_channel_id = $1 WHERE id = $2`, channelID, guildID)
	return errors.WrapIfWithDetails(err, "setting log channel", "guild_id", guildID)
}
