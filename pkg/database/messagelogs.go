package database

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// Action is what happened to a logged message.
type Action int

const (
	ActionDelete Action = -1
	ActionEdit   Action = 1
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionEdit:
		return "edit"
	default:
		return "unknown"
	}
}

type MessageLog struct {
	ID        uuid.UUID    `db:"id"`
	GuildID   snowflake.ID `db:"guild_id"`
	ChannelID snowflake.ID `db:"channel_id"`
	MessageID snowflake.ID `db:"message_id"`
	UserID    snowflake.ID `db:"user_id"`
	Action    Action       `db:"action"`
	Before    string       `db:"content_before"`
	After     string       `db:"content_after"`
	CreatedAt time.Time    `db:"created_at"`
}

// InsertMessageLog stores entry, filling in ID and CreatedAt when unset, and
// returns the stored ID.
func (d *DB) InsertMessageLog(ctx context.Context, entry MessageLog) (uuid.UUID, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query, args, err := sq.Insert("message_logs").
		Columns("id", "guild_id", "channel_id", "message_id", "user_id", "action", "content_before", "content_after", "created_at").
		Values(entry.ID, entry.GuildID, entry.ChannelID, entry.MessageID, entry.UserID, entry.Action, entry.Before, entry.After, entry.CreatedAt).
		ToSql()
	if err != nil {
		return uuid.Nil, errors.WrapIf(err, "building message log insert")
	}
	if _, err := d.dbx.ExecContext(ctx, query, args...); err != nil {
		return uuid.Nil, errors.WrapIfWithDetails(err, "inserting message log", "guild_id", entry.GuildID)
	}
	return entry.ID, nil
}

// MessageLogs returns the newest limit entries for a guild, optionally only
// those for userID.
func (d *DB) MessageLogs(ctx context.Context, guildID snowflake.ID, userID *snowflake.ID, limit uint64) ([]MessageLog, error) {
	q := sq.Select("id", "guild_id", "channel_id", "message_id", "user_id", "action", "content_before", "content_after", "created_at").
		From("message_logs").
		Where("guild_id = ?", guildID).
		OrderBy("created_at DESC").
		Limit(limit)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.WrapIf(err, "building message log query")
	}
	var logs []MessageLog
	if err := d.dbx.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, errors.WrapIfWithDetails(err, "fetching message logs", "guild_id", guildID)
	}
	return logs, nil
}
