package logbot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/database"
)

const (
	colorDelete = 0xED4245
	colorEdit   = 0xFEE75C

	eventTimeout = 10 * time.Second
)

func boolPtr(v bool) *bool { return &v }

func channelMention(id snowflake.ID) string { return fmt.Sprintf("<#%d>", id) }
func userMention(id snowflake.ID) string    { return fmt.Sprintf("<@%d>", id) }

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func messageLink(guildID, channelID, messageID snowflake.ID) string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", guildID, channelID, messageID)
}

// logEntry builds the record for a deleted or edited message. before is the
// cached message; uncached messages, bot messages and edits that left the
// content alone are not logged.
func logEntry(guildID snowflake.ID, action database.Action, before, after discord.Message) (database.MessageLog, bool) {
	if before.ID == 0 || before.Author.Bot {
		return database.MessageLog{}, false
	}
	entry := database.MessageLog{
		GuildID:   guildID,
		ChannelID: before.ChannelID,
		MessageID: before.ID,
		UserID:    before.Author.ID,
		Action:    action,
		Before:    before.Content,
	}
	if action == database.ActionEdit {
		if after.Content == before.Content {
			return database.MessageLog{}, false
		}
		entry.After = after.Content
	}
	return entry, true
}

func (b *Bot) onMessageDelete(e *events.GuildMessageDelete) {
	entry, ok := logEntry(e.GuildID, database.ActionDelete, e.Message, discord.Message{})
	if !ok {
		return
	}
	entry.ChannelID = e.ChannelID
	b.record(entry, e.Message.Author)
}

func (b *Bot) onMessageUpdate(e *events.GuildMessageUpdate) {
	entry, ok := logEntry(e.GuildID, database.ActionEdit, e.OldMessage, e.Message)
	if !ok {
		return
	}
	entry.ChannelID = e.ChannelID
	b.record(entry, e.Message.Author)
}

// record stores entry and posts it to the guild's log channel. Messages in
// the log channel itself are left out.
func (b *Bot) record(entry database.MessageLog, author discord.User) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	logChannel, err := b.Guilds.LogChannel(ctx, entry.GuildID)
	if err != nil {
		b.Log.Warn("Failed to read log channel", "guild_id", entry.GuildID, "error", err)
	}
	if logChannel != nil && *logChannel == entry.ChannelID {
		return
	}

	id, err := b.DB.InsertMessageLog(ctx, entry)
	if err != nil {
		b.Log.Error("Failed to store message log", "guild_id", entry.GuildID, "message_id", entry.MessageID, "error", err)
		return
	}
	entry.ID = id
	b.Log.Info("Logged message", "LOG-ID", id, "action", entry.Action, "guild_id", entry.GuildID, "user_id", entry.UserID)
	b.Metrics.MessageLogged(ctx, entry.Action.String())

	if logChannel == nil || b.Client == nil {
		return
	}
	msg := discord.MessageCreate{Embeds: []discord.Embed{logEmbed(entry, author)}}
	if _, err := botutil.PostWithRetry(b.Client.Rest, *logChannel, msg, b.Log); err != nil {
		b.Log.Error("Failed to post message log", "guild_id", entry.GuildID, "error", err)
	}
}

func logEmbed(entry database.MessageLog, author discord.User) discord.Embed {
	now := time.Now()
	embed := discord.Embed{
		Fields: []discord.EmbedField{
			{Name: "Channel", Value: channelMention(entry.ChannelID), Inline: boolPtr(true)},
			{Name: "Author", Value: userMention(entry.UserID), Inline: boolPtr(true)},
		},
		Footer:    &discord.EmbedFooter{Text: "LOG-ID " + entry.ID.String()},
		Timestamp: &now,
	}
	if author.ID != 0 {
		embed.Author = &discord.EmbedAuthor{Name: author.Username, IconURL: author.EffectiveAvatarURL()}
	}

	switch entry.Action {
	case database.ActionDelete:
		embed.Title = "Message Deleted"
		embed.Color = colorDelete
		embed.Description = truncate(entry.Before, 4000)
		if embed.Description == "" {
			embed.Description = "*No text content*"
		}
	case database.ActionEdit:
		embed.Title = "Message Edited"
		embed.Color = colorEdit
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:   "Link",
			Value:  fmt.Sprintf("[Jump to message](%s)", messageLink(entry.GuildID, entry.ChannelID, entry.MessageID)),
			Inline: boolPtr(true),
		})
		if entry.Before != "" {
			embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Before", Value: "```\n" + truncate(entry.Before, 1016) + "\n```"})
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: "After", Value: "```\n" + truncate(entry.After, 1016) + "\n```"})
	}
	return embed
}
