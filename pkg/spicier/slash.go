package spicier

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/spicierbot/spicier/pkg/botutil"
)

const (
	cmdPrefix     = "prefix"
	cmdNowPlaying = "nowplaying"
)

func slashCommands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        cmdPrefix,
			Description: "Show the bot prefix in this server",
		},
		discord.SlashCommandCreate{
			Name:        cmdNowPlaying,
			Description: "Show the current track",
		},
	}
}

func (b *Bot) onSlashCommand(e *events.ApplicationCommandInteractionCreate) {
	if e.GuildID() == nil {
		return
	}
	d, ok := e.Data.(discord.SlashCommandInteractionData)
	if !ok {
		return
	}
	guildID := *e.GuildID()
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var msg discord.MessageCreate
	switch d.CommandName() {
	case cmdPrefix:
		prefix, err := b.Guilds.Prefix(ctx, guildID)
		if err != nil {
			b.Log.Error("Failed to read prefix", "guild_id", guildID, "error", err)
			botutil.RespondEphemeral(e, "Something went wrong while running this command.")
			return
		}
		msg.Content = fmt.Sprintf("My prefix here is `%s`", prefix)
	case cmdNowPlaying:
		st, err := b.Music.State(guildID)
		if err != nil || st.Current == nil {
			msg.Embeds = []discord.Embed{noTrackEmbed(e.User())}
			break
		}
		msg.Embeds = []discord.Embed{nowPlayingEmbed(e.User(), b.guildName(guildID), st)}
	default:
		return
	}

	b.Metrics.CommandRun(ctx, "/"+d.CommandName())
	if err := e.CreateMessage(msg); err != nil {
		b.Log.Warn("Failed to respond to slash command", "command", d.CommandName(), "error", err)
	}
}
