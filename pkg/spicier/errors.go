package spicier

import (
	"fmt"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/router"
)

// errorReply maps a command error to the text shown in the channel. silent
// errors get no reply; unexpected errors are not user mistakes and get
// reported.
func errorReply(err error) (reply string, silent, unexpected bool) {
	var (
		notFound     *router.CommandNotFoundError
		routerMiss   *router.MissingArgumentError
		musicMiss    *music.MissingArgumentError
		routerArg    *router.ArgumentError
		musicArg     *music.ArgumentError
		channel      *router.ChannelNotFoundError
		voice        *music.VoiceError
		queueEmpty   *music.QueueEmptyError
		searchFailed *music.SearchNotFoundError
	)

	switch {
	case errors.Is(err, router.ErrMissingPermissions), errors.Is(err, router.ErrCheckFailure):
		return "", true, false
	case errors.As(err, &routerMiss):
		return fmt.Sprintf("Missing required argument: `%s`", routerMiss.Name), false, false
	case errors.As(err, &musicMiss):
		return fmt.Sprintf("Missing required argument: `%s`", musicMiss.Name), false, false
	case errors.As(err, &notFound):
		return fmt.Sprintf("Command not found: `%s`", notFound.Content), false, false
	case errors.As(err, &channel):
		return fmt.Sprintf("Channel not found: `%s`", channel.Arg), false, false
	case errors.As(err, &voice):
		if voice.Msg == "" {
			return "Something went wrong with the voice connection", false, false
		}
		return voice.Msg, false, false
	case errors.As(err, &queueEmpty):
		return "The queue is empty", false, false
	case errors.As(err, &routerArg):
		return fmt.Sprintf("Unvalid argument: `%s`", routerArg.Msg), false, false
	case errors.As(err, &musicArg):
		return fmt.Sprintf("Unvalid argument: `%s`", musicArg.Msg), false, false
	case errors.Is(err, music.ErrPlayerNotPlaying), errors.Is(err, music.ErrNotConnected):
		return "Before using this command, play something", false, false
	case errors.As(err, &searchFailed):
		return fmt.Sprintf("Nothing found for: `%s`", searchFailed.Query), false, false
	case errors.Is(err, music.ErrInvalidVolume):
		return "Volume must be between 1 and 200.", false, false
	}
	return "Something went wrong while running this command.", false, true
}

// onCommandError is the router's error hook.
func (b *Bot) onCommandError(c *router.Context, err error) {
	if c.Client != nil && b.options().DeleteAfter {
		botutil.DeleteAfter(c.Client.Rest, c.ChannelID(), c.Message.ID, b.options().DeleteDelay, b.Log)
	}

	reply, silent, unexpected := errorReply(err)
	if silent {
		b.Log.Debug("Command check failed", "command", c.Path, "user_id", c.Author().ID, "error", err)
		return
	}

	msg := discord.MessageCreate{Content: reply}
	if unexpected {
		b.Metrics.CommandFailed(c, c.Path)
		code := botutil.ReportError(err, c.Author().ID, map[string]string{
			"command":  c.Path,
			"guild_id": c.GuildID().String(),
		})
		b.Log.Error("Command failed", append([]any{"command", c.Path, "guild_id", c.GuildID(), "code", code, "error", err}, errors.GetDetails(err)...)...)

		embed := discord.Embed{
			Title:       "Internal error occurred",
			Description: fmt.Sprintf("%s If this issue persists, ask in the [support server](%s).", reply, supportURL),
			Color:       colorError,
		}
		if c.Permissions().Has(discord.PermissionAdministrator) {
			embed.Footer = &discord.EmbedFooter{Text: "Error code: " + code}
		}
		msg = discord.MessageCreate{Embeds: []discord.Embed{embed}}
	} else {
		b.Log.Debug("Command error", "command", c.Path, "error", err)
	}

	if c.Client == nil {
		return
	}
	msg.MessageReference = &discord.MessageReference{MessageID: &c.Message.ID}
	msg.AllowedMentions = &discord.AllowedMentions{RepliedUser: false}
	sent, sendErr := c.Client.Rest.CreateMessage(c.ChannelID(), msg)
	if sendErr != nil {
		b.Log.Warn("Failed to send error reply", "channel_id", c.ChannelID(), "error", sendErr)
		return
	}
	botutil.DeleteAfter(c.Client.Rest, sent.ChannelID, sent.ID, b.options().DeleteDelay, b.Log)
}
