package logbot

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/router"
)

const (
	emojiWorking = "⌛"
	emojiDone    = "👍"
	emojiOn      = "🔛"
	emojiOff     = "📴"

	logsLimit   = 10
	membersPage = 1000
)

var (
	debugOn  = []string{"on", "włącz", "wlacz", "włacz", "wlącz", "odpal"}
	debugOff = []string{"off", "wyłącz", "wylacz", "wyłacz", "wylącz"}
)

// parseSwitch reads an on/off word; ok is false for anything else.
func parseSwitch(arg string) (on, ok bool) {
	arg = strings.ToLower(arg)
	for _, w := range debugOn {
		if arg == w {
			return true, true
		}
	}
	for _, w := range debugOff {
		if arg == w {
			return false, true
		}
	}
	return false, false
}

func nickname(name, suffix string) string {
	if suffix == "" {
		return name
	}
	return name + " " + suffix
}

func (b *Bot) commands() []*router.Command {
	admin := []router.Check{router.RequirePermissions(discord.PermissionAdministrator)}
	return []*router.Command{
		{Name: "nick", Usage: "[suffix]", Description: "Renames every member to their username plus suffix.", Checks: admin, Handler: b.nick},
		{Name: "debug", Usage: "[on|off]", Description: "Shows or toggles debug logging.", Checks: admin, Handler: b.debug},
		{
			Name:        "logchannel",
			Description: "Shows or changes the message log channel.",
			Checks:      admin,
			Handler:     b.logChannelShow,
			Subcommands: []*router.Command{
				{Name: "set", Usage: "<#channel>", Description: "Posts message logs to the channel.", Handler: b.logChannelSet},
				{Name: "clear", Description: "Stops posting message logs.", Handler: b.logChannelClear},
			},
		},
		{Name: "logs", Usage: "[@user]", Description: "Shows the latest message logs.", Checks: admin, Handler: b.logs},
	}
}

func reply(c *router.Context, msg discord.MessageCreate) error {
	msg.MessageReference = &discord.MessageReference{MessageID: &c.Message.ID}
	msg.AllowedMentions = &discord.AllowedMentions{RepliedUser: false}
	if _, err := c.Client.Rest.CreateMessage(c.ChannelID(), msg); err != nil {
		return errors.WrapIfWithDetails(err, "sending reply", "channel_id", c.ChannelID())
	}
	return nil
}

func react(c *router.Context, emoji string) error {
	return errors.WrapIf(c.Client.Rest.AddReaction(c.ChannelID(), c.Message.ID, emoji), "adding reaction")
}

func (b *Bot) nick(c *router.Context) error {
	if err := react(c, emojiWorking); err != nil {
		return err
	}
	suffix := c.Rest

	var renamed, failed int
	var after snowflake.ID
	for {
		members, err := c.Client.Rest.GetMembers(c.GuildID(), membersPage, after)
		if err != nil {
			return errors.WrapIfWithDetails(err, "listing members", "guild_id", c.GuildID())
		}
		for _, m := range members {
			if m.User.Bot {
				continue
			}
			nick := nickname(m.User.Username, suffix)
			if _, err := c.Client.Rest.UpdateMember(c.GuildID(), m.User.ID, discord.MemberUpdate{Nick: &nick}); err != nil {
				failed++
				b.Log.Debug("Failed to rename member", "guild_id", c.GuildID(), "user_id", m.User.ID, "error", err)
				continue
			}
			renamed++
		}
		if len(members) < membersPage {
			break
		}
		after = members[len(members)-1].User.ID
	}
	b.Log.Info("Renamed members", "guild_id", c.GuildID(), "renamed", renamed, "failed", failed)

	if err := c.Client.Rest.RemoveOwnReaction(c.ChannelID(), c.Message.ID, emojiWorking); err != nil {
		b.Log.Debug("Failed to remove reaction", "error", err)
	}
	return react(c, emojiDone)
}

func (b *Bot) debug(c *router.Context) error {
	arg := c.Arg(0)
	if arg == "" {
		text := "Debug mode is currently off! 🛑"
		if b.Logging.Debug() {
			text = "Debug mode is currently on! ✅"
		}
		return reply(c, discord.MessageCreate{Content: text})
	}
	on, ok := parseSwitch(arg)
	if !ok {
		return &router.ArgumentError{Msg: "Use on or off."}
	}
	b.Logging.SetDebug(on)
	b.Log.Info("Debug logging toggled", "on", on, "user_id", c.Author().ID)
	if on {
		return react(c, emojiOn)
	}
	return react(c, emojiOff)
}

func (b *Bot) logChannelShow(c *router.Context) error {
	ch, err := b.Guilds.LogChannel(c, c.GuildID())
	if err != nil {
		return err
	}
	if ch == nil {
		return reply(c, discord.MessageCreate{Content: "No log channel is set."})
	}
	return reply(c, discord.MessageCreate{Content: "Message logs go to " + channelMention(*ch)})
}

func (b *Bot) logChannelSet(c *router.Context) error {
	arg := c.Arg(0)
	if arg == "" {
		return &router.MissingArgumentError{Name: "channel"}
	}
	id, err := router.ParseChannel(arg)
	if err != nil {
		return err
	}
	if ch, ok := c.Client.Caches.Channel(id); !ok || ch.GuildID() != c.GuildID() {
		return &router.ChannelNotFoundError{Arg: arg}
	}
	if err := b.Guilds.SetLogChannel(c, c.GuildID(), &id); err != nil {
		return err
	}
	return reply(c, discord.MessageCreate{Content: "Message logs go to " + channelMention(id)})
}

func (b *Bot) logChannelClear(c *router.Context) error {
	if err := b.Guilds.SetLogChannel(c, c.GuildID(), nil); err != nil {
		return err
	}
	return reply(c, discord.MessageCreate{Content: "Message logs are no longer posted."})
}

func (b *Bot) logs(c *router.Context) error {
	var userID *snowflake.ID
	if arg := c.Arg(0); arg != "" {
		id, ok := router.ParseUser(arg)
		if !ok {
			return &router.ArgumentError{Msg: "User not found."}
		}
		userID = &id
	}
	entries, err := b.DB.MessageLogs(c, c.GuildID(), userID, logsLimit)
	if err != nil {
		return err
	}
	return reply(c, discord.MessageCreate{Embeds: []discord.Embed{logsEmbed(entries)}})
}

func logsEmbed(entries []database.MessageLog) discord.Embed {
	e := discord.Embed{Title: "Message logs", Color: colorEdit}
	if len(entries) == 0 {
		e.Description = "Nothing logged yet."
		return e
	}
	for _, entry := range entries {
		value := fmt.Sprintf("%s in %s <t:%d:R>\n", userMention(entry.UserID), channelMention(entry.ChannelID), entry.CreatedAt.Unix())
		switch entry.Action {
		case database.ActionDelete:
			value += "```\n" + truncate(entry.Before, 200) + "\n```"
		case database.ActionEdit:
			value += "```\n" + truncate(entry.Before, 100) + "\n``````\n" + truncate(entry.After, 100) + "\n```"
		}
		e.Fields = append(e.Fields, discord.EmbedField{
			Name:  fmt.Sprintf("%s `%s`", entry.Action, entry.ID),
			Value: value,
		})
	}
	return e
}

// onCommandError replies with the error text; failed checks stay silent.
func (b *Bot) onCommandError(c *router.Context, err error) {
	var (
		missing  *router.MissingArgumentError
		notFound *router.CommandNotFoundError
		channel  *router.ChannelNotFoundError
		argument *router.ArgumentError
	)
	var text string
	switch {
	case errors.Is(err, router.ErrMissingPermissions), errors.Is(err, router.ErrCheckFailure):
		return
	case errors.As(err, &missing):
		text = fmt.Sprintf("Missing required argument: `%s`", missing.Name)
	case errors.As(err, &notFound):
		text = fmt.Sprintf("Command not found: `%s`", notFound.Content)
	case errors.As(err, &channel):
		text = fmt.Sprintf("Channel not found: `%s`", channel.Arg)
	case errors.As(err, &argument):
		text = fmt.Sprintf("Unvalid argument: `%s`", argument.Msg)
	default:
		b.Metrics.CommandFailed(c, c.Path)
		code := botutil.ReportError(err, c.Author().ID, map[string]string{"command": c.Path})
		b.Log.Error("Command failed", append([]any{"command", c.Path, "code", code, "error", err}, errors.GetDetails(err)...)...)
		text = "Something went wrong while running this command."
	}
	if c.Client == nil {
		return
	}
	if err := reply(c, discord.MessageCreate{Content: text}); err != nil {
		b.Log.Warn("Failed to send error reply", "error", err)
	}
}
