package spicier

import (
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"

	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/router"
)

const (
	emojiPause  = "⏸"
	emojiResume = "▶"
	emojiOK     = "✅"
	emojiFailed = "❌"
)

var errInvalidArgument = &music.ArgumentError{Msg: "Invalid argument provided."}

func (b *Bot) commands() []*router.Command {
	cmds := b.musicCommands()
	for _, cmd := range cmds {
		cmd.Handler = b.inMusicChannel(cmd.Handler)
		for _, sub := range cmd.Subcommands {
			sub.Handler = b.inMusicChannel(sub.Handler)
		}
	}
	cmds = append(cmds, b.prefixCommand(), b.adminCommand())
	return cmds
}

// inMusicChannel makes the channel a music command ran in the guild's music
// channel before running h.
func (b *Bot) inMusicChannel(h router.Handler) router.Handler {
	if h == nil {
		return nil
	}
	return func(c *router.Context) error {
		current, err := b.Guilds.MusicChannel(c, c.GuildID())
		if err != nil {
			b.Log.Warn("Failed to read music channel", "guild_id", c.GuildID(), "error", err)
		} else if current == nil || *current != c.ChannelID() {
			if err := b.Guilds.SetMusicChannel(c, c.GuildID(), c.ChannelID()); err != nil {
				b.Log.Warn("Failed to update music channel", "guild_id", c.GuildID(), "error", err)
			}
		}
		return h(c)
	}
}

// authorInVoice passes when the author is in a voice channel.
func (b *Bot) authorInVoice(c *router.Context) error {
	if _, ok := b.voice.UserChannel(c.GuildID(), c.Author().ID); !ok {
		return router.ErrCheckFailure
	}
	return nil
}

// sameVoice passes when the author and the bot share a voice channel.
func (b *Bot) sameVoice(c *router.Context) error {
	userCh, userOk := b.voice.UserChannel(c.GuildID(), c.Author().ID)
	botCh, botOk := b.voice.BotChannel(c.GuildID())
	if !userOk || !botOk || userCh != botCh {
		return router.ErrCheckFailure
	}
	return nil
}

// playing passes when the bot is connected and has a current track.
func (b *Bot) playing(c *router.Context) error {
	if _, ok := b.voice.BotChannel(c.GuildID()); !ok || !b.Music.Playing(c.GuildID()) {
		return music.ErrPlayerNotPlaying
	}
	return nil
}

func replyMessage(c *router.Context, msg discord.MessageCreate) error {
	if c.Client == nil {
		return nil
	}
	msg.MessageReference = &discord.MessageReference{MessageID: &c.Message.ID}
	msg.AllowedMentions = &discord.AllowedMentions{RepliedUser: false}
	if _, err := c.Client.Rest.CreateMessage(c.ChannelID(), msg); err != nil {
		return errors.WrapIfWithDetails(err, "sending reply", "channel_id", c.ChannelID())
	}
	return nil
}

func reply(c *router.Context, embed discord.Embed) error {
	return replyMessage(c, discord.MessageCreate{Embeds: []discord.Embed{embed}})
}

func replyText(c *router.Context, content string) error {
	return replyMessage(c, discord.MessageCreate{Content: content})
}

func react(c *router.Context, emoji string) error {
	if c.Client == nil {
		return nil
	}
	if err := c.Client.Rest.AddReaction(c.ChannelID(), c.Message.ID, emoji); err != nil {
		return errors.WrapIfWithDetails(err, "adding reaction", "emoji", emoji)
	}
	return nil
}

func isClearArg(arg string) bool {
	switch strings.ToLower(arg) {
	case "clear", "c", "reset", "r":
		return true
	}
	return false
}

// parseQueueArg reads the optional queue argument: a clear word or a page.
func parseQueueArg(arg string) (clearQueue bool, page int, err error) {
	if arg == "" {
		return false, 1, nil
	}
	if isClearArg(arg) {
		return true, 0, nil
	}
	page, err = strconv.Atoi(arg)
	if err != nil {
		return false, 0, errInvalidArgument
	}
	return false, page, nil
}

type skipMode int

const (
	skipNext skipMode = iota
	skipAll
	skipForce
)

func parseSkipArg(arg string) (skipMode, error) {
	switch strings.ToLower(arg) {
	case "":
		return skipNext, nil
	case "all", "a":
		return skipAll, nil
	case "force", "f":
		return skipForce, nil
	}
	return skipNext, errInvalidArgument
}

func parseVolume(arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errInvalidArgument
	}
	if v <= 0 || v >= 201 {
		return 0, music.ErrInvalidVolume
	}
	return v, nil
}
