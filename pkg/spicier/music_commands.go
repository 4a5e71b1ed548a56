package spicier

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/router"
)

func (b *Bot) musicCommands() []*router.Command {
	user := []router.Check{b.authorInVoice}
	voice := []router.Check{b.sameVoice}
	player := []router.Check{b.playing}

	return []*router.Command{
		{Name: "connect", Aliases: []string{"join"}, Usage: "[channel]", Description: "Joins your voice channel or the given one.", Checks: user, Handler: b.connect},
		{Name: "disconnect", Aliases: []string{"leave"}, Description: "Clears the queue and leaves voice.", Checks: voice, Handler: b.disconnect},
		{Name: "play", Usage: "[query]", Description: "Plays a track or a playlist, or resumes playback.", Checks: user, Handler: b.play},
		{Name: "queue", Aliases: []string{"q"}, Usage: "[clear|page]", Description: "Shows or clears the queue.", Checks: player, Handler: b.queue},
		{Name: "clear", Aliases: []string{"reset"}, Description: "Clears the queue.", Checks: voice, Handler: b.clear},
		{Name: "skip", Aliases: []string{"s", "next"}, Usage: "[all|force]", Description: "Skips the current track.", Checks: player, Handler: b.skip},
		{Name: "skip_all", Aliases: []string{"as"}, Description: "Clears the queue and stops playback.", Checks: voice, Handler: b.skipAll},
		{Name: "force_skip", Aliases: []string{"fs"}, Description: "Stops the current track and plays the next one.", Checks: voice, Handler: b.forceSkip},
		{Name: "pause", Aliases: []string{"stop"}, Description: "Pauses playback.", Checks: voice, Handler: b.pause},
		{Name: "resume", Description: "Resumes playback.", Checks: voice, Handler: b.resume},
		{Name: "now_playing", Aliases: []string{"np"}, Description: "Shows the current track.", Checks: player, Handler: b.nowPlaying},
		{Name: "volume", Aliases: []string{"vol", "v"}, Usage: "[1-200]", Description: "Shows or sets the volume.", Checks: voice, Handler: b.volume},
		{Name: "seek", Usage: "<mm:ss|seconds>", Description: "Moves to a position in the current track.", Checks: player, Handler: b.seek},
		{
			Name:        "filter",
			Description: "Audio filter presets.",
			Subcommands: []*router.Command{
				{Name: "list", Description: "Lists the presets.", Handler: b.filterList},
				{Name: "set", Usage: "<mode>", Description: "Applies a preset.", Checks: player, Handler: b.filterSet},
				{Name: "reset", Aliases: []string{"clear"}, Description: "Removes the filter.", Checks: player, Handler: b.filterReset},
				{Name: "current", Aliases: []string{"show"}, Description: "Shows the active preset.", Checks: player, Handler: b.filterCurrent},
			},
		},
		{
			Name:        "playlist",
			Description: "Saved playlists.",
			Subcommands: []*router.Command{
				{Name: "save", Usage: "<name>", Description: "Saves the current track and the queue.", Checks: player, Handler: b.playlistSave},
				{Name: "load", Usage: "<name>", Description: "Queues a saved playlist.", Checks: user, Handler: b.playlistLoad},
				{Name: "list", Description: "Lists saved playlists.", Handler: b.playlistList},
				{Name: "delete", Usage: "<name>", Description: "Deletes a playlist you own.", Handler: b.playlistDelete},
			},
		},
	}
}

func (b *Bot) connect(c *router.Context) error {
	var target *snowflake.ID
	if arg := c.Arg(0); arg != "" {
		id, err := router.ParseChannel(arg)
		if err != nil {
			return err
		}
		target = &id
	}
	ch, err := b.Music.Connect(c, c.GuildID(), c.Author().ID, target)
	if err != nil {
		return err
	}
	return reply(c, connectedEmbed(c.Author(), b.voice.channelName(ch)))
}

func (b *Bot) disconnect(c *router.Context) error {
	ch, err := b.Music.Disconnect(c, c.GuildID())
	if err != nil {
		return err
	}
	b.idle.Stop(c.GuildID())
	return reply(c, disconnectedEmbed(c.Author(), b.voice.channelName(ch)))
}

func (b *Bot) play(c *router.Context) error {
	res, err := b.Music.Play(c, c.GuildID(), c.Author().ID, c.Rest)
	if err != nil {
		return err
	}
	switch {
	case res.Connected != nil:
		return reply(c, connectedEmbed(c.Author(), b.voice.channelName(*res.Connected)))
	case res.Resumed:
		return react(c, emojiResume)
	}
	return reply(c, playEmbed(c.Author(), b.guildName(c.GuildID()), res))
}

func (b *Bot) queue(c *router.Context) error {
	clearQueue, page, err := parseQueueArg(c.Arg(0))
	if err != nil {
		return err
	}
	if clearQueue {
		return b.clear(c)
	}
	st, err := b.Music.State(c.GuildID())
	if err != nil {
		return err
	}
	if len(st.Queue) == 0 {
		return reply(c, queueEmptyEmbed(c.Author()))
	}
	return reply(c, queueEmbed(c.Author(), b.guildName(c.GuildID()), st, page))
}

func (b *Bot) clear(c *router.Context) error {
	return reply(c, queueClearedEmbed(c.Author(), b.Music.Clear(c.GuildID())))
}

func (b *Bot) skip(c *router.Context) error {
	mode, err := parseSkipArg(c.Arg(0))
	if err != nil {
		return err
	}
	switch mode {
	case skipAll:
		return b.skipAll(c)
	case skipForce:
		return b.forceSkip(c)
	}

	prev, next, err := b.Music.Skip(c, c.GuildID())
	if err != nil {
		return err
	}
	return reply(c, skippedEmbed(c.Author(), b.guildName(c.GuildID()), prev, next, b.queueLen(c)))
}

func (b *Bot) skipAll(c *router.Context) error {
	n, err := b.Music.SkipAll(c, c.GuildID())
	if err != nil {
		return err
	}
	return reply(c, skipAllEmbed(c.Author(), n))
}

func (b *Bot) forceSkip(c *router.Context) error {
	prev, next, err := b.Music.ForceSkip(c, c.GuildID())
	if err != nil {
		return err
	}
	if prev == nil {
		prev = &music.Track{Title: "Nothing"}
	}
	return reply(c, skippedEmbed(c.Author(), b.guildName(c.GuildID()), *prev, next, b.queueLen(c)))
}

func (b *Bot) queueLen(c *router.Context) int {
	st, err := b.Music.State(c.GuildID())
	if err != nil {
		return 0
	}
	return len(st.Queue)
}

func (b *Bot) pause(c *router.Context) error {
	if err := b.Music.Pause(c, c.GuildID()); err != nil {
		return err
	}
	return react(c, emojiPause)
}

func (b *Bot) resume(c *router.Context) error {
	if err := b.Music.Resume(c, c.GuildID()); err != nil {
		return err
	}
	return react(c, emojiResume)
}

func (b *Bot) nowPlaying(c *router.Context) error {
	st, err := b.Music.State(c.GuildID())
	if err != nil {
		return err
	}
	return reply(c, nowPlayingEmbed(c.Author(), b.guildName(c.GuildID()), st))
}

func (b *Bot) volume(c *router.Context) error {
	arg := c.Arg(0)
	if arg == "" {
		return reply(c, volumeEmbed(c.Author(), b.Music.Volume(c.GuildID()), false))
	}
	v, err := parseVolume(arg)
	if err != nil {
		return err
	}
	if err := b.Music.SetVolume(c, c.GuildID(), v); err != nil {
		return err
	}
	return reply(c, volumeEmbed(c.Author(), v, true))
}

func (b *Bot) seek(c *router.Context) error {
	arg := c.Arg(0)
	if arg == "" {
		return &router.MissingArgumentError{Name: "time"}
	}
	prev, pos, err := b.Music.Seek(c, c.GuildID(), arg)
	if err != nil {
		return err
	}
	st, err := b.Music.State(c.GuildID())
	if err != nil || st.Current == nil {
		return err
	}
	return reply(c, seekEmbed(c.Author(), prev, pos, *st.Current))
}

func (b *Bot) filterList(c *router.Context) error {
	return reply(c, filterListEmbed(c.Author()))
}

func (b *Bot) filterSet(c *router.Context) error {
	mode := c.Arg(0)
	if mode == "" {
		return &router.MissingArgumentError{Name: "mode"}
	}
	f, err := b.Music.SetFilter(c, c.GuildID(), mode)
	if err != nil {
		return err
	}
	return reply(c, filterSetEmbed(c.Author(), f))
}

func (b *Bot) filterReset(c *router.Context) error {
	if err := b.Music.ResetFilter(c, c.GuildID()); err != nil {
		return err
	}
	return reply(c, filterClearedEmbed(c.Author()))
}

func (b *Bot) filterCurrent(c *router.Context) error {
	return reply(c, filterCurrentEmbed(c.Author(), b.Music.CurrentFilter(c.GuildID())))
}
