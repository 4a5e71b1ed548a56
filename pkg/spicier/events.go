package spicier

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/music"
)

const eventTimeout = 10 * time.Second

// aloneMembers is the member count of the bot's channel, bot included, at or
// below which a user leaving arms the leave timer.
const aloneMembers = 2

type voiceChange int

const (
	voiceUnchanged voiceChange = iota
	// voiceRejoined: a user joined the bot's channel.
	voiceRejoined
	// voiceLeft: a user left the bot's channel and few enough remain.
	voiceLeft
	// botJoinedAlone: the bot moved into a channel with nobody else in it.
	botJoinedAlone
	botDisconnected
)

// userVoiceChange classifies a user moving from oldCh to newCh while the bot
// sits in botCh, which now holds members people.
func userVoiceChange(oldCh, newCh *snowflake.ID, botCh snowflake.ID, members int) voiceChange {
	joined := newCh != nil && *newCh == botCh
	left := oldCh != nil && *oldCh == botCh && !joined
	switch {
	case joined && (oldCh == nil || *oldCh != botCh):
		return voiceRejoined
	case left && members <= aloneMembers:
		return voiceLeft
	}
	return voiceUnchanged
}

// botVoiceChange classifies the bot's own voice update.
func botVoiceChange(newCh *snowflake.ID, members int) voiceChange {
	switch {
	case newCh == nil:
		return botDisconnected
	case members <= 1:
		return botJoinedAlone
	}
	return voiceUnchanged
}

func (b *Bot) onVoiceStateUpdate(e *events.GuildVoiceStateUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	state := e.VoiceState
	if state.UserID == b.Client.ApplicationID {
		b.Lavalink.Client().OnVoiceStateUpdate(ctx, state.GuildID, state.ChannelID, state.SessionID)
		var members int
		if state.ChannelID != nil {
			members = b.voice.Members(state.GuildID, *state.ChannelID)
		}
		b.applyVoiceChange(ctx, state.GuildID, botVoiceChange(state.ChannelID, members))
		return
	}

	botCh, ok := b.voice.BotChannel(state.GuildID)
	if !ok {
		return
	}
	change := userVoiceChange(e.OldVoiceState.ChannelID, state.ChannelID, botCh, b.voice.Members(state.GuildID, botCh))
	if change == voiceLeft {
		b.Log.Debug("User left the bot's voice channel", "guild_id", state.GuildID, "user_id", state.UserID)
	}
	b.applyVoiceChange(ctx, state.GuildID, change)
}

func (b *Bot) applyVoiceChange(ctx context.Context, guildID snowflake.ID, change voiceChange) {
	switch change {
	case voiceRejoined:
		b.idle.Joined(guildID)
	case voiceLeft, botJoinedAlone:
		b.idle.Alone(guildID)
	case botDisconnected:
		b.idle.Stop(guildID)
		b.Music.BotDisconnected(ctx, guildID)
	}
}

func (b *Bot) onVoiceServerUpdate(e *events.VoiceServerUpdate) {
	if e.Endpoint == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	b.Lavalink.Client().OnVoiceServerUpdate(ctx, e.GuildID, e.Token, *e.Endpoint)
}

// leaveIfAlone is the idle tracker's callback. It returns false while
// someone is still listening, so the timer waits to be armed again.
func (b *Bot) leaveIfAlone(guildID snowflake.ID) bool {
	ch, ok := b.voice.BotChannel(guildID)
	if !ok {
		return true
	}
	if b.voice.Members(guildID, ch) > 1 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if _, err := b.Music.Disconnect(ctx, guildID); err != nil {
		b.Log.Warn("Failed to leave idle voice channel", "guild_id", guildID, "error", err)
		return true
	}
	b.Log.Info("Left voice channel after being alone", "guild_id", guildID, "channel_id", ch)
	return true
}

func (b *Bot) onTrackEnd(p disgolink.Player, e lavalink.TrackEndEvent) {
	b.advance(p.GuildID(), e.Track.Encoded, e.Reason.MayStartNext())
}

func (b *Bot) onTrackException(p disgolink.Player, e lavalink.TrackExceptionEvent) {
	b.Log.Error("Track exception",
		"guild_id", p.GuildID(),
		"title", e.Track.Info.Title,
		"message", e.Exception.Message,
		"severity", e.Exception.Severity,
	)
	b.advance(p.GuildID(), e.Track.Encoded, true)
}

func (b *Bot) onTrackStuck(p disgolink.Player, e lavalink.TrackStuckEvent) {
	b.Log.Warn("Track stuck", "guild_id", p.GuildID(), "title", e.Track.Info.Title)
	b.advance(p.GuildID(), e.Track.Encoded, true)
}

// advance starts the next queued track after encoded finished and
// announces it in the music channel.
func (b *Bot) advance(guildID snowflake.ID, encoded string, mayStartNext bool) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	next, err := b.Music.TrackEnded(ctx, guildID, encoded, mayStartNext)
	if err != nil {
		b.Log.Error("Failed to start next track", "guild_id", guildID, "error", err)
		return
	}
	if next != nil {
		b.announce(ctx, guildID, *next)
	}
}

func (b *Bot) announce(ctx context.Context, guildID snowflake.ID, t music.Track) {
	ch, err := b.Guilds.MusicChannel(ctx, guildID)
	if err != nil {
		b.Log.Warn("Failed to read music channel", "guild_id", guildID, "error", err)
		return
	}
	if ch == nil {
		return
	}
	var queued int
	if st, err := b.Music.State(guildID); err == nil {
		queued = len(st.Queue)
	}
	msg := discord.MessageCreate{Embeds: []discord.Embed{announceEmbed(b.guildName(guildID), t, queued)}}
	if _, err := botutil.PostWithRetry(b.Client.Rest, *ch, msg, b.Log); err != nil {
		b.Log.Warn("Failed to announce track", "guild_id", guildID, "channel_id", *ch, "error", err)
	}
}
