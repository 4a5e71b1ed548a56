package spicier

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/music"
)

type voiceCache interface {
	music.Voice
	channelName(channelID snowflake.ID) string
}

// discordVoice reads voice state from the gateway cache and moves the bot
// with voice state updates.
type discordVoice struct {
	client *bot.Client
}

func (v *discordVoice) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	return v.client.UpdateVoiceState(ctx, guildID, &channelID, false, true)
}

func (v *discordVoice) Leave(ctx context.Context, guildID snowflake.ID) error {
	return v.client.UpdateVoiceState(ctx, guildID, nil, false, false)
}

func (v *discordVoice) BotChannel(guildID snowflake.ID) (snowflake.ID, bool) {
	return v.UserChannel(guildID, v.client.ApplicationID)
}

func (v *discordVoice) UserChannel(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	state, ok := v.client.Caches.VoiceState(guildID, userID)
	if !ok || state.ChannelID == nil {
		return 0, false
	}
	return *state.ChannelID, true
}

func (v *discordVoice) Members(guildID, channelID snowflake.ID) int {
	var n int
	for state := range v.client.Caches.VoiceStates(guildID) {
		if state.ChannelID != nil && *state.ChannelID == channelID {
			n++
		}
	}
	return n
}

func (v *discordVoice) ChannelInGuild(guildID, channelID snowflake.ID) bool {
	ch, ok := v.client.Caches.Channel(channelID)
	return ok && ch.GuildID() == guildID
}

// channelName is the cached name of a channel, or its id.
func (v *discordVoice) channelName(channelID snowflake.ID) string {
	if ch, ok := v.client.Caches.Channel(channelID); ok {
		return ch.Name()
	}
	return channelID.String()
}
