package twitchbot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/twitch"
)

const colorTwitch = 0x9146FF

// poll fetches the live state of every subscribed login, announces new live
// sessions and saves the guilds whose state changed.
func (b *Bot) poll(ctx context.Context) {
	b.mu.Lock()
	lists := make([][]twitch.Subscription, 0, len(b.subs))
	for _, subs := range b.subs {
		lists = append(lists, subs)
	}
	logins := twitch.Logins(lists...)
	b.mu.Unlock()

	if len(logins) == 0 {
		return
	}
	live, err := b.Twitch.Streams(ctx, logins)
	if err != nil {
		b.Log.Error("Failed to fetch streams", "logins", len(logins), "error", err)
		return
	}
	b.Log.Debug("Polled streams", "logins", len(logins), "live", len(live))

	type guildUpdate struct {
		guildID  snowflake.ID
		subs     []twitch.Subscription
		announce []twitch.Announcement
	}
	var updates []guildUpdate
	b.mu.Lock()
	for guildID, subs := range b.subs {
		next, announce, changed := twitch.Advance(subs, live)
		if !changed {
			continue
		}
		b.subs[guildID] = next
		updates = append(updates, guildUpdate{guildID, append([]twitch.Subscription(nil), next...), announce})
	}
	b.mu.Unlock()

	for _, u := range updates {
		for _, a := range u.announce {
			b.announce(ctx, u.guildID, a)
		}
		if err := b.saveGuild(ctx, u.guildID, u.subs); err != nil {
			b.Log.Error("Failed to save subscriptions", "guild_id", u.guildID, "error", err)
		}
	}
}

func (b *Bot) announce(ctx context.Context, guildID snowflake.ID, a twitch.Announcement) {
	if b.poster == nil {
		return
	}
	_, err := botutil.PostWithRetry(b.poster, a.ChannelID, discord.MessageCreate{
		Content: fmt.Sprintf("**%s** is live! %s", displayName(a.Stream), a.Stream.URL()),
		Embeds:  []discord.Embed{liveEmbed(a.Stream)},
	}, b.Log)
	if err != nil {
		b.Log.Error("Failed to announce stream", "guild_id", guildID, "channel_id", a.ChannelID, "login", a.Login, "error", err)
		return
	}
	b.Metrics.NotificationSent(ctx)
	b.Log.Info("Announced stream", "guild_id", guildID, "channel_id", a.ChannelID, "login", a.Login, "stream_id", a.Stream.ID)
}

func displayName(s twitch.Stream) string {
	if s.UserName != "" {
		return s.UserName
	}
	return s.UserLogin
}

func liveEmbed(s twitch.Stream) discord.Embed {
	e := discord.Embed{
		Title: s.Title,
		URL:   s.URL(),
		Color: colorTwitch,
		Author: &discord.EmbedAuthor{
			Name: displayName(s) + " is live on Twitch",
			URL:  s.URL(),
		},
		Fields: []discord.EmbedField{
			{Name: "Viewers", Value: humanize.Comma(int64(s.ViewerCount)), Inline: boolPtr(true)},
		},
	}
	if e.Title == "" {
		e.Title = s.URL()
	}
	if s.GameName != "" {
		e.Fields = append([]discord.EmbedField{{Name: "Game", Value: s.GameName, Inline: boolPtr(true)}}, e.Fields...)
	}
	if s.ThumbnailURL != "" {
		e.Image = &discord.EmbedResource{URL: s.Thumbnail(440, 248)}
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		e.Timestamp = &started
	}
	return e
}

func boolPtr(v bool) *bool { return &v }
