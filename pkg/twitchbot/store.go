package twitchbot

import (
	"context"
	"encoding/json"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/s3client"
	"github.com/spicierbot/spicier/pkg/twitch"
)

const (
	storePrefix  = "twitch"
	storeTimeout = 10 * time.Second
)

type guildState struct {
	Subscriptions []twitch.Subscription `json:"subscriptions"`
}

func (b *Bot) loadGuild(guildID snowflake.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	subs, err := b.fetchGuild(ctx, guildID)
	if err != nil {
		b.Log.Error("Failed to load subscriptions", "guild_id", guildID, "error", err)
		return
	}
	b.mu.Lock()
	b.subs[guildID] = subs
	b.mu.Unlock()
	if len(subs) > 0 {
		b.Log.Info("Loaded subscriptions", "guild_id", guildID, "count", len(subs))
	}
}

// fetchGuild reads the stored subscriptions of a guild. A guild with nothing
// stored has none.
func (b *Bot) fetchGuild(ctx context.Context, guildID snowflake.ID) ([]twitch.Subscription, error) {
	data, err := b.S3.FetchGuildJSON(ctx, storePrefix, guildID.String())
	if errors.Is(err, s3client.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st guildState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.WrapIfWithDetails(err, "decoding subscriptions", "guild_id", guildID)
	}
	return st.Subscriptions, nil
}

func (b *Bot) saveGuild(ctx context.Context, guildID snowflake.ID, subs []twitch.Subscription) error {
	if len(subs) == 0 {
		return b.S3.DeleteGuildJSON(ctx, storePrefix, guildID.String())
	}
	data, err := json.Marshal(guildState{Subscriptions: subs})
	if err != nil {
		return errors.WrapIf(err, "encoding subscriptions")
	}
	return b.S3.SaveGuildJSON(ctx, storePrefix, guildID.String(), data)
}

func (b *Bot) saveAll(ctx context.Context) {
	b.mu.Lock()
	all := make(map[snowflake.ID][]twitch.Subscription, len(b.subs))
	for guildID, subs := range b.subs {
		all[guildID] = append([]twitch.Subscription(nil), subs...)
	}
	b.mu.Unlock()

	for guildID, subs := range all {
		if err := b.saveGuild(ctx, guildID, subs); err != nil {
			b.Log.Error("Failed to save subscriptions", "guild_id", guildID, "error", err)
		}
	}
}
