package twitchbot

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/logging"
	"github.com/spicierbot/spicier/pkg/s3client"
	"github.com/spicierbot/spicier/pkg/twitch"
)

const Name = "twitchbot"

// StreamFetcher returns the live streams among logins.
type StreamFetcher interface {
	Streams(ctx context.Context, logins []string) (map[string]twitch.Stream, error)
}

// Bot announces Twitch streams going live.
type Bot struct {
	*botutil.BaseBot
	Logging *logging.Logging
	S3      *s3client.Client
	Twitch  StreamFetcher

	// poster sends announcements, b.Client.Rest unless replaced.
	poster botutil.MessageCreator

	mu   sync.Mutex
	subs map[snowflake.ID][]twitch.Subscription
}

func New(ctx context.Context, cfg config.Config, logs *logging.Logging) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Twitch.Validate(); err != nil {
		return nil, err
	}
	base, err := botutil.NewBaseBot(Name, cfg, logs.Logger)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		BaseBot: base,
		Logging: logs,
		Twitch:  twitch.New(cfg.Twitch, base.Log),
		subs:    make(map[snowflake.ID][]twitch.Subscription),
	}

	if _, err := botutil.InitSentry(cfg.Sentry); err != nil {
		return nil, err
	}
	b.S3, err = s3client.New(cfg.S3, b.Log)
	if err != nil {
		return nil, err
	}

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithLogger(logs.Library),
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds),
		),
		bot.WithEventListenerFunc(b.OnReady),
		bot.WithEventListenerFunc(b.onGuildReady),
		bot.WithEventListenerFunc(b.onGuildJoin),
		bot.WithEventListenerFunc(b.onGuildLeave),
		bot.WithEventListenerFunc(b.onCommand),
	)
	if err != nil {
		return nil, errors.WrapIf(err, "creating discord client")
	}
	b.Client = client
	b.poster = client.Rest
	return b, nil
}

func (b *Bot) Run(ctx context.Context) error {
	if err := b.Client.OpenGateway(ctx); err != nil {
		return errors.WrapIf(err, "opening gateway")
	}
	defer b.Client.Close(context.Background())

	if _, err := botutil.SyncCommands(b.Client.Rest, b.Client.ApplicationID, commands(), b.Log); err != nil {
		return err
	}

	go b.ServeMetrics(ctx)
	go botutil.RunLoop(ctx, &b.Ready, 30*time.Second, func(context.Context) { b.PingHealthcheck() })
	go botutil.RunLoop(ctx, &b.Ready, b.Config.Twitch.PollInterval, b.poll)

	b.Log.Info("Twitchbot is running.", "poll_interval", b.Config.Twitch.PollInterval)
	<-ctx.Done()
	b.Log.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b.saveAll(shutdownCtx)
	if err := b.Metrics.Shutdown(shutdownCtx); err != nil {
		b.Log.Warn("Failed to shut down metrics", "error", err)
	}
	botutil.FlushSentry()
	return nil
}

func (b *Bot) onGuildReady(e *events.GuildReady) { b.loadGuild(e.GuildID) }
func (b *Bot) onGuildJoin(e *events.GuildJoin)   { b.loadGuild(e.GuildID) }

// onGuildLeave forgets the guild in memory. Its stored subscriptions are
// kept in case the bot is added back.
func (b *Bot) onGuildLeave(e *events.GuildLeave) {
	b.mu.Lock()
	delete(b.subs, e.GuildID)
	b.mu.Unlock()
}
