package logbot

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/guilds"
	"github.com/spicierbot/spicier/pkg/logging"
	"github.com/spicierbot/spicier/pkg/router"
	"github.com/spicierbot/spicier/pkg/s3client"
)

const (
	// Name is the bot name used for metrics and the cache snapshot key.
	Name = "logbot"

	commandPrefix  = "!"
	messageCacheSz = 100_000
	snapshotEvery  = 5 * time.Minute
)

// Bot records message deletions and edits.
type Bot struct {
	*botutil.BaseBot
	Logging *logging.Logging
	DB      *database.DB
	Guilds  *guilds.Manager
	S3      *s3client.Client
	Router  *router.Router

	name     string
	msgCache *cappedCache[discord.Message]
}

func New(ctx context.Context, cfg config.Config, logs *logging.Logging) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := botutil.NewBaseBot(Name, cfg, logs.Logger)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		BaseBot:  base,
		Logging:  logs,
		name:     Name,
		msgCache: newCappedCache[discord.Message](messageCacheSz),
	}

	if _, err := botutil.InitSentry(cfg.Sentry); err != nil {
		return nil, err
	}
	b.S3, err = s3client.New(cfg.S3, b.Log)
	if err != nil {
		return nil, err
	}
	b.DB, err = database.Open(ctx, cfg.Database, b.Log)
	if err != nil {
		return nil, err
	}
	if _, err := b.DB.Migrate(true); err != nil {
		b.DB.Close()
		return nil, err
	}
	b.Guilds = guilds.New(b.DB, commandPrefix, b.Log)
	b.Router = router.New(func(context.Context, snowflake.ID) (string, error) {
		return commandPrefix, nil
	}, b.Log)

	if err := b.loadMessageCache(ctx); err != nil {
		b.Log.Error("Failed to load message cache", "error", err)
	}

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithLogger(logs.Library),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles, cache.FlagMembers, cache.FlagMessages),
			cache.WithMessageCache(cache.NewMessageCache(b.msgCache)),
		),
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListenerFunc(b.OnReady),
		bot.WithEventListenerFunc(b.Router.OnMessageCreate),
		bot.WithEventListenerFunc(b.Router.OnMessageUpdate),
		bot.WithEventListenerFunc(b.onMessageDelete),
		bot.WithEventListenerFunc(b.onMessageUpdate),
	)
	if err != nil {
		b.DB.Close()
		return nil, errors.WrapIf(err, "creating discord client")
	}
	b.Client = client

	b.Router.SetSelfID(client.ApplicationID)
	b.Router.SetPermissions(func(c *router.Context) discord.Permissions {
		member, ok := c.Client.Caches.Member(c.GuildID(), c.Author().ID)
		if !ok {
			return 0
		}
		return c.Client.Caches.MemberPermissions(member)
	})
	b.Router.BeforeInvoke(func(c *router.Context) { b.Metrics.CommandRun(c, c.Path) })
	b.Router.OnError(b.onCommandError)
	b.Router.Add(b.commands()...)
	return b, nil
}

func (b *Bot) Run(ctx context.Context) error {
	if err := b.Client.OpenGateway(ctx); err != nil {
		return errors.WrapIf(err, "opening gateway")
	}
	defer b.Client.Close(context.Background())

	go b.ServeMetrics(ctx)
	go botutil.RunLoop(ctx, &b.Ready, 30*time.Second, func(context.Context) { b.PingHealthcheck() })
	go botutil.RunLoop(ctx, &b.Ready, snapshotEvery, func(ctx context.Context) {
		if err := b.saveMessageCache(ctx); err != nil {
			b.Log.Error("Failed to save message cache", "error", err)
		}
	})

	<-ctx.Done()
	b.Log.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.saveMessageCache(shutdownCtx); err != nil {
		b.Log.Error("Failed to save message cache", "error", err)
	}
	if err := b.Guilds.Close(); err != nil {
		b.Log.Warn("Failed to close guild cache", "error", err)
	}
	if err := b.Metrics.Shutdown(shutdownCtx); err != nil {
		b.Log.Warn("Failed to shut down metrics", "error", err)
	}
	botutil.FlushSentry()
	return b.DB.Close()
}
