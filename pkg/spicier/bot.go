package spicier

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/guilds"
	"github.com/spicierbot/spicier/pkg/idle"
	"github.com/spicierbot/spicier/pkg/logging"
	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/router"
)

// Options are the settings that reload config can change at runtime.
type Options struct {
	DeleteAfter bool
	DeleteDelay time.Duration
	LeaveDelay  time.Duration
}

func optionsFrom(cfg config.Config) Options {
	return Options{
		DeleteAfter: cfg.DeleteAfter,
		DeleteDelay: cfg.DeleteDelay(),
		LeaveDelay:  cfg.LeaveDelay(),
	}
}

// Bot is the music bot.
type Bot struct {
	*botutil.BaseBot
	Logging  *logging.Logging
	DB       *database.DB
	Guilds   *guilds.Manager
	Router   *router.Router
	Music    *music.Service
	Lavalink *music.Lavalink

	voice voiceCache
	idle  *idle.Tracker

	optsMu sync.RWMutex
	opts   Options

	treeMu sync.Mutex
	trees  map[snowflake.ID][]discord.ApplicationCommandCreate
}

// New wires the bot together in setup order: sentry, database, guild
// settings, the Discord client, Lavalink, handlers and commands. Nodes are
// connected by Run once the gateway is open.
func New(ctx context.Context, cfg config.Config, logs *logging.Logging) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Lavalink.Validate(); err != nil {
		return nil, err
	}

	base, err := botutil.NewBaseBot("spicier", cfg, logs.Logger)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		BaseBot: base,
		Logging: logs,
		opts:    optionsFrom(cfg),
		trees:   make(map[snowflake.ID][]discord.ApplicationCommandCreate),
	}

	if enabled, err := botutil.InitSentry(cfg.Sentry); err != nil {
		return nil, err
	} else if enabled {
		b.Log.Info("Sentry error reporting enabled")
	}

	b.DB, err = database.Open(ctx, cfg.Database, b.Log)
	if err != nil {
		return nil, err
	}
	n, err := b.DB.Migrate(true)
	if err != nil {
		b.DB.Close()
		return nil, err
	}
	b.Log.Info("Database ready", "migrations_applied", n)

	b.Guilds = guilds.New(b.DB, cfg.Prefix, b.Log)
	b.Router = router.New(b.Guilds.Prefix, b.Log)

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithLogger(logs.Library),
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
				gateway.IntentGuildMembers,
				gateway.IntentGuildVoiceStates,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(
				cache.FlagGuilds,
				cache.FlagChannels,
				cache.FlagRoles,
				cache.FlagMembers,
				cache.FlagVoiceStates,
				cache.FlagMessages,
			),
		),
		bot.WithEventListenerFunc(b.OnReady),
		bot.WithEventListenerFunc(b.Router.OnMessageCreate),
		bot.WithEventListenerFunc(b.Router.OnMessageUpdate),
		bot.WithEventListenerFunc(b.onVoiceStateUpdate),
		bot.WithEventListenerFunc(b.onVoiceServerUpdate),
		bot.WithEventListenerFunc(b.onSlashCommand),
	)
	if err != nil {
		b.DB.Close()
		return nil, errors.WrapIf(err, "creating discord client")
	}
	b.Client = client
	b.voice = &discordVoice{client: client}

	b.Lavalink = music.NewLavalink(client.ApplicationID, b.Log,
		disgolink.WithListenerFunc(b.onTrackEnd),
		disgolink.WithListenerFunc(b.onTrackException),
		disgolink.WithListenerFunc(b.onTrackStuck),
	)
	b.Music = music.NewService(b.Lavalink, b.voice, b.Metrics, b.Log)
	b.idle = idle.NewTracker(b.opts.LeaveDelay, b.leaveIfAlone)

	b.Router.SetSelfID(client.ApplicationID)
	b.Router.SetPermissions(b.memberPermissions)
	b.Router.OnError(b.onCommandError)
	b.Router.BeforeInvoke(b.beforeInvoke)
	b.Router.Add(b.commands()...)
	return b, nil
}

// Run connects to Discord and the Lavalink nodes and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Client.OpenGateway(ctx); err != nil {
		return errors.WrapIf(err, "opening gateway")
	}
	defer b.Client.Close(context.Background())

	if err := b.Lavalink.AddNodes(ctx, b.Config.Lavalink.Nodes); err != nil {
		return err
	}

	go b.ServeMetrics(ctx)
	go botutil.RunLoop(ctx, &b.Ready, 30*time.Second, func(context.Context) { b.PingHealthcheck() })

	<-ctx.Done()
	b.Log.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.idle.Close()
	b.Music.Close(shutdownCtx)
	b.Lavalink.Close()
	if err := b.Guilds.Close(); err != nil {
		b.Log.Warn("Failed to close guild cache", "error", err)
	}
	if err := b.Metrics.Shutdown(shutdownCtx); err != nil {
		b.Log.Warn("Failed to shut down metrics", "error", err)
	}
	botutil.FlushSentry()
	return b.DB.Close()
}

func (b *Bot) options() Options {
	b.optsMu.RLock()
	defer b.optsMu.RUnlock()
	return b.opts
}

func (b *Bot) setOptions(o Options) {
	b.optsMu.Lock()
	b.opts = o
	b.optsMu.Unlock()
	b.idle.SetDelay(o.LeaveDelay)
}

func (b *Bot) beforeInvoke(c *router.Context) {
	b.Metrics.CommandRun(c, c.Path)
}

func (b *Bot) memberPermissions(c *router.Context) discord.Permissions {
	if c.Client == nil {
		return 0
	}
	member, ok := c.Client.Caches.Member(c.GuildID(), c.Author().ID)
	if !ok {
		return 0
	}
	return c.Client.Caches.MemberPermissions(member)
}

func (b *Bot) guildName(guildID snowflake.ID) string {
	if g, ok := b.Client.Caches.Guild(guildID); ok {
		return g.Name
	}
	return guildID.String()
}
