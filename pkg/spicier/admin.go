package spicier

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/router"
)

const maxPrefixLen = 10

// Reloadable modules, in reload order.
var reloadModules = []string{"config", "settings"}

func (b *Bot) prefixCommand() *router.Command {
	return &router.Command{
		Name:        "prefix",
		Description: "Shows or changes the server prefix.",
		Checks:      []router.Check{router.RequirePermissions(discord.PermissionAdministrator)},
		Subcommands: []*router.Command{
			{Name: "set", Usage: "<prefix>", Description: "Changes the prefix.", Handler: b.prefixSet},
			{Name: "reset", Aliases: []string{"clear"}, Description: "Goes back to the default prefix.", Handler: b.prefixReset},
			{Name: "get", Aliases: []string{"show"}, Description: "Shows the prefix.", Handler: b.prefixGet},
		},
	}
}

func (b *Bot) adminCommand() *router.Command {
	return &router.Command{
		Name:        "admin",
		Aliases:     []string{"a"},
		Description: "Bot owner tools.",
		Checks:      []router.Check{router.OwnerOnly(b.Config.Discord.IsOwner)},
		Subcommands: []*router.Command{
			{Name: "reload", Aliases: []string{"r"}, Usage: "[modules...]", Description: "Reloads config and cached settings.", Handler: b.reload},
			{Name: "sync", Usage: "[guild ids...] [~|*|^]", Description: "Syncs slash commands.", Handler: b.syncTree},
			{Name: "cache", Description: "Shows cached guild settings.", Handler: b.cache},
			{Name: "stats", Description: "Shows process statistics.", Handler: b.stats},
		},
	}
}

func (b *Bot) prefixSet(c *router.Context) error {
	prefix := c.Arg(0)
	if prefix == "" {
		return &router.MissingArgumentError{Name: "prefix"}
	}
	if utf8.RuneCountInString(prefix) > maxPrefixLen {
		return replyText(c, "Prefixes can only be 10 characters long.")
	}
	if err := b.Guilds.SetPrefix(c, c.GuildID(), prefix); err != nil {
		return err
	}
	return reply(c, successEmbed(c.Author(), "Prefix", fmt.Sprintf("Prefix set to `%s`", prefix), ""))
}

func (b *Bot) prefixReset(c *router.Context) error {
	prefix := b.Guilds.DefaultPrefix()
	if err := b.Guilds.SetPrefix(c, c.GuildID(), prefix); err != nil {
		return err
	}
	return reply(c, successEmbed(c.Author(), "Prefix", fmt.Sprintf("Prefix reset to `%s`", prefix), ""))
}

func (b *Bot) prefixGet(c *router.Context) error {
	prefix, err := b.Guilds.Prefix(c, c.GuildID())
	if err != nil {
		return err
	}
	return reply(c, successEmbed(c.Author(), "Prefix", fmt.Sprintf("Current prefix is `%s`", prefix), ""))
}

// parseReloadArgs returns the modules to reload; none means all of them.
func parseReloadArgs(args []string) ([]string, error) {
	if len(args) == 0 {
		return reloadModules, nil
	}
	modules := make([]string, 0, len(args))
	for _, arg := range args {
		name := strings.ToLower(arg)
		if !slices.Contains(reloadModules, name) {
			return nil, &router.ArgumentError{Msg: "Module with given name does not exist."}
		}
		if !slices.Contains(modules, name) {
			modules = append(modules, name)
		}
	}
	return modules, nil
}

func (b *Bot) reload(c *router.Context) error {
	modules, err := parseReloadArgs(c.Args)
	if err != nil {
		return err
	}
	var reloaded int
	for _, module := range modules {
		if err := b.reloadModule(module); err != nil {
			b.Log.Error("Failed to reload module", "module", module, "error", err)
			continue
		}
		b.Log.Info("Reloaded module", "module", module)
		reloaded++
	}
	if reloaded == 0 {
		return react(c, emojiFailed)
	}
	return react(c, emojiOK)
}

func (b *Bot) reloadModule(module string) error {
	switch module {
	case "settings":
		return b.Guilds.Purge()
	case "config":
		cfg, err := config.Load(b.Config.Path)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		b.Guilds.SetDefaultPrefix(cfg.Prefix)
		b.setOptions(optionsFrom(cfg))
		return nil
	}
	return errors.Errorf("unknown module %q", module)
}

type syncScope int

const (
	syncGlobal syncScope = iota
	syncGuilds
	syncCurrent // ~
	syncCopy    // *
	syncClear   // ^
)

func parseSyncArgs(args []string) (syncScope, []snowflake.ID, error) {
	if len(args) == 0 {
		return syncGlobal, nil, nil
	}
	if len(args) == 1 {
		switch args[0] {
		case "~":
			return syncCurrent, nil, nil
		case "*":
			return syncCopy, nil, nil
		case "^":
			return syncClear, nil, nil
		}
	}
	ids := make([]snowflake.ID, 0, len(args))
	for _, arg := range args {
		id, err := snowflake.Parse(arg)
		if err != nil {
			return 0, nil, &router.ArgumentError{Msg: "Invalid guild id."}
		}
		ids = append(ids, id)
	}
	return syncGuilds, ids, nil
}

func (b *Bot) guildTree(guildID snowflake.ID) []discord.ApplicationCommandCreate {
	b.treeMu.Lock()
	defer b.treeMu.Unlock()
	return slices.Clone(b.trees[guildID])
}

func (b *Bot) setGuildTree(guildID snowflake.ID, cmds []discord.ApplicationCommandCreate) {
	b.treeMu.Lock()
	defer b.treeMu.Unlock()
	if len(cmds) == 0 {
		delete(b.trees, guildID)
		return
	}
	b.trees[guildID] = slices.Clone(cmds)
}

func (b *Bot) syncGuild(guildID snowflake.ID) (int, error) {
	tree := b.guildTree(guildID)
	if _, err := botutil.SyncCommands(b.Client.Rest, b.Client.ApplicationID, tree, b.Log, guildID); err != nil {
		return 0, err
	}
	return len(tree), nil
}

func (b *Bot) syncTree(c *router.Context) error {
	scope, ids, err := parseSyncArgs(c.Args)
	if err != nil {
		return err
	}

	switch scope {
	case syncGuilds:
		var synced int
		for _, id := range ids {
			if _, err := b.syncGuild(id); err != nil {
				b.Log.Warn("Failed to sync guild tree", "guild_id", id, "error", err)
				continue
			}
			synced++
		}
		return replyText(c, fmt.Sprintf("Synced the tree to %d/%d.", synced, len(ids)))
	case syncGlobal:
		cmds := slashCommands()
		if _, err := botutil.SyncCommands(b.Client.Rest, b.Client.ApplicationID, cmds, b.Log); err != nil {
			return err
		}
		return replyText(c, fmt.Sprintf("Synced %d commands globally", len(cmds)))
	case syncCopy:
		b.setGuildTree(c.GuildID(), slashCommands())
	case syncClear:
		b.setGuildTree(c.GuildID(), nil)
	}

	n, err := b.syncGuild(c.GuildID())
	if err != nil {
		return err
	}
	return replyText(c, fmt.Sprintf("Synced %d commands to the current guild.", n))
}

func (b *Bot) cache(c *router.Context) error {
	keys := b.Guilds.Keys()
	lines := make([]string, 0, len(keys))
	for _, id := range keys {
		s, ok := b.Guilds.Cached(id)
		if !ok {
			continue
		}
		line := fmt.Sprintf("`%s` prefix `%s`", id, s.Prefix)
		if s.MusicChannelID != nil {
			line += " music " + channelMention(*s.MusicChannelID)
		}
		if s.LogChannelID != nil {
			line += " log " + channelMention(*s.LogChannelID)
		}
		lines = append(lines, line)
	}
	desc := strings.Join(lines, "\n")
	if desc == "" {
		desc = "Nothing cached."
	}
	return reply(c, successEmbed(c.Author(), "Cache", fmt.Sprintf("**%d** cached guilds", len(keys)), desc))
}

func (b *Bot) stats(c *router.Context) error {
	return reply(c, b.statsEmbed(c, c.Author()))
}

func (b *Bot) statsEmbed(ctx context.Context, user discord.User) discord.Embed {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	system := "unknown"
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		system = fmt.Sprintf("%s / %s (%.1f%%)", humanize.Bytes(vm.Used), humanize.Bytes(vm.Total), vm.UsedPercent)
	}
	load := "unknown"
	if pct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(pct) > 0 {
		load = fmt.Sprintf("%.1f%%", pct[0])
	}

	var guildCount int
	if b.Client != nil {
		guildCount = b.Client.Caches.GuildsLen()
	}

	e := successEmbed(user, "Statistics", "Spicier", "")
	e.Fields = []discord.EmbedField{
		{Name: "Uptime", Value: fmt.Sprintf("%s\n(since <t:%d:f>)", strings.TrimSpace(humanize.RelTime(b.Started, time.Now(), "", "")), b.Started.Unix()), Inline: boolPtr(true)},
		{Name: "Memory", Value: fmt.Sprintf("%s / %s", humanize.Bytes(ms.Alloc), humanize.Bytes(ms.Sys)), Inline: boolPtr(true)},
		{Name: "System memory", Value: system, Inline: boolPtr(true)},
		{Name: "CPU", Value: load, Inline: boolPtr(true)},
		{Name: "Goroutines", Value: humanize.Comma(int64(runtime.NumGoroutine())), Inline: boolPtr(true)},
		{Name: "Guilds", Value: humanize.Comma(int64(guildCount)), Inline: boolPtr(true)},
		{Name: "Players", Value: humanize.Comma(int64(b.Music.Players())), Inline: boolPtr(true)},
	}
	e.Footer = &discord.EmbedFooter{Text: fmt.Sprintf("%s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)}
	return e
}
