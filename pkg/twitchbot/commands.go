package twitchbot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/twitch"
)

const (
	cmdTwitch = "twitch"
	subAdd    = "add"
	subRemove = "remove"
	subList   = "list"

	optLogin   = "login"
	optChannel = "channel"

	maxSubscriptions = 50
)

// errUser is a failed command whose message is shown as is.
type errUser string

func (e errUser) Error() string { return string(e) }

func commands() []discord.ApplicationCommandCreate {
	login := discord.ApplicationCommandOptionString{
		Name:        optLogin,
		Description: "Twitch login, as in twitch.tv/<login>",
		Required:    true,
	}
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:                     cmdTwitch,
			Description:              "Manage Twitch live notifications",
			DefaultMemberPermissions: omit.NewPtr(discord.PermissionManageGuild),
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionSubCommand{
					Name:        subAdd,
					Description: "Announce a Twitch channel going live",
					Options: []discord.ApplicationCommandOption{
						login,
						discord.ApplicationCommandOptionChannel{
							Name:         optChannel,
							Description:  "Where to post announcements",
							Required:     true,
							ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews},
						},
					},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        subRemove,
					Description: "Stop announcing a Twitch channel",
					Options:     []discord.ApplicationCommandOption{login},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        subList,
					Description: "List the Twitch channels announced in this server",
				},
			},
		},
	}
}

func (b *Bot) onCommand(e *events.ApplicationCommandInteractionCreate) {
	if e.GuildID() == nil {
		return
	}
	d, ok := e.Data.(discord.SlashCommandInteractionData)
	if !ok || d.CommandName() != cmdTwitch || d.SubCommandName == nil {
		return
	}
	if m := e.Member(); m == nil || !m.Permissions.Has(discord.PermissionManageGuild) {
		botutil.RespondEphemeral(e, "You need the Manage Server permission to do that.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	guildID := *e.GuildID()
	b.Metrics.CommandRun(ctx, cmdTwitch+" "+*d.SubCommandName)

	var reply string
	var err error
	switch *d.SubCommandName {
	case subAdd:
		reply, err = b.addSubscription(ctx, guildID, d.String(optLogin), d.Snowflake(optChannel))
	case subRemove:
		reply, err = b.removeSubscription(ctx, guildID, d.String(optLogin))
	case subList:
		reply = b.listSubscriptions(guildID)
	default:
		return
	}

	if err != nil {
		var userErr errUser
		if errors.As(err, &userErr) {
			botutil.RespondEphemeral(e, userErr.Error())
			return
		}
		b.Metrics.CommandFailed(ctx, cmdTwitch+" "+*d.SubCommandName)
		b.Log.Error("Twitch command failed", "guild_id", guildID, "subcommand", *d.SubCommandName, "error", err)
		ref := botutil.ReportError(err, e.User().ID, map[string]string{"command": cmdTwitch})
		botutil.RespondEphemeral(e, "Something went wrong saving that. Reference: "+ref)
		return
	}
	botutil.RespondEphemeral(e, reply)
}

func normalizeLogin(raw string) string {
	login := strings.TrimSpace(raw)
	login = strings.TrimPrefix(login, "https://")
	login = strings.TrimPrefix(login, "www.")
	login = strings.TrimPrefix(login, "twitch.tv/")
	return strings.ToLower(strings.Trim(login, "/"))
}

// update replaces the subscriptions of a guild with fn's result and saves
// them. The in-memory state is only changed once the save succeeded.
func (b *Bot) update(ctx context.Context, guildID snowflake.ID, fn func([]twitch.Subscription) ([]twitch.Subscription, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := fn(slices.Clone(b.subs[guildID]))
	if err != nil {
		return err
	}
	if err := b.saveGuild(ctx, guildID, next); err != nil {
		return err
	}
	b.subs[guildID] = next
	return nil
}

func (b *Bot) addSubscription(ctx context.Context, guildID snowflake.ID, rawLogin string, channelID snowflake.ID) (string, error) {
	login := normalizeLogin(rawLogin)
	if !twitch.ValidLogin(login) {
		return "", errUser(fmt.Sprintf("`%s` is not a valid Twitch login.", rawLogin))
	}

	var moved bool
	err := b.update(ctx, guildID, func(subs []twitch.Subscription) ([]twitch.Subscription, error) {
		if i := indexOf(subs, login); i >= 0 {
			if subs[i].ChannelID == channelID {
				return nil, errUser(fmt.Sprintf("`%s` is already announced in <#%d>.", login, channelID))
			}
			subs[i].ChannelID = channelID
			moved = true
			return subs, nil
		}
		if len(subs) >= maxSubscriptions {
			return nil, errUser(fmt.Sprintf("This server already follows %d Twitch channels.", maxSubscriptions))
		}
		return append(subs, twitch.Subscription{Login: login, ChannelID: channelID}), nil
	})
	if err != nil {
		return "", err
	}
	b.Log.Info("Added subscription", "guild_id", guildID, "login", login, "channel_id", channelID)
	if moved {
		return fmt.Sprintf("`%s` will now be announced in <#%d>.", login, channelID), nil
	}
	return fmt.Sprintf("`%s` will be announced in <#%d> when it goes live.", login, channelID), nil
}

func (b *Bot) removeSubscription(ctx context.Context, guildID snowflake.ID, rawLogin string) (string, error) {
	login := normalizeLogin(rawLogin)
	err := b.update(ctx, guildID, func(subs []twitch.Subscription) ([]twitch.Subscription, error) {
		i := indexOf(subs, login)
		if i < 0 {
			return nil, errUser(fmt.Sprintf("`%s` is not announced in this server.", login))
		}
		return slices.Delete(subs, i, i+1), nil
	})
	if err != nil {
		return "", err
	}
	b.Log.Info("Removed subscription", "guild_id", guildID, "login", login)
	return fmt.Sprintf("`%s` will no longer be announced.", login), nil
}

func (b *Bot) listSubscriptions(guildID snowflake.ID) string {
	b.mu.Lock()
	subs := slices.Clone(b.subs[guildID])
	b.mu.Unlock()

	if len(subs) == 0 {
		return "No Twitch channels are announced in this server."
	}
	lines := make([]string, len(subs))
	for i, s := range subs {
		status := "offline"
		if s.Live {
			status = "🔴 live"
		}
		lines[i] = fmt.Sprintf("`%s` in <#%d> (%s)", s.Login, s.ChannelID, status)
	}
	return strings.Join(lines, "\n")
}

func indexOf(subs []twitch.Subscription, login string) int {
	return slices.IndexFunc(subs, func(s twitch.Subscription) bool {
		return strings.EqualFold(s.Login, login)
	})
}
