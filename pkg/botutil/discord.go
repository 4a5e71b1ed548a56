package botutil

import (
	"log/slog"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

type MessageResponder interface {
	CreateMessage(discord.MessageCreate, ...rest.RequestOpt) error
}

func RespondEphemeral(e MessageResponder, content string) {
	if err := e.CreateMessage(discord.MessageCreate{
		Content: content,
		Flags:   discord.MessageFlagEphemeral,
	}); err != nil {
		slog.Error("Failed to send ephemeral response", "error", err)
	}
}

// MessageCreator is the part of rest.Rest used to post messages.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// PostWithRetry attempts to create a message up to 3 times with a growing pause.
func PostWithRetry(restClient MessageCreator, channelID snowflake.ID, msg discord.MessageCreate, log *slog.Logger) (*discord.Message, error) {
	var sent *discord.Message
	var err error
	for attempt := range 3 {
		sent, err = restClient.CreateMessage(channelID, msg)
		if err == nil {
			return sent, nil
		}
		log.Warn("Post attempt failed", "channel_id", channelID, "attempt", attempt+1, "error", err)
		time.Sleep(time.Duration(attempt+1) * 2 * time.Second)
	}
	return nil, err
}

// MessageDeleter is the part of rest.Rest used to delete messages.
type MessageDeleter interface {
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID, opts ...rest.RequestOpt) error
}

// DeleteAfter deletes a message once delay has passed. A zero delay deletes
// at once.
func DeleteAfter(restClient MessageDeleter, channelID, messageID snowflake.ID, delay time.Duration, log *slog.Logger) {
	time.AfterFunc(delay, func() {
		if err := restClient.DeleteMessage(channelID, messageID); err != nil {
			log.Debug("Failed to delete message", "channel_id", channelID, "message_id", messageID, "error", err)
		}
	})
}

// CommandSyncer is the part of rest.Rest used to register application commands.
type CommandSyncer interface {
	SetGlobalCommands(applicationID snowflake.ID, commandCreates []discord.ApplicationCommandCreate, opts ...rest.RequestOpt) ([]discord.ApplicationCommand, error)
	SetGuildCommands(applicationID snowflake.ID, guildID snowflake.ID, commandCreates []discord.ApplicationCommandCreate, opts ...rest.RequestOpt) ([]discord.ApplicationCommand, error)
}

// SyncCommands registers commands globally, or for each of guildIDs when any
// are given. It returns how many guild syncs succeeded.
func SyncCommands(restClient CommandSyncer, appID snowflake.ID, commands []discord.ApplicationCommandCreate, log *slog.Logger, guildIDs ...snowflake.ID) (int, error) {
	if len(guildIDs) == 0 {
		if _, err := restClient.SetGlobalCommands(appID, commands); err != nil {
			return 0, errors.WrapIf(err, "registering global commands")
		}
		log.Info("Registered global commands", "count", len(commands))
		return 0, nil
	}

	var synced int
	var errs []error
	for _, guildID := range guildIDs {
		if _, err := restClient.SetGuildCommands(appID, guildID, commands); err != nil {
			errs = append(errs, errors.WrapIfWithDetails(err, "registering guild commands", "guild_id", guildID))
			continue
		}
		log.Info("Registered guild commands", "guild_id", guildID, "count", len(commands))
		synced++
	}
	return synced, errors.Combine(errs...)
}
