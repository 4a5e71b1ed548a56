package logbot

import (
	"context"
	"strings"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/guilds"
	"github.com/spicierbot/spicier/pkg/testutil"
)

func TestLogEntry(t *testing.T) {
	human := discord.User{ID: 5, Username: "ann"}
	before := discord.Message{ID: 100, ChannelID: 7, Author: human, Content: "old"}

	tests := []struct {
		name   string
		action database.Action
		before discord.Message
		after  discord.Message
		ok     bool
		want   database.MessageLog
	}{
		{
			name:   "delete",
			action: database.ActionDelete,
			before: before,
			ok:     true,
			want:   database.MessageLog{GuildID: 1, ChannelID: 7, MessageID: 100, UserID: 5, Action: database.ActionDelete, Before: "old"},
		},
		{
			name:   "edit",
			action: database.ActionEdit,
			before: before,
			after:  discord.Message{ID: 100, Content: "new"},
			ok:     true,
			want:   database.MessageLog{GuildID: 1, ChannelID: 7, MessageID: 100, UserID: 5, Action: database.ActionEdit, Before: "old", After: "new"},
		},
		{
			name:   "edit without content change",
			action: database.ActionEdit,
			before: before,
			after:  discord.Message{ID: 100, Content: "old"},
		},
		{
			name:   "uncached",
			action: database.ActionDelete,
		},
		{
			name:   "bot author",
			action: database.ActionDelete,
			before: discord.Message{ID: 1, Author: discord.User{ID: 9, Bot: true}, Content: "beep"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := logEntry(1, tt.action, tt.before, tt.after)
			if ok != tt.ok || got != tt.want {
				t.Errorf("logEntry = %+v, %t; want %+v, %t", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLogEmbed(t *testing.T) {
	edit := logEmbed(database.MessageLog{GuildID: 1, ChannelID: 2, MessageID: 3, UserID: 4, Action: database.ActionEdit, Before: "a", After: "b"}, discord.User{})
	if edit.Title != "Message Edited" || edit.Author != nil {
		t.Errorf("edit embed = %q author %+v", edit.Title, edit.Author)
	}
	var link bool
	for _, f := range edit.Fields {
		if strings.Contains(f.Value, "https://discord.com/channels/1/2/3") {
			link = true
		}
	}
	if !link {
		t.Error("edit embed has no jump link")
	}

	del := logEmbed(database.MessageLog{Action: database.ActionDelete}, discord.User{ID: 4, Username: "ann"})
	if del.Title != "Message Deleted" || del.Description != "*No text content*" || del.Author == nil {
		t.Errorf("delete embed = %+v", del)
	}
	if !strings.HasPrefix(del.Footer.Text, "LOG-ID ") {
		t.Errorf("footer = %q", del.Footer.Text)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("żółć", 10); got != "żółć" {
		t.Errorf("short string changed: %q", got)
	}
	if got := truncate("żółćżółć", 4); got != "żół…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestRecord(t *testing.T) {
	db := testutil.NewDB(t)
	log := testutil.DiscardLogger()
	b := &Bot{
		BaseBot: &botutil.BaseBot{Log: log},
		DB:      db,
		Guilds:  guilds.New(db, commandPrefix, log),
	}
	t.Cleanup(func() { b.Guilds.Close() })
	ctx := context.Background()

	logChannel := snowflake.ID(50)
	if err := b.Guilds.SetLogChannel(ctx, 1, &logChannel); err != nil {
		t.Fatal(err)
	}

	b.record(database.MessageLog{GuildID: 1, ChannelID: 7, MessageID: 100, UserID: 5, Action: database.ActionDelete, Before: "gone"}, discord.User{})
	b.record(database.MessageLog{GuildID: 1, ChannelID: logChannel, MessageID: 101, UserID: 5, Action: database.ActionDelete}, discord.User{})

	entries, err := db.MessageLogs(ctx, 1, nil, logsLimit)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].MessageID != 100 || entries[0].Before != "gone" {
		t.Errorf("entries = %+v", entries)
	}
}
