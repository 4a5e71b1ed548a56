package spicier

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/guilds"
	"github.com/spicierbot/spicier/pkg/idle"
	"github.com/spicierbot/spicier/pkg/router"
	"github.com/spicierbot/spicier/pkg/testutil"
)

func TestParseReloadArgs(t *testing.T) {
	tests := []struct {
		args    []string
		want    []string
		wantErr bool
	}{
		{args: nil, want: []string{"config", "settings"}},
		{args: []string{"settings"}, want: []string{"settings"}},
		{args: []string{"Config", "config", "settings"}, want: []string{"config", "settings"}},
		{args: []string{"music"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseReloadArgs(tt.args)
		if tt.wantErr {
			var argErr *router.ArgumentError
			if !errors.As(err, &argErr) || argErr.Msg != "Module with given name does not exist." {
				t.Errorf("parseReloadArgs(%v) err = %v", tt.args, err)
			}
			continue
		}
		if err != nil || !slices.Equal(got, tt.want) {
			t.Errorf("parseReloadArgs(%v) = %v, %v; want %v", tt.args, got, err, tt.want)
		}
	}
}

func TestParseSyncArgs(t *testing.T) {
	tests := []struct {
		args    []string
		scope   syncScope
		ids     []snowflake.ID
		wantErr bool
	}{
		{args: nil, scope: syncGlobal},
		{args: []string{"~"}, scope: syncCurrent},
		{args: []string{"*"}, scope: syncCopy},
		{args: []string{"^"}, scope: syncClear},
		{args: []string{"1", "2"}, scope: syncGuilds, ids: []snowflake.ID{1, 2}},
		{args: []string{"1", "~"}, wantErr: true},
		{args: []string{"guild"}, wantErr: true},
	}
	for _, tt := range tests {
		scope, ids, err := parseSyncArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSyncArgs(%v) err = %v", tt.args, err)
			continue
		}
		if !tt.wantErr && (scope != tt.scope || !slices.Equal(ids, tt.ids)) {
			t.Errorf("parseSyncArgs(%v) = %v, %v; want %v, %v", tt.args, scope, ids, tt.scope, tt.ids)
		}
	}
}

func testBot(t *testing.T, cfg config.Config) *Bot {
	t.Helper()
	log := testutil.DiscardLogger()
	b := &Bot{
		BaseBot: &botutil.BaseBot{Config: cfg, Log: log},
		Guilds:  guilds.New(testutil.NewDB(t), cfg.Prefix, log),
		opts:    optionsFrom(cfg),
		trees:   make(map[snowflake.ID][]discord.ApplicationCommandCreate),
	}
	b.idle = idle.NewTracker(b.opts.LeaveDelay, func(snowflake.ID) bool { return true })
	t.Cleanup(func() {
		b.idle.Close()
		b.Guilds.Close()
	})
	return b
}

func TestReloadModules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("discord:\n  token: abc\nprefix: \"!\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := testBot(t, cfg)

	if _, err := b.Guilds.Get(context.Background(), 10); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := b.reloadModule("settings"); err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if n := b.Guilds.Len(); n != 0 {
		t.Errorf("cached guilds after reload = %d", n)
	}

	body := "discord:\n  token: abc\nprefix: \"?\"\ndelete_after: true\ndelete_time: 3\nleave_time: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := b.reloadModule("config"); err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if got := b.Guilds.DefaultPrefix(); got != "?" {
		t.Errorf("DefaultPrefix = %q, want ?", got)
	}
	want := Options{DeleteAfter: true, DeleteDelay: 3 * time.Second, LeaveDelay: 5 * time.Second}
	if got := b.options(); got != want {
		t.Errorf("options = %+v, want %+v", got, want)
	}

	if err := b.reloadModule("music"); err == nil {
		t.Error("reloading an unknown module succeeded")
	}
}

func TestGuildTree(t *testing.T) {
	b := testBot(t, config.Default())

	if tree := b.guildTree(1); len(tree) != 0 {
		t.Fatalf("new guild tree = %v", tree)
	}
	b.setGuildTree(1, slashCommands())
	tree := b.guildTree(1)
	if len(tree) != 2 {
		t.Fatalf("copied tree has %d commands", len(tree))
	}
	tree[0] = nil
	if b.guildTree(1)[0] == nil {
		t.Error("guildTree returned the stored slice")
	}
	b.setGuildTree(1, nil)
	if tree := b.guildTree(1); len(tree) != 0 {
		t.Errorf("cleared tree = %v", tree)
	}
}
