package spicier

import (
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/music"
)

func TestParseQueueArg(t *testing.T) {
	tests := []struct {
		arg     string
		clear   bool
		page    int
		wantErr bool
	}{
		{arg: "", page: 1},
		{arg: "3", page: 3},
		{arg: "clear", clear: true},
		{arg: "C", clear: true},
		{arg: "reset", clear: true},
		{arg: "r", clear: true},
		{arg: "everything", wantErr: true},
	}
	for _, tt := range tests {
		gotClear, page, err := parseQueueArg(tt.arg)
		if tt.wantErr {
			var argErr *music.ArgumentError
			if !errors.As(err, &argErr) || argErr.Msg != "Invalid argument provided." {
				t.Errorf("parseQueueArg(%q) err = %v", tt.arg, err)
			}
			continue
		}
		if err != nil || gotClear != tt.clear || page != tt.page {
			t.Errorf("parseQueueArg(%q) = %t, %d, %v; want %t, %d", tt.arg, gotClear, page, err, tt.clear, tt.page)
		}
	}
}

func TestParseSkipArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    skipMode
		wantErr bool
	}{
		{arg: "", want: skipNext},
		{arg: "all", want: skipAll},
		{arg: "A", want: skipAll},
		{arg: "force", want: skipForce},
		{arg: "f", want: skipForce},
		{arg: "twice", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSkipArg(tt.arg)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("parseSkipArg(%q) = %v, %v", tt.arg, got, err)
		}
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr error
	}{
		{arg: "1", want: 1},
		{arg: "200", want: 200},
		{arg: "0", wantErr: music.ErrInvalidVolume},
		{arg: "201", wantErr: music.ErrInvalidVolume},
		{arg: "-5", wantErr: music.ErrInvalidVolume},
		{arg: "loud", wantErr: errInvalidArgument},
	}
	for _, tt := range tests {
		got, err := parseVolume(tt.arg)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("parseVolume(%q) err = %v, want %v", tt.arg, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseVolume(%q) = %d, %v", tt.arg, got, err)
		}
	}
}

func TestPlaylistTrackConversion(t *testing.T) {
	tracks := []music.Track{
		{Encoded: "a", Title: "First", Author: "One", URI: "https://example.com/1", Length: 90 * time.Second},
		{Encoded: "b", Title: "Second", Author: "Two", Length: 1500 * time.Millisecond},
	}
	stored := toPlaylistTracks(tracks)
	if stored[1].Position != 1 || stored[1].LengthMS != 1500 {
		t.Fatalf("stored = %+v", stored[1])
	}

	requester := discord.User{ID: 42}
	back := fromPlaylistTracks(stored, requester)
	for i := range tracks {
		want := tracks[i]
		want.RequesterID = 42
		if back[i] != want {
			t.Errorf("track %d = %+v, want %+v", i, back[i], want)
		}
	}
}

func TestCanDeletePlaylist(t *testing.T) {
	p := &database.Playlist{OwnerID: 1}
	tests := []struct {
		name  string
		user  uint64
		perms discord.Permissions
		want  bool
	}{
		{name: "owner", user: 1, want: true},
		{name: "administrator", user: 2, perms: discord.PermissionAdministrator, want: true},
		{name: "other member", user: 2, perms: discord.PermissionSendMessages},
	}
	for _, tt := range tests {
		if got := canDeletePlaylist(p, snowflake.ID(tt.user), tt.perms); got != tt.want {
			t.Errorf("%s: canDeletePlaylist = %t, want %t", tt.name, got, tt.want)
		}
	}
}
