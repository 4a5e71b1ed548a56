package spicier

import (
	"testing"

	"emperror.dev/errors"

	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/router"
)

func TestErrorReply(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       string
		silent     bool
		unexpected bool
	}{
		{name: "missing permissions", err: router.ErrMissingPermissions, silent: true},
		{name: "check failure", err: errors.WithStack(router.ErrCheckFailure), silent: true},
		{name: "missing argument", err: &router.MissingArgumentError{Name: "prefix"}, want: "Missing required argument: `prefix`"},
		{name: "missing track", err: &music.MissingArgumentError{Name: "Track"}, want: "Missing required argument: `Track`"},
		{name: "command not found", err: &router.CommandNotFoundError{Content: "!filter bogus"}, want: "Command not found: `!filter bogus`"},
		{name: "channel not found", err: &router.ChannelNotFoundError{Arg: "#nope"}, want: "Channel not found: `#nope`"},
		{name: "voice with message", err: &music.VoiceError{Msg: "Already in voice channel."}, want: "Already in voice channel."},
		{name: "voice without message", err: &music.VoiceError{}, want: "Something went wrong with the voice connection"},
		{name: "queue empty", err: &music.QueueEmptyError{Msg: "Queue is already empty."}, want: "The queue is empty"},
		{name: "router argument", err: &router.ArgumentError{Msg: "Module with given name does not exist."}, want: "Unvalid argument: `Module with given name does not exist.`"},
		{name: "music argument", err: &music.ArgumentError{Msg: "Invalid filter mode."}, want: "Unvalid argument: `Invalid filter mode.`"},
		{name: "not playing", err: music.ErrPlayerNotPlaying, want: "Before using this command, play something"},
		{name: "not connected", err: music.ErrNotConnected, want: "Before using this command, play something"},
		{name: "search not found", err: &music.SearchNotFoundError{Query: "zzz"}, want: "Nothing found for: `zzz`"},
		{name: "invalid volume", err: music.ErrInvalidVolume, want: "Volume must be between 1 and 200."},
		{name: "wrapped argument", err: errors.WrapIf(&music.ArgumentError{Msg: "x"}, "seeking"), want: "Unvalid argument: `x`"},
		{name: "unexpected", err: errors.New("database is down"), want: "Something went wrong while running this command.", unexpected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, silent, unexpected := errorReply(tt.err)
			if got != tt.want || silent != tt.silent || unexpected != tt.unexpected {
				t.Errorf("errorReply(%v) = %q, %t, %t; want %q, %t, %t",
					tt.err, got, silent, unexpected, tt.want, tt.silent, tt.unexpected)
			}
		})
	}
}
