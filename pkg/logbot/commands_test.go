package logbot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spicierbot/spicier/pkg/database"
)

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		arg    string
		on, ok bool
	}{
		{arg: "on", on: true, ok: true},
		{arg: "ON", on: true, ok: true},
		{arg: "włącz", on: true, ok: true},
		{arg: "wlacz", on: true, ok: true},
		{arg: "off", ok: true},
		{arg: "wyłącz", ok: true},
		{arg: "wylacz", ok: true},
		{arg: "maybe"},
	}
	for _, tt := range tests {
		on, ok := parseSwitch(tt.arg)
		if on != tt.on || ok != tt.ok {
			t.Errorf("parseSwitch(%q) = %t, %t; want %t, %t", tt.arg, on, ok, tt.on, tt.ok)
		}
	}
}

func TestNickname(t *testing.T) {
	if got := nickname("ann", ""); got != "ann" {
		t.Errorf("nickname without suffix = %q", got)
	}
	if got := nickname("ann", "🎄"); got != "ann 🎄" {
		t.Errorf("nickname with suffix = %q", got)
	}
}

func TestLogsEmbed(t *testing.T) {
	if e := logsEmbed(nil); e.Description != "Nothing logged yet." {
		t.Errorf("empty embed = %+v", e)
	}
	entries := []database.MessageLog{
		{ID: uuid.New(), UserID: 1, ChannelID: 2, Action: database.ActionEdit, Before: "x", After: "y", CreatedAt: time.Now()},
		{ID: uuid.New(), UserID: 1, ChannelID: 2, Action: database.ActionDelete, Before: "z", CreatedAt: time.Now()},
	}
	e := logsEmbed(entries)
	if len(e.Fields) != 2 {
		t.Fatalf("fields = %d", len(e.Fields))
	}
	if !strings.HasPrefix(e.Fields[0].Name, "edit `") || !strings.HasPrefix(e.Fields[1].Name, "delete `") {
		t.Errorf("field names = %q, %q", e.Fields[0].Name, e.Fields[1].Name)
	}
}
