package twitch

import (
	"slices"
	"testing"
)

func TestAdvance(t *testing.T) {
	live := map[string]Stream{"alpha": {ID: "s1", UserLogin: "alpha"}}

	tests := []struct {
		name     string
		sub      Subscription
		live     map[string]Stream
		want     Subscription
		announce bool
		changed  bool
	}{
		{
			name:     "goes live",
			sub:      Subscription{Login: "Alpha", ChannelID: 1},
			live:     live,
			want:     Subscription{Login: "Alpha", ChannelID: 1, Live: true, StreamID: "s1"},
			announce: true,
			changed:  true,
		},
		{
			name: "stays live",
			sub:  Subscription{Login: "alpha", ChannelID: 1, Live: true, StreamID: "s1"},
			live: live,
			want: Subscription{Login: "alpha", ChannelID: 1, Live: true, StreamID: "s1"},
		},
		{
			name:     "new session without offline poll",
			sub:      Subscription{Login: "alpha", ChannelID: 1, Live: true, StreamID: "s0"},
			live:     live,
			want:     Subscription{Login: "alpha", ChannelID: 1, Live: true, StreamID: "s1"},
			announce: true,
			changed:  true,
		},
		{
			name:    "goes offline",
			sub:     Subscription{Login: "alpha", ChannelID: 1, Live: true, StreamID: "s1"},
			live:    nil,
			want:    Subscription{Login: "alpha", ChannelID: 1},
			changed: true,
		},
		{
			name: "stays offline",
			sub:  Subscription{Login: "beta", ChannelID: 1},
			live: live,
			want: Subscription{Login: "beta", ChannelID: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, announce, changed := Advance([]Subscription{tt.sub}, tt.live)
			if next[0] != tt.want {
				t.Errorf("next = %+v, want %+v", next[0], tt.want)
			}
			if (len(announce) == 1) != tt.announce {
				t.Errorf("announcements = %v, want announce %t", announce, tt.announce)
			}
			if changed != tt.changed {
				t.Errorf("changed = %t, want %t", changed, tt.changed)
			}
		})
	}
}

func TestAdvanceDoesNotModifyInput(t *testing.T) {
	subs := []Subscription{{Login: "alpha"}}
	Advance(subs, map[string]Stream{"alpha": {ID: "s1"}})
	if subs[0].Live {
		t.Error("Advance changed its input")
	}
}

func TestLogins(t *testing.T) {
	got := Logins(
		[]Subscription{{Login: "Alpha"}, {Login: "beta"}},
		[]Subscription{{Login: "alpha"}, {Login: "gamma"}},
	)
	if !slices.Equal(got, []string{"alpha", "beta", "gamma"}) {
		t.Errorf("Logins = %v", got)
	}
}

func TestValidLogin(t *testing.T) {
	for login, want := range map[string]bool{
		"alpha":        true,
		"Some_User_42": true,
		"ab":           false,
		"has space":    false,
		"https://twitch.tv/alpha": false,
		"abcdefghijklmnopqrstuvwxyz": false,
	} {
		if got := ValidLogin(login); got != want {
			t.Errorf("ValidLogin(%q) = %t, want %t", login, got, want)
		}
	}
}
