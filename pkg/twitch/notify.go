package twitch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,25}$`)

// ValidLogin reports whether s can be a Twitch login.
func ValidLogin(s string) bool {
	return loginPattern.MatchString(s)
}

// Subscription announces one Twitch channel in one Discord channel. Live and
// StreamID are the state seen by the last poll.
type Subscription struct {
	Login     string       `json:"login"`
	ChannelID snowflake.ID `json:"channel_id"`
	Live      bool         `json:"live"`
	StreamID  string       `json:"stream_id,omitempty"`
}

// Announcement is a subscription whose stream just went live.
type Announcement struct {
	Subscription
	Stream Stream
}

// Advance applies a poll result to subs. A subscription is announced once
// per live session: when it goes from offline to live, or when a new stream
// id shows up without an offline poll in between. changed reports whether
// subs need saving.
func Advance(subs []Subscription, live map[string]Stream) (next []Subscription, announce []Announcement, changed bool) {
	next = make([]Subscription, len(subs))
	for i, sub := range subs {
		stream, ok := live[strings.ToLower(sub.Login)]
		switch {
		case ok && (!sub.Live || sub.StreamID != stream.ID):
			sub.Live = true
			sub.StreamID = stream.ID
			announce = append(announce, Announcement{Subscription: sub, Stream: stream})
			changed = true
		case !ok && sub.Live:
			sub.Live = false
			sub.StreamID = ""
			changed = true
		}
		next[i] = sub
	}
	return next, announce, changed
}

// Logins returns the distinct lower-case logins of subs.
func Logins(subs ...[]Subscription) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range subs {
		for _, s := range list {
			login := strings.ToLower(s.Login)
			if _, ok := seen[login]; ok {
				continue
			}
			seen[login] = struct{}{}
			out = append(out, login)
		}
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
