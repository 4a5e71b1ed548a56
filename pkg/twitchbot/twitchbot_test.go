package twitchbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/testutil"
	"github.com/spicierbot/spicier/pkg/twitch"
)

type fakeStreams struct {
	live   map[string]twitch.Stream
	asked  []string
	failed bool
}

func (f *fakeStreams) Streams(_ context.Context, logins []string) (map[string]twitch.Stream, error) {
	f.asked = logins
	if f.failed {
		return nil, errors.New("helix down")
	}
	return f.live, nil
}

type fakePoster struct {
	mu   sync.Mutex
	sent map[snowflake.ID][]discord.MessageCreate
}

func (f *fakePoster) CreateMessage(channelID snowflake.ID, m discord.MessageCreate, _ ...rest.RequestOpt) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[snowflake.ID][]discord.MessageCreate)
	}
	f.sent[channelID] = append(f.sent[channelID], m)
	return &discord.Message{ChannelID: channelID}, nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, msgs := range f.sent {
		n += len(msgs)
	}
	return n
}

func newTestBot(t *testing.T) (*Bot, *testutil.FakeS3, *fakeStreams, *fakePoster) {
	t.Helper()
	fake, s3 := testutil.NewS3(t)
	base, err := botutil.NewBaseBot(Name, config.Default(), testutil.DiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	streams := &fakeStreams{}
	poster := &fakePoster{}
	b := &Bot{
		BaseBot: base,
		S3:      s3,
		Twitch:  streams,
		poster:  poster,
		subs:    make(map[snowflake.ID][]twitch.Subscription),
	}
	return b, fake, streams, poster
}

func storedSubs(t *testing.T, fake *testutil.FakeS3, guildID string) []twitch.Subscription {
	t.Helper()
	data, ok := fake.Object("twitch/" + guildID + ".json")
	if !ok {
		return nil
	}
	var st guildState
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("stored state: %v", err)
	}
	return st.Subscriptions
}

func TestNormalizeLogin(t *testing.T) {
	for raw, want := range map[string]string{
		"Alpha":                       "alpha",
		"  beta ":                     "beta",
		"https://www.twitch.tv/Gamma": "gamma",
		"twitch.tv/delta/":            "delta",
	} {
		if got := normalizeLogin(raw); got != want {
			t.Errorf("normalizeLogin(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestAddRemoveSubscription(t *testing.T) {
	b, fake, _, _ := newTestBot(t)
	ctx := context.Background()
	const guild = snowflake.ID(10)

	if _, err := b.addSubscription(ctx, guild, "Alpha", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if subs := storedSubs(t, fake, "10"); len(subs) != 1 || subs[0].Login != "alpha" || subs[0].ChannelID != 1 {
		t.Fatalf("stored = %+v", subs)
	}

	var userErr errUser
	if _, err := b.addSubscription(ctx, guild, "alpha", 1); !errors.As(err, &userErr) {
		t.Errorf("duplicate add err = %v", err)
	}
	if _, err := b.addSubscription(ctx, guild, "no spaces", 1); !errors.As(err, &userErr) {
		t.Errorf("invalid login err = %v", err)
	}

	reply, err := b.addSubscription(ctx, guild, "alpha", 2)
	if err != nil || !strings.Contains(reply, "now be announced in <#2>") {
		t.Errorf("move = %q, %v", reply, err)
	}

	if list := b.listSubscriptions(guild); !strings.Contains(list, "`alpha` in <#2> (offline)") {
		t.Errorf("list = %q", list)
	}

	if _, err := b.removeSubscription(ctx, guild, "beta"); !errors.As(err, &userErr) {
		t.Errorf("remove unknown err = %v", err)
	}
	if _, err := b.removeSubscription(ctx, guild, "ALPHA"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := fake.Object("twitch/10.json"); ok {
		t.Error("empty guild state should be deleted")
	}
	if list := b.listSubscriptions(guild); !strings.Contains(list, "No Twitch channels") {
		t.Errorf("list after remove = %q", list)
	}
}

func TestAddSubscriptionLimit(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	subs := make([]twitch.Subscription, maxSubscriptions)
	for i := range subs {
		subs[i] = twitch.Subscription{Login: fmt.Sprintf("user%d", i), ChannelID: 1}
	}
	b.subs[1] = subs

	var userErr errUser
	if _, err := b.addSubscription(context.Background(), 1, "newcomer", 1); !errors.As(err, &userErr) {
		t.Errorf("err = %v, want limit error", err)
	}
}

func TestLoadGuild(t *testing.T) {
	b, fake, _, _ := newTestBot(t)
	fake.Put("twitch/5.json", []byte(`{"subscriptions":[{"login":"alpha","channel_id":"7","live":true,"stream_id":"s1"}]}`))

	b.loadGuild(5)
	b.loadGuild(6)

	if got := b.subs[5]; len(got) != 1 || !got[0].Live || got[0].ChannelID != 7 {
		t.Errorf("guild 5 = %+v", got)
	}
	if got, ok := b.subs[6]; !ok || len(got) != 0 {
		t.Errorf("guild 6 = %+v, %t", got, ok)
	}
}

func TestPoll(t *testing.T) {
	b, fake, streams, poster := newTestBot(t)
	ctx := context.Background()
	b.subs[1] = []twitch.Subscription{{Login: "alpha", ChannelID: 100}, {Login: "beta", ChannelID: 100}}
	b.subs[2] = []twitch.Subscription{{Login: "alpha", ChannelID: 200}}

	streams.live = map[string]twitch.Stream{"alpha": {ID: "s1", UserLogin: "alpha", UserName: "Alpha", Title: "hi", GameName: "Chess"}}
	b.poll(ctx)

	if len(streams.asked) != 2 {
		t.Errorf("asked for %v, want alpha and beta once", streams.asked)
	}
	if len(poster.sent[100]) != 1 || len(poster.sent[200]) != 1 {
		t.Fatalf("sent = %v", poster.sent)
	}
	if got := poster.sent[100][0].Content; got != "**Alpha** is live! https://twitch.tv/alpha" {
		t.Errorf("content = %q", got)
	}
	if subs := storedSubs(t, fake, "1"); len(subs) != 2 || !subs[0].Live || subs[1].Live {
		t.Errorf("stored = %+v", subs)
	}

	b.poll(ctx)
	if n := poster.count(); n != 2 {
		t.Errorf("still live announced again: %d posts", n)
	}

	streams.live = nil
	b.poll(ctx)
	if b.subs[1][0].Live {
		t.Error("offline stream still marked live")
	}

	streams.live = map[string]twitch.Stream{"alpha": {ID: "s2", UserLogin: "alpha"}}
	b.poll(ctx)
	if n := poster.count(); n != 4 {
		t.Errorf("posts after second session = %d, want 4", n)
	}
}

func TestPollError(t *testing.T) {
	b, _, streams, poster := newTestBot(t)
	b.subs[1] = []twitch.Subscription{{Login: "alpha", ChannelID: 100}}
	streams.failed = true

	b.poll(context.Background())
	if poster.count() != 0 || b.subs[1][0].Live {
		t.Error("a failed fetch should change nothing")
	}
}

func TestLiveEmbed(t *testing.T) {
	e := liveEmbed(twitch.Stream{
		UserLogin:    "alpha",
		ViewerCount:  12345,
		GameName:     "Chess",
		ThumbnailURL: "https://cdn/{width}x{height}.jpg",
	})
	if e.Title != "https://twitch.tv/alpha" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Author.Name != "alpha is live on Twitch" {
		t.Errorf("Author = %q", e.Author.Name)
	}
	if len(e.Fields) != 2 || e.Fields[0].Value != "Chess" || e.Fields[1].Value != "12,345" {
		t.Errorf("Fields = %+v", e.Fields)
	}
	if e.Image == nil || e.Image.URL != "https://cdn/440x248.jpg" {
		t.Errorf("Image = %+v", e.Image)
	}
	if e.Timestamp != nil {
		t.Error("zero start time should leave no timestamp")
	}
}
