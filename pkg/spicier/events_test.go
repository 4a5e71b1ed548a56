package spicier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/idle"
	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/testutil"
)

const (
	voiceGuild snowflake.ID = 1
	voiceUser  snowflake.ID = 2
	listenCh      snowflake.ID = 10
	elsewhereCh    snowflake.ID = 11
)

type stubPlayer struct {
	mu        sync.Mutex
	destroyed bool
}

func (p *stubPlayer) Play(context.Context, music.Track) error      { return nil }
func (p *stubPlayer) Stop(context.Context) error                   { return nil }
func (p *stubPlayer) SetPaused(context.Context, bool) error         { return nil }
func (p *stubPlayer) SetVolume(context.Context, int) error          { return nil }
func (p *stubPlayer) Seek(context.Context, time.Duration) error     { return nil }
func (p *stubPlayer) SetFilter(context.Context, music.Filter) error { return nil }
func (p *stubPlayer) Position() time.Duration                      { return 0 }
func (p *stubPlayer) Destroy(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	return nil
}

func (p *stubPlayer) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

type stubAudio struct {
	player *stubPlayer
}

func (a *stubAudio) Player(snowflake.ID) music.Player { return a.player }
func (a *stubAudio) RemovePlayer(snowflake.ID)        {}
func (a *stubAudio) Load(context.Context, string) (music.LoadResult, error) {
	return music.LoadResult{}, nil
}

type stubVoice struct {
	mu      sync.Mutex
	bot     *snowflake.ID
	users   map[snowflake.ID]snowflake.ID
	members map[snowflake.ID]int
	left    int
}

func (v *stubVoice) Join(_ context.Context, _, channelID snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bot = &channelID
	return nil
}

func (v *stubVoice) Leave(context.Context, snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bot = nil
	v.left++
	return nil
}

func (v *stubVoice) BotChannel(snowflake.ID) (snowflake.ID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bot == nil {
		return 0, false
	}
	return *v.bot, true
}

func (v *stubVoice) UserChannel(_, userID snowflake.ID) (snowflake.ID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.users[userID]
	return ch, ok
}

func (v *stubVoice) Members(_, channelID snowflake.ID) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.members[channelID]
}

func (v *stubVoice) setMembers(channelID snowflake.ID, n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.members[channelID] = n
}

func (v *stubVoice) leaves() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.left
}

func (v *stubVoice) ChannelInGuild(_, channelID snowflake.ID) bool { return true }
func (v *stubVoice) channelName(channelID snowflake.ID) string    { return channelID.String() }

// voiceBot returns a bot connected to listenCh with one queued track.
func voiceBot(t *testing.T, delay time.Duration) (*Bot, *stubVoice, *stubPlayer) {
	t.Helper()
	log := testutil.DiscardLogger()
	voice := &stubVoice{
		users:   map[snowflake.ID]snowflake.ID{voiceUser: listenCh},
		members: map[snowflake.ID]int{listenCh: 2},
	}
	player := &stubPlayer{}
	b := &Bot{
		BaseBot: &botutil.BaseBot{Log: log},
		voice:   voice,
		Music:   music.NewService(&stubAudio{player: player}, voice, nil, log),
	}
	b.idle = idle.NewTracker(delay, b.leaveIfAlone)
	t.Cleanup(b.idle.Close)

	ctx := context.Background()
	if _, err := b.Music.Connect(ctx, voiceGuild, voiceUser, nil); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, _, err := b.Music.Enqueue(ctx, voiceGuild, music.Track{Encoded: "enc", Title: "a", Length: time.Minute}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return b, voice, player
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func idPtr(id snowflake.ID) *snowflake.ID { return &id }

func TestUserVoiceChange(t *testing.T) {
	tests := []struct {
		name    string
		oldCh   *snowflake.ID
		newCh   *snowflake.ID
		members int
		want    voiceChange
	}{
		{"joins bot channel", nil, idPtr(listenCh), 2, voiceRejoined},
		{"moves into bot channel", idPtr(elsewhereCh), idPtr(listenCh), 3, voiceRejoined},
		{"leaves, one listener remains", idPtr(listenCh), nil, 2, voiceLeft},
		{"leaves, bot alone", idPtr(listenCh), nil, 1, voiceLeft},
		{"leaves, two listeners remain", idPtr(listenCh), nil, 3, voiceUnchanged},
		{"moves out of bot channel", idPtr(listenCh), idPtr(elsewhereCh), 1, voiceLeft},
		{"mutes in bot channel", idPtr(listenCh), idPtr(listenCh), 2, voiceUnchanged},
		{"other channel only", nil, idPtr(elsewhereCh), 1, voiceUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userVoiceChange(tt.oldCh, tt.newCh, listenCh, tt.members); got != tt.want {
				t.Errorf("userVoiceChange = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBotVoiceChange(t *testing.T) {
	tests := []struct {
		name    string
		newCh   *snowflake.ID
		members int
		want    voiceChange
	}{
		{"disconnected", nil, 0, botDisconnected},
		{"joined empty channel", idPtr(listenCh), 1, botJoinedAlone},
		{"joined with listeners", idPtr(listenCh), 2, voiceUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := botVoiceChange(tt.newCh, tt.members); got != tt.want {
				t.Errorf("botVoiceChange = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLeaveIfAlone(t *testing.T) {
	b, voice, player := voiceBot(t, time.Hour)

	if b.leaveIfAlone(voiceGuild) {
		t.Error("leaveIfAlone with a listener present should wait")
	}
	if voice.leaves() != 0 || player.isDestroyed() {
		t.Error("bot left while someone was listening")
	}

	voice.setMembers(listenCh, 1)
	if !b.leaveIfAlone(voiceGuild) {
		t.Error("leaveIfAlone when alone should leave")
	}
	if voice.leaves() != 1 || !player.isDestroyed() || b.Music.Players() != 0 {
		t.Errorf("after leaving: leaves %d, destroyed %t, players %d", voice.leaves(), player.isDestroyed(), b.Music.Players())
	}

	if !b.leaveIfAlone(voiceGuild) {
		t.Error("leaveIfAlone when not connected should report done")
	}
	if voice.leaves() != 1 {
		t.Error("left twice")
	}
}

func TestUserLeavingArmsLeaveTimer(t *testing.T) {
	b, voice, player := voiceBot(t, 20*time.Millisecond)
	voice.setMembers(listenCh, 1)

	b.applyVoiceChange(context.Background(), voiceGuild, voiceLeft)
	waitFor(t, "the bot to leave", func() bool { return voice.leaves() == 1 })
	if !player.isDestroyed() {
		t.Error("player not destroyed after leaving")
	}
}

func TestRejoinCancelsLeaveTimer(t *testing.T) {
	b, voice, _ := voiceBot(t, 50*time.Millisecond)
	voice.setMembers(listenCh, 1)
	ctx := context.Background()

	b.applyVoiceChange(ctx, voiceGuild, voiceLeft)
	b.applyVoiceChange(ctx, voiceGuild, voiceRejoined)
	time.Sleep(150 * time.Millisecond)
	if n := voice.leaves(); n != 0 {
		t.Errorf("bot left %d times after a rejoin", n)
	}
}

func TestTimerWaitsWhileSomeoneListens(t *testing.T) {
	b, voice, _ := voiceBot(t, 20*time.Millisecond)

	b.applyVoiceChange(context.Background(), voiceGuild, voiceLeft)
	time.Sleep(80 * time.Millisecond)
	if n := voice.leaves(); n != 0 {
		t.Fatalf("bot left %d times with a listener present", n)
	}
	if b.idle.Len() != 1 {
		t.Errorf("timer loop count = %d, want 1", b.idle.Len())
	}
}

func TestBotDisconnectTearsDownPlayer(t *testing.T) {
	b, _, player := voiceBot(t, time.Hour)
	ctx := context.Background()

	b.applyVoiceChange(ctx, voiceGuild, botJoinedAlone)
	if b.idle.Len() != 1 {
		t.Fatalf("timer loop count = %d, want 1", b.idle.Len())
	}

	b.applyVoiceChange(ctx, voiceGuild, botDisconnected)
	if !player.isDestroyed() || b.Music.Players() != 0 {
		t.Errorf("destroyed %t, players %d", player.isDestroyed(), b.Music.Players())
	}
	if b.idle.Len() != 0 {
		t.Errorf("timer still running after disconnect")
	}
	if _, err := b.Music.State(voiceGuild); err == nil {
		t.Error("State after bot disconnect should fail")
	}
}
