package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/testutil"
)

type fakeHelix struct {
	mu         sync.Mutex
	live       map[string]Stream
	tokens     int
	batches    []int
	status     int
	badHeaders int
}

func (f *fakeHelix) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/oauth2/token":
		r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" || r.Form.Get("client_id") != "id" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.tokens++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)

	case "/helix/streams":
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("Client-Id") != "id" {
			f.badHeaders++
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		logins := r.URL.Query()["user_login"]
		f.batches = append(f.batches, len(logins))
		var body streamsResponse
		for _, login := range logins {
			if s, ok := f.live[login]; ok {
				body.Data = append(body.Data, s)
			}
		}
		json.NewEncoder(w).Encode(body)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeHelix) *Client {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return New(config.TwitchConfig{ClientID: "id", ClientSecret: "secret"}, testutil.DiscardLogger(),
		WithAPIURL(server.URL+"/helix/"),
		WithTokenURL(server.URL+"/oauth2/token"),
	)
}

func TestStreams(t *testing.T) {
	f := &fakeHelix{live: map[string]Stream{
		"alpha":   {ID: "1", UserLogin: "Alpha", Title: "hello"},
		"user120": {ID: "2", UserLogin: "user120"},
	}}
	c := newTestClient(t, f)

	logins := []string{"ALPHA", "beta"}
	for i := range 148 {
		logins = append(logins, fmt.Sprintf("user%d", i))
	}

	live, err := c.Streams(context.Background(), logins)
	if err != nil {
		t.Fatalf("Streams: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("live = %v, want 2 streams", live)
	}
	if live["alpha"].Title != "hello" {
		t.Errorf("alpha = %+v", live["alpha"])
	}
	if _, ok := live["user120"]; !ok {
		t.Error("stream from the second batch missing")
	}
	if fmt.Sprint(f.batches) != "[100 50]" {
		t.Errorf("batches = %v, want [100 50]", f.batches)
	}
	if f.tokens != 1 {
		t.Errorf("token requests = %d, want 1", f.tokens)
	}
	if f.badHeaders != 0 {
		t.Errorf("%d requests without credentials", f.badHeaders)
	}
}

func TestStreamsEmpty(t *testing.T) {
	f := &fakeHelix{}
	c := newTestClient(t, f)
	live, err := c.Streams(context.Background(), nil)
	if err != nil || len(live) != 0 {
		t.Fatalf("Streams(nil) = %v, %v", live, err)
	}
	if f.tokens != 0 || len(f.batches) != 0 {
		t.Error("no logins should make no requests")
	}
}

func TestStreamsError(t *testing.T) {
	f := &fakeHelix{status: http.StatusServiceUnavailable}
	c := newTestClient(t, f)
	_, err := c.Streams(context.Background(), []string{"alpha"})
	if err == nil || !strings.Contains(err.Error(), "helix streams request failed") {
		t.Errorf("err = %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	s := Stream{UserLogin: "alpha", ThumbnailURL: "https://cdn/live_user_alpha-{width}x{height}.jpg"}
	if got := s.Thumbnail(440, 248); got != "https://cdn/live_user_alpha-440x248.jpg" {
		t.Errorf("Thumbnail = %q", got)
	}
	if s.URL() != "https://twitch.tv/alpha" {
		t.Errorf("URL = %q", s.URL())
	}
}
