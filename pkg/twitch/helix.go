package twitch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emperror.dev/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spicierbot/spicier/pkg/config"
)

const (
	DefaultAPIURL   = "https://api.twitch.tv/helix"
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

	// MaxLogins is the most user_login values Helix accepts per request.
	MaxLogins = 100
)

// Stream is a live stream as returned by Get Streams.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	GameName     string    `json:"game_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// Thumbnail fills in the size placeholders of the thumbnail URL.
func (s Stream) Thumbnail(width, height int) string {
	r := strings.NewReplacer("{width}", itoa(width), "{height}", itoa(height))
	return r.Replace(s.ThumbnailURL)
}

func (s Stream) URL() string {
	return "https://twitch.tv/" + s.UserLogin
}

type streamsResponse struct {
	Data []Stream `json:"data"`
}

type options struct {
	apiURL   string
	tokenURL string
	http     *http.Client
}

type Option func(*options)

func WithAPIURL(u string) Option          { return func(o *options) { o.apiURL = u } }
func WithTokenURL(u string) Option        { return func(o *options) { o.tokenURL = u } }
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.http = c } }

// Client calls the Helix API with an app access token from the
// client-credentials flow. Tokens are fetched and refreshed on demand.
type Client struct {
	http     *http.Client
	clientID string
	apiURL   string
	log      *slog.Logger
}

func New(cfg config.TwitchConfig, log *slog.Logger, opts ...Option) *Client {
	o := options{
		apiURL:   DefaultAPIURL,
		tokenURL: DefaultTokenURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, o.http)
	return &Client{
		http:     cc.Client(ctx),
		clientID: cfg.ClientID,
		apiURL:   strings.TrimSuffix(o.apiURL, "/"),
		log:      log.With("component", "twitch"),
	}
}

// Streams returns the live streams of logins keyed by lower-case login.
// Offline channels are absent from the result.
func (c *Client) Streams(ctx context.Context, logins []string) (map[string]Stream, error) {
	live := make(map[string]Stream)
	for start := 0; start < len(logins); start += MaxLogins {
		batch := logins[start:min(start+MaxLogins, len(logins))]
		streams, err := c.streams(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, s := range streams {
			live[strings.ToLower(s.UserLogin)] = s
		}
	}
	return live, nil
}

func (c *Client) streams(ctx context.Context, logins []string) ([]Stream, error) {
	q := url.Values{}
	q.Set("first", itoa(MaxLogins))
	for _, login := range logins {
		q.Add("user_login", strings.ToLower(login))
	}
	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/streams?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.WrapIf(err, "building streams request")
	}
	rq.Header.Set("Client-Id", c.clientID)

	start := time.Now()
	rs, err := c.http.Do(rq)
	if err != nil {
		return nil, errors.WrapIf(err, "requesting streams")
	}
	defer rs.Body.Close()
	c.log.Debug("Fetched streams", "logins", len(logins), "status", rs.StatusCode, "ms", time.Since(start).Milliseconds())

	if rs.StatusCode != http.StatusOK {
		return nil, errors.NewWithDetails("helix streams request failed", "status", rs.StatusCode)
	}
	var body streamsResponse
	if err := json.NewDecoder(rs.Body).Decode(&body); err != nil {
		return nil, errors.WrapIf(err, "decoding streams response")
	}
	return body.Data, nil
}
