package botutil

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"

	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/metrics"
)

// BaseBot holds the fields shared by all three bots.
type BaseBot struct {
	Client  *bot.Client
	Config  config.Config
	Log     *slog.Logger
	Metrics *metrics.Metrics
	Ready   atomic.Bool
	Started time.Time

	healthcheck *http.Client
}

// NewBaseBot prepares the shared state of a bot named name. Metrics are only
// created when enabled in cfg.
func NewBaseBot(name string, cfg config.Config, log *slog.Logger) (*BaseBot, error) {
	b := &BaseBot{
		Config:      cfg,
		Log:         log.With("bot", name),
		Started:     time.Now(),
		healthcheck: &http.Client{Timeout: 10 * time.Second},
	}
	if cfg.Metrics.Enabled {
		m, err := metrics.New(name)
		if err != nil {
			return nil, err
		}
		b.Metrics = m
	}
	return b, nil
}

// PingHealthcheck sends a GET to the configured healthcheck endpoint.
// It is a no-op if no endpoint is configured.
func (b *BaseBot) PingHealthcheck() {
	if b.Config.HealthcheckEndpoint == "" {
		return
	}
	resp, err := b.healthcheck.Get(b.Config.HealthcheckEndpoint)
	if err != nil {
		b.Log.Info("Healthcheck ping failed", "error", err)
		return
	}
	resp.Body.Close()
}

// ServeMetrics runs the metrics server until ctx is done. It returns at once
// when metrics are disabled.
func (b *BaseBot) ServeMetrics(ctx context.Context) {
	if b.Metrics == nil {
		return
	}
	handler := metrics.Router(b.Metrics, b.Config.Metrics.Endpoint, b.Ready.Load)
	if err := metrics.Serve(ctx, b.Config.Metrics.ListenAddr, handler, b.Log); err != nil {
		b.Log.Error("Metrics server stopped", "error", err)
	}
}

// OnReady is the shared ready handler for all bots.
func (b *BaseBot) OnReady(e *events.Ready) {
	b.Log.Info("Logged in", "user", e.User.Username, "guilds", len(e.Guilds))
	b.Ready.Store(true)
}
