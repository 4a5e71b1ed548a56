package metrics

import (
	"context"
	"net/http"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/spicierbot/spicier"

// Metrics holds the instruments of every bot. A nil *Metrics records nothing,
// so bots run unchanged with metrics disabled.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	commands      metric.Int64Counter
	commandErrors metric.Int64Counter
	tracksStarted metric.Int64Counter
	players       metric.Int64UpDownCounter
	messageLogs   metric.Int64Counter
	notifications metric.Int64Counter
}

// New creates a meter provider exporting to its own prometheus registry.
func New(service string) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exp, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, errors.WrapIf(err, "creating prometheus exporter")
	}

	m := &Metrics{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exp),
			sdkmetric.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(service),
			)),
		),
	}
	meter := m.provider.Meter(meterName)

	if m.commands, err = meter.Int64Counter("spicier_commands",
		metric.WithDescription("The number of commands run"),
	); err != nil {
		return nil, err
	}
	if m.commandErrors, err = meter.Int64Counter("spicier_command_errors",
		metric.WithDescription("The number of commands that failed with an unexpected error"),
	); err != nil {
		return nil, err
	}
	if m.tracksStarted, err = meter.Int64Counter("spicier_tracks_started",
		metric.WithDescription("The number of tracks started"),
	); err != nil {
		return nil, err
	}
	if m.players, err = meter.Int64UpDownCounter("spicier_players",
		metric.WithDescription("The number of connected players"),
	); err != nil {
		return nil, err
	}
	if m.messageLogs, err = meter.Int64Counter("logbot_message_logs",
		metric.WithDescription("The number of recorded message deletions and edits"),
	); err != nil {
		return nil, err
	}
	if m.notifications, err = meter.Int64Counter("twitchbot_notifications",
		metric.WithDescription("The number of stream announcements posted"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) CommandRun(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", name)))
}

func (m *Metrics) CommandFailed(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.commandErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("command", name)))
}

func (m *Metrics) TrackStarted(ctx context.Context, _ snowflake.ID) {
	if m == nil {
		return
	}
	m.tracksStarted.Add(ctx, 1)
}

func (m *Metrics) PlayersChanged(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.players.Add(ctx, delta)
}

func (m *Metrics) MessageLogged(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.messageLogs.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

func (m *Metrics) NotificationSent(ctx context.Context) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1)
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
