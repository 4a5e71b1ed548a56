package config

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SPICIER_"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrBadConfig wraps every load and validation failure.
var ErrBadConfig = errors.New("bad config")

// Default returns the configuration used for keys missing from every source.
func Default() Config {
	return Config{
		Prefix:     "!",
		DeleteTime: 10,
		LeaveTime:  60,
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
		},
		Database: DatabaseConfig{
			Type: DatabaseTypeSQLite,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Username: "postgres",
				Database: "spicier",
				SSLMode:  "disable",
			},
			SQLite: SQLiteConfig{Path: "./spicier.db"},
		},
		S3: S3Config{Region: "us-southeast-1"},
		Metrics: MetricsConfig{
			ListenAddr: ":8081",
			Endpoint:   "/metrics",
		},
		Twitch: TwitchConfig{PollInterval: 120 * time.Second},
	}
}

// Load reads .env, then the yaml file at path, then SPICIER_ environment
// variables, in increasing priority. A missing file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "error", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, errors.WrapIf(err, "loading defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, errors.Wrapf(ErrBadConfig, "reading %s: %v", path, err)
			}
			slog.Warn("Config file not found, using defaults and environment", "path", path)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, errors.WrapIf(err, "loading environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrapf(ErrBadConfig, "decoding: %v", err)
	}
	cfg.Path = path

	for _, name := range []string{"DISCORD_TOKEN", "TOKEN"} {
		if token := os.Getenv(name); token != "" {
			cfg.Discord.Token = token
			break
		}
	}
	return cfg, nil
}

// envKey maps SPICIER_DATABASE__POSTGRES__HOST to database.postgres.host.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Wrapf(ErrBadConfig, "%s failed %q", strings.ToLower(fe.Namespace()), fe.Tag())
		}
		return errors.Wrap(ErrBadConfig, err.Error())
	}
	return nil
}

type Config struct {
	Path                string         `koanf:"-"`
	Discord             DiscordConfig  `koanf:"discord" validate:"-"`
	Prefix              string         `koanf:"prefix" validate:"required,max=10"`
	DeleteAfter         bool           `koanf:"delete_after"`
	DeleteTime          int            `koanf:"delete_time" validate:"gte=0"`
	LeaveTime           int            `koanf:"leave_time" validate:"gte=0"`
	HealthcheckEndpoint string         `koanf:"healthcheck_endpoint" validate:"omitempty,url"`
	Log                 LogConfig      `koanf:"log" validate:"-"`
	Lavalink            LavalinkConfig `koanf:"lavalink" validate:"-"`
	Database            DatabaseConfig `koanf:"database" validate:"-"`
	S3                  S3Config       `koanf:"s3" validate:"-"`
	Metrics             MetricsConfig  `koanf:"metrics" validate:"-"`
	Sentry              SentryConfig   `koanf:"sentry" validate:"-"`
	Twitch              TwitchConfig   `koanf:"twitch" validate:"-"`
}

// DeleteDelay is how long error replies and failed command messages are kept.
func (c Config) DeleteDelay() time.Duration {
	return time.Duration(c.DeleteTime) * time.Second
}

// LeaveDelay is how long the bot stays alone in a voice channel.
func (c Config) LeaveDelay() time.Duration {
	return time.Duration(c.LeaveTime) * time.Second
}

func (c Config) String() string {
	return fmt.Sprintf("\nPrefix: %s\nDeleteAfter: %t\nDeleteTime: %d\nLeaveTime: %d\nDiscord: %s\nLog: %s\nLavalink: %s\nDatabase: %s\nS3: %s\nMetrics: %s\nSentry: %s\nTwitch: %s",
		c.Prefix,
		c.DeleteAfter,
		c.DeleteTime,
		c.LeaveTime,
		c.Discord,
		c.Log,
		c.Lavalink,
		c.Database,
		c.S3,
		c.Metrics,
		c.Sentry,
		c.Twitch,
	)
}

// Validate checks the sections every bot needs. Bot-specific sections
// (Lavalink, S3, Twitch) are validated by the bot that uses them.
func (c Config) Validate() error {
	if err := check(c); err != nil {
		return err
	}
	if err := c.Discord.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

type DiscordConfig struct {
	Token    string         `koanf:"token" validate:"required"`
	OwnerIDs []snowflake.ID `koanf:"owner_ids"`
}

func (c DiscordConfig) String() string {
	return fmt.Sprintf("\n  Token: %s\n  OwnerIDs: %v",
		strings.Repeat("*", len(c.Token)),
		c.OwnerIDs,
	)
}

func (c DiscordConfig) Validate() error {
	return check(c)
}

// IsOwner reports whether id is one of the configured bot owners.
func (c DiscordConfig) IsOwner(id snowflake.ID) bool {
	for _, owner := range c.OwnerIDs {
		if owner == id {
			return true
		}
	}
	return false
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	File  bool   `koanf:"file"`
	Dir   string `koanf:"dir" validate:"required_if=File true"`
}

func (c LogConfig) String() string {
	return fmt.Sprintf("\n  Level: %s\n  File: %t\n  Dir: %s", c.Level, c.File, c.Dir)
}

func (c LogConfig) Validate() error {
	return check(c)
}

// SlogLevel converts the configured level name.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type LavalinkNode struct {
	Name     string `koanf:"name" validate:"required"`
	Address  string `koanf:"address" validate:"required,hostname_port"`
	Password string `koanf:"password"`
	Secure   bool   `koanf:"secure"`
}

type LavalinkConfig struct {
	Nodes []LavalinkNode `koanf:"nodes" validate:"required,min=1,dive"`
}

func (c LavalinkConfig) String() string {
	var b strings.Builder
	for _, n := range c.Nodes {
		fmt.Fprintf(&b, "\n  - %s %s secure=%t password=%s", n.Name, n.Address, n.Secure, strings.Repeat("*", len(n.Password)))
	}
	return b.String()
}

func (c LavalinkConfig) Validate() error {
	return check(c)
}

type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

type DatabaseConfig struct {
	Type     DatabaseType   `koanf:"type"`
	Postgres PostgresConfig `koanf:"postgres"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
}

func (c DatabaseConfig) String() string {
	return fmt.Sprintf("\n  Type: %s\n  Postgres: %s\n  SQLite: %s",
		c.Type,
		c.Postgres,
		c.SQLite,
	)
}

func (c DatabaseConfig) Validate() error {
	switch c.Type {
	case DatabaseTypePostgres:
		return check(c.Postgres)
	case DatabaseTypeSQLite:
		return check(c.SQLite)
	default:
		return errors.Wrapf(ErrBadConfig, "unknown database type: %q", c.Type)
	}
}

type PostgresConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required,gt=0,lt=65536"`
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`
	Database string `koanf:"database" validate:"required"`
	SSLMode  string `koanf:"ssl_mode" validate:"required"`
}

func (c PostgresConfig) String() string {
	return fmt.Sprintf("\n    Host: %s\n    Port: %d\n    Username: %s\n    Password: %s\n    Database: %s\n    SSLMode: %s",
		c.Host,
		c.Port,
		c.Username,
		strings.Repeat("*", len(c.Password)),
		c.Database,
		c.SSLMode,
	)
}

func (c PostgresConfig) DataSourceName() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `koanf:"path" validate:"required"`
}

func (c SQLiteConfig) String() string {
	return fmt.Sprintf("\n    Path: %s", c.Path)
}

type S3Config struct {
	Key      string `koanf:"key" validate:"required"`
	Secret   string `koanf:"secret" validate:"required"`
	Endpoint string `koanf:"endpoint" validate:"required,url"`
	Bucket   string `koanf:"bucket" validate:"required"`
	Region   string `koanf:"region" validate:"required"`
}

func (c S3Config) String() string {
	return fmt.Sprintf("\n  Key: %s\n  Secret: %s\n  Endpoint: %s\n  Bucket: %s\n  Region: %s",
		c.Key,
		strings.Repeat("*", len(c.Secret)),
		c.Endpoint,
		c.Bucket,
		c.Region,
	)
}

func (c S3Config) Validate() error {
	return check(c)
}

type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr"`
	Endpoint   string `koanf:"endpoint"`
}

func (c MetricsConfig) String() string {
	return fmt.Sprintf("\n  Enabled: %t\n  ListenAddr: %s\n  Endpoint: %s",
		c.Enabled,
		c.ListenAddr,
		c.Endpoint,
	)
}

func (c MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ListenAddr == "" {
		return errors.Wrap(ErrBadConfig, "metrics.listen_addr must be set")
	}
	if !strings.HasPrefix(c.Endpoint, "/") {
		return errors.Wrap(ErrBadConfig, "metrics.endpoint must start with /")
	}
	return nil
}

type SentryConfig struct {
	DSN         string `koanf:"dsn"`
	Environment string `koanf:"environment"`
}

func (c SentryConfig) String() string {
	return fmt.Sprintf("\n  DSN: %s\n  Environment: %s",
		strings.Repeat("*", len(c.DSN)),
		c.Environment,
	)
}

type TwitchConfig struct {
	ClientID     string        `koanf:"client_id" validate:"required"`
	ClientSecret string        `koanf:"client_secret" validate:"required"`
	PollInterval time.Duration `koanf:"poll_interval" validate:"gte=10s"`
}

func (c TwitchConfig) String() string {
	return fmt.Sprintf("\n  ClientID: %s\n  ClientSecret: %s\n  PollInterval: %s",
		c.ClientID,
		strings.Repeat("*", len(c.ClientSecret)),
		c.PollInterval,
	)
}

func (c TwitchConfig) Validate() error {
	return check(c)
}
