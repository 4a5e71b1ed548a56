package database

import (
	"context"
	"embed"
	"log/slog"

	"emperror.dev/errors"
	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"

	"github.com/spicierbot/spicier/pkg/config"
)

//go:embed migrations
var migrations embed.FS

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// sq builds queries with $N placeholders, which both pgx and modernc sqlite accept.
var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func init() {
	migrate.SetTable("spicier_migrations")
	sqlx.BindDriver("sqlite", sqlx.DOLLAR)
}

type DB struct {
	dbx     *sqlx.DB
	dialect string
	log     *slog.Logger
}

// Open connects to the configured database. It does not run migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	var (
		driverName     string
		dataSourceName string
		dialect        string
	)
	switch cfg.Type {
	case config.DatabaseTypePostgres:
		driverName = "pgx"
		dataSourceName = cfg.Postgres.DataSourceName()
		dialect = "postgres"
	case config.DatabaseTypeSQLite:
		driverName = "sqlite"
		dataSourceName = cfg.SQLite.Path
		dialect = "sqlite3"
	default:
		return nil, errors.Errorf("unknown database type: %q", cfg.Type)
	}

	dbx, err := sqlx.ConnectContext(ctx, driverName, dataSourceName)
	if err != nil {
		return nil, errors.WrapIf(err, "connecting to database")
	}
	if cfg.Type == config.DatabaseTypeSQLite {
		// One connection keeps in-memory databases alive and serializes writers.
		dbx.SetMaxOpenConns(1)
		dbx.SetMaxIdleConns(1)
		dbx.SetConnMaxLifetime(0)
	}

	log.Info("Opened database connection", "type", cfg.Type)
	return &DB{dbx: dbx, dialect: dialect, log: log}, nil
}

// Migrate applies (or with up=false, rolls back) the embedded migrations and
// returns how many were run.
func (d *DB) Migrate(up bool) (int, error) {
	src := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "migrations",
	}
	dir := migrate.Up
	if !up {
		dir = migrate.Down
	}
	n, err := migrate.Exec(d.dbx.DB, d.dialect, src, dir)
	if err != nil {
		return n, errors.WrapIf(err, "running migrations")
	}
	if n > 0 {
		d.log.Info("Ran database migrations", "count", n, "up", up)
	}
	return n, nil
}

// Ping checks the connection and is used for health reporting.
func (d *DB) Ping(ctx context.Context) error {
	return d.dbx.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.dbx.Close()
}
