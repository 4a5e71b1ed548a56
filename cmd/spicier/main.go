package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/logging"
	"github.com/spicierbot/spicier/pkg/spicier"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the YAML config file",
	Value:   "config.yml",
	EnvVars: []string{"SPICIER_CONFIG"},
}

var app = &cli.App{
	Name:   "spicier",
	Usage:  "Lavalink music bot for Discord",
	Flags:  []cli.Flag{configFlag},
	Action: run,
	Commands: []*cli.Command{
		{
			Name:   "run",
			Usage:  "Run the bot",
			Action: run,
		},
		{
			Name:   "migrate",
			Usage:  "Apply database migrations and exit",
			Action: migrate,
			Flags: []cli.Flag{&cli.BoolFlag{
				Name:  "down",
				Usage: "Roll back the latest migration instead",
			}},
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func setup(c *cli.Context) (config.Config, *logging.Logging, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return config.Config{}, nil, cli.Exit("Loading config: "+err.Error(), 1)
	}
	logs, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return config.Config{}, nil, cli.Exit("Setting up logging: "+err.Error(), 1)
	}
	return cfg, logs, nil
}

func run(c *cli.Context) error {
	cfg, logs, err := setup(c)
	if err != nil {
		return err
	}
	defer logs.Close()
	logs.Logger.Debug("Loaded config", "config", cfg.String())

	ctx, stop := botutil.ShutdownContext(logs.Logger, "Spicier")
	defer stop()

	b, err := spicier.New(ctx, cfg, logs)
	if err != nil {
		logs.Logger.Error("Failed to create bot", "error", err)
		return cli.Exit("", 1)
	}
	if err := b.Run(ctx); err != nil {
		logs.Logger.Error("Bot error", "error", err)
		return cli.Exit("", 1)
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg, logs, err := setup(c)
	if err != nil {
		return err
	}
	defer logs.Close()
	if err := cfg.Database.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	db, err := database.Open(context.Background(), cfg.Database, logs.Logger)
	if err != nil {
		return cli.Exit("Opening database: "+err.Error(), 1)
	}
	defer db.Close()

	up := !c.Bool("down")
	n, err := db.Migrate(up)
	if err != nil {
		return cli.Exit("Running migrations: "+err.Error(), 1)
	}
	logs.Logger.Info("Ran migrations", "count", n, "up", up)
	return nil
}
