package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/spicierbot/spicier/pkg/botutil"
	"github.com/spicierbot/spicier/pkg/config"
	"github.com/spicierbot/spicier/pkg/logging"
	"github.com/spicierbot/spicier/pkg/twitchbot"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yml", "path to the YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Loading config: %v\n", err)
		os.Exit(1)
	}
	logs, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer logs.Close()

	ctx, stop := botutil.ShutdownContext(logs.Logger, "Twitchbot")
	defer stop()

	b, err := twitchbot.New(ctx, cfg, logs)
	if err != nil {
		logs.Logger.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}
	if err := b.Run(ctx); err != nil {
		logs.Logger.Error("Bot error", "error", err)
		os.Exit(1)
	}
}
