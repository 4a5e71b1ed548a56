package botutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(log *slog.Logger, name string) (context.Context, context.CancelFunc) {
	log.Info(name + " is running. Press Ctrl+C to exit.")
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
