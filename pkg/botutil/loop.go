package botutil

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// RunLoop waits for ready to become true, then calls fn on each tick of
// interval until ctx is done. Panics in fn are recovered so the loop keeps
// running.
func RunLoop(ctx context.Context, ready *atomic.Bool, interval time.Duration, fn func(context.Context)) {
	readyTicker := time.NewTicker(1 * time.Second)
	defer readyTicker.Stop()
	for !ready.Load() {
		select {
		case <-ctx.Done():
			return
		case <-readyTicker.C:
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeCall(ctx, fn)
		}
	}
}

func safeCall(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in loop", "error", r)
		}
	}()
	fn(ctx)
}
