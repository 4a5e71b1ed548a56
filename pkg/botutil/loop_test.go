package botutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunLoopCallsAfterReady(t *testing.T) {
	var ready atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	called := make(chan struct{}, 1)

	ready.Store(true)

	go RunLoop(ctx, &ready, 10*time.Millisecond, func(context.Context) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Error("fn was not called within timeout")
	}
}

func TestRunLoopExits(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
	}{
		{"ready", true},
		{"before ready", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ready atomic.Bool
			ready.Store(tt.ready)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			go func() {
				RunLoop(ctx, &ready, time.Hour, func(context.Context) {
					t.Error("fn should not be called")
				})
				close(done)
			}()

			cancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Error("RunLoop did not exit after cancel")
			}
		})
	}
}

func TestRunLoopWaitsForReady(t *testing.T) {
	var ready atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	called := make(chan struct{}, 1)

	go RunLoop(ctx, &ready, 10*time.Millisecond, func(context.Context) {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	select {
	case <-called:
		t.Error("fn called before ready")
	case <-time.After(50 * time.Millisecond):
	}

	ready.Store(true)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Error("fn was not called after ready was set")
	}
}

func TestRunLoopRecoversPanics(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go RunLoop(ctx, &ready, 5*time.Millisecond, func(context.Context) {
		if calls.Add(1) == 2 {
			close(done)
		}
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("loop stopped after a panic")
	}
}
