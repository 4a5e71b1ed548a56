package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"emperror.dev/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type health struct {
	Ready bool `json:"ready"`
}

// Router serves m at endpoint and the readiness of the bot at /healthz.
func Router(m *Metrics, endpoint string, ready func() bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(endpoint, m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := health{Ready: ready()}
		if !h.Ready {
			render.Status(r, http.StatusServiceUnavailable)
		}
		render.JSON(w, r, h)
	})
	return r
}

// Serve runs the HTTP server until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.WrapIfWithDetails(err, "serving metrics", "addr", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
