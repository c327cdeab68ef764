package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// backendStatus reports whether the backend connection is up.
type backendStatus interface {
	Connected() bool
}

func debugRouter(backend backendStatus) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"backend": backend.Connected(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// serveDebug serves the metrics and health endpoints on addr until ctx is done.
func serveDebug(ctx context.Context, addr string, backend backendStatus) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           debugRouter(backend),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("debug endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
