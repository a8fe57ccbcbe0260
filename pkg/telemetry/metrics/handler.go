package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
//
// It exposes the collector's registry in the Prometheus exposition format,
// or OpenMetrics when the scraper asks for it.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			Registry:          c.registry,
		},
	)
}

// Serve serves the metrics endpoint at addr and path until ctx is canceled,
// then shuts the server down. Each route function may mount further
// handlers, such as health probes, on the same listener.
func (c *Collector) Serve(ctx context.Context, addr, path string, routes ...func(mux *http.ServeMux)) error {
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	for _, route := range routes {
		route(mux)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Default().With("component", "telemetry.metrics").Info("metrics server listening", "address", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
