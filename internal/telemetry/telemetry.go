// Package telemetry exposes Prometheus counters for one pipeline run —
// declarations analyzed, entities collected, warnings emitted, spans
// rewritten — served over HTTP when the CLI is started with a
// --metrics-addr flag.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters incremented over the lifetime of the pipeline.
type Metrics struct {
	DeclarationsAnalyzed prometheus.Counter
	EntitiesCollected    prometheus.Counter
	WarningsEmitted      prometheus.Counter
	SpansRewritten       prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics with its own registry, so multiple pipeline runs in
// a single process (e.g. the watch subcommand) don't collide with
// prometheus's global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DeclarationsAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "apisurface",
			Name:      "declarations_analyzed_total",
			Help:      "Number of AstDeclarations constructed by the analyzer.",
		}),
		EntitiesCollected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "apisurface",
			Name:      "entities_collected_total",
			Help:      "Number of entities admitted by the collector.",
		}),
		WarningsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "apisurface",
			Name:      "warnings_emitted_total",
			Help:      "Number of semantic warnings reported during metadata resolution.",
		}),
		SpansRewritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "apisurface",
			Name:      "spans_rewritten_total",
			Help:      "Number of top-level spans rewritten by the review file generator.",
		}),
	}
}

// Handler returns the HTTP handler serving this Metrics' registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server on addr exposing Handler() at /metrics,
// shutting down when ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
