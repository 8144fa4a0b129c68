// Package metrics exposes the server counters on a private prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iconify_lsp"

// Metrics holds the server collectors.
type Metrics struct {
	registry *prometheus.Registry

	indexBuilds      prometheus.Counter
	indexedIcons     *prometheus.GaugeVec
	probes           *prometheus.CounterVec
	renders          *prometheus.CounterVec
	decorationPasses prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		indexBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Number of icon index builds.",
		}),
		indexedIcons: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_icons",
			Help:      "Number of icons found by the last index build of a workspace.",
		}, []string{"root"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_probes_total",
			Help:      "Filesystem probes made for names missing from the index.",
		}, []string{"outcome"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Icon renders by outcome.",
		}, []string{"outcome"}),
		decorationPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoration_passes_total",
			Help:      "Number of decoration passes published.",
		}),
	}
	m.registry.MustRegister(
		m.indexBuilds,
		m.indexedIcons,
		m.probes,
		m.renders,
		m.decorationPasses,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
// IndexBuilt records an index build of the workspace at root.
func (m *Metrics) IndexBuilt(root string, icons int) {
	if m == nil {
		return
	}
	m.indexBuilds.Inc()
	m.indexedIcons.WithLabelValues(root).Set(float64(icons))
}

// ForgetWorkspace drops the per workspace series of root.
func (m *Metrics) ForgetWorkspace(root string) {
	if m == nil {
		return
	}
	m.indexedIcons.DeleteLabelValues(root)
}

// Probe records a resolver probe.
func (m *Metrics) Probe(hit bool) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(outcome(hit, "hit", "miss")).Inc()
}

// Render records the outcome of one icon render.
func (m *Metrics) Render(err error) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome(err == nil, "ok", "error")).Inc()
}

// DecorationPass records one published decoration pass.
func (m *Metrics) DecorationPass() {
	if m == nil {
		return
	}
	m.decorationPasses.Inc()
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the debug listener on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
