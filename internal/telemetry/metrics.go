// Package telemetry exposes Prometheus metrics for the console's gateway link.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relic",
			Name:      "frames_total",
			Help:      "Inbound gateway frames decoded, by kind.",
		},
		[]string{"kind"},
	)

	DecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relic",
			Name:      "decode_errors_total",
			Help:      "Inbound frames dropped because they could not be parsed.",
		},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relic",
			Name:      "commands_total",
			Help:      "Outbound commands by kind and result (sent, failed, disconnected, queue_full).",
		},
		[]string{"kind", "result"},
	)

	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relic",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after a lost or failed connection.",
		},
	)

	LinkState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relic",
			Name:      "link_state",
			Help:      "Gateway link state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting).",
		},
	)

	RosterSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relic",
			Name:      "roster_size",
			Help:      "Nodes in the most recent roster snapshot.",
		},
	)

	AssistantDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relic",
			Name:      "assistant_request_duration_seconds",
			Help:      "Latency of rule-assistant requests.",
			// 100ms .. ~200s
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"provider", "status"},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "relic",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version).",
		},
		[]string{"version"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "relic",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		FramesTotal,
		DecodeErrorsTotal,
		CommandsTotal,
		ReconnectsTotal,
		LinkState,
		RosterSize,
		AssistantDuration,
		buildInfo,
		uptime,
	)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup with the ldflags version.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
