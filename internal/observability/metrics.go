// Package observability — metrics.go
//
// Prometheus metrics for the octoreflex decision-evaluation engine and
// streaming core.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only — no external exposure.
//
// Metric naming convention: octoreflex_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
//
// Cardinality control:
//   - Criterion/algorithm labels use the fixed closed set of algorithm
//     names (system spec §4.D table), not caller-supplied strings.
//   - Session id is NOT used as a label (unbounded cardinality); sessions
//     are tracked only as an aggregate gauge.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for octoreflex.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Decision kernel (system spec §4.D) ─────────────────────────────────

	// EvaluationsTotal counts completed Evaluate calls, by algorithm and
	// outcome (ok, invalid_input).
	EvaluationsTotal *prometheus.CounterVec

	// EvaluationLatency records Evaluate wall-clock duration.
	EvaluationLatency prometheus.Histogram

	// ─── Sensitivity / adjudication (system spec §4.E) ──────────────────────

	// BoundaryChangesTotal counts recommended-action flips observed by a
	// sensitivity.BoundaryTracker.
	BoundaryChangesTotal prometheus.Counter

	// ─── Frame codec (system spec §4.G) ──────────────────────────────────────

	// FramesDecodedTotal counts frames successfully decoded, by message
	// type name.
	FramesDecodedTotal *prometheus.CounterVec

	// FrameErrorsTotal counts decode failures, by wire.FrameError reason
	// (InvalidMagic, CrcMismatch, UnknownMessageType, PayloadTooLarge,
	// BufferCleared).
	FrameErrorsTotal *prometheus.CounterVec

	// ─── Protocol state machine (system spec §4.H) ──────────────────────────

	// SessionsActive is the current number of connections in StateReady.
	SessionsActive prometheus.Gauge

	// HandshakesTotal counts completed handshakes, by outcome (ready,
	// unsupported_version, invalid_message).
	HandshakesTotal *prometheus.CounterVec

	// EventsDroppedTotal counts events dropped from a session's bounded
	// outgoing queue (system spec §5 "Resource limits").
	EventsDroppedTotal prometheus.Counter

	// ─── Storage (optional decision run ledger) ─────────────────────────────

	// StorageWriteLatency records BoltDB write transaction latency.
	StorageWriteLatency prometheus.Histogram

	// StorageLedgerEntries is the current number of ledger entries.
	StorageLedgerEntries prometheus.Gauge

	// ─── Process ──────────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since the process started.
	UptimeSeconds prometheus.Gauge

	// startTime records when the process started (for uptime calculation).
	startTime time.Time
}

// NewMetrics creates and registers all octoreflex Prometheus metrics.
// Returns a *Metrics with all descriptors initialised.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octoreflex",
			Subsystem: "decision",
			Name:      "evaluations_total",
			Help:      "Total DecisionInput evaluations, by algorithm and outcome.",
		}, []string{"algorithm", "outcome"}),

		EvaluationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "octoreflex",
			Subsystem: "decision",
			Name:      "evaluation_latency_seconds",
			Help:      "Evaluate() wall-clock duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		BoundaryChangesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "octoreflex",
			Subsystem: "sensitivity",
			Name:      "boundary_changes_total",
			Help:      "Total recommended-action changes observed by boundary trackers.",
		}),

		FramesDecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octoreflex",
			Subsystem: "wire",
			Name:      "frames_decoded_total",
			Help:      "Total frames successfully decoded, by message type.",
		}, []string{"message_type"}),

		FrameErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octoreflex",
			Subsystem: "wire",
			Name:      "frame_errors_total",
			Help:      "Total frame decode failures, by reason.",
		}, []string{"reason"}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "octoreflex",
			Subsystem: "protocol",
			Name:      "sessions_active",
			Help:      "Current number of connections in the Ready state.",
		}),

		HandshakesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octoreflex",
			Subsystem: "protocol",
			Name:      "handshakes_total",
			Help:      "Total handshake attempts, by outcome.",
		}, []string{"outcome"}),

		EventsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "octoreflex",
			Subsystem: "protocol",
			Name:      "events_dropped_total",
			Help:      "Total events dropped from a session's bounded outgoing queue.",
		}),

		StorageWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "octoreflex",
			Subsystem: "storage",
			Name:      "write_latency_seconds",
			Help:      "BoltDB write transaction latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		StorageLedgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "octoreflex",
			Subsystem: "storage",
			Name:      "ledger_entries",
			Help:      "Current number of decision-run ledger entries in BoltDB.",
		}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "octoreflex",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the process started.",
		}),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationLatency,
		m.BoundaryChangesTotal,
		m.FramesDecodedTotal,
		m.FrameErrorsTotal,
		m.SessionsActive,
		m.HandshakesTotal,
		m.EventsDroppedTotal,
		m.StorageWriteLatency,
		m.StorageLedgerEntries,
		m.UptimeSeconds,
		// Standard Go runtime metrics.
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ServeMetrics starts the Prometheus HTTP metrics server on the given address.
// Blocks until ctx is cancelled or the server fails.
// The server binds to addr (e.g., "127.0.0.1:9091") and serves GET /metrics.
// Returns an error only if the server fails to start or encounters a fatal error.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

// updateUptime periodically updates the UptimeSeconds gauge.
func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
