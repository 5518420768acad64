// Package metrics wraps Prometheus collectors for the MQI client, modeled
// on the teacher's internal/metrics.PrometheusMetrics: one struct owning a
// private registry and every collector, with a constructor and a handler
// for exposition. A nil *Metrics is a safe no-op, same as internal/logging.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	enginesLaunched   prometheus.Counter
	enginesCrashed    prometheus.Counter
	launchDuration    prometheus.Histogram
	handshakeFailures prometheus.Counter

	sessionsOpened      prometheus.Counter
	sessionStateChanges *prometheus.CounterVec
	sessionsBroken      prometheus.Counter

	queryDuration *prometheus.HistogramVec
	queryOutcomes *prometheus.CounterVec

	frameDecodeErrors prometheus.Counter
}

// New builds a Metrics instance registered against a fresh registry, in the
// "mqi" namespace, matching the teacher's per-product namespacing.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		enginesLaunched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqi", Name: "engines_launched_total", Help: "Engine processes successfully launched.",
		}),
		enginesCrashed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqi", Name: "engines_crashed_total", Help: "Engine processes that exited outside a tracked termination path.",
		}),
		launchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mqi", Name: "engine_launch_seconds", Help: "Time from spawn to completed handshake.",
			Buckets: prometheus.DefBuckets,
		}),
		handshakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqi", Name: "handshake_failures_total", Help: "Handshakes rejected by the engine (bad password) or timed out.",
		}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqi", Name: "sessions_opened_total", Help: "Sessions that completed a handshake.",
		}),
		sessionStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mqi", Name: "session_state_changes_total", Help: "Session state machine transitions.",
		}, []string{"from", "to"}),
		sessionsBroken: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqi", Name: "sessions_broken_total", Help: "Sessions that transitioned to Broken.",
		}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mqi", Name: "query_duration_seconds", Help: "Query duration by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		queryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mqi", Name: "query_outcomes_total", Help: "Query outcomes by kind and result.",
		}, []string{"kind", "outcome"}),
		frameDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqi", Name: "frame_decode_errors_total", Help: "Frames that failed to decode.",
		}),
	}
	reg.MustRegister(
		m.enginesLaunched, m.enginesCrashed, m.launchDuration, m.handshakeFailures,
		m.sessionsOpened, m.sessionStateChanges, m.sessionsBroken,
		m.queryDuration, m.queryOutcomes, m.frameDecodeErrors,
	)
	return m
}

// Handler returns an http.Handler exposing these metrics for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordEngineLaunched(d time.Duration) {
	if m == nil {
		return
	}
	m.enginesLaunched.Inc()
	m.launchDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordEngineCrashed() {
	if m == nil {
		return
	}
	m.enginesCrashed.Inc()
}

func (m *Metrics) RecordHandshakeFailure() {
	if m == nil {
		return
	}
	m.handshakeFailures.Inc()
}

func (m *Metrics) RecordSessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpened.Inc()
}

func (m *Metrics) RecordStateChange(from, to string) {
	if m == nil {
		return
	}
	m.sessionStateChanges.WithLabelValues(from, to).Inc()
	if to == "broken" {
		m.sessionsBroken.Inc()
	}
}

func (m *Metrics) RecordQuery(kind string, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.queryOutcomes.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordFrameDecodeError() {
	if m == nil {
		return
	}
	m.frameDecodeErrors.Inc()
}
