package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/arbor/pkg/domain"
)

// Metrics holds the engine collectors.
type Metrics struct {
	decisions      *prometheus.CounterVec
	decisionErrors *prometheus.CounterVec
	depth          prometheus.Histogram
	agents         prometheus.Histogram
	cache          *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on promhttp.Handler().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_decisions_total",
			Help: "Total output decisions by outcome.",
		}, []string{"outcome"}),
		decisionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_decision_errors_total",
			Help: "Total failed decisions by error kind.",
		}, []string{"kind"}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_decision_depth",
			Help:    "Depth of the leaf reached by successful decisions.",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
		agents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_generator_agents",
			Help:    "Number of contributing agents per generator decision.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_tree_cache_requests_total",
			Help: "Parsed-tree cache lookups by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbor_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.decisions,
		m.decisionErrors,
		m.depth,
		m.agents,
		m.cache,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Hooks returns lifecycle hooks that record decisions into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			if e.Err != nil {
				m.decisions.WithLabelValues("error").Inc()
				m.decisionErrors.WithLabelValues(ErrorKind(e.Err)).Inc()
				return
			}
			m.decisions.WithLabelValues("ok").Inc()
			m.depth.Observe(float64(e.Depth))
		},
		OnGenerator: func(ctx context.Context, e *domain.GeneratorEvent) {
			if e.Err != nil {
				m.decisionErrors.WithLabelValues(ErrorKind(e.Err)).Inc()
				return
			}
			m.agents.Observe(float64(e.Contributors))
		},
	}
}

// CacheLookup records a parsed-tree cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// ErrorKind maps an engine error to a short metric label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrAggregation):
		return "aggregation"
	case errors.Is(err, domain.ErrDecision):
		return "decision"
	case errors.Is(err, domain.ErrInvalidContext):
		return "invalid_context"
	case errors.Is(err, domain.ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, domain.ErrMalformedTree):
		return "malformed_tree"
	case errors.Is(err, domain.ErrUnserializable):
		return "unserializable"
	case errors.Is(err, domain.ErrTreeNotFound):
		return "tree_not_found"
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Instrument wraps next so that each request is counted under route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
