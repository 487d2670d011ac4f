package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freesideatlanta/member-portal/internal/dto"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

const metricsNamespace = "portal"

// Ballot actions reported to metrics.
const (
	ActionNominate = "nominate"
	ActionVote     = "vote"
)

// MetricsService owns a private Prometheus registry and keeps running totals
// for the admin status snapshot.
type MetricsService struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec
	ballots      *prometheus.CounterVec
	txConflicts  prometheus.Counter

	requests      atomic.Uint64
	requestNanos  atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	nominations   atomic.Uint64
	votes         atomic.Uint64
	conflictCount atomic.Uint64
}

// NewMetricsService registers the portal collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &MetricsService{
		registry: reg,
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"method", "path", "status"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "tally_cache",
			Name:      "lookups_total",
			Help:      "Tally cache lookups by result.",
		}, []string{"result"}),
		cacheLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "tally_cache",
			Name:      "operation_seconds",
			Help:      "Tally cache round trip latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"op"}),
		ballots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "election",
			Name:      "ballot_actions_total",
			Help:      "Nominations and votes by outcome code.",
		}, []string{"action", "result"}),
		txConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "election",
			Name:      "transaction_conflicts_total",
			Help:      "Ballot transactions abandoned after exhausting retries.",
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Goroutines currently running.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served request. path must be a route
// pattern, not the raw URL.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a tally cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.cacheMisses.Add(1)
}

// ObserveCacheWrite records a tally cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordBallot counts a nomination or vote by its outcome. Only the error
// code is recorded, never who acted or for whom.
func (m *MetricsService) RecordBallot(action string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		code := appErrors.FromError(err).Code
		m.ballots.WithLabelValues(action, code).Inc()
		if code == appErrors.ErrTransactionConflict.Code {
			m.txConflicts.Inc()
			m.conflictCount.Add(1)
		}
		return
	}

	m.ballots.WithLabelValues(action, "ok").Inc()
	switch action {
	case ActionNominate:
		m.nominations.Add(1)
	case ActionVote:
		m.votes.Add(1)
	}
}

// Snapshot returns the running totals for the status endpoint.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	requests := m.requests.Load()

	snap := dto.MetricsSnapshot{
		RequestsTotal:        requests,
		CacheHits:            hits,
		CacheMisses:          misses,
		Nominations:          m.nominations.Load(),
		Votes:                m.votes.Load(),
		TransactionConflicts: m.conflictCount.Load(),
		Goroutines:           runtime.NumGoroutine(),
		GeneratedAt:          time.Now().UTC(),
	}
	if lookups := hits + misses; lookups > 0 {
		snap.CacheHitRatio = float64(hits) / float64(lookups)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}
	return snap
}
