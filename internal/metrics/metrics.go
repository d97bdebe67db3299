package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "minischeduler/internal/errors"
)

const namespace = "minischeduler"

// Operations reported by the reservation workflow.
const (
	OpCreate = "create"
	OpCancel = "cancel"
	OpDecide = "decide"
)

type Metrics struct {
	registry *prometheus.Registry

	Outcomes     *prometheus.CounterVec
	RequestCount *prometheus.CounterVec
	RequestTime  *prometheus.HistogramVec
}

// New builds the collectors on a private registry so tests can create
// as many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_outcomes_total",
			Help:      "Reservation workflow results by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.Outcomes,
		m.RequestCount,
		m.RequestTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Outcome labels err by its kind, or "ok" when err is nil.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.KindOf(err))
}

// RecordOutcome is safe on a nil receiver.
func (m *Metrics) RecordOutcome(operation string, err error) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestTime.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// WatchDB exports connection pool statistics of db.
func (m *Metrics) WatchDB(db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, namespace))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
