// Package metrics exposes prometheus counters for HTTP traffic and booking
// outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"rental-portal/internal/config"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec

	bookingsSubmitted *prometheus.CounterVec
	bookingsDecided   *prometheus.CounterVec
	manualOverrides   *prometheus.CounterVec
	rateLimited       prometheus.Counter
	jobRuns           *prometheus.CounterVec
	integrityFaults   prometheus.Gauge
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: prometheus.DefBuckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	bookingsSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "bookings_submitted_total"}, []string{"result"})
	bookingsDecided := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "booking_decisions_total"}, []string{"decision", "result"})
	manualOverrides := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "unit_manual_overrides_total"}, []string{"status"})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "rate_limited_requests_total"})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "scheduled_job_runs_total"}, []string{"job", "result"})
	integrityFaults := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "occupancy_integrity_violations"})
	r.MustRegister(bookingsSubmitted, bookingsDecided, manualOverrides, rateLimited, jobRuns, integrityFaults)

	return &Metrics{
		registry:          r,
		httpReqCnt:        httpReqCnt,
		httpDur:           httpDur,
		httpInfl:          httpInfl,
		bookingsSubmitted: bookingsSubmitted,
		bookingsDecided:   bookingsDecided,
		manualOverrides:   manualOverrides,
		rateLimited:       rateLimited,
		jobRuns:           jobRuns,
		integrityFaults:   integrityFaults,
	}
}

// result labels an outcome by its failure kind
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if k := errorx.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func (m *Metrics) BookingSubmitted(err error) {
	m.bookingsSubmitted.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) BookingDecided(d models.Decision, err error) {
	m.bookingsDecided.WithLabelValues(string(d), result(err)).Inc()
}

func (m *Metrics) ManualOverride(status models.OccupancyStatus) {
	m.manualOverrides.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) JobRun(job string, err error) {
	m.jobRuns.WithLabelValues(job, result(err)).Inc()
}

func (m *Metrics) IntegrityViolations(n int) {
	m.integrityFaults.Set(float64(n))
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
