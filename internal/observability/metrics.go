package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline and API collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	packetsTotal      *prometheus.CounterVec
	stageFailures     *prometheus.CounterVec
	derivedWritten    *prometheus.CounterVec
	packetDuration    *prometheus.HistogramVec
	backfillHours     prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		packetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_packets_total",
			Help: "Packets handled by device type and outcome.",
		}, []string{"device_type", "outcome"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_stage_failures_total",
			Help: "Pipeline stage failures by stage.",
		}, []string{"stage"}),
		derivedWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_records_written_total",
			Help: "Records written by the pipeline by record kind.",
		}, []string{"kind"}),
		packetDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telemetry_packet_duration_seconds",
			Help:    "Time spent processing one packet.",
			Buckets: prometheus.DefBuckets,
		}, []string{"device_type"}),
		backfillHours: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_backfill_hours_total",
			Help: "Hourly energy aggregates written by backfill.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.packetsTotal,
		m.stageFailures,
		m.derivedWritten,
		m.packetDuration,
		m.backfillHours,
		m.httpRequestsTotal,
		m.httpDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) PacketHandled(deviceType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.packetsTotal.WithLabelValues(deviceType, outcome).Inc()
	m.packetDuration.WithLabelValues(deviceType).Observe(d.Seconds())
}

func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordWritten(kind string) {
	if m == nil {
		return
	}
	m.derivedWritten.WithLabelValues(kind).Inc()
}

func (m *Metrics) BackfillWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.backfillHours.Add(float64(n))
}
