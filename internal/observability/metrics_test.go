package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PacketHandled("power-meter", "ok", time.Second)
	m.StageFailed("decode")
	m.RecordWritten("rate")
	m.BackfillWritten(3)
	if m.Registry() != nil {
		t.Fatalf("nil metrics should have no registry")
	}
}

func TestCountersAndHandler(t *testing.T) {
	m := NewMetrics()
	m.PacketHandled("building-sensor", "ok", 10*time.Millisecond)
	m.PacketHandled("building-sensor", "ok", 10*time.Millisecond)
	m.StageFailed("occupancy")
	m.BackfillWritten(2)
	m.BackfillWritten(0)

	if got := testutil.ToFloat64(m.packetsTotal.WithLabelValues("building-sensor", "ok")); got != 2 {
		t.Fatalf("packets = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.backfillHours); got != 2 {
		t.Fatalf("backfill hours = %v; want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "telemetry_stage_failures_total") {
		t.Fatalf("metrics output missing stage failures")
	}
}

func TestNewMetricsTwiceDoesNotPanic(t *testing.T) {
	_ = NewMetrics()
	_ = NewMetrics()
}

func TestGinMiddleware_RecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/health", "200")); got != 1 {
		t.Fatalf("requests = %v; want 1", got)
	}
}
