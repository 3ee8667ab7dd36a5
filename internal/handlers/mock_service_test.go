package handlers

import (
	"context"
	"net/http"
	"testing"

	"building_telemetry/internal/ingest"
	"building_telemetry/internal/models"
	"building_telemetry/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genTokenToken string
	genTokenErr   error
	parseName     string
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseName, m.parseErr
}

type mockIngest struct {
	err     error
	packets []models.RawPacket
}

func (m *mockIngest) Dispatch(ctx context.Context, pkt models.RawPacket) error {
	m.packets = append(m.packets, pkt)
	return m.err
}

type mockMonitoring struct {
	snap       models.DeviceSnapshot
	err        error
	lastDevice string
}

func (m *mockMonitoring) Snapshot(ctx context.Context, deviceID string) (models.DeviceSnapshot, error) {
	m.lastDevice = deviceID
	snap := m.snap
	snap.DeviceID = deviceID
	return snap, m.err
}

type mockSeries struct {
	points     []models.Point
	deviations []models.Deviation
	err        error

	lastDevice  string
	lastSeries  models.Series
	lastFilter  service.SeriesFilter
	lastDevFilt service.DeviationFilter
}

func (m *mockSeries) Points(ctx context.Context, deviceID string, s models.Series, f service.SeriesFilter) ([]models.Point, error) {
	m.lastDevice = deviceID
	m.lastSeries = s
	m.lastFilter = f
	return m.points, m.err
}

func (m *mockSeries) Deviations(ctx context.Context, deviceID string, f service.DeviationFilter) ([]models.Deviation, error) {
	m.lastDevice = deviceID
	m.lastDevFilt = f
	return m.deviations, m.err
}

type mockBackfill struct {
	written    int
	err        error
	lastDevice string
}

func (m *mockBackfill) Backfill(ctx context.Context, deviceID string) (int, error) {
	m.lastDevice = deviceID
	return m.written, m.err
}

// ---- Shared Test Helpers ----

func newTestHandler(t *testing.T, s *service.Service) *Handler {
	t.Helper()
	p, err := ingest.NewParser()
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return NewHandler(s, p, nil, nil)
}

func newTestRouter(t *testing.T, s *service.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return newTestHandler(t, s).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withHeader(req *http.Request, h http.Header) *http.Request {
	for k, vv := range h {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
