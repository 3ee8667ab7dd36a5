package service

import (
	"context"
	"fmt"

	"building_telemetry/internal/config"
	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/observability"
	"building_telemetry/internal/repository"
	"building_telemetry/internal/timeutil"
)

type Authorization interface {
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (string, error)
}

// Ingest accepts one inbound packet.
type Ingest interface {
	Dispatch(ctx context.Context, pkt models.RawPacket) error
}

// Monitoring exposes the latest derived state of a device.
type Monitoring interface {
	Snapshot(ctx context.Context, deviceID string) (models.DeviceSnapshot, error)
}

// Series exposes stored series and deviations with filtering.
type Series interface {
	Points(ctx context.Context, deviceID string, series models.Series, f SeriesFilter) ([]models.Point, error)
	Deviations(ctx context.Context, deviceID string, f DeviationFilter) ([]models.Deviation, error)
}

// Backfill runs the hourly aggregation of one device on demand.
type Backfill interface {
	Backfill(ctx context.Context, deviceID string) (int, error)
}

// Service aggregates all sub-services consumed by the handlers.
type Service struct {
	Ingest
	Monitoring
	Series
	Backfill
	Authorization

	// Sweep is scheduled by main; it is not part of the HTTP surface.
	Sweep *BackfillSweep
}

// NewService wires the repository layer into the derivation pipeline and the read side.
// remote may be nil when devices are provisioned out of band.
func NewService(repos *repository.Repository, cfg *config.Config, remote DeviceFetcher, clock timeutil.Clock, metrics *observability.Metrics, log *logger.Logger) (*Service, error) {
	policy, err := PolicyFromConfig(cfg.Deviation)
	if err != nil {
		return nil, fmt.Errorf("deviation policy: %w", err)
	}
	pipeline := NewPipeline(repos, clock, PipelineOptions{
		CalibrationFactor: cfg.Pipeline.CalibrationFactor,
		PulseLookback:     cfg.Pipeline.PulseLookback,
		MinHourlySamples:  cfg.Pipeline.MinHourlySamples,
		StoreTimeout:      cfg.Store.Timeout,
		Deviation:         policy,
	}, metrics, log)
	registry := NewDeviceRegistry(repos.Devices, remote, log)

	return &Service{
		Ingest:        NewDispatcher(registry, pipeline, metrics, log),
		Monitoring:    NewMonitoringService(repos.Series),
		Series:        NewSeriesService(repos.Series, repos.Deviations),
		Backfill:      pipeline,
		Authorization: NewAuthService(cfg.Auth),
		Sweep:         NewBackfillSweep(repos.Devices, pipeline, log),
	}, nil
}
