package service

import (
	"context"
	"time"

	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
)

// MonitoringService reports the latest derived state of a device.
type MonitoringService struct {
	series repository.SeriesRepo
}

func NewMonitoringService(series repository.SeriesRepo) *MonitoringService {
	return &MonitoringService{series: series}
}

// Snapshot returns the newest occupancy, rate and hourly energy of deviceID.
// Missing parts stay nil, so a fresh device yields an empty snapshot rather than an error.
func (s *MonitoringService) Snapshot(ctx context.Context, deviceID string) (models.DeviceSnapshot, error) {
	snap, err := s.series.Latest(ctx, deviceID)
	if err != nil {
		return models.DeviceSnapshot{}, err
	}
	snap.DeviceID = deviceID
	if snap.Occupancy != nil {
		snap.Occupancy.Timestamp = toUTC(snap.Occupancy.Timestamp)
	}
	if snap.Rate != nil {
		snap.Rate.Timestamp = toUTC(snap.Rate.Timestamp)
	}
	if snap.HourlyEnergy != nil {
		snap.HourlyEnergy.HourStart = toUTC(snap.HourlyEnergy.HourStart)
	}
	return snap, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
