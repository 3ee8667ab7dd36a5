package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
)

// occupancyOffset biases borderline ratios toward undercounting.
const occupancyOffset = 0.2

// OccupancyEstimator turns a CO2 reading into a headcount using the device's CO2 history.
type OccupancyEstimator struct {
	readings  repository.ReadingRepo
	occupancy repository.OccupancyRepo
	log       *logger.Logger
}

func NewOccupancyEstimator(readings repository.ReadingRepo, occupancy repository.OccupancyRepo, log *logger.Logger) *OccupancyEstimator {
	return &OccupancyEstimator{readings: readings, occupancy: occupancy, log: log}
}

// Estimate computes and stores one estimate. It returns (nil, nil) when the history
// is too thin to say anything yet.
func (e *OccupancyEstimator) Estimate(ctx context.Context, deviceID string, co2 float64, movement bool, ts time.Time) (*models.OccupancyEstimate, error) {
	value := models.MinOccupancy
	if movement {
		baseline, err := e.readings.Co2Baseline(ctx, deviceID)
		if err != nil {
			return nil, fmt.Errorf("query co2 baseline: %w", err)
		}
		v, ok := occupancyFromBaseline(co2, baseline)
		if !ok {
			e.log.Debugw("occupancy_insufficient_history", "device_id", deviceID, "timestamp", ts)
			return nil, nil
		}
		value = v
	}

	est := models.OccupancyEstimate{DeviceID: deviceID, Value: value, Timestamp: ts}
	if err := e.occupancy.Insert(ctx, est); err != nil {
		return nil, err
	}
	return &est, nil
}

// occupancyFromBaseline is floor((co2-min)/stddev - 0.2) clamped to the occupancy bounds.
func occupancyFromBaseline(co2 float64, b repository.Co2Baseline) (int, bool) {
	if !b.Valid || b.StdDev == 0 || math.IsNaN(b.StdDev) {
		return 0, false
	}
	diff := co2 - b.Min
	if diff == 0 {
		return 0, false
	}
	return clampOccupancy(math.Floor(diff/b.StdDev - occupancyOffset)), true
}

func clampOccupancy(v float64) int {
	switch {
	case v < models.MinOccupancy:
		return models.MinOccupancy
	case v > models.MaxOccupancy:
		return models.MaxOccupancy
	}
	return int(v)
}
