package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
	"building_telemetry/internal/timeutil"
)

// Defaults for the rate computation.
const (
	DefaultCalibrationFactor = 10000.0
	DefaultPulseLookback     = 24 * time.Hour
)

// PowerRateEstimator derives a per-minute rate from consecutive pulse samples.
type PowerRateEstimator struct {
	pulses      repository.PulseRepo
	rates       repository.RateRepo
	clock       timeutil.Clock
	calibration float64
	lookback    time.Duration
	log         *logger.Logger
}

func NewPowerRateEstimator(pulses repository.PulseRepo, rates repository.RateRepo, clock timeutil.Clock, calibration float64, lookback time.Duration, log *logger.Logger) *PowerRateEstimator {
	if calibration <= 0 {
		calibration = DefaultCalibrationFactor
	}
	if lookback <= 0 {
		lookback = DefaultPulseLookback
	}
	return &PowerRateEstimator{
		pulses:      pulses,
		rates:       rates,
		clock:       clock,
		calibration: calibration,
		lookback:    lookback,
		log:         log,
	}
}

// Estimate stores the rate for the pulse sample with packet number p recorded at ts.
// It returns (nil, nil) when no rate is available and a *DegenerateIntervalError when
// the current window has a zero interval.
func (e *PowerRateEstimator) Estimate(ctx context.Context, deviceID string, p uint16, ts time.Time) (*models.RateSample, error) {
	rate1, ok, err := e.rateFromPulses(ctx, deviceID, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.log.Debugw("rate_unavailable", "device_id", deviceID, "packet_number", p)
		return nil, nil
	}

	rate := rate1
	rate2, ok, err := e.rateFromPulses(ctx, deviceID, previousPacket(p))
	var degenerate *DegenerateIntervalError
	switch {
	case errors.As(err, &degenerate):
		e.log.Debugw("previous_window_degenerate", "device_id", deviceID, "packet_number", previousPacket(p))
	case err != nil:
		return nil, err
	case ok:
		rate = (rate1 + rate2) / 2.0
	}

	sample := models.RateSample{DeviceID: deviceID, Rate: rate, Timestamp: ts}
	if err := e.rates.Insert(ctx, sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// rateFromPulses computes the rate of the window ending at packet target.
func (e *PowerRateEstimator) rateFromPulses(ctx context.Context, deviceID string, target uint16) (float64, bool, error) {
	since := e.clock.Now().Add(-e.lookback)
	recent, err := e.pulses.Recent(ctx, deviceID, target, previousPacket(target), since)
	if err != nil {
		return 0, false, fmt.Errorf("query recent pulses: %w", err)
	}
	if len(recent) == 0 || recent[0].PacketNumber != target {
		return 0, false, nil
	}

	newest := recent[0]
	if len(recent) == 1 {
		return newest.CumulativeCount / e.calibration, true, nil
	}

	seconds := newest.Timestamp.Sub(recent[1].Timestamp).Seconds()
	if seconds <= 0 {
		return 0, false, &DegenerateIntervalError{DeviceID: deviceID, PacketNumber: target, At: newest.Timestamp}
	}
	multiplier := 60.0 / seconds
	return newest.CumulativeCount * multiplier / e.calibration, true, nil
}
