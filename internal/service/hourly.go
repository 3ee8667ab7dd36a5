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

	"gonum.org/v1/gonum/stat"
)

// DefaultMinHourlySamples is the smallest rate sample count that yields an aggregate.
const DefaultMinHourlySamples = 30

// minutesPerHour scales a per-minute rate to energy per hour.
const minutesPerHour = 60.0

// HourlyAggregator backfills missing hourly energy aggregates from stored rate samples.
type HourlyAggregator struct {
	rates      repository.RateRepo
	aggregates repository.AggregateRepo
	clock      timeutil.Clock
	minSamples int
	timeout    time.Duration
	log        *logger.Logger
}

// NewHourlyAggregator builds an aggregator. timeout bounds each store call; zero means
// only the caller's context applies.
func NewHourlyAggregator(rates repository.RateRepo, aggregates repository.AggregateRepo, clock timeutil.Clock, minSamples int, timeout time.Duration, log *logger.Logger) *HourlyAggregator {
	if minSamples <= 0 {
		minSamples = DefaultMinHourlySamples
	}
	return &HourlyAggregator{
		rates:      rates,
		aggregates: aggregates,
		clock:      clock,
		minSamples: minSamples,
		timeout:    timeout,
		log:        log,
	}
}

// storeCtx derives the context of a single store call.
func (a *HourlyAggregator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Backfill writes every missing aggregate from the last covered hour up to the last
// complete hour, oldest first. It returns the number of aggregates written. A failing
// hour does not stop later hours; all failures are joined into the returned error.
// Only cancellation of ctx itself ends the walk early.
func (a *HourlyAggregator) Backfill(ctx context.Context, deviceID string) (int, error) {
	start, ok, err := a.startHour(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	if !ok {
		a.log.Debugw("backfill_no_anchor", "device_id", deviceID)
		return 0, nil
	}
	end := timeutil.TruncateHour(a.clock.Now().Add(-time.Hour))

	var (
		written int
		errs    []error
	)
	for h := start; !h.After(end); h = h.Add(time.Hour) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		done, err := a.aggregateHour(ctx, deviceID, h)
		if err != nil {
			a.log.Errorw("backfill_hour_failed", "device_id", deviceID, "hour", h, "err", err)
			errs = append(errs, fmt.Errorf("hour %s: %w", h.Format(time.RFC3339), err))
			continue
		}
		if done {
			written++
		}
	}
	return written, errors.Join(errs...)
}

func (a *HourlyAggregator) startHour(ctx context.Context, deviceID string) (time.Time, bool, error) {
	lastCtx, cancel := a.storeCtx(ctx)
	last, ok, err := a.aggregates.LastHour(lastCtx, deviceID)
	cancel()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last aggregate hour: %w", err)
	}
	if ok {
		return timeutil.TruncateHour(last.Add(time.Hour)), true, nil
	}

	firstCtx, cancel := a.storeCtx(ctx)
	first, ok, err := a.rates.FirstTimestamp(firstCtx, deviceID)
	cancel()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query first rate sample: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	return timeutil.TruncateHour(first), true, nil
}

// aggregateHour reports whether an aggregate was written for hour h.
func (a *HourlyAggregator) aggregateHour(ctx context.Context, deviceID string, h time.Time) (bool, error) {
	existsCtx, cancel := a.storeCtx(ctx)
	exists, err := a.aggregates.Exists(existsCtx, deviceID, h)
	cancel()
	if err != nil {
		return false, fmt.Errorf("check aggregate: %w", err)
	}
	if exists {
		return false, nil
	}

	rangeCtx, cancel := a.storeCtx(ctx)
	samples, err := a.rates.InRange(rangeCtx, deviceID, h, h.Add(time.Hour))
	cancel()
	if err != nil {
		return false, fmt.Errorf("query rate samples: %w", err)
	}
	if len(samples) < a.minSamples {
		a.log.Debugw("backfill_hour_sparse", "device_id", deviceID, "hour", h,
			"samples", len(samples), "required", a.minSamples)
		return false, nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Rate
	}
	agg := models.HourlyEnergyAggregate{
		DeviceID:  deviceID,
		HourStart: h,
		Value:     stat.Mean(values, nil) * minutesPerHour,
	}
	insertCtx, cancel := a.storeCtx(ctx)
	defer cancel()
	if err := a.aggregates.Insert(insertCtx, agg); err != nil {
		return false, err
	}
	return true, nil
}
