package service

import (
	"context"
	"errors"
	"time"

	"building_telemetry/internal/config"
	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/observability"
	"building_telemetry/internal/repository"
	"building_telemetry/internal/timeutil"
)

// DefaultStoreTimeout bounds every store call made for one stage.
const DefaultStoreTimeout = 5 * time.Second

// PipelineOptions carries the tunables of the derivation stages.
type PipelineOptions struct {
	CalibrationFactor float64
	PulseLookback     time.Duration
	MinHourlySamples  int
	StoreTimeout      time.Duration
	Deviation         DeviationPolicy
}

// Pipeline runs the derivation stages for one packet at a time.
// It keeps no per-device state; every stage re-reads the history it needs.
type Pipeline struct {
	readings   repository.ReadingRepo
	pulses     repository.PulseRepo
	occupancy  *OccupancyEstimator
	rates      *PowerRateEstimator
	hourly     *HourlyAggregator
	deviations *DeviationDetector
	wristbands *WristbandProcessor
	clock      timeutil.Clock
	metrics    *observability.Metrics
	log        *logger.Logger
	timeout    time.Duration
}

func NewPipeline(repos *repository.Repository, clock timeutil.Clock, opts PipelineOptions, metrics *observability.Metrics, log *logger.Logger) *Pipeline {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Deviation.Rules == nil {
		opts.Deviation, _ = ProfilePolicy(config.ProfileOffice)
	}
	return &Pipeline{
		readings:   repos.Readings,
		pulses:     repos.Pulses,
		occupancy:  NewOccupancyEstimator(repos.Readings, repos.Occupancy, log),
		rates:      NewPowerRateEstimator(repos.Pulses, repos.Rates, clock, opts.CalibrationFactor, opts.PulseLookback, log),
		hourly:     NewHourlyAggregator(repos.Rates, repos.Aggregates, clock, opts.MinHourlySamples, opts.StoreTimeout, log),
		deviations: NewDeviationDetector(repos.Deviations, opts.Deviation),
		wristbands: NewWristbandProcessor(repos.Devices, repos.Wristbands, log),
		clock:      clock,
		metrics:    metrics,
		log:        log,
		timeout:    opts.StoreTimeout,
	}
}

// Process decodes pkt for device and runs the derivation path of its type.
// Failures are logged and returned as *StageError values joined together;
// stages that do not depend on a failed one still run.
func (p *Pipeline) Process(ctx context.Context, device models.Device, pkt models.RawPacket) error {
	start := time.Now()
	ts := pkt.Timestamp.UTC()

	d, err := Decode(pkt, device.Type)
	if err != nil {
		err = p.fail(StageDecode, device.ID, ts, err)
		p.metrics.PacketHandled(string(device.Type), "decode_error", time.Since(start))
		return err
	}
	p.log.Debugw("packet_decoded", "device_id", device.ID, "timestamp", ts,
		"packet_number", d.PacketNumber, "values", d.Values)

	switch device.Type {
	case models.DeviceBuildingSensor:
		err = p.processBuilding(ctx, device.ID, d)
	case models.DevicePowerMeter:
		err = p.processPower(ctx, device.ID, d)
	case models.DeviceWristband:
		err = p.stage(ctx, StageWristband, device.ID, ts, func(ctx context.Context) error {
			return p.wristbands.Process(ctx, device.ID, d)
		})
	}

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	p.metrics.PacketHandled(string(device.Type), outcome, time.Since(start))
	return err
}

func (p *Pipeline) processBuilding(ctx context.Context, deviceID string, d Decoded) error {
	var errs []error
	readings := FilterReadings(deviceID, d)

	for _, r := range readings {
		if !r.Present() {
			p.log.Debugw("reading_filtered", "device_id", deviceID, "timestamp", d.Timestamp,
				"kind", r.Kind, "raw", d.Values[r.Kind])
			continue
		}
		err := p.stage(ctx, StageReadings, deviceID, d.Timestamp, func(ctx context.Context) error {
			return p.readings.Insert(ctx, r)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.metrics.RecordWritten("reading_" + string(r.Kind))
	}

	values := presentValues(readings)
	if co2, ok := values[models.KindCO2]; ok {
		err := p.stage(ctx, StageOccupancy, deviceID, d.Timestamp, func(ctx context.Context) error {
			est, err := p.occupancy.Estimate(ctx, deviceID, co2, d.Movement(), d.Timestamp)
			if est != nil {
				p.metrics.RecordWritten("occupancy")
			}
			return err
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	err := p.stage(ctx, StageDeviation, deviceID, d.Timestamp, func(ctx context.Context) error {
		found, err := p.deviations.Detect(ctx, deviceID, d.Timestamp, readings)
		for _, dev := range found {
			p.log.Infow("deviation_detected", "device_id", deviceID, "timestamp", d.Timestamp, "kind", dev.Kind)
			p.metrics.RecordWritten("deviation")
		}
		return err
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) processPower(ctx context.Context, deviceID string, d Decoded) error {
	sample := models.PulseSample{
		DeviceID:        deviceID,
		PacketNumber:    d.PacketNumber,
		CumulativeCount: d.Values[models.KindPulses],
		Timestamp:       d.Timestamp,
	}
	err := p.stage(ctx, StagePulse, deviceID, d.Timestamp, func(ctx context.Context) error {
		return p.pulses.Insert(ctx, sample)
	})
	if err != nil {
		// The rate window needs the sample just received.
		return err
	}
	p.metrics.RecordWritten("pulse")

	var errs []error
	rateCtx, cancel := context.WithTimeout(ctx, p.timeout)
	rate, err := p.rates.Estimate(rateCtx, deviceID, d.PacketNumber, d.Timestamp)
	cancel()
	var degenerate *DegenerateIntervalError
	switch {
	case errors.As(err, &degenerate):
		p.log.Warnw("rate_skipped", "device_id", deviceID, "timestamp", d.Timestamp,
			"stage", StageRate, "err", err)
	case err != nil:
		errs = append(errs, p.fail(StageRate, deviceID, d.Timestamp, err))
	case rate != nil:
		p.metrics.RecordWritten("rate")
	}

	if _, err := p.Backfill(ctx, deviceID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Backfill runs the hourly aggregator for deviceID. The store timeout applies to each
// query of the walk, so a long gap is never cut short by it.
func (p *Pipeline) Backfill(ctx context.Context, deviceID string) (int, error) {
	written, err := p.hourly.Backfill(ctx, deviceID)
	p.metrics.BackfillWritten(written)
	if written > 0 {
		p.log.Infow("backfill_written", "device_id", deviceID, "hours", written)
	}
	if err != nil {
		return written, p.fail(StageBackfill, deviceID, p.clock.Now(), err)
	}
	return written, nil
}

// stage runs fn under the store timeout and converts its failure into a *StageError.
func (p *Pipeline) stage(ctx context.Context, name, deviceID string, ts time.Time, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return p.fail(name, deviceID, ts, err)
	}
	return nil
}

func (p *Pipeline) fail(stage, deviceID string, ts time.Time, err error) error {
	p.log.Errorw("pipeline_stage_failed", "device_id", deviceID, "timestamp", ts, "stage", stage, "err", err)
	p.metrics.StageFailed(stage)
	return &StageError{Stage: stage, DeviceID: deviceID, Timestamp: ts, Err: err}
}
