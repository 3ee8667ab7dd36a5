package service

import (
	"context"
	"errors"
	"fmt"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"

	"github.com/robfig/cron/v3"
)

// BackfillSweep periodically runs the hourly aggregator for every power meter, so hours
// get aggregated even when a meter stops sending packets.
type BackfillSweep struct {
	devices  repository.DeviceRepo
	pipeline *Pipeline
	log      *logger.Logger
	cron     *cron.Cron
}

func NewBackfillSweep(devices repository.DeviceRepo, pipeline *Pipeline, log *logger.Logger) *BackfillSweep {
	return &BackfillSweep{devices: devices, pipeline: pipeline, log: log}
}

// RunOnce backfills all power meters and returns the number of aggregates written.
func (s *BackfillSweep) RunOnce(ctx context.Context) (int, error) {
	meters, err := s.devices.ListByType(ctx, models.DevicePowerMeter)
	if err != nil {
		return 0, fmt.Errorf("list power meters: %w", err)
	}
	var (
		total int
		errs  []error
	)
	for _, m := range meters {
		n, err := s.pipeline.Backfill(ctx, m.ID)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Start schedules RunOnce with a cron spec such as "@every 15m". The jobs stop when
// ctx is canceled or Stop is called.
func (s *BackfillSweep) Start(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.RunOnce(ctx)
		if err != nil {
			s.log.Errorw("backfill_sweep_failed", "err", err)
			return
		}
		s.log.Debugw("backfill_sweep_done", "written", n)
	})
	if err != nil {
		return fmt.Errorf("schedule backfill %q: %w", spec, err)
	}
	s.cron = c
	c.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running sweep to finish.
func (s *BackfillSweep) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
