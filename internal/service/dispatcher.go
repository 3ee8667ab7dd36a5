package service

import (
	"context"
	"fmt"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/observability"
)

// Dispatcher resolves the sending device of a packet and hands the packet to the pipeline.
type Dispatcher struct {
	registry *DeviceRegistry
	pipeline *Pipeline
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewDispatcher(registry *DeviceRegistry, pipeline *Pipeline, metrics *observability.Metrics, log *logger.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, pipeline: pipeline, metrics: metrics, log: log}
}

// Dispatch processes one packet. Packets of unsupported device types are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, pkt models.RawPacket) error {
	device, err := d.registry.Resolve(ctx, pkt.Selector)
	if err != nil {
		d.log.Errorw("pipeline_stage_failed", "device_id", pkt.Selector.DeviceID,
			"timestamp", pkt.Timestamp, "stage", StageResolve, "err", err)
		d.metrics.StageFailed(StageResolve)
		return &StageError{Stage: StageResolve, DeviceID: pkt.Selector.DeviceID, Timestamp: pkt.Timestamp, Err: err}
	}

	switch device.Type {
	case models.DeviceBuildingSensor, models.DevicePowerMeter, models.DeviceWristband:
	default:
		d.log.Infow("packet_ignored", "device_id", device.ID, "type", device.Type)
		d.metrics.PacketHandled(string(device.Type), "ignored", 0)
		return nil
	}
	if device.Type == models.DeviceBuildingSensor && device.Room == "" {
		d.log.Debugw("device_without_room", "device_id", device.ID, "selector", pkt.Selector.String())
	}

	if err := d.pipeline.Process(ctx, *device, pkt); err != nil {
		return fmt.Errorf("process packet from %s: %w", pkt.Selector, err)
	}
	return nil
}
