package service

import (
	"context"
	"fmt"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
)

// WristbandProcessor records button pushes and the nearest stationary device a wristband heard.
type WristbandProcessor struct {
	devices    repository.DeviceRepo
	wristbands repository.WristbandRepo
	log        *logger.Logger
}

func NewWristbandProcessor(devices repository.DeviceRepo, wristbands repository.WristbandRepo, log *logger.Logger) *WristbandProcessor {
	return &WristbandProcessor{devices: devices, wristbands: wristbands, log: log}
}

// Process stores what the decoded packet describes. A location whose nearest uid is not
// registered is dropped.
func (w *WristbandProcessor) Process(ctx context.Context, deviceID string, d Decoded) error {
	if d.ButtonPush {
		return w.wristbands.InsertButtonPush(ctx, models.ButtonPush{
			DeviceID:     deviceID,
			PacketNumber: d.PacketNumber,
			Timestamp:    d.Timestamp,
		})
	}

	nearest, err := w.devices.GetByUID(ctx, d.NearestUID)
	if err != nil {
		return fmt.Errorf("lookup device by uid %d: %w", d.NearestUID, err)
	}
	if nearest == nil {
		w.log.Debugw("wristband_nearest_unknown", "device_id", deviceID, "uid", d.NearestUID)
		return nil
	}
	return w.wristbands.InsertLocation(ctx, models.WristbandLocation{
		DeviceID:        deviceID,
		NearestDeviceID: nearest.ID,
		RSSI:            d.RSSI,
		PacketNumber:    d.PacketNumber,
		Timestamp:       d.Timestamp,
	})
}
