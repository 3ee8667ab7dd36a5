package service

import (
	"testing"
	"time"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
	"building_telemetry/internal/repository/memory"
	"building_telemetry/internal/timeutil"
)

var t0 = time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

func u32(v uint32) *uint32   { return &v }
func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

// buildingPacket mirrors a typical building sensor message.
func buildingPacket(locator uint32, co2 int64, movement int64, pn int64, ts time.Time) models.RawPacket {
	return models.RawPacket{
		Selector:  models.Selector{NetworkID: "net", DeviceID: "room-1"},
		Timestamp: ts,
		TM: models.ProtoTM{
			Locator:      u32(locator),
			MsgData:      i64(co2),
			AnalogIO0:    f64(0),
			AnalogIO1:    f64(0),
			DigitalIO5:   i64(movement),
			PacketNumber: i64(pn),
			Type:         "event",
		},
	}
}

func powerPacket(pulses int64, pn int64, ts time.Time) models.RawPacket {
	return models.RawPacket{
		Selector:  models.Selector{NetworkID: "net", DeviceID: "meter-1"},
		Timestamp: ts,
		TM:        models.ProtoTM{MsgData: i64(pulses), PacketNumber: i64(pn), Type: "event"},
	}
}

func newTestPipeline(t *testing.T, clock timeutil.Clock, opts PipelineOptions) (*Pipeline, *repository.Repository, *memory.Store) {
	t.Helper()
	repos, store := memory.NewRepository()
	return NewPipeline(repos, clock, opts, nil, logger.Nop()), repos, store
}

func timeMinutes(n int) time.Duration { return time.Duration(n) * time.Minute }
