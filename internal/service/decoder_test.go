package service

import (
	"errors"
	"math"
	"testing"

	"building_telemetry/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_BuildingFormulas(t *testing.T) {
	pkt := buildingPacket(0x00010000, 150, 1, 5, t0)

	d, err := Decode(pkt, models.DeviceBuildingSensor)
	require.NoError(t, err)

	assert.Equal(t, uint16(5), d.PacketNumber)
	assert.InDelta(t, -40.0, d.Values[models.KindTemperature], 1e-9)
	assert.Equal(t, 150.0, d.Values[models.KindCO2])
	assert.Equal(t, 0.0, d.Values[models.KindLight])
	assert.InDelta(t, 100.0/16382.0, d.Values[models.KindMoisture], 1e-12)
	assert.Equal(t, 1.0, d.Values[models.KindMovement])
	assert.True(t, d.Movement())
	assert.Equal(t, 90.0, d.Values[models.KindDecibel])
}

func TestDecode_FullScaleMoistureAndTemperature(t *testing.T) {
	// 16382 in both halves of the locator is full scale.
	pkt := buildingPacket(16382<<16|16382*4, 400, 0, 1, t0)
	pkt.TM.AnalogIO0 = f64(1000)
	pkt.TM.AnalogIO1 = f64(1024)

	d, err := Decode(pkt, models.DeviceBuildingSensor)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, d.Values[models.KindMoisture], 1e-9)
	// (16382*4 & 0xFFFF) = 65528 -> 65528/4/16382*165-40
	assert.InDelta(t, 65528.0/4.0/16382.0*165.0-40.0, d.Values[models.KindTemperature], 1e-9)
	assert.InDelta(t, math.Pow(1.5658, 10), d.Values[models.KindLight], 1e-9)
	assert.Equal(t, 75.0, d.Values[models.KindDecibel])
	assert.False(t, d.Movement())
}

func TestDecode_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ProtoTM)
		typ    models.DeviceType
		field  string
	}{
		{"no packet number", func(tm *models.ProtoTM) { tm.PacketNumber = nil }, models.DeviceBuildingSensor, "packet_number"},
		{"no locator", func(tm *models.ProtoTM) { tm.Locator = nil }, models.DeviceBuildingSensor, "locator"},
		{"no co2", func(tm *models.ProtoTM) { tm.MsgData = nil }, models.DeviceBuildingSensor, "msg_data"},
		{"no analog 0", func(tm *models.ProtoTM) { tm.AnalogIO0 = nil }, models.DeviceBuildingSensor, "analog_io_0"},
		{"no analog 1", func(tm *models.ProtoTM) { tm.AnalogIO1 = nil }, models.DeviceBuildingSensor, "analog_io_1"},
		{"no motion", func(tm *models.ProtoTM) { tm.DigitalIO5 = nil }, models.DeviceBuildingSensor, "digital_io_5"},
		{"no pulses", func(tm *models.ProtoTM) { tm.MsgData = nil }, models.DevicePowerMeter, "msg_data"},
		{"no rssi data", func(tm *models.ProtoTM) { tm.Data = nil }, models.DeviceWristband, "data"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pkt := buildingPacket(0x00010000, 150, 1, 5, t0)
			pkt.TM.Data = i64(0x4500)
			tc.mutate(&pkt.TM)

			_, err := Decode(pkt, tc.typ)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want DecodeError, got %v", err)
			assert.Equal(t, tc.field, de.Field)
			assert.Equal(t, tc.typ, de.DeviceType)
		})
	}
}

func TestDecode_UnsupportedType(t *testing.T) {
	_, err := Decode(buildingPacket(0, 0, 0, 1, t0), models.DeviceType("thermostat"))
	assert.ErrorIs(t, err, ErrUnsupportedDevice)
}

func TestDecode_PowerMeter(t *testing.T) {
	d, err := Decode(powerPacket(1234, 70000, t0), models.DevicePowerMeter)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, d.Values[models.KindPulses])
	assert.Equal(t, uint16(70000-65536), d.PacketNumber)
}

func TestDecode_Wristband(t *testing.T) {
	pkt := models.RawPacket{
		Timestamp: t0,
		TM: models.ProtoTM{
			PacketNumber: i64(3),
			Locator:      u32(0x11223344),
			Data:         i64(0xC5FF),
		},
	}
	d, err := Decode(pkt, models.DeviceWristband)
	require.NoError(t, err)
	assert.False(t, d.ButtonPush)
	assert.Equal(t, int64(0xC5), d.RSSI)
	assert.Equal(t, uint32(0x44332211), d.NearestUID)

	push := models.RawPacket{Timestamp: t0, TM: models.ProtoTM{PacketNumber: i64(4), Detail: "io_change"}}
	d, err = Decode(push, models.DeviceWristband)
	require.NoError(t, err)
	assert.True(t, d.ButtonPush)
}

func TestPacketNumberWraps(t *testing.T) {
	assert.Equal(t, uint16(65535), previousPacket(0))
	assert.Equal(t, uint16(4), previousPacket(5))
	assert.Equal(t, uint16(0), wrapPacketNumber(65536))
	assert.Equal(t, uint16(65535), wrapPacketNumber(-1))
	assert.Equal(t, uint16(65535), wrapPacketNumber(65535))
}

func TestInvertEndianness(t *testing.T) {
	assert.Equal(t, uint32(0x78563412), invertEndianness(0x12345678))
	assert.Equal(t, uint32(0x00000100), invertEndianness(0x00010000))
	assert.Equal(t, uint32(0x12345678), invertEndianness(invertEndianness(0x12345678)))
}
