package service

import (
	"math"
	"time"

	"building_telemetry/internal/models"
)

const packetModulus = 1 << 16

// detailButtonPush marks a wristband packet sent because its button was pressed.
const detailButtonPush = "io_change"

// Decoded is the typed content of one packet.
type Decoded struct {
	DeviceType   models.DeviceType
	PacketNumber uint16
	Timestamp    time.Time
	// Values holds building readings or the pulse count of a power meter.
	Values map[models.ReadingKind]float64

	// Wristband fields.
	ButtonPush bool
	RSSI       int64
	NearestUID uint32
}

// Movement reports the decoded motion flag of a building packet.
func (d Decoded) Movement() bool { return d.Values[models.KindMovement] != 0 }

// Decode applies the fixed conversion formulas for the device type. It has no side effects.
func Decode(p models.RawPacket, t models.DeviceType) (Decoded, error) {
	tm := p.TM
	if tm.PacketNumber == nil {
		return Decoded{}, &DecodeError{Field: "packet_number", DeviceType: t}
	}
	d := Decoded{
		DeviceType:   t,
		PacketNumber: wrapPacketNumber(*tm.PacketNumber),
		Timestamp:    p.Timestamp.UTC(),
	}

	switch t {
	case models.DeviceBuildingSensor:
		switch {
		case tm.Locator == nil:
			return Decoded{}, &DecodeError{Field: "locator", DeviceType: t}
		case tm.MsgData == nil:
			return Decoded{}, &DecodeError{Field: "msg_data", DeviceType: t}
		case tm.AnalogIO0 == nil:
			return Decoded{}, &DecodeError{Field: "analog_io_0", DeviceType: t}
		case tm.AnalogIO1 == nil:
			return Decoded{}, &DecodeError{Field: "analog_io_1", DeviceType: t}
		case tm.DigitalIO5 == nil:
			return Decoded{}, &DecodeError{Field: "digital_io_5", DeviceType: t}
		}
		locator := *tm.Locator
		movement := 0.0
		if *tm.DigitalIO5 != 0 {
			movement = 1
		}
		d.Values = map[models.ReadingKind]float64{
			models.KindTemperature: ((float64(locator&0xFFFF)/4.0)/16382.0)*165.0 - 40.0,
			models.KindCO2:         float64(*tm.MsgData),
			models.KindLight:       math.Pow(*tm.AnalogIO0*0.0015658, 10),
			models.KindMoisture:    (float64(locator>>16) / 16382.0) * 100.0,
			models.KindMovement:    movement,
			models.KindDecibel:     90.0 - 30.0*(*tm.AnalogIO1/2048.0),
		}

	case models.DevicePowerMeter:
		if tm.MsgData == nil {
			return Decoded{}, &DecodeError{Field: "msg_data", DeviceType: t}
		}
		d.Values = map[models.ReadingKind]float64{models.KindPulses: float64(*tm.MsgData)}

	case models.DeviceWristband:
		if tm.Detail == detailButtonPush {
			d.ButtonPush = true
			return d, nil
		}
		switch {
		case tm.Data == nil:
			return Decoded{}, &DecodeError{Field: "data", DeviceType: t}
		case tm.Locator == nil:
			return Decoded{}, &DecodeError{Field: "locator", DeviceType: t}
		}
		d.RSSI = *tm.Data >> 8
		d.NearestUID = invertEndianness(*tm.Locator)

	default:
		return Decoded{}, ErrUnsupportedDevice
	}
	return d, nil
}

// wrapPacketNumber reduces n into the 16-bit counter space.
func wrapPacketNumber(n int64) uint16 {
	return uint16(((n % packetModulus) + packetModulus) % packetModulus)
}

// previousPacket is (p - 1) mod 65536; uint16 arithmetic wraps.
func previousPacket(p uint16) uint16 { return p - 1 }

// invertEndianness reverses the byte order of a 32-bit locator.
func invertEndianness(n uint32) uint32 {
	return n>>24&0xFF | (n>>16&0xFF)<<8 | (n>>8&0xFF)<<16 | (n&0xFF)<<24
}
