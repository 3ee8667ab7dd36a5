package service

import (
	"errors"
	"fmt"
	"time"

	"building_telemetry/internal/models"
)

// Pipeline stages, used in StageError and in log fields.
const (
	StageDecode    = "decode"
	StageReadings  = "persist_readings"
	StageOccupancy = "occupancy"
	StageDeviation = "deviation"
	StagePulse     = "persist_pulse"
	StageRate      = "rate"
	StageBackfill  = "backfill"
	StageWristband = "wristband"
	StageResolve   = "resolve_device"
)

var (
	ErrUnknownDevice     = errors.New("unknown device")
	ErrUnsupportedDevice = errors.New("unsupported device type")
	ErrInvalidFilter     = errors.New("invalid filter")
	errInvalidTimeRange  = fmt.Errorf("%w: from must be <= to", ErrInvalidFilter)
)

// DecodeError reports a packet missing a field its device type requires.
type DecodeError struct {
	Field      string
	DeviceType models.DeviceType
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s packet: missing field %q", e.DeviceType, e.Field)
}

// DegenerateIntervalError is returned when two pulse samples share a timestamp.
type DegenerateIntervalError struct {
	DeviceID     string
	PacketNumber uint16
	At           time.Time
}

func (e *DegenerateIntervalError) Error() string {
	return fmt.Sprintf("zero interval between pulse samples for device %s at packet %d (%s)",
		e.DeviceID, e.PacketNumber, e.At.Format(time.RFC3339))
}

// StageError ties a failure to the device, packet time and stage that produced it.
type StageError struct {
	Stage     string
	DeviceID  string
	Timestamp time.Time
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for device %s at %s: %v",
		e.Stage, e.DeviceID, e.Timestamp.UTC().Format(time.RFC3339), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
