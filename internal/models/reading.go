package models

import "time"

// ReadingKind names a physical quantity decoded from a sensor packet.
type ReadingKind string

const (
	KindTemperature ReadingKind = "temperature"
	KindCO2         ReadingKind = "co2"
	KindLight       ReadingKind = "light"
	KindMoisture    ReadingKind = "moisture"
	KindMovement    ReadingKind = "movement"
	KindDecibel     ReadingKind = "decibel"
	KindPulses      ReadingKind = "pulses"
)

// BuildingKinds is the fixed order in which building-sensor readings are decoded and stored.
var BuildingKinds = []ReadingKind{
	KindTemperature,
	KindCO2,
	KindLight,
	KindMoisture,
	KindMovement,
	KindDecibel,
}

// Valid reports whether k is a known reading kind.
func (k ReadingKind) Valid() bool {
	switch k {
	case KindTemperature, KindCO2, KindLight, KindMoisture, KindMovement, KindDecibel, KindPulses:
		return true
	}
	return false
}

// Reading is one decoded, filtered sensor value.
// A nil Value means the reading was rejected and must not be stored or used downstream.
type Reading struct {
	ID           string      `json:"id"`
	DeviceID     string      `json:"device_id"`
	Kind         ReadingKind `json:"kind"`
	Value        *float64    `json:"value"`
	PacketNumber uint16      `json:"packet_number"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Present reports whether the reading survived filtering.
func (r Reading) Present() bool { return r.Value != nil }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Point is a single (timestamp, value) pair of a stored series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
