package service

import (
	"time"

	"building_telemetry/internal/models"
)

// Plausibility gates for values the sensor hardware is known to garble.
const (
	minPlausibleTemperature = 0.0
	minPlausibleCO2         = 100.0
	maxPlausibleCO2         = 8000.0
)

// Plausible reports whether v may be stored for kind.
func Plausible(kind models.ReadingKind, v float64) bool {
	switch kind {
	case models.KindTemperature:
		return v >= minPlausibleTemperature
	case models.KindCO2:
		return v > minPlausibleCO2 && v < maxPlausibleCO2
	case models.KindMoisture:
		return v != 0
	}
	return true
}

// FilterReadings builds one Reading per decoded building kind, in models.BuildingKinds order.
// Implausible values become nil readings; other kinds of the same packet are unaffected.
func FilterReadings(deviceID string, d Decoded) []models.Reading {
	out := make([]models.Reading, 0, len(d.Values))
	for _, kind := range models.BuildingKinds {
		v, ok := d.Values[kind]
		if !ok {
			continue
		}
		out = append(out, newReading(deviceID, kind, v, d.PacketNumber, d.Timestamp))
	}
	return out
}

func newReading(deviceID string, kind models.ReadingKind, v float64, pn uint16, ts time.Time) models.Reading {
	r := models.Reading{
		DeviceID:     deviceID,
		Kind:         kind,
		PacketNumber: pn,
		Timestamp:    ts,
	}
	if Plausible(kind, v) {
		r.Value = models.Float(v)
	}
	return r
}

// presentValues indexes the surviving readings by kind.
func presentValues(readings []models.Reading) map[models.ReadingKind]float64 {
	out := make(map[models.ReadingKind]float64, len(readings))
	for _, r := range readings {
		if r.Present() {
			out[r.Kind] = *r.Value
		}
	}
	return out
}
