package models

import "time"

// Occupancy bounds.
const (
	MinOccupancy = 0
	MaxOccupancy = 15
)

// OccupancyEstimate is the inferred number of persons in the room of a building sensor.
type OccupancyEstimate struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Value     int       `json:"value"` // always within [MinOccupancy, MaxOccupancy]
	Timestamp time.Time `json:"timestamp"`
}

// DeviationKind names the reading that left its healthy range.
type DeviationKind string

const (
	DeviationCO2         DeviationKind = "co2"
	DeviationMoisture    DeviationKind = "moisture"
	DeviationTemperature DeviationKind = "temperature"
)

// Deviation is an out-of-range event for a building sensor.
type Deviation struct {
	ID        string        `json:"id"`
	DeviceID  string        `json:"device_id"`
	Kind      DeviationKind `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
}

// DeviceSnapshot is the latest derived state of one device.
type DeviceSnapshot struct {
	DeviceID     string                 `json:"device_id"`
	Occupancy    *OccupancyEstimate     `json:"occupancy,omitempty"`
	Rate         *RateSample            `json:"rate,omitempty"`
	HourlyEnergy *HourlyEnergyAggregate `json:"hourly_energy,omitempty"`
}
