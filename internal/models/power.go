package models

import "time"

// PulseSample is the cumulative pulse counter reported by one power-meter packet.
type PulseSample struct {
	ID              string    `json:"id"`
	DeviceID        string    `json:"device_id"`
	PacketNumber    uint16    `json:"packet_number"`
	CumulativeCount float64   `json:"cumulative_count"`
	Timestamp       time.Time `json:"timestamp"`
}

// RateSample is the power rate derived for one power-meter packet.
type RateSample struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}

// HourlyEnergyAggregate is the energy consumed by a device in one whole hour.
// At most one exists per (DeviceID, HourStart).
type HourlyEnergyAggregate struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	HourStart time.Time `json:"hour_start"`
	Value     float64   `json:"value"`
}
