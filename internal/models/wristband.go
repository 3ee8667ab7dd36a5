package models

import "time"

// WristbandLocation records the strongest stationary device a wristband heard.
type WristbandLocation struct {
	ID              string    `json:"id"`
	DeviceID        string    `json:"device_id"`
	NearestDeviceID string    `json:"nearest_device_id"`
	RSSI            int64     `json:"rssi"`
	PacketNumber    uint16    `json:"packet_number"`
	Timestamp       time.Time `json:"timestamp"`
}

// ButtonPush records a wristband button press.
type ButtonPush struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"device_id"`
	PacketNumber uint16    `json:"packet_number"`
	Timestamp    time.Time `json:"timestamp"`
}
