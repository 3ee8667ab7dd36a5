package models

// DeviceType selects the derivation path for a device's packets.
type DeviceType string

const (
	DeviceBuildingSensor DeviceType = "building-sensor"
	DevicePowerMeter     DeviceType = "power-meter"
	DeviceWristband      DeviceType = "wristband"
)

// Device is a registered sensor. Room and UID are optional.
type Device struct {
	ID        string     `json:"id"`
	NetworkID string     `json:"network_id"`
	Type      DeviceType `json:"type"`
	Name      string     `json:"name,omitempty"`
	Room      string     `json:"room,omitempty"`
	UID       *uint32    `json:"uid,omitempty"`
}
