package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Selector addresses a device inside a mesh network.
// On the wire it is a two element array: [networkID, deviceID].
type Selector struct {
	NetworkID string
	DeviceID  string
}

func (s Selector) String() string { return s.NetworkID + "/" + s.DeviceID }

func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{s.NetworkID, s.DeviceID})
}

func (s *Selector) UnmarshalJSON(b []byte) error {
	var parts []string
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("selector: want [network, device], got %d elements", len(parts))
	}
	s.NetworkID, s.DeviceID = parts[0], parts[1]
	return nil
}

// ProtoTM holds the bit-packed fields of a telemetry message.
// Absent fields stay nil so the decoder can tell "missing" from "zero".
type ProtoTM struct {
	Locator      *uint32  `json:"locator,omitempty"`
	MsgData      *int64   `json:"msg_data,omitempty"`
	AnalogIO0    *float64 `json:"analog_io_0,omitempty"`
	AnalogIO1    *float64 `json:"analog_io_1,omitempty"`
	DigitalIO5   *int64   `json:"digital_io_5,omitempty"`
	PacketNumber *int64   `json:"packet_number,omitempty"`
	Data         *int64   `json:"data,omitempty"`
	Detail       string   `json:"detail,omitempty"`
	Type         string   `json:"type,omitempty"`
}

// RawPacket is one inbound telemetry message.
type RawPacket struct {
	Selector  Selector  `json:"selector"`
	Timestamp time.Time `json:"datetime"`
	TM        ProtoTM   `json:"proto/tm"`
}
