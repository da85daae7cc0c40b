package controller

import (
	"encoding/binary"
	"fmt"
)

// Event function codes delivered by the firmware notification queue.
const (
	EventHotkey       uint8 = 0x1
	EventKbdDock      uint8 = 0x5
	EventTurboKey     uint8 = 0x7
	EventACSwitch     uint8 = 0x8
	EventBatteryBoost uint8 = 0x9
	EventCalibration  uint8 = 0xB
)

// Event is the decoded 8 byte firmware notification frame.
type Event struct {
	Function    uint8
	Key         uint8
	DeviceState uint16
	Reserved1   uint16
	Dock        uint8
	Reserved2   uint8
}

const eventFrameLen = 8

// DecodeEvent parses a raw notification frame. Frames of any other
// length are firmware noise and rejected.
func DecodeEvent(raw []byte) (Event, error) {
	if len(raw) != eventFrameLen {
		return Event{}, fmt.Errorf("controller: unexpected event frame length %d", len(raw))
	}
	return Event{
		Function:    raw[0],
		Key:         raw[1],
		DeviceState: binary.LittleEndian.Uint16(raw[2:4]),
		Reserved1:   binary.LittleEndian.Uint16(raw[4:6]),
		Dock:        raw[6],
		Reserved2:   raw[7],
	}, nil
}
