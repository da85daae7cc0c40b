// Package battery controls the battery health functions: the 80%
// charge limiter and the calibration cycle. Both live behind a single
// masked get/set pair on the dedicated battery block.
package battery

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/avakist/PHN16Manager/system/wmi"
)

// Function selects which battery health function a call addresses.
type Function uint8

const (
	// Health is the charge limiter that stops charging at 80%
	Health Function = 1
	// Calibration runs a full discharge/charge cycle to re-learn
	// battery capacity
	Calibration Function = 2
)

func (f Function) String() string {
	switch f {
	case Health:
		return "health"
	case Calibration:
		return "calibration"
	default:
		return fmt.Sprintf("function(%d)", uint8(f))
	}
}

var (
	ErrUnknownFunction = errors.New("battery: unknown health function")
	// ErrRejected means the firmware answered but flagged the change
	// as failed.
	ErrRejected = errors.New("battery: firmware rejected health control change")
)

// Control drives the battery health methods.
type Control struct {
	channel *wmi.Channel
	mu      sync.Mutex
}

func NewControl(channel *wmi.Channel) (*Control, error) {
	if channel == nil {
		return nil, errors.New("nil Channel is invalid")
	}
	return &Control{channel: channel}, nil
}

// Status reads whether the given function is enabled. The response
// packs a function list byte, two return bytes and five per-function
// status bytes; health and calibration are the first two.
func (c *Control) Status(f Function) (bool, error) {
	if f != Health && f != Calibration {
		return false, ErrUnknownFunction
	}

	// battery number 1, function query 1
	in := []byte{0x1, 0x1, 0x0, 0x0}
	out, err := c.channel.EvaluateBuffer(wmi.Battery, wmi.GetBatteryHealthStatus, in, 8)
	if err != nil {
		return false, err
	}

	switch f {
	case Health:
		return out[3] != 0, nil
	default:
		return out[4] != 0, nil
	}
}

// Set enables or disables the given function.
func (c *Control) Set(f Function, enable bool) error {
	if f != Health && f != Calibration {
		return ErrUnknownFunction
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var status uint8
	if enable {
		status = 1
	}

	in := []byte{0x1, uint8(f), status, 0x0, 0x0, 0x0, 0x0, 0x0}
	out, err := c.channel.EvaluateBuffer(wmi.Battery, wmi.SetBatteryHealthControl, in, 4)
	if err != nil {
		return err
	}

	// Rejection needs both bytes nonzero. A single nonzero byte has
	// been observed on firmware that still applied the change.
	if out[0] != 0 && out[1] != 0 {
		return ErrRejected
	}

	log.Printf("battery: %s set to %v\n", f, enable)
	return nil
}

// SetRaw passes an event-supplied status byte through unchanged. The
// calibration hotkey delivers the target state in the event itself.
func (c *Control) SetRaw(f Function, status uint8) error {
	return c.Set(f, status != 0)
}
