// Package fan drives the fan behavior and fan speed firmware methods.
// The firmware has no single "set speed" call; a speed change is a
// sequence of behavior words followed by per-channel duty words, and
// the sequence depends on which channels are being overridden.
package fan

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/wmi"
)

// Fan speed channel indexes in the duty word.
const (
	channelCPU uint64 = 1
	channelGPU uint64 = 4
)

// Behavior words. These select which channels run firmware-managed and
// which accept a manual duty.
const (
	behaviorMax        uint64 = 0x820009
	behaviorAuto       uint64 = 0x410009
	behaviorGPUOnly1   uint64 = 0x010001
	behaviorGPUOnly2   uint64 = 0xC00008
	behaviorCPUOnly1   uint64 = 0x400008
	behaviorCPUOnly2   uint64 = 0x030001
	behaviorBothManual uint64 = 0xC30009
)

// Mode is the coarse fan mode used by the turbo toggle.
type Mode uint64

const (
	ModeAuto  Mode = 1
	ModeTurbo Mode = 2
)

var (
	// ErrPercentRange is returned when a requested duty is outside
	// 0 to 100. Nothing is sent to the firmware in that case.
	ErrPercentRange = errors.New("fan: percentage must be between 0 and 100")
	// ErrNotSupported is returned when the machine lacks the turbo
	// fan capability needed for mode words.
	ErrNotSupported = errors.New("fan: turbo fan control not supported on this machine")
)

// Config describes the dependencies of the fan Control.
type Config struct {
	Channel  *wmi.Channel
	Hardware quirk.Hardware
}

// Control tracks the last applied duty pair and issues the behavior
// and speed sequences.
type Control struct {
	Config

	mu  sync.Mutex
	cpu uint8
	gpu uint8
}

func NewControl(conf Config) (*Control, error) {
	if conf.Channel == nil {
		return nil, errors.New("nil Channel is invalid")
	}
	return &Control{
		Config: conf,
	}, nil
}

// Duty encodes a percentage into the firmware duty word for a channel.
// The firmware only looks at the high byte of the low word.
func duty(percent uint8, channel uint64) uint64 {
	return ((uint64(percent) * 25600 / 100) & 0xFF00) + channel
}

// Set applies a duty pair. Zero means firmware-managed for that
// channel; 100 on both engages the dedicated max mode. The pair is
// validated before any command is sent.
func (c *Control) Set(cpu, gpu uint8) error {
	if cpu > 100 || gpu > 100 {
		return ErrPercentRange
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.apply(cpu, gpu); err != nil {
		return err
	}

	c.cpu = cpu
	c.gpu = gpu
	log.Printf("fan: speeds updated: cpu=%d gpu=%d\n", cpu, gpu)

	return nil
}

func (c *Control) apply(cpu, gpu uint8) error {
	switch {
	case cpu == 100 && gpu == 100:
		return c.behavior(behaviorMax)
	case cpu == 0 && gpu == 0:
		return c.behavior(behaviorAuto)
	case cpu == 0:
		for _, w := range []uint64{behaviorGPUOnly1, behaviorGPUOnly2} {
			if err := c.behavior(w); err != nil {
				return err
			}
		}
		return c.speed(gpu, channelGPU)
	case gpu == 0:
		for _, w := range []uint64{behaviorCPUOnly1, behaviorCPUOnly2} {
			if err := c.behavior(w); err != nil {
				return err
			}
		}
		return c.speed(cpu, channelCPU)
	default:
		if err := c.behavior(behaviorBothManual); err != nil {
			return err
		}
		if err := c.speed(cpu, channelCPU); err != nil {
			return err
		}
		return c.speed(gpu, channelGPU)
	}
}

func (c *Control) behavior(word uint64) error {
	_, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.SetGamingFanBehavior, word)
	if err != nil {
		return fmt.Errorf("fan: setting behavior word 0x%x: %w", word, err)
	}
	return nil
}

func (c *Control) speed(percent uint8, channel uint64) error {
	_, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.SetGamingFanSpeed, duty(percent, channel))
	if err != nil {
		return fmt.Errorf("fan: setting speed on channel %d: %w", channel, err)
	}
	return nil
}

// SetMode applies the coarse auto/turbo mode word assembled from the
// machine's fan counts. Used by the turbo key path.
func (c *Control) SetMode(mode Mode) error {
	if !c.Hardware.Caps.Has(quirk.CapTurboFan) {
		return ErrNotSupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	word := modeWord(mode, c.Hardware.CPUFans, c.Hardware.GPUFans)
	return c.behavior(word)
}

// modeWord packs the per-fan mode fields. The low word enables each
// fan slot, the high word carries the two-bit mode per slot.
func modeWord(mode Mode, cpuFans, gpuFans uint8) uint64 {
	var config1, config2 uint64
	if cpuFans > 0 {
		config2 |= 1
	}
	for i := 0; i < int(cpuFans+gpuFans); i++ {
		config2 |= 1 << (i + 1)
	}
	for i := 0; i < int(gpuFans); i++ {
		config2 |= 1 << (i + 3)
	}
	if cpuFans > 0 {
		config1 |= uint64(mode)
	}
	for i := 0; i < int(cpuFans+gpuFans); i++ {
		config1 |= uint64(mode) << (2*i + 2)
	}
	for i := 0; i < int(gpuFans); i++ {
		config1 |= uint64(mode) << (2*i + 6)
	}
	return config2 | config1<<16
}

// Current returns the last applied duty pair.
func (c *Control) Current() (cpu, gpu uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cpu, c.gpu
}

// Restore re-applies a persisted duty pair on load or resume.
func (c *Control) Restore(cpu, gpu uint8) error {
	return c.Set(cpu, gpu)
}
