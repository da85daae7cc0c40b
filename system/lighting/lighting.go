// Package lighting drives the four zone keyboard backlight and the lid
// logo. The keyboard has two mutually exclusive modes: a whole-keyboard
// effect, and per-zone static colors. The firmware remembers neither
// across suspend, so the last applied state is persisted and re-applied.
package lighting

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math/bits"
	"sync"

	"github.com/avakist/PHN16Manager/system/persist"
	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/wmi"
)

const (
	lightingPersistName = "four_zone_kb_state"
)

// Effect modes
const (
	ModeStatic uint8 = iota
	ModeBreathing
	ModeNeon
	ModeWave
	ModeShifting
	ModeZoom
	ModeMeteor
	ModeTwinkling
)

var (
	ErrNotSupported = errors.New("lighting: four zone keyboard not present on this machine")
	ErrNoLogo       = errors.New("lighting: lid logo not present on this machine")
	// ErrEffectRejected means the firmware acknowledged the command
	// but refused the effect payload.
	ErrEffectRejected = errors.New("lighting: firmware rejected effect")
	ErrInvalidEffect  = errors.New("lighting: invalid effect")
)

// Effect is a whole-keyboard lighting effect.
type Effect struct {
	Mode       uint8
	Speed      uint8
	Brightness uint8
	Direction  uint8
	Red        uint8
	Green      uint8
	Blue       uint8
}

// validate checks ranges. Direction is mandatory for the two moving
// effects and meaningless for the rest.
func (e Effect) validate() error {
	if e.Mode > ModeTwinkling {
		return fmt.Errorf("%w: mode %d out of range", ErrInvalidEffect, e.Mode)
	}
	if e.Speed > 9 {
		return fmt.Errorf("%w: speed %d out of range", ErrInvalidEffect, e.Speed)
	}
	if e.Brightness > 100 {
		return fmt.Errorf("%w: brightness %d out of range", ErrInvalidEffect, e.Brightness)
	}
	if e.Direction > 2 {
		return fmt.Errorf("%w: direction %d out of range", ErrInvalidEffect, e.Direction)
	}
	if (e.Mode == ModeWave || e.Mode == ModeShifting) && e.Direction == 0 {
		return fmt.Errorf("%w: mode %d requires a direction", ErrInvalidEffect, e.Mode)
	}
	return nil
}

// normalize zeroes the fields each mode ignores so the persisted state
// matches what the firmware actually displays.
func (e Effect) normalize() Effect {
	switch e.Mode {
	case ModeStatic, ModeBreathing:
		e.Speed = 0
		e.Direction = 0
	case ModeNeon:
		e.Red, e.Green, e.Blue = 0, 0, 0
		e.Direction = 0
	case ModeWave:
		e.Red, e.Green, e.Blue = 0, 0, 0
	case ModeZoom, ModeMeteor, ModeTwinkling:
		e.Direction = 0
	}
	return e
}

// Zones is the per-zone static state. Colors are packed 0xRRGGBB, index
// 0 is the leftmost zone.
type Zones struct {
	Colors     [4]uint32
	Brightness uint8
}

func (z Zones) validate() error {
	if z.Brightness > 100 {
		return fmt.Errorf("%w: brightness %d out of range", ErrInvalidEffect, z.Brightness)
	}
	for i, c := range z.Colors {
		if c > 0xFFFFFF {
			return fmt.Errorf("%w: zone %d color 0x%x out of range", ErrInvalidEffect, i+1, c)
		}
	}
	return nil
}

// Logo is the lid logo state.
type Logo struct {
	Red        uint8
	Green      uint8
	Blue       uint8
	Brightness uint8
	Enable     bool
}

// zoneMasks selects each zone in the per-zone set/get calls.
var zoneMasks = [4]uint8{0x1, 0x2, 0x4, 0x8}

// Config describes the dependencies of the lighting Control.
type Config struct {
	Channel  *wmi.Channel
	Hardware quirk.Hardware
}

// Control tracks the last applied keyboard state for persistence and
// issues the lighting commands.
type Control struct {
	Config

	mu      sync.Mutex
	perZone bool
	effect  Effect
	zones   Zones
}

var _ persist.Registry = &Control{}

func NewControl(conf Config) (*Control, error) {
	if conf.Channel == nil {
		return nil, errors.New("nil Channel is invalid")
	}
	if !conf.Hardware.FourZoneKB {
		return nil, ErrNotSupported
	}
	return &Control{
		Config: conf,
	}, nil
}

// effectPayload is the 16 byte frame of the unified backlight setter.
// Bytes 8 and 9 select the keyboard target.
func effectPayload(e Effect) []byte {
	return []byte{e.Mode, e.Speed, e.Brightness, 0, e.Direction, e.Red, e.Green, e.Blue, 3, 1, 0, 0, 0, 0, 0, 0}
}

// SetEffect validates, normalizes and applies a whole-keyboard effect.
func (c *Control) SetEffect(e Effect) error {
	if err := e.validate(); err != nil {
		return err
	}
	e = e.normalize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyEffect(e); err != nil {
		return err
	}

	c.effect = e
	c.perZone = false
	log.Printf("lighting: effect applied: mode=%d brightness=%d\n", e.Mode, e.Brightness)
	return nil
}

func (c *Control) applyEffect(e Effect) error {
	result, err := c.Channel.ExecuteBuffer(wmi.Gaming, wmi.SetGamingKBBacklight, effectPayload(e))
	if err != nil {
		return err
	}
	if result != 0 {
		return fmt.Errorf("%w: %d", ErrEffectRejected, result)
	}
	return nil
}

// Effect reads the active whole-keyboard effect from the firmware.
func (c *Control) Effect() (Effect, error) {
	in := make([]byte, 8)
	binary.LittleEndian.PutUint64(in, 1)
	buf, err := c.Channel.EvaluateBuffer(wmi.Gaming, wmi.GetGamingKBBacklight, in, 16)
	if err != nil {
		return Effect{}, err
	}
	// buf[0] is the return status, the state starts at buf[1]
	return Effect{
		Mode:       buf[1],
		Speed:      buf[2],
		Brightness: buf[3],
		Direction:  buf[5],
		Red:        buf[6],
		Green:      buf[7],
		Blue:       buf[8],
	}, nil
}

// SetZones applies per-zone static colors. The keyboard is first put in
// static mode at the requested brightness, then each zone gets its
// color. The LED engine wake in between mirrors the vendor service;
// without it the controller can stop accepting color data.
func (c *Control) SetZones(z Zones) error {
	if err := z.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyZones(z); err != nil {
		return err
	}

	c.zones = z
	c.perZone = true
	log.Printf("lighting: zone colors applied: brightness=%d\n", z.Brightness)
	return nil
}

func (c *Control) applyZones(z Zones) error {
	if err := c.applyEffect(Effect{Mode: ModeStatic, Brightness: z.Brightness}); err != nil {
		return err
	}

	c.wakeEngine()

	for i, color := range z.Colors {
		payload := []byte{
			zoneMasks[i],
			uint8(color >> 16),
			uint8(color >> 8),
			uint8(color),
			0, 0, 0, 0,
		}
		if _, err := c.Channel.ExecuteBuffer(wmi.Gaming, wmi.SetGamingRGBKB, payload); err != nil {
			return fmt.Errorf("lighting: setting zone %d: %w", i+1, err)
		}
	}
	return nil
}

// wakeEngine pokes the LED engine before per-zone writes. Failure is
// logged and ignored; the engine may simply be active already.
func (c *Control) wakeEngine() {
	if !c.Hardware.Caps.Has(quirk.CapPredatorSense) {
		return
	}
	wake := make([]byte, 16)
	wake[0] = 1
	if _, err := c.Channel.ExecuteBuffer(wmi.Gaming, wmi.SetGamingLED, wake); err != nil {
		log.Printf("lighting: cannot wake LED engine: %s\n", err)
	}
}

// Zones reads the per-zone colors and shared brightness back from the
// firmware.
func (c *Control) Zones() (Zones, error) {
	var z Zones
	for i, mask := range zoneMasks {
		v, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.GetGamingRGBKB, uint64(mask))
		if err != nil {
			return z, fmt.Errorf("lighting: reading zone %d: %w", i+1, err)
		}
		// the color comes back byte-swapped in the high half
		z.Colors[i] = uint32(bits.ReverseBytes64(v) >> 32 & 0xFFFFFF)
	}

	e, err := c.Effect()
	if err != nil {
		return z, err
	}
	z.Brightness = e.Brightness
	return z, nil
}

// InitEngine starts the LED engine. The BIOS can leave the controller
// disabled after certain boot paths, in which case nothing lights up
// until these two commands run. Errors are logged, not returned.
func (c *Control) InitEngine() {
	if !c.Hardware.Caps.Has(quirk.CapPredatorSense) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.wakeEngine()
	if _, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.SetGamingRGBKB, 1); err != nil {
		log.Printf("lighting: cannot init RGB engine: %s\n", err)
	}
}

// Reset sends a raw word to the LED method. Exposed as a recovery knob
// for a stuck lighting controller.
func (c *Control) Reset(value uint8) error {
	_, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.SetGamingLED, uint64(value))
	return err
}

// SetLogo applies the lid logo state. Disabling forces brightness to
// zero since some firmware ignores the enable flag.
func (c *Control) SetLogo(l Logo) error {
	if !c.Hardware.Caps.Has(quirk.CapBackLogo) {
		return ErrNoLogo
	}
	if l.Brightness > 100 {
		return fmt.Errorf("%w: brightness %d out of range", ErrInvalidEffect, l.Brightness)
	}
	if !l.Enable {
		l.Brightness = 0
	}

	var enable uint8
	if l.Enable {
		enable = 1
	}

	// dedicated logo setter carries color and brightness
	payload := []byte{1, l.Red, l.Green, l.Blue, l.Brightness, enable}
	if _, err := c.Channel.ExecuteBuffer(wmi.Gaming, wmi.SetGamingLogoColor, payload); err != nil {
		return err
	}

	// the unified setter gates logo power on some firmware
	gate := make([]byte, 16)
	gate[0] = enable
	gate[9] = 2
	if _, err := c.Channel.ExecuteBuffer(wmi.Gaming, wmi.SetGamingKBBacklight, gate); err != nil {
		return err
	}

	log.Printf("lighting: logo applied: enable=%v brightness=%d\n", l.Enable, l.Brightness)
	return nil
}

// Logo reads the lid logo state. The dedicated getter is preferred;
// firmware without it answers through the unified backlight getter.
func (c *Control) Logo() (Logo, error) {
	if !c.Hardware.Caps.Has(quirk.CapBackLogo) {
		return Logo{}, ErrNoLogo
	}

	buf, err := c.Channel.EvaluateBufferMin(wmi.Gaming, wmi.GetGamingLogoColor, []byte{1}, 6)
	if err == nil {
		return Logo{
			Red:        buf[1],
			Green:      buf[2],
			Blue:       buf[3],
			Brightness: buf[4],
			Enable:     buf[5] != 0,
		}, nil
	}

	in := make([]byte, 8)
	binary.LittleEndian.PutUint64(in, 2)
	out, err := c.Channel.EvaluateBuffer(wmi.Gaming, wmi.GetGamingKBBacklight, in, 16)
	if err != nil {
		return Logo{}, err
	}
	return Logo{
		Red:        out[6],
		Green:      out[7],
		Blue:       out[8],
		Brightness: out[3],
		Enable:     out[1] != 0,
	}, nil
}

// Refresh reads the firmware state into the persistence snapshot.
// Called before saving so Value() never performs IO.
func (c *Control) Refresh() error {
	e, err := c.Effect()
	if err != nil {
		return err
	}
	z, err := c.Zones()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.effect = e
	c.zones = z
	return nil
}

// stateBlobLen is the 8 byte effect header, four 64 bit zone colors and
// a 32 bit brightness.
const stateBlobLen = 8 + 4*8 + 4

// Name satisfies persist.Registry
func (c *Control) Name() string {
	return lightingPersistName
}

// Value satisfies persist.Registry
func (c *Control) Value() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, stateBlobLen)
	var perZone uint8
	if c.perZone {
		perZone = 1
	}
	buf[0] = perZone
	buf[1] = c.effect.Mode
	buf[2] = c.effect.Speed
	buf[3] = c.effect.Brightness
	buf[4] = c.effect.Direction
	buf[5] = c.effect.Red
	buf[6] = c.effect.Green
	buf[7] = c.effect.Blue
	for i, color := range c.zones.Colors {
		binary.LittleEndian.PutUint64(buf[8+i*8:], uint64(color))
	}
	binary.LittleEndian.PutUint32(buf[40:], uint32(c.zones.Brightness))
	return buf
}

// Load satisfies persist.Registry
func (c *Control) Load(v []byte) error {
	if len(v) == 0 {
		return nil
	}
	if len(v) != stateBlobLen {
		log.Printf("lighting: incomplete state blob (%d bytes), using defaults\n", len(v))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.perZone = v[0] != 0
	c.effect = Effect{
		Mode:       v[1],
		Speed:      v[2],
		Brightness: v[3],
		Direction:  v[4],
		Red:        v[5],
		Green:      v[6],
		Blue:       v[7],
	}
	for i := range c.zones.Colors {
		c.zones.Colors[i] = uint32(binary.LittleEndian.Uint64(v[8+i*8:]) & 0xFFFFFF)
	}
	c.zones.Brightness = uint8(binary.LittleEndian.Uint32(v[40:]))
	return nil
}

// Apply satisfies persist.Registry. It re-applies whichever keyboard
// mode was active when the state was saved.
func (c *Control) Apply() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.perZone {
		return c.applyZones(c.zones)
	}
	if c.effect == (Effect{}) {
		// nothing was ever saved
		return nil
	}
	return c.applyEffect(c.effect)
}

// Close satisfies persist.Registry
func (c *Control) Close() error {
	return nil
}
