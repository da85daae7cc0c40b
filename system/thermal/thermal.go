// Package thermal drives the platform thermal profile state machine.
// The firmware orders profile codes arbitrarily, so the package keeps
// its own performance ordering and translates at the wire boundary.
package thermal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/avakist/PHN16Manager/system/fan"
	"github.com/avakist/PHN16Manager/system/persist"
	"github.com/avakist/PHN16Manager/system/power"
	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/wmi"
)

const (
	thermalPersistName = "predator_state"
)

// Profile is a thermal profile in increasing order of performance.
type Profile int

const (
	ProfileEco Profile = iota
	ProfileQuiet
	ProfileBalanced
	ProfilePerformance
	ProfileTurbo
)

func (p Profile) String() string {
	switch p {
	case ProfileEco:
		return "eco"
	case ProfileQuiet:
		return "quiet"
	case ProfileBalanced:
		return "balanced"
	case ProfilePerformance:
		return "performance"
	case ProfileTurbo:
		return "turbo"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// Firmware profile codes. These do not follow the performance order.
const (
	codeQuiet       uint8 = 0x00
	codeBalanced    uint8 = 0x01
	codePerformance uint8 = 0x04
	codeTurbo       uint8 = 0x05
	codeEco         uint8 = 0x06
)

func (p Profile) code() uint8 {
	switch p {
	case ProfileEco:
		return codeEco
	case ProfileQuiet:
		return codeQuiet
	case ProfileBalanced:
		return codeBalanced
	case ProfilePerformance:
		return codePerformance
	default:
		return codeTurbo
	}
}

func profileFromCode(code uint8) (Profile, error) {
	switch code {
	case codeEco:
		return ProfileEco, nil
	case codeQuiet:
		return ProfileQuiet, nil
	case codeBalanced:
		return ProfileBalanced, nil
	case codePerformance:
		return ProfilePerformance, nil
	case codeTurbo:
		return ProfileTurbo, nil
	default:
		return ProfileEco, fmt.Errorf("%w: 0x%02x", ErrUnknownProfile, code)
	}
}

var (
	ErrUnknownProfile = errors.New("thermal: unknown profile code")
	// ErrNotOnBattery is returned for profiles the vendor software
	// refuses to engage while unplugged.
	ErrNotOnBattery = errors.New("thermal: profile requires AC power")
	ErrNotSupported = errors.New("thermal: platform profiles not supported on this machine")
)

// record is the per-power-source saved state.
type record struct {
	CPUFan  uint8
	GPUFan  uint8
	Profile Profile
}

// Config describes the dependencies of the thermal Control.
type Config struct {
	Channel  *wmi.Channel
	Hardware quirk.Hardware
	Fan      *fan.Control

	// CycleMode makes the mode key walk the profile ladder one step
	// at a time. When false the key bounces between the maximum
	// profile and the last non-maximum one.
	CycleMode bool
}

// Control implements the profile state machine and the per-power-source
// state records.
type Control struct {
	Config

	mu           sync.Mutex
	supported    []Profile
	maxPerf      Profile
	lastNonTurbo Profile
	hasLast      bool

	// index 0 is battery, index 1 is AC
	records [2]record
}

var _ persist.Registry = &Control{}

func NewControl(conf Config) (*Control, error) {
	if conf.Channel == nil {
		return nil, errors.New("nil Channel is invalid")
	}
	if conf.Fan == nil {
		return nil, errors.New("nil Fan is invalid")
	}
	if !conf.Hardware.Caps.Has(quirk.CapPlatformProfile) {
		return nil, ErrNotSupported
	}

	return &Control{
		Config:  conf,
		maxPerf: ProfileBalanced,
		records: [2]record{
			power.Battery: {Profile: ProfileEco},
			power.AC:      {Profile: ProfileBalanced},
		},
	}, nil
}

// Probe reads the supported profile mask and derives the maximum
// performance profile plus the fallback used by the turbo toggle.
func (c *Control) Probe() error {
	mask, err := c.Channel.GetMiscSetting(wmi.MiscSettingSupportedProfiles)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.supported = c.supported[:0]
	c.hasLast = false

	// Walk in order of increasing performance so maxPerf lands on the
	// highest supported profile.
	for _, p := range []Profile{ProfileEco, ProfileQuiet, ProfileBalanced, ProfilePerformance, ProfileTurbo} {
		if mask&(1<<p.code()) == 0 {
			continue
		}
		c.supported = append(c.supported, p)
		c.maxPerf = p
		switch p {
		case ProfileEco, ProfileQuiet, ProfileBalanced:
			c.lastNonTurbo = p
			c.hasLast = true
		default:
			// fallback only, in case no lower profile exists
			if !c.hasLast {
				c.lastNonTurbo = p
				c.hasLast = true
			}
		}
	}

	log.Printf("thermal: supported profiles %v, max %s\n", c.supported, c.maxPerf)
	return nil
}

// Supported returns the profiles reported by the firmware, in
// increasing order of performance.
func (c *Control) Supported() []Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Profile, len(c.supported))
	copy(out, c.supported)
	return out
}

// Current reads the active profile from the firmware.
func (c *Control) Current() (Profile, error) {
	code, err := c.Channel.GetMiscSetting(wmi.MiscSettingPlatformProfile)
	if err != nil {
		return ProfileEco, err
	}
	return profileFromCode(code)
}

func acOnly(p Profile) bool {
	return p == ProfileTurbo || p == ProfilePerformance || p == ProfileQuiet
}

// Set engages a profile. The high performance profiles and quiet mode
// are refused on battery, matching the vendor software. Quiet and eco
// also return both fans to firmware control.
func (c *Control) Set(p Profile) error {
	src, err := power.Query(c.Channel)
	if err != nil {
		return err
	}
	if src == power.Battery && acOnly(p) {
		return ErrNotOnBattery
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p == ProfileQuiet || p == ProfileEco {
		if err := c.Fan.Set(0, 0); err != nil {
			return err
		}
	}

	if err := c.Channel.SetMiscSetting(wmi.MiscSettingPlatformProfile, p.code()); err != nil {
		return err
	}

	c.noteApplied(p)
	log.Printf("thermal: profile set to %s\n", p)
	return nil
}

// noteApplied updates the turbo-toggle fallback. Callers hold c.mu.
func (c *Control) noteApplied(p Profile) {
	if p != c.maxPerf {
		c.lastNonTurbo = p
		c.hasLast = true
	}
}

// Cycle advances to the next profile on a mode key press. On battery
// the key bounces between eco and balanced only.
func (c *Control) Cycle() (Profile, error) {
	current, err := c.Current()
	if err != nil {
		return current, err
	}
	src, err := power.Query(c.Channel)
	if err != nil {
		return current, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.next(current, src)

	if err := c.Channel.SetMiscSetting(wmi.MiscSettingPlatformProfile, next.code()); err != nil {
		return current, err
	}

	if next == ProfileQuiet || next == ProfileEco {
		if err := c.Fan.Set(0, 0); err != nil {
			return next, err
		}
	}

	c.noteApplied(next)
	log.Printf("thermal: cycled %s -> %s\n", current, next)
	return next, nil
}

// next computes the cycle transition. Callers hold c.mu.
func (c *Control) next(current Profile, src power.Source) Profile {
	if src == power.Battery {
		if current == ProfileEco {
			return ProfileBalanced
		}
		return ProfileEco
	}

	switch current {
	case ProfileTurbo:
		if c.CycleMode {
			return ProfileQuiet
		}
		return c.lastNonTurbo
	case ProfilePerformance:
		if c.maxPerf == current {
			return c.lastNonTurbo
		}
		return c.maxPerf
	case ProfileBalanced:
		if c.CycleMode {
			return ProfilePerformance
		}
		return c.maxPerf
	case ProfileQuiet:
		if c.CycleMode {
			return ProfileBalanced
		}
		return c.maxPerf
	default: // eco
		if c.CycleMode {
			return ProfileQuiet
		}
		return c.maxPerf
	}
}

// Turbo LED words. The get side reports zero or nonzero; the set side
// wants the full word.
const (
	turboLEDQuery uint64 = 0x1
	turboLEDOff   uint64 = 0x1
	turboLEDOn    uint64 = 0x10001
)

// ToggleTurbo flips the dedicated turbo state: LED, coarse fan mode and
// the two overclock knobs move together. Returns whether turbo was
// active before the toggle.
func (c *Control) ToggleTurbo() (wasOn bool, err error) {
	if !c.Hardware.Caps.Has(quirk.CapTurboLED) {
		return false, ErrNotSupported
	}

	state, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.GetGamingLED, turboLEDQuery)
	if err != nil {
		return false, err
	}

	if state != 0 {
		if _, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.SetGamingLED, turboLEDOff); err != nil {
			return true, err
		}
		if err := c.Fan.SetMode(fan.ModeAuto); err != nil {
			return true, err
		}
		if err := c.setOverclock(wmi.OCNormal); err != nil {
			return true, err
		}
		log.Println("thermal: turbo disengaged")
		return true, nil
	}

	if _, err := c.Channel.ExecuteU64(wmi.Gaming, wmi.SetGamingLED, turboLEDOn); err != nil {
		return false, err
	}
	if err := c.Fan.SetMode(fan.ModeTurbo); err != nil {
		return false, err
	}
	if err := c.setOverclock(wmi.OCTurbo); err != nil {
		return false, err
	}
	log.Println("thermal: turbo engaged")
	return false, nil
}

func (c *Control) setOverclock(value uint8) error {
	if !c.Hardware.Caps.Has(quirk.CapTurboOC) {
		return nil
	}
	if err := c.Channel.SetMiscSetting(wmi.MiscSettingOC1, value); err != nil {
		return err
	}
	return c.Channel.SetMiscSetting(wmi.MiscSettingOC2, value)
}

// UpdateState snapshots the active profile and fan duties into the
// record for the given power source.
func (c *Control) UpdateState(src power.Source) error {
	current, err := c.Current()
	if err != nil {
		return err
	}
	cpu, gpu := c.Fan.Current()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[src] = record{CPUFan: cpu, GPUFan: gpu, Profile: current}
	return nil
}

// RestoreState re-applies the record for the given power source.
func (c *Control) RestoreState(src power.Source) error {
	c.mu.Lock()
	r := c.records[src]
	c.mu.Unlock()

	if err := c.Channel.SetMiscSetting(wmi.MiscSettingPlatformProfile, r.Profile.code()); err != nil {
		return err
	}
	if err := c.Fan.Restore(r.CPUFan, r.GPUFan); err != nil {
		return err
	}

	log.Printf("thermal: restored %s state: profile=%s cpu=%d gpu=%d\n", src, r.Profile, r.CPUFan, r.GPUFan)
	return nil
}

// stateBlobLen is two records of three 32 bit words each.
const stateBlobLen = 24

// Name satisfies persist.Registry
func (c *Control) Name() string {
	return thermalPersistName
}

// Value satisfies persist.Registry
func (c *Control) Value() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, stateBlobLen)
	for i, r := range c.records {
		off := i * 12
		binary.LittleEndian.PutUint32(buf[off:], uint32(r.CPUFan))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(r.GPUFan))
		binary.LittleEndian.PutUint32(buf[off+8:], uint32(r.Profile.code()))
	}
	return buf
}

// Load satisfies persist.Registry. A blob of the wrong size is logged
// and ignored so a damaged state file cannot keep the manager down.
func (c *Control) Load(v []byte) error {
	if len(v) == 0 {
		return nil
	}
	if len(v) != stateBlobLen {
		log.Printf("thermal: incomplete state blob (%d bytes), using defaults\n", len(v))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		off := i * 12
		p, err := profileFromCode(uint8(binary.LittleEndian.Uint32(v[off+8:])))
		if err != nil {
			log.Printf("thermal: %s, using defaults\n", err)
			return nil
		}
		c.records[i] = record{
			CPUFan:  uint8(binary.LittleEndian.Uint32(v[off:])),
			GPUFan:  uint8(binary.LittleEndian.Uint32(v[off+4:])),
			Profile: p,
		}
	}
	return nil
}

// Apply satisfies persist.Registry. It restores the record matching the
// active power source.
func (c *Control) Apply() error {
	src, err := power.Query(c.Channel)
	if err != nil {
		return err
	}
	return c.RestoreState(src)
}

// Close satisfies persist.Registry
func (c *Control) Close() error {
	return nil
}
