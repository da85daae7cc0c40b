// Package quirk describes which firmware features a given machine
// actually has. The WMI interface is shared across several product
// lines and a method being present does not mean the firmware behind
// it does anything useful, so every controller checks the capability
// set before issuing commands.
package quirk

import (
	"strings"
)

// Capability is a single firmware feature bit.
type Capability uint32

const (
	CapMailLED Capability = 1 << iota
	CapWireless
	CapBluetooth
	CapBrightness
	CapThreeG
	CapSetFunctionMode
	CapKbdDock
	CapTurboOC
	CapTurboLED
	CapTurboFan
	CapPlatformProfile
	CapFanSpeedRead
	CapPredatorSense
	CapNitroSense
	CapNitroSenseV4
	CapBackLogo
)

// Capabilities is a set of feature bits.
type Capabilities uint32

func (c Capabilities) Has(cap Capability) bool {
	return uint32(c)&uint32(cap) != 0
}

func (c Capabilities) HasAny(caps ...Capability) bool {
	for _, cap := range caps {
		if c.Has(cap) {
			return true
		}
	}
	return false
}

func (c Capabilities) with(caps ...Capability) Capabilities {
	for _, cap := range caps {
		c |= Capabilities(cap)
	}
	return c
}

// Family selects a capability group. Machines in the same family share
// the same firmware behavior for the turbo key, platform profiles and
// fan speed reporting.
type Family int

const (
	FamilyNone Family = iota
	FamilyTurbo
	FamilyPredatorV4
	FamilyNitroSense
	FamilyNitroV4
)

// Entry describes one machine model.
type Entry struct {
	Model string
	// Family picks the grouped capability bits, Extra adds the
	// per-model ones on top.
	Family Family
	Extra  []Capability

	// FourZoneKB marks the four independently addressable keyboard
	// lighting zones. It gates the per-zone protocol and the keyboard
	// state file, not a firmware method, so it is not a capability bit.
	FourZoneKB bool

	// Fan counts feed the fan behavior word. Most models have one of
	// each; the word encodes them separately.
	CPUFans uint8
	GPUFans uint8
}

// Capabilities expands the entry into its full capability set.
func (e Entry) Capabilities() Capabilities {
	var c Capabilities
	switch e.Family {
	case FamilyTurbo:
		c = c.with(CapTurboOC, CapTurboLED, CapTurboFan)
	case FamilyPredatorV4:
		c = c.with(CapPlatformProfile, CapFanSpeedRead, CapPredatorSense)
	case FamilyNitroSense:
		c = c.with(CapPlatformProfile, CapFanSpeedRead, CapNitroSense)
	case FamilyNitroV4:
		c = c.with(CapPlatformProfile, CapFanSpeedRead, CapNitroSenseV4)
	}
	return c.with(e.Extra...)
}

// Hardware is a resolved entry plus its expanded capability set. The
// controllers take a Hardware instead of re-deriving the bits.
type Hardware struct {
	Entry
	Caps Capabilities
}

var entries = []Entry{
	{
		Model:      "PHN16-72",
		Family:     FamilyPredatorV4,
		Extra:      []Capability{CapBackLogo},
		FourZoneKB: true,
		CPUFans:    1,
		GPUFans:    1,
	},
	{
		Model:   "PH315-53",
		Family:  FamilyTurbo,
		CPUFans: 1,
		GPUFans: 1,
	},
	{
		Model:      "AN16-41",
		Family:     FamilyNitroV4,
		FourZoneKB: true,
		CPUFans:    1,
		GPUFans:    1,
	},
}

// Lookup resolves a product name to its hardware description. Matching
// is case insensitive on the model prefix; firmware product strings
// carry trailing padding on some units.
func Lookup(product string) (Hardware, bool) {
	product = strings.TrimSpace(product)
	for _, e := range entries {
		if strings.EqualFold(product, e.Model) || strings.HasPrefix(strings.ToUpper(product), strings.ToUpper(e.Model)) {
			return Hardware{Entry: e, Caps: e.Capabilities()}, true
		}
	}
	return Hardware{}, false
}
