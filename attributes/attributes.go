// Package attributes exposes each firmware control as a named text
// attribute with a read and a write codec, the surface the command line
// tool and any future daemon endpoint speak. Every write is fully
// validated before a single firmware command is issued.
package attributes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/avakist/PHN16Manager/system/battery"
	"github.com/avakist/PHN16Manager/system/fan"
	"github.com/avakist/PHN16Manager/system/lighting"
	"github.com/avakist/PHN16Manager/system/sense"
	"github.com/avakist/PHN16Manager/system/sensor"
	"github.com/avakist/PHN16Manager/system/thermal"
)

var (
	ErrUnknownAttribute = errors.New("attributes: unknown attribute")
	ErrReadOnly         = errors.New("attributes: attribute is read only")
	ErrMalformed        = errors.New("attributes: malformed value")
)

// Attribute is one named text endpoint.
type Attribute struct {
	name  string
	show  func() (string, error)
	store func(value string) error
}

func (a Attribute) Name() string {
	return a.name
}

func (a Attribute) Show() (string, error) {
	return a.show()
}

func (a Attribute) Store(value string) error {
	if a.store == nil {
		return ErrReadOnly
	}
	return a.store(strings.TrimSpace(value))
}

// Deps are the controls backing the attribute set. Lighting and Sensors
// may be nil when the machine lacks them; their attributes are then not
// registered.
type Deps struct {
	Fan      *fan.Control
	Thermal  *thermal.Control
	Lighting *lighting.Control
	Sense    *sense.Control
	Battery  *battery.Control
	Sensors  *sensor.Reader
}

// Set is the attribute table.
type Set struct {
	attrs map[string]Attribute
}

// New builds the attribute table for the given controls.
func New(deps Deps) *Set {
	s := &Set{attrs: make(map[string]Attribute)}

	if deps.Fan != nil {
		s.add(fanSpeedAttr(deps.Fan))
	}
	if deps.Thermal != nil {
		s.add(thermalProfileAttr(deps.Thermal))
	}
	if deps.Lighting != nil {
		s.add(fourZoneModeAttr(deps.Lighting))
		s.add(perZoneModeAttr(deps.Lighting))
		s.add(backLogoAttr(deps.Lighting))
	}
	if deps.Sense != nil {
		s.add(usbChargingAttr(deps.Sense))
		s.add(boolAttr("backlight_timeout", deps.Sense.BacklightTimeout, deps.Sense.SetBacklightTimeout))
		s.add(boolAttr("lcd_override", deps.Sense.LCDOverride, deps.Sense.SetLCDOverride))
		s.add(boolAttr("boot_animation_sound", deps.Sense.BootAnimationSound, deps.Sense.SetBootAnimationSound))
	}
	if deps.Battery != nil {
		s.add(batteryAttr("battery_limiter", deps.Battery, battery.Health))
		s.add(batteryAttr("battery_calibration", deps.Battery, battery.Calibration))
	}
	if deps.Sensors != nil {
		for _, id := range []sensor.ID{
			sensor.CPUTemperature,
			sensor.GPUTemperature,
			sensor.CPUFanSpeed,
			sensor.GPUFanSpeed,
		} {
			s.add(sensorAttr(deps.Sensors, id))
		}
	}

	return s
}

func (s *Set) add(a Attribute) {
	s.attrs[a.name] = a
}

// Get resolves one attribute by name.
func (s *Set) Get(name string) (Attribute, error) {
	a, ok := s.attrs[name]
	if !ok {
		return Attribute{}, errors.Wrap(ErrUnknownAttribute, name)
	}
	return a, nil
}

// Names lists the registered attributes in stable order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.attrs))
	for name := range s.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fanSpeedAttr(c *fan.Control) Attribute {
	return Attribute{
		name: "fan_speed",
		show: func() (string, error) {
			cpu, gpu := c.Current()
			return fmt.Sprintf("%d,%d", cpu, gpu), nil
		},
		store: func(value string) error {
			cpu, gpu, err := parseFanSpeed(value)
			if err != nil {
				return err
			}
			return c.Set(cpu, gpu)
		},
	}
}

func thermalProfileAttr(c *thermal.Control) Attribute {
	return Attribute{
		name: "thermal_profile",
		show: func() (string, error) {
			p, err := c.Current()
			if err != nil {
				return "", err
			}
			return p.String(), nil
		},
		store: func(value string) error {
			p, err := parseProfile(value)
			if err != nil {
				return err
			}
			return c.Set(p)
		},
	}
}

func fourZoneModeAttr(c *lighting.Control) Attribute {
	return Attribute{
		name: "four_zone_mode",
		show: func() (string, error) {
			e, err := c.Effect()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d,%d,%d,%d,%d,%d,%d",
				e.Mode, e.Speed, e.Brightness, e.Direction, e.Red, e.Green, e.Blue), nil
		},
		store: func(value string) error {
			e, err := parseEffect(value)
			if err != nil {
				return err
			}
			return c.SetEffect(e)
		},
	}
}

func perZoneModeAttr(c *lighting.Control) Attribute {
	return Attribute{
		name: "per_zone_mode",
		show: func() (string, error) {
			z, err := c.Zones()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%06X,%06X,%06X,%06X,%d",
				z.Colors[0], z.Colors[1], z.Colors[2], z.Colors[3], z.Brightness), nil
		},
		store: func(value string) error {
			z, err := parseZones(value)
			if err != nil {
				return err
			}
			return c.SetZones(z)
		},
	}
}

func backLogoAttr(c *lighting.Control) Attribute {
	return Attribute{
		name: "back_logo",
		show: func() (string, error) {
			l, err := c.Logo()
			if err != nil {
				return "", err
			}
			enable := 0
			if l.Enable {
				enable = 1
			}
			color := uint32(l.Red)<<16 | uint32(l.Green)<<8 | uint32(l.Blue)
			return fmt.Sprintf("%06X,%d,%d", color, l.Brightness, enable), nil
		},
		store: func(value string) error {
			l, err := parseLogo(value)
			if err != nil {
				return err
			}
			return c.SetLogo(l)
		},
	}
}

func usbChargingAttr(c *sense.Control) Attribute {
	return Attribute{
		name: "usb_charging",
		show: func() (string, error) {
			level, err := c.USBCharging()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", level), nil
		},
		store: func(value string) error {
			level, err := parseUint8(value, 30)
			if err != nil {
				return err
			}
			return c.SetUSBCharging(level)
		},
	}
}

func boolAttr(name string, get func() (bool, error), set func(bool) error) Attribute {
	return Attribute{
		name: name,
		show: func() (string, error) {
			on, err := get()
			if err != nil {
				return "", err
			}
			if on {
				return "1", nil
			}
			return "0", nil
		},
		store: func(value string) error {
			on, err := parseBool(value)
			if err != nil {
				return err
			}
			return set(on)
		},
	}
}

func batteryAttr(name string, c *battery.Control, f battery.Function) Attribute {
	return Attribute{
		name: name,
		show: func() (string, error) {
			on, err := c.Status(f)
			if err != nil {
				return "", err
			}
			if on {
				return "1", nil
			}
			return "0", nil
		},
		store: func(value string) error {
			on, err := parseBool(value)
			if err != nil {
				return err
			}
			return c.Set(f, on)
		},
	}
}

func sensorAttr(r *sensor.Reader, id sensor.ID) Attribute {
	return Attribute{
		name: sensorAttrName(id),
		show: func() (string, error) {
			v, err := r.Read(id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", v), nil
		},
	}
}

func sensorAttrName(id sensor.ID) string {
	return strings.ReplaceAll(strings.ToLower(id.String()), " ", "_")
}
