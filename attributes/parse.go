package attributes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avakist/PHN16Manager/system/lighting"
	"github.com/avakist/PHN16Manager/system/thermal"
)

func parseUint8(s string, max uint8) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformed, s)
	}
	if uint8(v) > max {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrMalformed, v, max)
	}
	return uint8(v), nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q is not 0 or 1", ErrMalformed, s)
	}
}

// parseHexColor accepts exactly six hex digits, the RRGGBB form the
// vendor software writes.
func parseHexColor(s string) (uint32, error) {
	if len(s) != 6 {
		return 0, fmt.Errorf("%w: color %q must be 6 hex digits", ErrMalformed, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: color %q must be 6 hex digits", ErrMalformed, s)
	}
	return uint32(v), nil
}

func parseFanSpeed(s string) (cpu, gpu uint8, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: fan speed wants \"cpu,gpu\"", ErrMalformed)
	}
	cpu, err = parseUint8(parts[0], 100)
	if err != nil {
		return 0, 0, err
	}
	gpu, err = parseUint8(parts[1], 100)
	if err != nil {
		return 0, 0, err
	}
	return cpu, gpu, nil
}

var profileNames = map[string]thermal.Profile{
	"eco":         thermal.ProfileEco,
	"quiet":       thermal.ProfileQuiet,
	"balanced":    thermal.ProfileBalanced,
	"performance": thermal.ProfilePerformance,
	"turbo":       thermal.ProfileTurbo,
}

func parseProfile(s string) (thermal.Profile, error) {
	p, ok := profileNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown profile %q", ErrMalformed, s)
	}
	return p, nil
}

func parseEffect(s string) (lighting.Effect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 7 {
		return lighting.Effect{}, fmt.Errorf("%w: effect wants \"mode,speed,brightness,direction,R,G,B\"", ErrMalformed)
	}
	var fields [7]uint8
	for i, part := range parts {
		v, err := parseUint8(strings.TrimSpace(part), 255)
		if err != nil {
			return lighting.Effect{}, err
		}
		fields[i] = v
	}
	return lighting.Effect{
		Mode:       fields[0],
		Speed:      fields[1],
		Brightness: fields[2],
		Direction:  fields[3],
		Red:        fields[4],
		Green:      fields[5],
		Blue:       fields[6],
	}, nil
}

func parseZones(s string) (lighting.Zones, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return lighting.Zones{}, fmt.Errorf("%w: per zone wants \"RRGGBB,RRGGBB,RRGGBB,RRGGBB,brightness\"", ErrMalformed)
	}
	var z lighting.Zones
	for i := 0; i < 4; i++ {
		c, err := parseHexColor(strings.TrimSpace(parts[i]))
		if err != nil {
			return lighting.Zones{}, err
		}
		z.Colors[i] = c
	}
	brightness, err := parseUint8(strings.TrimSpace(parts[4]), 100)
	if err != nil {
		return lighting.Zones{}, err
	}
	z.Brightness = brightness
	return z, nil
}

func parseLogo(s string) (lighting.Logo, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return lighting.Logo{}, fmt.Errorf("%w: back logo wants \"RRGGBB,brightness[,enable]\"", ErrMalformed)
	}
	color, err := parseHexColor(strings.TrimSpace(parts[0]))
	if err != nil {
		return lighting.Logo{}, err
	}
	brightness, err := parseUint8(strings.TrimSpace(parts[1]), 100)
	if err != nil {
		return lighting.Logo{}, err
	}
	enable := true
	if len(parts) == 3 {
		enable, err = parseBool(strings.TrimSpace(parts[2]))
		if err != nil {
			return lighting.Logo{}, err
		}
	}
	return lighting.Logo{
		Red:        uint8(color >> 16),
		Green:      uint8(color >> 8),
		Blue:       uint8(color),
		Brightness: brightness,
		Enable:     enable,
	}, nil
}
