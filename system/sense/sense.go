// Package sense exposes the odd assortment of machine settings the
// vendor software groups under its settings page. Each setting is a
// magic word pair on one of the firmware blocks; the words have no
// discernible structure and are mapped verbatim.
package sense

import (
	"errors"
	"fmt"
	"log"

	"github.com/avakist/PHN16Manager/system/wmi"
)

var (
	// ErrUnknownValue means the firmware reported a word outside the
	// known mapping, usually after a firmware update changed the
	// encoding.
	ErrUnknownValue = errors.New("sense: firmware reported unknown value")
	ErrInvalidLevel = errors.New("sense: invalid USB charging level")
)

// Control drives the settings toggles.
type Control struct {
	channel *wmi.Channel
}

func NewControl(channel *wmi.Channel) (*Control, error) {
	if channel == nil {
		return nil, errors.New("nil Channel is invalid")
	}
	return &Control{channel: channel}, nil
}

// USB charging while the lid is closed, as a battery threshold. Level 0
// disables the feature; 10, 20 and 30 keep charging until the battery
// drops to that percentage.
var (
	usbChargingGet = map[uint64]uint8{
		663296:  0,
		659200:  10,
		1314560: 20,
		1969920: 30,
	}
	usbChargingSet = map[uint8]uint64{
		0:  663300,
		10: 659204,
		20: 1314564,
		30: 1969924,
	}
)

// USBCharging reads the off-lid USB charging level.
func (c *Control) USBCharging() (uint8, error) {
	result, err := c.channel.ExecuteU64(wmi.ApgeAction, wmi.GetFunction, 0x4)
	if err != nil {
		return 0, err
	}
	level, ok := usbChargingGet[result]
	if !ok {
		return 0, fmt.Errorf("%w: 0x%x", ErrUnknownValue, result)
	}
	return level, nil
}

// SetUSBCharging sets the off-lid USB charging level.
func (c *Control) SetUSBCharging(level uint8) error {
	word, ok := usbChargingSet[level]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if _, err := c.channel.ExecuteU64(wmi.ApgeAction, wmi.SetFunction, word); err != nil {
		return err
	}
	log.Printf("sense: usb charging level set to %d\n", level)
	return nil
}

// Keyboard backlight 30 second idle timeout.
const (
	backlightTimeoutQuery       uint64 = 0x88401
	backlightTimeoutOnWord      uint64 = 0x1E0000080000
	backlightTimeoutOffWord     uint64 = 0x80000
	backlightTimeoutEnableWord  uint64 = 0x1E0000088402
	backlightTimeoutDisableWord uint64 = 0x88402
)

// BacklightTimeout reads whether the keyboard backlight idles off.
func (c *Control) BacklightTimeout() (bool, error) {
	result, err := c.channel.ExecuteU64(wmi.ApgeAction, wmi.GetFunction, backlightTimeoutQuery)
	if err != nil {
		return false, err
	}
	switch result {
	case backlightTimeoutOnWord:
		return true, nil
	case backlightTimeoutOffWord:
		return false, nil
	default:
		return false, fmt.Errorf("%w: 0x%x", ErrUnknownValue, result)
	}
}

// SetBacklightTimeout enables or disables the idle timeout.
func (c *Control) SetBacklightTimeout(on bool) error {
	word := backlightTimeoutDisableWord
	if on {
		word = backlightTimeoutEnableWord
	}
	if _, err := c.channel.ExecuteU64(wmi.ApgeAction, wmi.SetFunction, word); err != nil {
		return err
	}
	log.Printf("sense: backlight timeout set to %v\n", on)
	return nil
}

// LCD overdrive reduces panel response time.
const (
	lcdOverrideOnWord      uint64 = 0x1000001000000
	lcdOverrideOffWord     uint64 = 0x1000000
	lcdOverrideEnableWord  uint64 = 0x1000000000010
	lcdOverrideDisableWord uint64 = 0x10
)

// LCDOverride reads the panel overdrive state.
func (c *Control) LCDOverride() (bool, error) {
	result, err := c.channel.ExecuteU64(wmi.Gaming, wmi.GetGamingProfile, 0x0)
	if err != nil {
		return false, err
	}
	switch result {
	case lcdOverrideOnWord:
		return true, nil
	case lcdOverrideOffWord:
		return false, nil
	default:
		return false, fmt.Errorf("%w: 0x%x", ErrUnknownValue, result)
	}
}

// SetLCDOverride enables or disables panel overdrive.
func (c *Control) SetLCDOverride(on bool) error {
	word := lcdOverrideDisableWord
	if on {
		word = lcdOverrideEnableWord
	}
	if _, err := c.channel.ExecuteU64(wmi.Gaming, wmi.SetGamingProfile, word); err != nil {
		return err
	}
	log.Printf("sense: lcd override set to %v\n", on)
	return nil
}

// Boot animation and sound. This misc setting predates the
// status-checked misc protocol, so the raw words go straight through.
const (
	bootAnimationOnWord  uint64 = 0x100
	bootAnimationOffWord uint64 = 0x0
	bootAnimationEnable  uint64 = 0x106
	bootAnimationDisable uint64 = 0x6
)

// BootAnimationSound reads whether the boot animation and sound play.
func (c *Control) BootAnimationSound() (bool, error) {
	result, err := c.channel.ExecuteU64(wmi.Gaming, wmi.GetGamingMiscSetting, uint64(wmi.MiscSettingBootAnimationSound))
	if err != nil {
		return false, err
	}
	switch result {
	case bootAnimationOnWord:
		return true, nil
	case bootAnimationOffWord:
		return false, nil
	default:
		return false, fmt.Errorf("%w: 0x%x", ErrUnknownValue, result)
	}
}

// SetBootAnimationSound enables or disables the boot animation and sound.
func (c *Control) SetBootAnimationSound(on bool) error {
	word := bootAnimationDisable
	if on {
		word = bootAnimationEnable
	}
	if _, err := c.channel.ExecuteU64(wmi.Gaming, wmi.SetGamingMiscSetting, word); err != nil {
		return err
	}
	log.Printf("sense: boot animation and sound set to %v\n", on)
	return nil
}
