// Package power reports the active power source and surfaces
// suspend/resume notifications. The thermal controller keeps separate
// state per source, so both ends of the AC plug event need a reliable
// answer to "which side are we on now".
package power

import (
	"github.com/avakist/PHN16Manager/system/wmi"
)

// Source is the power source the machine currently runs on.
type Source int

const (
	Battery Source = iota
	AC
)

func (s Source) String() string {
	if s == AC {
		return "AC"
	}
	return "Battery"
}

// Query asks the firmware which source is active. The battery status
// word is the one sys-info answer that does not carry a status byte, so
// this reads the raw value instead of going through GetSysInfo.
func Query(c *wmi.Channel) (Source, error) {
	v, err := c.ExecuteU64(wmi.Gaming, wmi.GetGamingSysInfo, wmi.SysInfoBatteryStatus)
	if err != nil {
		return Battery, err
	}
	if v != 0 {
		return AC, nil
	}
	return Battery, nil
}
