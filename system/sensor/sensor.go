// Package sensor reads the temperature and fan speed telemetry exposed
// through the sys-info command. Readings are point-in-time; the
// firmware does no averaging.
package sensor

import (
	"errors"
	"fmt"

	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/wmi"
)

// ID identifies one hardware sensor.
type ID uint8

const (
	CPUTemperature      ID = 0x01
	CPUFanSpeed         ID = 0x02
	ExternalTemperature ID = 0x03
	GPUFanSpeed         ID = 0x06
	GPUTemperature      ID = 0x0A
)

func (id ID) String() string {
	switch id {
	case CPUTemperature:
		return "cpu temperature"
	case CPUFanSpeed:
		return "cpu fan speed"
	case ExternalTemperature:
		return "external temperature"
	case GPUFanSpeed:
		return "gpu fan speed"
	case GPUTemperature:
		return "gpu temperature"
	default:
		return fmt.Sprintf("sensor(0x%02x)", uint8(id))
	}
}

// Unit reports what a reading of this sensor measures.
func (id ID) Unit() string {
	switch id {
	case CPUFanSpeed, GPUFanSpeed:
		return "rpm"
	default:
		return "degC"
	}
}

var (
	ErrNotSupported = errors.New("sensor: telemetry not supported on this machine")
	ErrNoSensor     = errors.New("sensor: sensor not present")
)

// Reader answers sensor queries.
type Reader struct {
	channel  *wmi.Channel
	hardware quirk.Hardware
}

func NewReader(channel *wmi.Channel, hw quirk.Hardware) (*Reader, error) {
	if channel == nil {
		return nil, errors.New("nil Channel is invalid")
	}
	if !hw.Caps.Has(quirk.CapFanSpeedRead) {
		return nil, ErrNotSupported
	}
	return &Reader{channel: channel, hardware: hw}, nil
}

// sensorCommand packs the sensor ID into bits 15:8 of the reading
// command word.
func sensorCommand(id ID) uint64 {
	return wmi.SysInfoSensorReading | uint64(id)<<8
}

// Supported returns the bitmask of present sensors; bit n-1 set means
// sensor ID n is present.
func (r *Reader) Supported() (uint16, error) {
	result, err := r.channel.GetSysInfo(wmi.SysInfoSupportedSensors)
	if err != nil {
		return 0, err
	}
	return uint16(result >> 24), nil
}

// Has reports whether the given sensor is present.
func (r *Reader) Has(id ID) (bool, error) {
	mask, err := r.Supported()
	if err != nil {
		return false, err
	}
	return mask&(1<<(uint8(id)-1)) != 0, nil
}

// Read returns the current value of a sensor: degrees Celsius for
// temperatures, RPM for fans. The reading sits in bits 23:8 of the
// response word.
func (r *Reader) Read(id ID) (uint16, error) {
	result, err := r.channel.GetSysInfo(sensorCommand(id))
	if err != nil {
		return 0, err
	}
	return uint16(result >> 8), nil
}

// ReadAll reads every present sensor. Missing sensors are skipped, not
// errors.
func (r *Reader) ReadAll() (map[ID]uint16, error) {
	mask, err := r.Supported()
	if err != nil {
		return nil, err
	}

	out := make(map[ID]uint16)
	for _, id := range []ID{CPUTemperature, CPUFanSpeed, ExternalTemperature, GPUFanSpeed, GPUTemperature} {
		if mask&(1<<(uint8(id)-1)) == 0 {
			continue
		}
		v, err := r.Read(id)
		if err != nil {
			return nil, fmt.Errorf("sensor: reading %s: %w", id, err)
		}
		out[id] = v
	}
	return out, nil
}
