package wmi

// Method IDs as announced by the firmware's _WDG blocks. The ApgeAction
// block only carries the paired set/get dispatcher; everything gaming
// related (LEDs, fans, thermal, four-zone keyboard) lives in the Gaming
// block, and the battery health controller has a block of its own.
//
// The bit-packed argument/response layouts are not described anywhere in
// the ACPI tables; they were recovered by tracing the vendor service and
// must be reproduced bit-for-bit (see the consumers in system/thermal,
// system/fan, system/lighting and system/battery).

// ApgeAction block methods
const (
	SetFunction Method = 1
	GetFunction Method = 2
)

// Gaming block methods
const (
	SetGamingProfile     Method = 1
	SetGamingLED         Method = 2
	GetGamingProfile     Method = 3
	GetGamingLED         Method = 4
	GetGamingSysInfo     Method = 5
	SetGamingRGBKB       Method = 6
	GetGamingRGBKB       Method = 7
	SetGamingLogoColor   Method = 12
	GetGamingLogoColor   Method = 13
	SetGamingFanBehavior Method = 14
	SetGamingFanSpeed    Method = 16
	SetGamingKBBacklight Method = 20
	GetGamingKBBacklight Method = 21
	SetGamingMiscSetting Method = 22
	GetGamingMiscSetting Method = 23
)

// Battery block methods
const (
	GetBatteryHealthStatus  Method = 20
	SetBatteryHealthControl Method = 21
)

// MiscSetting is the setting index for the misc setting get/set pair.
// The request packs the index in the low byte and the value in the next
// byte; the response packs a status in the low byte and the value in the
// next byte.
type MiscSetting uint8

// Known misc setting indexes
const (
	MiscSettingOC1                MiscSetting = 0x05
	MiscSettingBootAnimationSound MiscSetting = 0x06
	MiscSettingOC2                MiscSetting = 0x07
	MiscSettingSupportedProfiles  MiscSetting = 0x0A
	MiscSettingPlatformProfile    MiscSetting = 0x0B
)

// Overclock values for MiscSettingOC1/OC2
const (
	OCNormal uint8 = 0x00
	OCTurbo  uint8 = 0x02
)

// Sys-info commands (GetGamingSysInfo). The sensor-reading command carries
// the sensor ID in bits 15:8 of the command word.
const (
	SysInfoSupportedSensors uint64 = 0x0000
	SysInfoSensorReading    uint64 = 0x0001
	SysInfoBatteryStatus    uint64 = 0x0002
)

// Field layout of sys-info and misc-setting response words
const (
	statusMask           uint64 = 0x00000000000000FF // bits 7:0, must be zero
	miscValueShift              = 8                  // bits 15:8
	sensorReadingShift          = 8                  // bits 23:8
	sensorReadingMask    uint64 = 0xFFFF
	supportedSensorShift        = 24 // bits 39:24
	supportedSensorMask  uint64 = 0xFFFF
)
