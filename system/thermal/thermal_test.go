package thermal

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avakist/PHN16Manager/system/fan"
	"github.com/avakist/PHN16Manager/system/power"
	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/wmi"
)

// fakeFirmware answers the misc setting, sys-info, LED and fan methods
// the thermal Control touches, tracking state like the real thing.
type fakeFirmware struct {
	t *testing.T

	profileCode   uint8
	supportedMask uint8
	onAC          bool
	turboLED      uint64

	setProfiles []uint8
	fanWords    []uint64
	ledWords    []uint64
	ocSettings  []uint8
}

func (f *fakeFirmware) transport() wmi.Transport {
	return wmi.TransportFunc(func(ns wmi.Namespace, method wmi.Method, payload []byte) (wmi.Response, error) {
		require.Equal(f.t, wmi.Gaming, ns)
		in := binary.LittleEndian.Uint64(payload)
		switch method {
		case wmi.GetGamingMiscSetting:
			switch wmi.MiscSetting(in & 0xFF) {
			case wmi.MiscSettingPlatformProfile:
				return intResp(uint64(f.profileCode) << 8), nil
			case wmi.MiscSettingSupportedProfiles:
				return intResp(uint64(f.supportedMask) << 8), nil
			}
			return intResp(0), nil
		case wmi.SetGamingMiscSetting:
			setting := wmi.MiscSetting(in & 0xFF)
			value := uint8(in >> 8)
			switch setting {
			case wmi.MiscSettingPlatformProfile:
				f.profileCode = value
				f.setProfiles = append(f.setProfiles, value)
			case wmi.MiscSettingOC1, wmi.MiscSettingOC2:
				f.ocSettings = append(f.ocSettings, value)
			}
			return intResp(0), nil
		case wmi.GetGamingSysInfo:
			if f.onAC {
				return intResp(1), nil
			}
			return intResp(0), nil
		case wmi.GetGamingLED:
			return intResp(f.turboLED), nil
		case wmi.SetGamingLED:
			f.turboLED = in >> 16
			f.ledWords = append(f.ledWords, in)
			return intResp(0), nil
		case wmi.SetGamingFanBehavior, wmi.SetGamingFanSpeed:
			f.fanWords = append(f.fanWords, in)
			return intResp(0), nil
		}
		f.t.Fatalf("unexpected method %d", method)
		return wmi.Response{}, nil
	})
}

func intResp(v uint64) wmi.Response {
	return wmi.Response{Kind: wmi.ResponseInteger, Integer: v}
}

func newTestControl(t *testing.T, fw *fakeFirmware, cycleMode bool) *Control {
	t.Helper()
	hw, ok := quirk.Lookup("PHN16-72")
	require.True(t, ok)
	return newTestControlHW(t, fw, cycleMode, hw)
}

func newTestControlHW(t *testing.T, fw *fakeFirmware, cycleMode bool, hw quirk.Hardware) *Control {
	t.Helper()
	fw.t = t
	c, err := wmi.NewChannel(fw.transport())
	require.NoError(t, err)

	fanCtrl, err := fan.NewControl(fan.Config{Channel: c, Hardware: hw})
	require.NoError(t, err)

	ctrl, err := NewControl(Config{
		Channel:   c,
		Hardware:  hw,
		Fan:       fanCtrl,
		CycleMode: cycleMode,
	})
	require.NoError(t, err)
	return ctrl
}

const allProfilesMask = 1<<codeEco | 1<<codeQuiet | 1<<codeBalanced | 1<<codePerformance | 1<<codeTurbo

func TestProbe(t *testing.T) {
	fw := &fakeFirmware{supportedMask: allProfilesMask}
	ctrl := newTestControl(t, fw, true)

	require.NoError(t, ctrl.Probe())
	require.Equal(t, ProfileTurbo, ctrl.maxPerf)
	require.Equal(t, ProfileBalanced, ctrl.lastNonTurbo)
	require.Equal(t, []Profile{ProfileEco, ProfileQuiet, ProfileBalanced, ProfilePerformance, ProfileTurbo}, ctrl.Supported())
}

func TestProbeTurboOnly(t *testing.T) {
	fw := &fakeFirmware{supportedMask: 1 << codeTurbo}
	ctrl := newTestControl(t, fw, true)

	require.NoError(t, ctrl.Probe())
	require.Equal(t, ProfileTurbo, ctrl.maxPerf)
	// with nothing below turbo the toggle must not escape the ladder
	require.Equal(t, ProfileTurbo, ctrl.lastNonTurbo)
}

func TestSetBlockedOnBattery(t *testing.T) {
	for _, p := range []Profile{ProfileTurbo, ProfilePerformance, ProfileQuiet} {
		fw := &fakeFirmware{onAC: false}
		ctrl := newTestControl(t, fw, true)

		require.ErrorIs(t, ctrl.Set(p), ErrNotOnBattery)
		require.Empty(t, fw.setProfiles)
	}
}

func TestSetQuietForcesFanAuto(t *testing.T) {
	fw := &fakeFirmware{onAC: true}
	ctrl := newTestControl(t, fw, true)

	require.NoError(t, ctrl.Set(ProfileQuiet))
	require.Equal(t, []uint64{0x410009}, fw.fanWords)
	require.Equal(t, []uint8{codeQuiet}, fw.setProfiles)
}

func TestCycleOnBattery(t *testing.T) {
	fw := &fakeFirmware{onAC: false, profileCode: codeEco}
	ctrl := newTestControl(t, fw, true)

	next, err := ctrl.Cycle()
	require.NoError(t, err)
	require.Equal(t, ProfileBalanced, next)

	next, err = ctrl.Cycle()
	require.NoError(t, err)
	require.Equal(t, ProfileEco, next)

	// anything that is not eco drops to eco
	fw.profileCode = codeQuiet
	next, err = ctrl.Cycle()
	require.NoError(t, err)
	require.Equal(t, ProfileEco, next)
}

func TestCycleOnACWalksLadder(t *testing.T) {
	fw := &fakeFirmware{onAC: true, supportedMask: allProfilesMask, profileCode: codeEco}
	ctrl := newTestControl(t, fw, true)
	require.NoError(t, ctrl.Probe())

	want := []Profile{ProfileQuiet, ProfileBalanced, ProfilePerformance, ProfileTurbo, ProfileQuiet}
	for _, expected := range want {
		next, err := ctrl.Cycle()
		require.NoError(t, err)
		require.Equal(t, expected, next)
	}
}

func TestCycleOnACBounces(t *testing.T) {
	fw := &fakeFirmware{onAC: true, supportedMask: allProfilesMask, profileCode: codeBalanced}
	ctrl := newTestControl(t, fw, false)
	require.NoError(t, ctrl.Probe())

	// balanced goes to the maximum profile, the maximum bounces back
	next, err := ctrl.Cycle()
	require.NoError(t, err)
	require.Equal(t, ProfileTurbo, next)

	next, err = ctrl.Cycle()
	require.NoError(t, err)
	require.Equal(t, ProfileBalanced, next)
}

func TestCycleIntoQuietForcesFanAuto(t *testing.T) {
	fw := &fakeFirmware{onAC: true, supportedMask: allProfilesMask, profileCode: codeTurbo}
	ctrl := newTestControl(t, fw, true)
	require.NoError(t, ctrl.Probe())

	next, err := ctrl.Cycle()
	require.NoError(t, err)
	require.Equal(t, ProfileQuiet, next)
	require.Equal(t, []uint64{0x410009}, fw.fanWords)
}

func TestToggleTurbo(t *testing.T) {
	fw := &fakeFirmware{turboLED: 0}
	entry := quirk.Entry{
		Family:  quirk.FamilyTurbo,
		Extra:   []quirk.Capability{quirk.CapPlatformProfile},
		CPUFans: 1,
		GPUFans: 1,
	}
	ctrl := newTestControlHW(t, fw, true, quirk.Hardware{Entry: entry, Caps: entry.Capabilities()})

	wasOn, err := ctrl.ToggleTurbo()
	require.NoError(t, err)
	require.False(t, wasOn)
	require.Equal(t, []uint64{0x10001}, fw.ledWords)
	require.Equal(t, []uint8{wmi.OCTurbo, wmi.OCTurbo}, fw.ocSettings)
	require.Len(t, fw.fanWords, 1)

	wasOn, err = ctrl.ToggleTurbo()
	require.NoError(t, err)
	require.True(t, wasOn)
	require.Equal(t, []uint64{0x10001, 0x1}, fw.ledWords)
	require.Equal(t, []uint8{wmi.OCTurbo, wmi.OCTurbo, wmi.OCNormal, wmi.OCNormal}, fw.ocSettings)
}

func TestStateRecordRoundTrip(t *testing.T) {
	fw := &fakeFirmware{onAC: true, profileCode: codePerformance}
	ctrl := newTestControl(t, fw, true)

	require.NoError(t, ctrl.Fan.Set(40, 60))
	require.NoError(t, ctrl.UpdateState(power.AC))

	blob := ctrl.Value()
	require.Len(t, blob, stateBlobLen)

	fw2 := &fakeFirmware{onAC: true}
	ctrl2 := newTestControl(t, fw2, true)
	require.NoError(t, ctrl2.Load(blob))

	require.NoError(t, ctrl2.RestoreState(power.AC))
	require.Equal(t, []uint8{codePerformance}, fw2.setProfiles)

	cpu, gpu := ctrl2.Fan.Current()
	require.EqualValues(t, 40, cpu)
	require.EqualValues(t, 60, gpu)
}

func TestLoadRejectsShortBlob(t *testing.T) {
	fw := &fakeFirmware{onAC: false}
	ctrl := newTestControl(t, fw, true)

	require.NoError(t, ctrl.Load([]byte{1, 2, 3}))

	// defaults survive: battery record still points at eco
	require.NoError(t, ctrl.RestoreState(power.Battery))
	require.Equal(t, []uint8{codeEco}, fw.setProfiles)
}
