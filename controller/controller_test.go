package controller

import (
	"encoding/binary"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avakist/PHN16Manager/system/battery"
	"github.com/avakist/PHN16Manager/system/fan"
	"github.com/avakist/PHN16Manager/system/persist"
	"github.com/avakist/PHN16Manager/system/quirk"
	"github.com/avakist/PHN16Manager/system/thermal"
	"github.com/avakist/PHN16Manager/system/wmi"
	"github.com/avakist/PHN16Manager/util"
)

type fwCall struct {
	ns     wmi.Namespace
	method wmi.Method
	in     uint64
}

// testFirmware answers the command surface the controller loop touches
// and records every u64 command for assertions.
type testFirmware struct {
	onAC        bool
	profileCode uint8
	calls       []fwCall
}

func (f *testFirmware) transport() wmi.TransportFunc {
	return func(ns wmi.Namespace, method wmi.Method, payload []byte) (wmi.Response, error) {
		var in uint64
		if len(payload) == 8 {
			in = binary.LittleEndian.Uint64(payload)
		}
		f.calls = append(f.calls, fwCall{ns: ns, method: method, in: in})

		switch method {
		case wmi.GetGamingMiscSetting:
			if in == uint64(wmi.MiscSettingPlatformProfile) {
				return intResp(uint64(f.profileCode) << 8), nil
			}
			return intResp(0), nil
		case wmi.SetGamingMiscSetting:
			if uint8(in) == uint8(wmi.MiscSettingPlatformProfile) {
				f.profileCode = uint8(in >> 8)
			}
			return intResp(0), nil
		case wmi.GetGamingSysInfo:
			if in == wmi.SysInfoBatteryStatus && f.onAC {
				return intResp(1), nil
			}
			return intResp(0), nil
		default:
			return intResp(0), nil
		}
	}
}

func (f *testFirmware) callsTo(method wmi.Method) []fwCall {
	var out []fwCall
	for _, call := range f.calls {
		if call.method == method {
			out = append(out, call)
		}
	}
	return out
}

func intResp(v uint64) wmi.Response {
	return wmi.Response{Kind: wmi.ResponseInteger, Integer: v}
}

func testHardware(t *testing.T, model string) quirk.Hardware {
	t.Helper()
	hw, ok := quirk.Lookup(model)
	require.True(t, ok)
	return hw
}

func testController(t *testing.T, fw *testFirmware, hw quirk.Hardware, stateDir string) (*Controller, map[uint32]chan interface{}) {
	t.Helper()

	channel, err := wmi.NewChannel(fw.transport())
	require.NoError(t, err)

	fanCtrl, err := fan.NewControl(fan.Config{Channel: channel, Hardware: hw})
	require.NoError(t, err)

	thermalCtrl, err := thermal.NewControl(thermal.Config{
		Channel:  channel,
		Hardware: hw,
		Fan:      fanCtrl,
	})
	require.NoError(t, err)

	batteryCtrl, err := battery.NewControl(channel)
	require.NoError(t, err)

	registry, err := persist.NewFileHelper(stateDir)
	require.NoError(t, err)
	registry.Register(thermalCtrl)

	control, err := New(Config{
		Channel:  channel,
		Hardware: hw,
		Thermal:  thermalCtrl,
		Battery:  batteryCtrl,
		Registry: registry,
	})
	require.NoError(t, err)

	queues := make(map[uint32]chan interface{})
	for _, key := range []uint32{
		fnPersistConfigs,
		fnApplyConfigs,
		fnTurboToggle,
		fnCycleProfile,
		fnACSwitch,
		fnCalibration,
	} {
		ch := make(chan interface{}, 4)
		queues[key] = ch
		control.workQueueCh[key] = workQueue{noisy: ch}
	}

	return control, queues
}

func TestDecodeEvent(t *testing.T) {
	raw := []byte{0x8, 0x1, 0x34, 0x12, 0x00, 0x00, 0x2, 0x0}
	ev, err := DecodeEvent(raw)
	require.NoError(t, err)
	require.Equal(t, EventACSwitch, ev.Function)
	require.Equal(t, uint8(1), ev.Key)
	require.Equal(t, uint16(0x1234), ev.DeviceState)
	require.Equal(t, uint8(2), ev.Dock)
}

func TestDecodeEventBadLength(t *testing.T) {
	_, err := DecodeEvent([]byte{0x8, 0x1})
	require.Error(t, err)

	_, err = DecodeEvent(nil)
	require.Error(t, err)
}

func TestRouteTurboKey(t *testing.T) {
	fw := &testFirmware{}
	control, queues := testController(t, fw, testHardware(t, "PHN16-72"), t.TempDir())

	control.routeEvent(Event{Function: EventTurboKey, Key: 0x4})
	require.Len(t, queues[fnTurboToggle], 1)
	require.Len(t, queues[fnCycleProfile], 0)

	control.routeEvent(Event{Function: EventTurboKey, Key: 0x5})
	require.Len(t, queues[fnCycleProfile], 1)
}

func TestRouteTurboKeySharedWithModeKey(t *testing.T) {
	fw := &testFirmware{}
	control, queues := testController(t, fw, testHardware(t, "AN16-41"), t.TempDir())

	control.routeEvent(Event{Function: EventTurboKey, Key: 0x4})
	require.Len(t, queues[fnTurboToggle], 0)
	require.Len(t, queues[fnCycleProfile], 1)
}

func TestRouteACSwitch(t *testing.T) {
	fw := &testFirmware{}
	control, queues := testController(t, fw, testHardware(t, "PHN16-72"), t.TempDir())

	control.routeEvent(Event{Function: EventACSwitch, Key: 0})
	control.routeEvent(Event{Function: EventACSwitch, Key: 1})
	require.Len(t, queues[fnACSwitch], 2)

	control.routeEvent(Event{Function: EventACSwitch, Key: 9})
	require.Len(t, queues[fnACSwitch], 2)
}

func TestRouteCalibration(t *testing.T) {
	fw := &testFirmware{}
	control, queues := testController(t, fw, testHardware(t, "PHN16-72"), t.TempDir())

	control.routeEvent(Event{Function: EventCalibration, Key: 1})
	require.Len(t, queues[fnCalibration], 1)
}

func TestDoACSwitchRestoresSavedState(t *testing.T) {
	fw := &testFirmware{profileCode: 0x06, onAC: true}
	notifyCh := make(chan util.Notification, 4)
	control, queues := testController(t, fw, testHardware(t, "PHN16-72"), t.TempDir())
	control.Notifier = notifyCh

	// plugged in while running the battery default profile; the AC
	// record still holds its default
	control.doACSwitch(Event{Function: EventACSwitch, Key: 1})

	sets := fw.callsTo(wmi.SetGamingMiscSetting)
	require.NotEmpty(t, sets)
	last := sets[len(sets)-1]
	require.Equal(t, uint8(wmi.MiscSettingPlatformProfile), uint8(last.in))
	require.Equal(t, uint8(0x01), uint8(last.in>>8))

	require.Len(t, queues[fnPersistConfigs], 1)
	require.Len(t, notifyCh, 1)
	require.Contains(t, (<-notifyCh).Message, "AC")
}

func TestDoPersistWritesStateFile(t *testing.T) {
	fw := &testFirmware{profileCode: 0x01, onAC: true}
	dir := t.TempDir()
	control, _ := testController(t, fw, testHardware(t, "PHN16-72"), dir)

	control.doPersist()

	blob, err := ioutil.ReadFile(filepath.Join(dir, "predator_state"))
	require.NoError(t, err)
	require.Len(t, blob, 24)

	// AC record occupies the second 12 byte slot
	require.Equal(t, uint32(0x01), binary.LittleEndian.Uint32(blob[20:]))
}

func TestGetDependenciesDryRun(t *testing.T) {
	dep, err := GetDependencies(RunConfig{
		Model:    "PHN16-72",
		StateDir: t.TempDir(),
		DryRun:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, dep.Channel)
	require.NotNil(t, dep.Fan)
	require.NotNil(t, dep.Thermal)
	require.NotNil(t, dep.Lighting)
	require.NotNil(t, dep.Battery)
	require.NotNil(t, dep.Registry)

	_, err = GetDependencies(RunConfig{
		Model:    "XYZ99-00",
		StateDir: t.TempDir(),
		DryRun:   true,
	})
	require.Error(t, err)
}

type failingRegistry struct {
	persist.ConfigRegistry
}

func (f *failingRegistry) Save() error {
	return errors.New("disk full")
}

func TestDoPersistSaveFailureIsNonFatal(t *testing.T) {
	fw := &testFirmware{onAC: true}
	control, _ := testController(t, fw, testHardware(t, "PHN16-72"), t.TempDir())
	control.Registry = &failingRegistry{ConfigRegistry: control.Registry}

	// nothing reads errorCh here; a save failure escalated through it
	// would hang instead of returning
	done := make(chan struct{})
	go func() {
		control.doPersist()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("doPersist did not return after a failed save")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
