package sense

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avakist/PHN16Manager/system/wmi"
)

type fakeCall struct {
	ns     wmi.Namespace
	method wmi.Method
	in     uint64
}

func testControl(t *testing.T, answer uint64) (*Control, *[]fakeCall) {
	t.Helper()
	var calls []fakeCall
	c, err := wmi.NewChannel(wmi.TransportFunc(func(ns wmi.Namespace, method wmi.Method, payload []byte) (wmi.Response, error) {
		calls = append(calls, fakeCall{ns: ns, method: method, in: binary.LittleEndian.Uint64(payload)})
		return wmi.Response{Kind: wmi.ResponseInteger, Integer: answer}, nil
	}))
	require.NoError(t, err)

	ctrl, err := NewControl(c)
	require.NoError(t, err)
	return ctrl, &calls
}

func TestUSBCharging(t *testing.T) {
	tests := []struct {
		word  uint64
		level uint8
	}{
		{663296, 0},
		{659200, 10},
		{1314560, 20},
		{1969920, 30},
	}
	for _, tc := range tests {
		ctrl, calls := testControl(t, tc.word)
		level, err := ctrl.USBCharging()
		require.NoError(t, err)
		require.Equal(t, tc.level, level)
		require.Equal(t, []fakeCall{{wmi.ApgeAction, wmi.GetFunction, 0x4}}, *calls)
	}

	ctrl, _ := testControl(t, 12345)
	_, err := ctrl.USBCharging()
	require.ErrorIs(t, err, ErrUnknownValue)
}

func TestSetUSBCharging(t *testing.T) {
	ctrl, calls := testControl(t, 0)
	require.NoError(t, ctrl.SetUSBCharging(20))
	require.Equal(t, []fakeCall{{wmi.ApgeAction, wmi.SetFunction, 1314564}}, *calls)

	require.ErrorIs(t, ctrl.SetUSBCharging(15), ErrInvalidLevel)
	require.Len(t, *calls, 1)
}

func TestBacklightTimeout(t *testing.T) {
	ctrl, calls := testControl(t, 0x1E0000080000)
	on, err := ctrl.BacklightTimeout()
	require.NoError(t, err)
	require.True(t, on)
	require.Equal(t, []fakeCall{{wmi.ApgeAction, wmi.GetFunction, 0x88401}}, *calls)

	ctrl, _ = testControl(t, 0x80000)
	on, err = ctrl.BacklightTimeout()
	require.NoError(t, err)
	require.False(t, on)

	ctrl, calls = testControl(t, 0)
	require.NoError(t, ctrl.SetBacklightTimeout(true))
	require.Equal(t, []fakeCall{{wmi.ApgeAction, wmi.SetFunction, 0x1E0000088402}}, *calls)
}

func TestLCDOverride(t *testing.T) {
	ctrl, calls := testControl(t, 0x1000001000000)
	on, err := ctrl.LCDOverride()
	require.NoError(t, err)
	require.True(t, on)
	require.Equal(t, []fakeCall{{wmi.Gaming, wmi.GetGamingProfile, 0x0}}, *calls)

	ctrl, calls = testControl(t, 0)
	require.NoError(t, ctrl.SetLCDOverride(false))
	require.Equal(t, []fakeCall{{wmi.Gaming, wmi.SetGamingProfile, 0x10}}, *calls)
}

func TestBootAnimationSound(t *testing.T) {
	ctrl, _ := testControl(t, 0x100)
	on, err := ctrl.BootAnimationSound()
	require.NoError(t, err)
	require.True(t, on)

	ctrl, _ = testControl(t, 0x0)
	on, err = ctrl.BootAnimationSound()
	require.NoError(t, err)
	require.False(t, on)

	ctrl, _ = testControl(t, 0x42)
	_, err = ctrl.BootAnimationSound()
	require.ErrorIs(t, err, ErrUnknownValue)

	ctrl, calls := testControl(t, 0)
	require.NoError(t, ctrl.SetBootAnimationSound(true))
	require.Equal(t, []fakeCall{{wmi.Gaming, wmi.SetGamingMiscSetting, 0x106}}, *calls)
}
