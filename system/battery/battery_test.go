package battery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avakist/PHN16Manager/system/wmi"
)

func testControl(t *testing.T, fn func(payload []byte) wmi.Response) (*Control, *[]wmi.Method) {
	t.Helper()
	var methods []wmi.Method
	c, err := wmi.NewChannel(wmi.TransportFunc(func(ns wmi.Namespace, method wmi.Method, payload []byte) (wmi.Response, error) {
		require.Equal(t, wmi.Battery, ns)
		methods = append(methods, method)
		return fn(payload), nil
	}))
	require.NoError(t, err)

	ctrl, err := NewControl(c)
	require.NoError(t, err)
	return ctrl, &methods
}

func TestStatus(t *testing.T) {
	ctrl, _ := testControl(t, func(payload []byte) wmi.Response {
		require.Equal(t, []byte{0x1, 0x1, 0x0, 0x0}, payload)
		// health on, calibration off
		return wmi.Response{Kind: wmi.ResponseBuffer, Buffer: []byte{0x3, 0, 0, 1, 0, 0, 0, 0}}
	})

	on, err := ctrl.Status(Health)
	require.NoError(t, err)
	require.True(t, on)

	on, err = ctrl.Status(Calibration)
	require.NoError(t, err)
	require.False(t, on)
}

func TestStatusRejectsShortBuffer(t *testing.T) {
	ctrl, _ := testControl(t, func(payload []byte) wmi.Response {
		return wmi.Response{Kind: wmi.ResponseBuffer, Buffer: []byte{0, 0, 0}}
	})

	_, err := ctrl.Status(Health)
	require.ErrorIs(t, err, wmi.ErrResponseLength)
}

func TestSetPacking(t *testing.T) {
	var sent []byte
	ctrl, methods := testControl(t, func(payload []byte) wmi.Response {
		sent = append([]byte(nil), payload...)
		return wmi.Response{Kind: wmi.ResponseBuffer, Buffer: []byte{0, 0, 0, 0}}
	})

	require.NoError(t, ctrl.Set(Calibration, true))
	require.Equal(t, []byte{0x1, 0x2, 0x1, 0, 0, 0, 0, 0}, sent)
	require.Equal(t, []wmi.Method{wmi.SetBatteryHealthControl}, *methods)

	require.NoError(t, ctrl.Set(Health, false))
	require.Equal(t, []byte{0x1, 0x1, 0x0, 0, 0, 0, 0, 0}, sent)
}

func TestSetRejected(t *testing.T) {
	ctrl, _ := testControl(t, func(payload []byte) wmi.Response {
		return wmi.Response{Kind: wmi.ResponseBuffer, Buffer: []byte{1, 1, 0, 0}}
	})

	require.ErrorIs(t, ctrl.Set(Health, true), ErrRejected)
}

func TestSetSingleStatusByteAccepted(t *testing.T) {
	ctrl, _ := testControl(t, func(payload []byte) wmi.Response {
		return wmi.Response{Kind: wmi.ResponseBuffer, Buffer: []byte{1, 0, 0, 0}}
	})

	require.NoError(t, ctrl.Set(Health, true))
}

func TestUnknownFunction(t *testing.T) {
	ctrl, methods := testControl(t, func(payload []byte) wmi.Response {
		return wmi.Response{}
	})

	require.ErrorIs(t, ctrl.Set(Function(9), true), ErrUnknownFunction)
	_, err := ctrl.Status(Function(0))
	require.ErrorIs(t, err, ErrUnknownFunction)
	require.Empty(t, *methods)
}
