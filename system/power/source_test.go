package power

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avakist/PHN16Manager/system/wmi"
)

func TestQuery(t *testing.T) {
	c, _ := wmi.NewChannel(wmi.TransportFunc(func(ns wmi.Namespace, method wmi.Method, payload []byte) (wmi.Response, error) {
		require.Equal(t, wmi.Gaming, ns)
		require.Equal(t, wmi.GetGamingSysInfo, method)
		return wmi.Response{Kind: wmi.ResponseInteger, Integer: 0x100}, nil
	}))

	src, err := Query(c)
	require.NoError(t, err)
	require.Equal(t, AC, src)

	c, _ = wmi.NewChannel(wmi.TransportFunc(func(ns wmi.Namespace, method wmi.Method, payload []byte) (wmi.Response, error) {
		return wmi.Response{Kind: wmi.ResponseInteger, Integer: 0}, nil
	}))

	src, err = Query(c)
	require.NoError(t, err)
	require.Equal(t, Battery, src)
}
