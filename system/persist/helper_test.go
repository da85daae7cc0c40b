package persist

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockConfig struct {
	bytes   []byte
	applied int
}

func (m *mockConfig) Name() string        { return "mock_state" }
func (m *mockConfig) Value() []byte       { return m.bytes }
func (m *mockConfig) Load(v []byte) error { m.bytes = v; return nil }
func (m *mockConfig) Apply() error        { m.applied++; return nil }
func (m *mockConfig) Close() error        { return nil }

var _ Registry = &mockConfig{}

func TestPersistRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "persist")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	expectedBytes := []byte{1, 2, 3, 4, 5, 6}

	h, err := NewFileHelper(dir)
	require.NoError(t, err)
	m := &mockConfig{bytes: expectedBytes}
	h.Register(m)
	require.NoError(t, h.Save())

	hL, err := NewFileHelper(dir)
	require.NoError(t, err)
	m = &mockConfig{}
	hL.Register(m)
	require.NoError(t, hL.Load())
	require.EqualValues(t, expectedBytes, m.bytes)

	require.NoError(t, hL.Apply())
	require.Equal(t, 1, m.applied)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	dir, err := ioutil.TempDir("", "persist")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	h, err := NewFileHelper(dir)
	require.NoError(t, err)
	m := &mockConfig{bytes: []byte{0xAA}}
	h.Register(m)

	require.NoError(t, h.Load())
	require.EqualValues(t, []byte{0xAA}, m.bytes)
}

func TestDryHelperSkipsSave(t *testing.T) {
	dir, err := ioutil.TempDir("", "persist")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	h, err := NewDryFileHelper(dir)
	require.NoError(t, err)
	m := &mockConfig{bytes: []byte{1}}
	h.Register(m)

	require.NoError(t, h.Save())
	_, err = os.Stat(filepath.Join(dir, m.Name()))
	require.True(t, os.IsNotExist(err))
}
