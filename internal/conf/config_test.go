package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := Default()
	assert.Equal(t, 44100, s.SampleRate)
	assert.Equal(t, 2, s.NumChannels)
	assert.Equal(t, 15*time.Second, s.DecodeTimeout)
	assert.Equal(t, 100*time.Millisecond, s.TickInterval)
	assert.Equal(t, 500*time.Millisecond, s.DriftInterval)
	assert.Equal(t, 200*time.Millisecond, s.DriftThreshold)
	require.NoError(t, s.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocaltune.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: 48000\ndrift_threshold: 300ms\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48000, s.SampleRate)
	assert.Equal(t, 300*time.Millisecond, s.DriftThreshold)
	// Unset keys keep defaults.
	assert.Equal(t, 2, s.NumChannels)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocaltune.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_channels: 6\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
