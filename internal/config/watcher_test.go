package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"info"}}`), 0644))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(NewLoader(configPath), zerolog.Nop(), func(cfg *Config) {
		changes <- cfg
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"debug"}}`), 0644))

	select {
	case cfg := <-changes:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{}`), 0644))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(NewLoader(configPath), zerolog.Nop(), func(cfg *Config) {
		changes <- cfg
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"shouty"}}`), 0644))

	select {
	case <-changes:
		t.Fatal("invalid config should not be applied")
	case <-time.After(750 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	w, err := NewWatcher(NewLoader(configPath), zerolog.Nop(), nil)
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
