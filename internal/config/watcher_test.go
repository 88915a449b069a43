package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func devConfig(env Environment) *Config {
	return &Config{
		Environment: env,
		Logging:     LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestWatcherReloadNotifiesCallbacks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "logging:\n  level: debug\n")

	w, err := NewWatcher(devConfig(Development), dir, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	var got []*Config
	w.OnChange(func(cfg *Config) { got = append(got, cfg) })
	w.OnChange(func(cfg *Config) { got = append(got, cfg) })

	writeFile(t, dir, "base.yaml", "logging:\n  level: error\n")
	w.reload()

	assert.Equal(t, "error", w.Current().Logging.Level)
	require.Len(t, got, 2, "every registered callback sees the reload")
	assert.Equal(t, "error", got[0].Logging.Level)
	assert.Same(t, got[0], got[1])
}

func TestWatcherKeepsPreviousConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "logging:\n  level: debug\n")

	w, err := NewWatcher(devConfig(Development), dir, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	notified := false
	w.OnChange(func(*Config) { notified = true })

	writeFile(t, dir, "base.yaml", "logging: [unclosed\n")
	w.reload()

	assert.Equal(t, Development, w.Current().Environment)
	assert.Equal(t, "info", w.Current().Logging.Level, "previous config survives a bad reload")
	assert.False(t, notified, "callbacks must not fire for a failed reload")
}

func TestWatcherDisabledOutsideDevelopment(t *testing.T) {
	w, err := NewWatcher(devConfig(Production), t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, Production, w.Current().Environment)
}
