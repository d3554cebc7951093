package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-indicator"
)

// isolate keeps the developer's own config files out of the test
func isolate(t *testing.T) *viper.Viper {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	v := isolate(t)
	require.NoError(t, readConfig(v, ""))

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	def := indicator.DefaultConfig()
	assert.Empty(t, cfg.Port, "port is left for auto-detection")
	assert.Equal(t, def.BaudRate, cfg.BaudRate)
	assert.Equal(t, def.WatchdogTimeout, cfg.WatchdogTimeout)
	assert.Equal(t, indicator.ModeTwoState, cfg.Mode)
}

func TestLoadConfigFile(t *testing.T) {
	v := isolate(t)
	path := filepath.Join(t.TempDir(), "indicator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`port: /dev/ttyUSB3
mode: legacy
watchdog_timeout: 30s
max_retries: 5
debug_logging: true
`), 0o600))

	require.NoError(t, readConfig(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB3", cfg.Port)
	assert.Equal(t, indicator.ModeLegacy, cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.WatchdogTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, 9600, cfg.BaudRate)
}

func TestLoadConfigSearchPath(t *testing.T) {
	v := isolate(t)
	require.NoError(t, os.WriteFile("indicator.yaml", []byte("port: /dev/ttyACM1\n"), 0o600))

	require.NoError(t, readConfig(v, ""))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Port)
}

func TestLoadConfigEnvironment(t *testing.T) {
	v := isolate(t)
	t.Setenv("INDICATOR_BAUD_RATE", "115200")
	t.Setenv("INDICATOR_MODE", "legacy")

	require.NoError(t, readConfig(v, ""))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, indicator.ModeLegacy, cfg.Mode)
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	v := isolate(t)
	v.Set("mode", "rainbow")

	_, err := loadConfig(v)
	assert.ErrorIs(t, err, indicator.ErrInvalidConfig)
}

func TestReadConfigMissingExplicitFile(t *testing.T) {
	v := isolate(t)
	err := readConfig(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolvePortKeepsConfigured(t *testing.T) {
	cfg := indicator.Config{Port: "/dev/ttyACM0"}
	require.NoError(t, resolvePort(&cfg))
	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"list", "info", "set", "test", "run", "watch", "reset"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
