package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"watch", "logs", "restart", "config", "version", "completion"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

// resetFlags restores the persistent flag globals after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	origConfig, origServer, origInterval := configFlag, serverFlag, intervalFlag
	t.Cleanup(func() {
		configFlag = origConfig
		serverFlag = origServer
		intervalFlag = origInterval
	})
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	resetFlags(t)

	configFlag = writeTempConfig(t, "server:\n  url: http://from-file:9999\ninterval: 20s\n")
	serverFlag = "http://from-flag:8765"
	intervalFlag = "10s"

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:8765", cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.Interval)
}

func TestLoadConfigNoOverridesKeepsFileValues(t *testing.T) {
	resetFlags(t)

	configFlag = writeTempConfig(t, "server:\n  url: http://from-file:9999\ninterval: 20s\n")
	serverFlag = ""
	intervalFlag = ""

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://from-file:9999", cfg.Server.URL)
	assert.Equal(t, 20*time.Second, cfg.Interval)
}

func TestLoadConfigInvalidInterval(t *testing.T) {
	resetFlags(t)

	configFlag = writeTempConfig(t, "interval: 20s\n")
	intervalFlag = "soon"

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval")
}

func TestLoadConfigClampsInterval(t *testing.T) {
	resetFlags(t)

	configFlag = writeTempConfig(t, "interval: 20s\n")
	intervalFlag = "500ms"

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Interval)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	resetFlags(t)

	configFlag = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := loadConfig()
	require.Error(t, err)
}
