package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "http://127.0.0.1:8765", cfg.Server.URL)
	assert.Equal(t, "/ws", cfg.Server.SocketPath)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.False(t, cfg.Realtime)
	assert.Equal(t, float64(80), cfg.Thresholds.CPUCrit)
	assert.Equal(t, float64(85), cfg.Thresholds.TempCPUCrit)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Notifications.Interval)
	assert.Equal(t, "INFO", cfg.Logs.BadgeLevel)
	assert.Equal(t, 1000, cfg.Logs.ViewLimit)
	assert.Equal(t, 200, cfg.Logs.BufferSize)
	assert.Equal(t, 500, cfg.Logs.FetchLimit)
	assert.True(t, cfg.Logs.Highlight.HTTP)
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	content := `version: 1
server:
  url: http://monitor.local:9000
  socket_path: /push
interval: 10s
realtime: true
thresholds:
  cpu_warn: 50
logs:
  badge_level: WARNING
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://monitor.local:9000", cfg.Server.URL)
	assert.Equal(t, "/push", cfg.Server.SocketPath)
	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.True(t, cfg.Realtime)
	assert.Equal(t, float64(50), cfg.Thresholds.CPUWarn)
	assert.Equal(t, "WARNING", cfg.Logs.BadgeLevel)

	// Unset fields keep their defaults
	assert.Equal(t, float64(80), cfg.Thresholds.CPUCrit)
	assert.Equal(t, 500, cfg.Logs.FetchLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("interval: [not: valid"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Config)
		check func(*testing.T, *Config)
	}{
		{
			name:  "interval below minimum",
			setup: func(c *Config) { c.Interval = 500 * time.Millisecond },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MinInterval, c.Interval)
			},
		},
		{
			name:  "interval above maximum",
			setup: func(c *Config) { c.Interval = 5 * time.Minute },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MaxInterval, c.Interval)
			},
		},
		{
			name:  "interval in range unchanged",
			setup: func(c *Config) { c.Interval = 15 * time.Second },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 15*time.Second, c.Interval)
			},
		},
		{
			name:  "notify interval zero means always",
			setup: func(c *Config) { c.Notifications.Interval = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, time.Duration(0), c.Notifications.Interval)
			},
		},
		{
			name:  "notify interval below minimum",
			setup: func(c *Config) { c.Notifications.Interval = time.Second },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MinNotifyInterval, c.Notifications.Interval)
			},
		},
		{
			name:  "notify interval above maximum",
			setup: func(c *Config) { c.Notifications.Interval = time.Hour },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MaxNotifyInterval, c.Notifications.Interval)
			},
		},
		{
			name:  "fetch limit below minimum",
			setup: func(c *Config) { c.Logs.FetchLimit = 10 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MinFetchLimit, c.Logs.FetchLimit)
			},
		},
		{
			name:  "fetch limit above maximum",
			setup: func(c *Config) { c.Logs.FetchLimit = 99999 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MaxFetchLimit, c.Logs.FetchLimit)
			},
		},
		{
			name: "zero log buffers reset to defaults",
			setup: func(c *Config) {
				c.Logs.ViewLimit = 0
				c.Logs.BufferSize = -1
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 1000, c.Logs.ViewLimit)
				assert.Equal(t, 200, c.Logs.BufferSize)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setup(cfg)
			cfg.Clamp()
			tt.check(t, cfg)
		})
	}
}

func TestLoadClampsValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	content := `interval: 500ms
notifications:
  interval: 1s
logs:
  fetch_limit: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, MinInterval, cfg.Interval)
	assert.Equal(t, MinNotifyInterval, cfg.Notifications.Interval)
	assert.Equal(t, MinFetchLimit, cfg.Logs.FetchLimit)
}

func TestFindExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 10s\n"), 0644))

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindExplicitPathMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFindCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("interval: 10s\n"), 0644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	found, err := Find("")
	require.NoError(t, err)

	// Resolve symlinks for macOS /var vs /private/var temp dirs
	wantReal, _ := filepath.EvalSymlinks(path)
	gotReal, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, wantReal, gotReal)
}

func TestFindParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("interval: 10s\n"), 0644))

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(sub))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	found, err := Find("")
	require.NoError(t, err)

	wantReal, _ := filepath.EvalSymlinks(path)
	gotReal, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, wantReal, gotReal)
}

func TestLoadOrDefaultNoConfig(t *testing.T) {
	dir := t.TempDir()

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	// Keep the walk from escaping the temp dir into a real config
	t.Setenv("HOME", dir)

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.URL, cfg.Server.URL)
}

func TestSectionVisible(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.SectionVisible("metrics"), "unset sections default to visible")

	cfg.View["disk"] = false
	assert.False(t, cfg.SectionVisible("disk"))

	cfg.View["queues"] = true
	assert.True(t, cfg.SectionVisible("queues"))

	cfg.View = nil
	assert.True(t, cfg.SectionVisible("disk"), "nil view map means everything visible")
}
