package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Interval bounds for snapshot polling. Values outside this range are
// clamped on load rather than rejected.
const (
	MinInterval = 2 * time.Second
	MaxInterval = 60 * time.Second
)

// Notify interval bounds (0 disables throttling entirely).
const (
	MinNotifyInterval = 5 * time.Second
	MaxNotifyInterval = 360 * time.Second
)

// Log fetch limit bounds for the HTTP backfill path.
const (
	MinFetchLimit = 100
	MaxFetchLimit = 5000
)

// Dashboard section keys for the view preferences.
const (
	SectionMetrics = "metrics"
	SectionDisk    = "disk"
	SectionQueues  = "queues"
	SectionDB      = "db"
	SectionRuntime = "runtime"
	SectionSystem  = "system"
	SectionWS      = "ws"
	SectionClient  = "client"
)

// SectionKeys lists the dashboard sections that can be toggled in the
// view preferences, in display order.
var SectionKeys = []string{
	SectionMetrics, SectionDisk, SectionQueues, SectionDB,
	SectionRuntime, SectionSystem, SectionWS, SectionClient,
}

// Config represents the complete srvscope configuration file.
type Config struct {
	Version  int           `yaml:"version" mapstructure:"version"`
	Server   ServerConfig  `yaml:"server" mapstructure:"server"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Realtime bool          `yaml:"realtime" mapstructure:"realtime"`

	Thresholds    ThresholdConfig    `yaml:"thresholds" mapstructure:"thresholds"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Logs          LogConfig          `yaml:"logs" mapstructure:"logs"`

	// View maps section key -> visible. Absent keys default to visible.
	View map[string]bool `yaml:"view" mapstructure:"view"`
}

// ServerConfig identifies the telemetry server.
type ServerConfig struct {
	// URL is the HTTP base URL of the server (e.g., http://127.0.0.1:8765).
	// The WebSocket endpoint is derived from it plus SocketPath.
	URL string `yaml:"url" mapstructure:"url"`

	// SocketPath is the path of the push endpoint on the server.
	SocketPath string `yaml:"socket_path" mapstructure:"socket_path"`
}

// ThresholdConfig holds the warn/crit cutoffs used for value
// classification and notifications.
type ThresholdConfig struct {
	CPUWarn     float64 `yaml:"cpu_warn" mapstructure:"cpu_warn"`
	CPUCrit     float64 `yaml:"cpu_crit" mapstructure:"cpu_crit"`
	MemWarn     float64 `yaml:"mem_warn" mapstructure:"mem_warn"`
	MemCrit     float64 `yaml:"mem_crit" mapstructure:"mem_crit"`
	TempCPUWarn float64 `yaml:"temp_cpu_warn" mapstructure:"temp_cpu_warn"`
	TempCPUCrit float64 `yaml:"temp_cpu_crit" mapstructure:"temp_cpu_crit"`
	TempGPUWarn float64 `yaml:"temp_gpu_warn" mapstructure:"temp_gpu_warn"`
	TempGPUCrit float64 `yaml:"temp_gpu_crit" mapstructure:"temp_gpu_crit"`
}

// NotificationConfig controls threshold notifications.
type NotificationConfig struct {
	// Enabled toggles notifications from passing thresholds.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// OnlyCritical hides warn-level notifications, keeping critical ones.
	OnlyCritical bool `yaml:"only_critical" mapstructure:"only_critical"`

	// DisableAll suppresses every notification, including critical ones.
	DisableAll bool `yaml:"disable_all" mapstructure:"disable_all"`

	// Interval is the per-key anti-spam window. 0 means notify every time.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// LogConfig controls the live log viewer and the detached badge buffer.
type LogConfig struct {
	// BadgeLevel is the minimum level counted toward the unseen badge
	// while the log viewer is closed.
	BadgeLevel string `yaml:"badge_level" mapstructure:"badge_level"`

	// ViewLimit caps the number of lines kept in the open viewer.
	ViewLimit int `yaml:"view_limit" mapstructure:"view_limit"`

	// BufferSize caps the detached ring buffer of unseen records.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`

	// FetchLimit is the default limit for HTTP backfill requests.
	FetchLimit int `yaml:"fetch_limit" mapstructure:"fetch_limit"`

	Highlight HighlightConfig `yaml:"highlight" mapstructure:"highlight"`
}

// HighlightConfig toggles the display-time pattern highlights.
type HighlightConfig struct {
	HTTP bool `yaml:"http" mapstructure:"http"`
	UUID bool `yaml:"uuid" mapstructure:"uuid"`

	// Errors enables highlighting of ErrorPattern matches.
	Errors bool `yaml:"errors" mapstructure:"errors"`

	// ErrorPattern is a user-supplied regexp applied to message text.
	ErrorPattern string `yaml:"error_pattern" mapstructure:"error_pattern"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server: ServerConfig{
			URL:        "http://127.0.0.1:8765",
			SocketPath: "/ws",
		},
		Interval: 30 * time.Second,
		Realtime: false,
		Thresholds: ThresholdConfig{
			CPUWarn:     60,
			CPUCrit:     80,
			MemWarn:     60,
			MemCrit:     80,
			TempCPUWarn: 75,
			TempCPUCrit: 85,
			TempGPUWarn: 80,
			TempGPUCrit: 90,
		},
		Notifications: NotificationConfig{
			Enabled:  true,
			Interval: 60 * time.Second,
		},
		Logs: LogConfig{
			BadgeLevel: "INFO",
			ViewLimit:  1000,
			BufferSize: 200,
			FetchLimit: 500,
			Highlight: HighlightConfig{
				HTTP:         true,
				UUID:         true,
				Errors:       true,
				ErrorPattern: `(Exception|Traceback|Error:)`,
			},
		},
		View: make(map[string]bool),
	}
}

// SectionVisible reports whether a dashboard section should be shown.
// Sections are visible unless explicitly disabled.
func (c *Config) SectionVisible(key string) bool {
	if c.View == nil {
		return true
	}
	visible, ok := c.View[key]
	if !ok {
		return true
	}
	return visible
}

// Clamp normalizes out-of-range values in place. Called after load so a
// hand-edited config never produces a pathological timer cadence.
func (c *Config) Clamp() {
	if c.Interval < MinInterval {
		c.Interval = MinInterval
	}
	if c.Interval > MaxInterval {
		c.Interval = MaxInterval
	}

	// 0 is a valid "always notify" setting; anything else is clamped.
	if c.Notifications.Interval != 0 {
		if c.Notifications.Interval < MinNotifyInterval {
			c.Notifications.Interval = MinNotifyInterval
		}
		if c.Notifications.Interval > MaxNotifyInterval {
			c.Notifications.Interval = MaxNotifyInterval
		}
	}

	if c.Logs.ViewLimit <= 0 {
		c.Logs.ViewLimit = 1000
	}
	if c.Logs.BufferSize <= 0 {
		c.Logs.BufferSize = 200
	}
	if c.Logs.FetchLimit < MinFetchLimit {
		c.Logs.FetchLimit = MinFetchLimit
	}
	if c.Logs.FetchLimit > MaxFetchLimit {
		c.Logs.FetchLimit = MaxFetchLimit
	}
}
