// Package telemetry holds the metric data model and the acquisition-side
// algorithms: bounded snapshot history, rate derivation, heuristic GC
// detection, and the coalescing render scheduler.
package telemetry

import "time"

// Snapshot is one immutable telemetry sample covering all metric groups
// at a point in time. Scalar fields are pointers so an absent field is
// distinguishable from a zero value; renderers show a placeholder for
// absent fields instead of "0".
type Snapshot struct {
	TSMillis int64 `json:"ts_ms"`

	CPUPercent    *float64 `json:"cpu_percent,omitempty"`
	MemoryMB      *float64 `json:"memory_mb,omitempty"`
	MemoryPercent *float64 `json:"memory_percent,omitempty"`
	NumThreads    *int     `json:"num_threads,omitempty"`
	Connections   *int     `json:"connections,omitempty"`
	Uptime        string   `json:"uptime,omitempty"`

	Disk       *DiskStats        `json:"disk,omitempty"`
	Queues     *QueueStats       `json:"queues,omitempty"`
	Database   *DatabaseStats    `json:"database,omitempty"`
	WebSocket  *WebSocketStats   `json:"websocket,omitempty"`
	GC         *GCStats          `json:"gc,omitempty"`
	Temps      *TempStats        `json:"temps,omitempty"`
	SystemInfo *SystemInfo       `json:"system_info,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// DiskStats is cumulative disk I/O since server start.
type DiskStats struct {
	ReadBytes  *int64   `json:"read_bytes,omitempty"`
	WriteBytes *int64   `json:"write_bytes,omitempty"`
	ReadCount  *int64   `json:"read_count,omitempty"`
	WriteCount *int64   `json:"write_count,omitempty"`
	BusyTimeMS *float64 `json:"busy_time_ms,omitempty"`
}

// QueueStats describes the server's background work queues.
type QueueStats struct {
	Pending   *int `json:"pending,omitempty"`
	Active    *int `json:"active,omitempty"`
	Workers   *int `json:"workers,omitempty"`
	Processed *int `json:"processed,omitempty"`
	Failed    *int `json:"failed,omitempty"`
}

// DatabaseStats describes the server's database connection pool.
type DatabaseStats struct {
	Connections   *int     `json:"connections,omitempty"`
	PoolSize      *int     `json:"pool_size,omitempty"`
	QueriesPerSec *float64 `json:"queries_per_sec,omitempty"`
	SlowQueries   *int64   `json:"slow_queries,omitempty"`
	SizeMB        *float64 `json:"size_mb,omitempty"`
}

// WebSocketStats describes the server's push-transport traffic.
type WebSocketStats struct {
	Clients     *int   `json:"clients,omitempty"`
	MessagesIn  *int64 `json:"messages_in,omitempty"`
	MessagesOut *int64 `json:"messages_out,omitempty"`
	BytesIn     *int64 `json:"bytes_in,omitempty"`
	BytesOut    *int64 `json:"bytes_out,omitempty"`
}

// GCStats holds the server-side collector counters. Collections is
// cumulative, so per-minute rates are derived from history deltas.
type GCStats struct {
	Collections   *int64 `json:"collections,omitempty"`
	Collected     *int64 `json:"collected,omitempty"`
	Uncollectable *int64 `json:"uncollectable,omitempty"`
}

// TempStats holds sensor temperatures in degrees Celsius.
type TempStats struct {
	CPU *float64 `json:"cpu,omitempty"`
	GPU *float64 `json:"gpu,omitempty"`
}

// SystemInfo is static host information, sent with every snapshot.
type SystemInfo struct {
	Hostname string `json:"hostname,omitempty"`
	OS       string `json:"os,omitempty"`
	Arch     string `json:"arch,omitempty"`
	Version  string `json:"version,omitempty"`
	BootID   string `json:"boot_id,omitempty"`
}

// Time returns the snapshot timestamp as a time.Time.
func (s *Snapshot) Time() time.Time {
	return time.UnixMilli(s.TSMillis)
}
