// Package logview implements the live log channel: push subscription
// management, the bounded viewer and detached buffers, HTTP backfill,
// and display-time highlighting.
package logview

import (
	"fmt"
	"time"
)

// Log levels in ascending severity.
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// levelRanks orders levels for minimum-level filtering.
var levelRanks = map[string]int{
	LevelDebug:    0,
	LevelInfo:     1,
	LevelWarning:  2,
	LevelError:    3,
	LevelCritical: 4,
}

// Record is one log line from the server. Partial records are kept as
// is; absent fields render as placeholders, never reject the record.
type Record struct {
	TSMillis int64  `json:"ts_ms"`
	Level    string `json:"level"`
	Logger   string `json:"logger"`
	Message  string `json:"message"`
}

// LevelAtLeast reports whether level ranks at or above min. Unknown
// levels rank lowest, so they pass any DEBUG filter but are excluded by
// stricter ones.
func LevelAtLeast(level, min string) bool {
	lr, ok := levelRanks[level]
	if !ok {
		lr = 0
	}
	mr, ok := levelRanks[min]
	if !ok {
		mr = 0
	}
	return lr >= mr
}

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	_, ok := levelRanks[s]
	return ok
}

// Line serializes the record for plain-text download.
func (r Record) Line() string {
	ts := time.UnixMilli(r.TSMillis).UTC().Format("2006-01-02T15:04:05.000Z")
	return fmt.Sprintf("[%s] %s %s: %s", ts, r.Level, r.Logger, r.Message)
}

// Time returns the record timestamp as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.TSMillis)
}
