// Package inspector wires the telemetry, transport, and log components
// together and owns the user-facing policy: threshold classification,
// notification throttling, and restart supervision.
package inspector

import (
	"fmt"
	"time"

	"github.com/srvscope/srvscope/internal/telemetry"
)

// Placeholder is rendered for absent or undefined values. It is distinct
// from Unavailable, which marks a capability the host cannot provide.
const (
	Placeholder = "-"
	Unavailable = "unavailable"
)

// Class grades a metric against its thresholds.
type Class int

const (
	ClassOK Class = iota
	ClassWarn
	ClassCrit
)

// String returns the class name used for styling.
func (c Class) String() string {
	switch c {
	case ClassWarn:
		return "warning"
	case ClassCrit:
		return "critical"
	default:
		return "ok"
	}
}

// Classify grades value against warn and crit cutoffs.
func Classify(value, warn, crit float64) Class {
	switch {
	case value >= crit:
		return ClassCrit
	case value >= warn:
		return ClassWarn
	default:
		return ClassOK
	}
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatPercent renders a percentage or the placeholder.
func FormatPercent(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// FormatMB renders a megabyte count or the placeholder.
func FormatMB(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.0f MB", *v)
}

// FormatTemp renders a temperature or the placeholder.
func FormatTemp(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.0f°C", *v)
}

// FormatInt renders an int pointer or the placeholder.
func FormatInt(v *int) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d", *v)
}

// FormatInt64 renders an int64 pointer or the placeholder.
func FormatInt64(v *int64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d", *v)
}

// FormatRTT renders a round-trip time in milliseconds.
func FormatRTT(d time.Duration) string {
	if d <= 0 {
		return Placeholder
	}
	return fmt.Sprintf("%d ms", d.Milliseconds())
}

// FormatInterval renders an average interval, short gaps in
// milliseconds and longer ones in seconds.
func FormatInterval(d time.Duration, ok bool) string {
	if !ok {
		return Placeholder
	}
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1f s", d.Seconds())
}

// FormatAgo renders how long ago t was, relative to now.
func FormatAgo(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

// diskBaselineBytesPerSec anchors the synthesized busy percentage when
// the server reports no busy time: full "busy" is pegged at 100 MB/s of
// combined throughput.
const diskBaselineBytesPerSec = 100 * 1000 * 1000

// DiskBusyPercent derives a busy percentage from two snapshots. It
// prefers the reported busy-time delta; without one it synthesizes a
// figure from combined read/write throughput against a fixed baseline.
// ok is false when neither derivation is possible.
func DiskBusyPercent(prev, last *telemetry.Snapshot) (float64, bool) {
	if prev == nil || last == nil || prev.Disk == nil || last.Disk == nil {
		return 0, false
	}
	elapsedMS := last.TSMillis - prev.TSMillis
	if elapsedMS <= 0 {
		return 0, false
	}

	if prev.Disk.BusyTimeMS != nil && last.Disk.BusyTimeMS != nil {
		busy := *last.Disk.BusyTimeMS - *prev.Disk.BusyTimeMS
		if busy < 0 {
			busy = 0
		}
		pct := busy / float64(elapsedMS) * 100
		if pct > 100 {
			pct = 100
		}
		return pct, true
	}

	if prev.Disk.ReadBytes == nil || last.Disk.ReadBytes == nil ||
		prev.Disk.WriteBytes == nil || last.Disk.WriteBytes == nil {
		return 0, false
	}

	deltaRead := *last.Disk.ReadBytes - *prev.Disk.ReadBytes
	deltaWrite := *last.Disk.WriteBytes - *prev.Disk.WriteBytes
	if deltaRead < 0 {
		deltaRead = 0
	}
	if deltaWrite < 0 {
		deltaWrite = 0
	}

	bytesPerSec := float64(deltaRead+deltaWrite) / (float64(elapsedMS) / 1000)
	pct := bytesPerSec / diskBaselineBytesPerSec * 100
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// FormatGCStats renders the client-side detector counters, reporting an
// explicit unavailable state when the heap counter cannot be read.
func FormatGCStats(stats telemetry.GCStatsView) string {
	if !stats.Supported {
		return Unavailable
	}
	return fmt.Sprintf("%d (minor %d / major %d)", stats.Total, stats.Minor, stats.Major)
}
