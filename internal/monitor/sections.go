package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/srvscope/srvscope/internal/inspector"
	"github.com/srvscope/srvscope/internal/telemetry"
)

// Section layout constants
const (
	sectionGraphHeight = 2  // braille graph rows
	sectionMinBarWidth = 10 // minimum graph width
)

// labelValueLine renders "label ......... value" right-aligned to width.
func labelValueLine(label, value string, width int) string {
	l := LabelStyle.Render(label)
	lw := lipgloss.Width(l)
	vw := lipgloss.Width(value)

	padding := ""
	if width > lw+vw {
		padding = strings.Repeat(" ", width-lw-vw)
	}
	return l + padding + value
}

// boxLines wraps content lines into a bordered section box.
func boxLines(title, headerValue string, content []string, width int) string {
	lines := make([]string, 0, len(content)+2)
	lines = append(lines, SectionHeader(title, headerValue, width))
	for _, c := range content {
		lines = append(lines, SectionContentLine(c, width))
	}
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// historyGraph renders a braille sparkline for one history series.
// Returns nil when there is no data yet.
func (m Model) historyGraph(get func(*telemetry.Snapshot) (float64, bool), width int, warn, crit float64) []string {
	if m.LayoutMode() == LayoutMinimal {
		return nil
	}

	graphWidth := width - 4
	if graphWidth < sectionMinBarWidth {
		graphWidth = sectionMinBarWidth
	}

	data := m.insp.History().Values(get)
	if len(data) == 0 {
		return nil
	}

	height := sectionGraphHeight
	if m.LayoutMode() == LayoutCompact {
		height = 1
	}

	graph := RenderBrailleSparkline(data, graphWidth, height, warn, crit, ColorGraph)
	return strings.Split(graph, "\n")
}

// renderMetricsSection renders CPU, memory and temperatures with graphs.
func (m Model) renderMetricsSection(width int) string {
	snap := m.snapshot
	inner := width - 4
	th := m.cfg.Thresholds

	var content []string

	cpuVal := Placeholder
	if snap.CPUPercent != nil {
		cpuVal = MetricStyleWithThresholds(*snap.CPUPercent, th.CPUWarn, th.CPUCrit).
			Render(inspector.FormatPercent(snap.CPUPercent))
	}
	content = append(content, labelValueLine("CPU", cpuVal, inner))
	content = append(content, m.historyGraph(func(s *telemetry.Snapshot) (float64, bool) {
		if s.CPUPercent == nil {
			return 0, false
		}
		return *s.CPUPercent, true
	}, width, th.CPUWarn, th.CPUCrit)...)

	memVal := Placeholder
	if snap.MemoryPercent != nil {
		memVal = MetricStyleWithThresholds(*snap.MemoryPercent, th.MemWarn, th.MemCrit).
			Render(inspector.FormatPercent(snap.MemoryPercent))
		if snap.MemoryMB != nil {
			memVal += " " + MutedStyle.Render(inspector.FormatMB(snap.MemoryMB))
		}
	} else if snap.MemoryMB != nil {
		memVal = ValueStyle.Render(inspector.FormatMB(snap.MemoryMB))
	}
	content = append(content, labelValueLine("MEM", memVal, inner))
	content = append(content, m.historyGraph(func(s *telemetry.Snapshot) (float64, bool) {
		if s.MemoryPercent == nil {
			return 0, false
		}
		return *s.MemoryPercent, true
	}, width, th.MemWarn, th.MemCrit)...)

	if snap.Temps != nil {
		if snap.Temps.CPU != nil {
			v := MetricStyleWithThresholds(*snap.Temps.CPU, th.TempCPUWarn, th.TempCPUCrit).
				Render(inspector.FormatTemp(snap.Temps.CPU))
			content = append(content, labelValueLine("CPU temp", v, inner))
		}
		if snap.Temps.GPU != nil {
			v := MetricStyleWithThresholds(*snap.Temps.GPU, th.TempGPUWarn, th.TempGPUCrit).
				Render(inspector.FormatTemp(snap.Temps.GPU))
			content = append(content, labelValueLine("GPU temp", v, inner))
		}
	}

	content = append(content, labelValueLine("Threads", ValueStyle.Render(inspector.FormatInt(snap.NumThreads)), inner))
	content = append(content, labelValueLine("Connections", ValueStyle.Render(inspector.FormatInt(snap.Connections)), inner))
	if snap.Uptime != "" {
		content = append(content, labelValueLine("Uptime", ValueStyle.Render(snap.Uptime), inner))
	}

	headerValue := ""
	if snap.CPUPercent != nil {
		headerValue = inspector.FormatPercent(snap.CPUPercent)
	}
	return boxLines("Metrics", headerValue, content, width)
}

// renderDiskSection renders cumulative I/O and the derived busy estimate.
func (m Model) renderDiskSection(width int) string {
	disk := m.snapshot.Disk
	if disk == nil {
		return ""
	}
	inner := width - 4

	var content []string
	content = append(content, labelValueLine("Read", ValueStyle.Render(formatOptBytes(disk.ReadBytes)), inner))
	content = append(content, labelValueLine("Written", ValueStyle.Render(formatOptBytes(disk.WriteBytes)), inner))
	content = append(content, labelValueLine("Ops", ValueStyle.Render(
		inspector.FormatInt64(disk.ReadCount)+" r / "+inspector.FormatInt64(disk.WriteCount)+" w"), inner))

	headerValue := ""
	if m.derived.DiskBusyPct != nil {
		busy := *m.derived.DiskBusyPct
		headerValue = fmt.Sprintf("%.0f%% busy", busy)
		barWidth := inner - lipgloss.Width("Busy") - 1
		if barWidth >= sectionMinBarWidth {
			content = append(content, labelValueLine("Busy", ThinProgressBar(barWidth, busy), inner))
		}
	}

	return boxLines("Disk", headerValue, content, width)
}

// renderQueuesSection renders background queue depth and throughput.
func (m Model) renderQueuesSection(width int) string {
	q := m.snapshot.Queues
	if q == nil {
		return ""
	}
	inner := width - 4

	pendingVal := Placeholder
	if q.Pending != nil {
		// Color pending depth against the worker count as a rough
		// saturation signal.
		pct := 0.0
		if q.Workers != nil && *q.Workers > 0 {
			pct = float64(*q.Pending) / float64(*q.Workers) * 10
		}
		pendingVal = MetricStyle(pct).Render(inspector.FormatInt(q.Pending))
	}

	var content []string
	content = append(content, labelValueLine("Pending", pendingVal, inner))
	content = append(content, labelValueLine("Active", ValueStyle.Render(inspector.FormatInt(q.Active)), inner))
	content = append(content, labelValueLine("Workers", ValueStyle.Render(inspector.FormatInt(q.Workers)), inner))
	content = append(content, labelValueLine("Processed", ValueStyle.Render(inspector.FormatInt(q.Processed)), inner))

	if q.Failed != nil && *q.Failed > 0 {
		failed := NoticeCritStyle.Render(inspector.FormatInt(q.Failed))
		content = append(content, labelValueLine("Failed", failed, inner))
	}

	return boxLines("Queues", inspector.FormatInt(q.Pending), content, width)
}

// renderDatabaseSection renders the server's connection pool stats.
func (m Model) renderDatabaseSection(width int) string {
	db := m.snapshot.Database
	if db == nil {
		return ""
	}
	inner := width - 4

	pool := Placeholder
	if db.Connections != nil && db.PoolSize != nil {
		pool = fmt.Sprintf("%d / %d", *db.Connections, *db.PoolSize)
	} else if db.Connections != nil {
		pool = inspector.FormatInt(db.Connections)
	}

	qps := Placeholder
	if db.QueriesPerSec != nil {
		qps = fmt.Sprintf("%.1f/s", *db.QueriesPerSec)
	}

	var content []string
	content = append(content, labelValueLine("Pool", ValueStyle.Render(pool), inner))
	content = append(content, labelValueLine("Queries", ValueStyle.Render(qps), inner))
	if db.SlowQueries != nil && *db.SlowQueries > 0 {
		content = append(content, labelValueLine("Slow", NoticeStyle.Render(inspector.FormatInt64(db.SlowQueries)), inner))
	}
	if db.SizeMB != nil {
		content = append(content, labelValueLine("Size", ValueStyle.Render(inspector.FormatMB(db.SizeMB)), inner))
	}

	return boxLines("Database", qps, content, width)
}

// renderRuntimeSection renders server GC counters plus the client-side
// heap observations.
func (m Model) renderRuntimeSection(width int) string {
	inner := width - 4
	snap := m.snapshot

	var content []string

	if snap.GC != nil {
		content = append(content, labelValueLine("Collections", ValueStyle.Render(inspector.FormatInt64(snap.GC.Collections)), inner))
		rate := Placeholder
		if m.derived.GCRatePerMin != nil {
			rate = fmt.Sprintf("%.1f/min", *m.derived.GCRatePerMin)
		}
		content = append(content, labelValueLine("GC rate", ValueStyle.Render(rate), inner))
		if snap.GC.Uncollectable != nil && *snap.GC.Uncollectable > 0 {
			content = append(content, labelValueLine("Uncollectable", NoticeStyle.Render(inspector.FormatInt64(snap.GC.Uncollectable)), inner))
		}
	}

	content = append(content, labelValueLine("Local heap", ValueStyle.Render(inspector.FormatGCStats(m.derived.DetectorStats)), inner))

	if len(content) == 0 {
		return ""
	}

	headerValue := ""
	if m.derived.GCRatePerMin != nil {
		headerValue = fmt.Sprintf("%.1f/min", *m.derived.GCRatePerMin)
	}
	return boxLines("Runtime", headerValue, content, width)
}

// renderSystemSection renders static host information.
func (m Model) renderSystemSection(width int) string {
	info := m.snapshot.SystemInfo
	if info == nil {
		return ""
	}
	inner := width - 4

	var content []string
	if info.Hostname != "" {
		content = append(content, labelValueLine("Host", ValueStyle.Render(info.Hostname), inner))
	}
	if info.OS != "" {
		osArch := info.OS
		if info.Arch != "" {
			osArch += " / " + info.Arch
		}
		content = append(content, labelValueLine("OS", ValueStyle.Render(osArch), inner))
	}
	if info.Version != "" {
		content = append(content, labelValueLine("Version", ValueStyle.Render(info.Version), inner))
	}
	if info.BootID != "" {
		content = append(content, labelValueLine("Boot", MutedStyle.Render(shortID(info.BootID)), inner))
	}

	if comps := m.componentLines(inner); len(comps) > 0 {
		content = append(content, comps...)
	}

	if len(content) == 0 {
		return ""
	}
	return boxLines("System", "", content, width)
}

// componentLines renders per-component health from the latest snapshot
// or health probe.
func (m Model) componentLines(inner int) []string {
	components := m.snapshot.Components
	if len(components) == 0 && m.health != nil {
		components = m.health.Components
	}
	if len(components) == 0 {
		return nil
	}

	var lines []string
	for _, name := range sortedKeys(components) {
		status := components[name]
		var v string
		switch strings.ToLower(status) {
		case "ok", "up", "healthy":
			v = StateLiveStyle.Render(status)
		case "degraded", "warn", "warning":
			v = NoticeStyle.Render(status)
		default:
			v = NoticeCritStyle.Render(status)
		}
		lines = append(lines, labelValueLine(name, v, inner))
	}
	return lines
}

// renderWebSocketSection renders the server's push-transport traffic.
func (m Model) renderWebSocketSection(width int) string {
	ws := m.snapshot.WebSocket
	if ws == nil {
		return ""
	}
	inner := width - 4

	var content []string
	content = append(content, labelValueLine("Clients", ValueStyle.Render(inspector.FormatInt(ws.Clients)), inner))
	content = append(content, labelValueLine("Messages", ValueStyle.Render(
		inspector.FormatInt64(ws.MessagesIn)+" in / "+inspector.FormatInt64(ws.MessagesOut)+" out"), inner))
	content = append(content, labelValueLine("Bytes", ValueStyle.Render(
		formatOptBytes(ws.BytesIn)+" in / "+formatOptBytes(ws.BytesOut)+" out"), inner))

	return boxLines("WebSocket", inspector.FormatInt(ws.Clients), content, width)
}

// renderClientSection renders this client's view of the delivery path.
func (m Model) renderClientSection(width int) string {
	inner := width - 4

	var content []string
	content = append(content, labelValueLine("Path", ValueStyle.Render(m.state.String()), inner))
	content = append(content, labelValueLine("Arrival gap", ValueStyle.Render(
		inspector.FormatInterval(m.derived.AvgInterval, m.derived.HasInterval)), inner))

	if m.havePush {
		content = append(content, labelValueLine("Push RTT", ValueStyle.Render(inspector.FormatRTT(m.pushRTT)), inner))
	}
	if m.httpRTT > 0 {
		content = append(content, labelValueLine("HTTP RTT", ValueStyle.Render(inspector.FormatRTT(m.httpRTT)), inner))
	}

	mode := "poll " + m.cfg.Interval.String()
	if m.realtime {
		mode = "realtime"
	}
	content = append(content, labelValueLine("Mode", ValueStyle.Render(mode), inner))

	return boxLines("Client", "", content, width)
}

// Placeholder mirrors the value renderers' missing-data marker.
const Placeholder = inspector.Placeholder

func formatOptBytes(v *int64) string {
	if v == nil {
		return Placeholder
	}
	return inspector.FormatBytes(*v)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
