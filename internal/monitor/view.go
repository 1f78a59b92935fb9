package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/srvscope/srvscope/internal/config"
	"github.com/srvscope/srvscope/internal/inspector"
	"github.com/srvscope/srvscope/internal/transport"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.notice != "" {
		style := NoticeStyle
		if m.noticeCritical {
			style = NoticeCritStyle
		}
		b.WriteString(style.Render(" " + m.notice))
	}
	b.WriteString("\n")

	b.WriteString(m.renderSections())

	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}

	return b.String()
}

// renderHeader renders the title bar with delivery state, latency, badge
// and data age.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("srvscope")

	parts := []string{m.renderStateIndicator()}

	if rtt := m.renderLatency(); rtt != "" {
		parts = append(parts, rtt)
	}

	if m.haveSnapshot {
		parts = append(parts, m.renderDataAge())
	}

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(parts, " | "))

	line := title + stats

	if m.badge > 0 {
		line += " " + BadgeStyle.Render(fmt.Sprintf("%d new", m.badge))
	}
	if m.restarting {
		char, style := GetRestartSpinner(m.spinnerFrame)
		line += " " + style.Render(char+" restarting")
	}

	return HeaderStyle.Render(line)
}

// renderStateIndicator renders the delivery path glyph and label.
func (m Model) renderStateIndicator() string {
	switch m.state {
	case transport.StatePushSubscribed:
		return StateLiveStyle.Render(GlyphLive + " live")
	case transport.StateRealtimeFallback, transport.StateTimedPoll:
		return StatePollStyle.Render(GlyphPoll + " poll")
	case transport.StateHTTPFallback:
		return StateFallbackStyle.Render(GlyphFallback + " http")
	default:
		spin := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]
		return StateOfflineStyle.Render(spin + " offline")
	}
}

// renderLatency prefers the push round trip, falling back to the last
// health probe.
func (m Model) renderLatency() string {
	if m.havePush {
		return inspector.FormatRTT(m.pushRTT)
	}
	if m.httpRTT > 0 {
		return inspector.FormatRTT(m.httpRTT)
	}
	return ""
}

func (m Model) renderDataAge() string {
	age := m.SecondsSinceUpdate()
	switch age {
	case 0:
		return "just now"
	case 1:
		return "1s ago"
	default:
		return fmt.Sprintf("%ds ago", age)
	}
}

// renderSections renders every visible metric section in config order.
func (m Model) renderSections() string {
	width := m.sectionWidth()

	if !m.haveSnapshot {
		return m.renderWaiting(width)
	}

	var sections []string
	for _, key := range config.SectionKeys {
		if !m.cfg.SectionVisible(key) {
			continue
		}
		section := m.renderSection(key, width)
		if section != "" {
			sections = append(sections, section)
		}
	}

	if len(sections) == 0 {
		return LabelStyle.Render("All sections hidden. Edit the view block in your config.")
	}

	return m.layoutSections(sections, width)
}

// renderSection dispatches one section by its config key.
func (m Model) renderSection(key string, width int) string {
	switch key {
	case config.SectionMetrics:
		return m.renderMetricsSection(width)
	case config.SectionDisk:
		return m.renderDiskSection(width)
	case config.SectionQueues:
		return m.renderQueuesSection(width)
	case config.SectionDB:
		return m.renderDatabaseSection(width)
	case config.SectionRuntime:
		return m.renderRuntimeSection(width)
	case config.SectionSystem:
		return m.renderSystemSection(width)
	case config.SectionWS:
		return m.renderWebSocketSection(width)
	case config.SectionClient:
		return m.renderClientSection(width)
	}
	return ""
}

// sectionWidth determines how wide each section box should be.
func (m Model) sectionWidth() int {
	if m.width == 0 {
		return 56 // Default before the first WindowSizeMsg
	}
	if m.LayoutMode() == LayoutStandard {
		// Two columns with a gap
		return (m.width - 3) / 2
	}
	w := m.width - 2
	if w < 24 {
		w = 24
	}
	return w
}

// layoutSections arranges section boxes into one or two columns.
func (m Model) layoutSections(sections []string, width int) string {
	if m.LayoutMode() != LayoutStandard || len(sections) < 2 {
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	// Fill columns round-robin so the tall metrics section does not
	// push everything else into one column.
	var left, right []string
	for i, s := range sections {
		if i%2 == 0 {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	leftCol := lipgloss.JoinVertical(lipgloss.Left, left...)
	rightCol := lipgloss.JoinVertical(lipgloss.Left, right...)
	return lipgloss.JoinHorizontal(lipgloss.Top, leftCol, " ", rightCol)
}

// renderWaiting renders the placeholder shown before the first snapshot.
func (m Model) renderWaiting(width int) string {
	spin := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]

	var lines []string
	lines = append(lines, SectionHeader("Server", "", width))
	lines = append(lines, SectionContentLine(LabelStyle.Render(spin+" waiting for data"), width))
	lines = append(lines, SectionContentLine(MutedStyle.Render(m.cfg.Server.URL), width))
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderFooter renders the keyboard help footer.
func (m Model) renderFooter() string {
	var hints []string
	if m.confirmRestart {
		return FooterStyle.Render(NoticeCritStyle.Render("restart server? y/n"))
	}

	if m.viewMode == ViewLogs {
		hints = []string{
			"esc back",
			"L level",
			"d download",
			"G follow",
			"? help",
		}
	} else {
		hints = []string{
			"q quit",
			"l logs",
			"r refresh",
			"t realtime",
			"R restart",
			"? help",
		}
	}

	return FooterStyle.Render(strings.Join(hints, " | "))
}
