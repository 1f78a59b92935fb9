package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/srvscope/srvscope/internal/logview"
)

// renderLogView renders the full-screen log viewer.
func (m Model) renderLogView() string {
	var b strings.Builder

	b.WriteString(m.renderLogHeader())
	b.WriteString("\n")

	if m.vpReady {
		b.WriteString(m.logViewport.View())
	} else {
		b.WriteString(LabelStyle.Render("  loading..."))
	}

	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}

	return b.String()
}

// renderLogHeader renders the log viewer title with filter and scroll state.
func (m Model) renderLogHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("srvscope logs")

	parts := []string{"≥ " + m.logLevel}

	if m.follow {
		parts = append(parts, "following")
	} else if n := m.insp.Logs().NewCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d below", n))
	}

	parts = append(parts, fmt.Sprintf("%d lines", len(m.insp.Logs().View())))

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(parts, " | "))

	return HeaderStyle.Render(title + stats)
}

// refreshLogContent rebuilds the viewport content from the channel view,
// applying level coloring and message highlighting per line.
func (m *Model) refreshLogContent() {
	if !m.vpReady {
		return
	}

	records := m.insp.Logs().View()
	lines := make([]string, 0, len(records))
	for _, r := range records {
		ts := MutedStyle.Render(r.Time().UTC().Format("15:04:05.000"))
		level := logLevelBadge(r.Level)
		logger := LabelStyle.Render(r.Logger)
		msg := m.highlighter.Apply(r.Message)
		lines = append(lines, ts+" "+level+" "+logger+" "+msg)
	}

	m.logViewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

// logLevelBadge renders a fixed-width colored level tag.
func logLevelBadge(level string) string {
	tag := level
	if len(tag) > 5 {
		tag = tag[:5]
	}
	for len(tag) < 5 {
		tag += " "
	}
	return logview.LevelStyle(level).Render(tag)
}
