package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard color palette - Gen Z Electric Synthwave
const (
	// Background colors (glassmorphism-inspired)
	ColorDarkBg    = lipgloss.Color("#0A0A0F") // Deep void
	ColorSurfaceBg = lipgloss.Color("#12121A") // Dark surface
	ColorBorder    = lipgloss.Color("#2A2A4A") // Glass border (purple tint)

	// Semantic colors for metrics - neon style
	ColorHealthy  = lipgloss.Color("#39FF14") // Neon green
	ColorWarning  = lipgloss.Color("#FFAA00") // Electric amber
	ColorCritical = lipgloss.Color("#FF0055") // Hot red-pink

	// Text colors
	ColorTextPrimary   = lipgloss.Color("#FFFFFF") // Pure white
	ColorTextSecondary = lipgloss.Color("#B4B4D0") // Lavender gray
	ColorTextMuted     = lipgloss.Color("#6B6B8D") // Purple-gray

	// Accent colors - neon pink primary, cyan secondary
	ColorAccent    = lipgloss.Color("#FF2E97") // Neon pink
	ColorAccentDim = lipgloss.Color("#BF40FF") // Neon purple

	// Graph colors
	ColorGraph = lipgloss.Color("#00FFFF") // Neon cyan
)

// Fallback thresholds for percentages that have no configured pair
// (disk busy, queue fill). Configured metrics pass their own values.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

// Base styles for the dashboard
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	// Text styles
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// Delivery path indicator styles
	StateLiveStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy)

	StatePollStyle = lipgloss.NewStyle().
			Foreground(ColorGraph)

	StateFallbackStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)

	StateOfflineStyle = lipgloss.NewStyle().
				Foreground(ColorCritical)

	// Unread log badge in the header
	BadgeStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorAccent).
			Bold(true).
			Padding(0, 1)

	// Transient notice line (alerts, restart progress, download results)
	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	NoticeCritStyle = lipgloss.NewStyle().
			Foreground(ColorCritical).
			Bold(true)
)

// Delivery path indicator characters - cyber glyphs
const (
	GlyphLive     = "◉" // Push subscription active
	GlyphPoll     = "◔" // Timed poll over the socket
	GlyphFallback = "◐" // HTTP fallback (used as base frame when animating)
	GlyphOffline  = "◌" // Disconnected, fallback probing
)

// ConnectingSpinnerFrames are the animation frames shown while the
// fallback path probes for the server. Rotates through half-circle
// positions for a smooth spin effect.
var ConnectingSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// RestartSpinnerFrames animate the restart watch while the model waits
// for a new boot ID.
var RestartSpinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// SpinnerColorFrames defines the gen-z color cycling for animated spinners
var SpinnerColorFrames = []lipgloss.Color{
	lipgloss.Color("#FFAA00"), // Electric amber
	lipgloss.Color("#FF8800"), // Orange
	lipgloss.Color("#FFCC00"), // Gold
	lipgloss.Color("#FFAA00"), // Electric amber
	lipgloss.Color("#FF9900"), // Amber-orange
	lipgloss.Color("#FFBB00"), // Yellow-amber
	lipgloss.Color("#FFAA00"), // Electric amber
	lipgloss.Color("#FF7700"), // Deep amber
}

// GetSpinnerColor returns the color for the current spinner frame index.
func GetSpinnerColor(frameIndex int) lipgloss.Color {
	return SpinnerColorFrames[frameIndex%len(SpinnerColorFrames)]
}

// GetRestartSpinner returns the spinner character and style for the
// restart-in-progress animation.
func GetRestartSpinner(frameIndex int) (string, lipgloss.Style) {
	char := RestartSpinnerFrames[frameIndex%len(RestartSpinnerFrames)]
	color := GetSpinnerColor(frameIndex)
	style := lipgloss.NewStyle().Foreground(color)
	return char, style
}

// MetricColor returns the appropriate color for a percentage-based metric
// using the fallback thresholds.
func MetricColor(percent float64) lipgloss.Color {
	return MetricColorWithThresholds(percent, WarningThreshold, CriticalThreshold)
}

// MetricColorWithThresholds returns the appropriate color for a
// percentage-based metric using the provided warning and critical values.
func MetricColorWithThresholds(percent, warning, critical float64) lipgloss.Color {
	switch {
	case percent >= critical:
		return ColorCritical
	case percent >= warning:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the appropriate foreground color for the metric.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// MetricStyleWithThresholds returns a style colored by the custom thresholds.
func MetricStyleWithThresholds(percent, warning, critical float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColorWithThresholds(percent, warning, critical))
}

// ThinProgressBar renders a minimal line-based progress bar using thin
// characters: ━ for filled segments and ─ for empty segments.
func ThinProgressBar(width int, percent float64) string {
	return ThinProgressBarWithThresholds(width, percent, WarningThreshold, CriticalThreshold)
}

// ThinProgressBarWithThresholds renders a thin progress bar with custom thresholds.
func ThinProgressBarWithThresholds(width int, percent, warning, critical float64) string {
	if width < 1 {
		width = 1
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "━"
		} else {
			bar += "─"
		}
	}

	return lipgloss.NewStyle().Foreground(MetricColorWithThresholds(percent, warning, critical)).Render(bar)
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	// Left: "╭─ " (3 chars) + title + " " (1 char)
	leftWidth := 3 + lipgloss.Width(title) + 1

	// Right: " " (1 char) + value + " ╮" (2 chars)
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}

	middle := strings.Repeat("─", fillWidth)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
// Format: ╰────────────────────────────────────────────────────╯
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}

	middle := strings.Repeat("─", width-2)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	return borderStyle.Render("╰" + middle + "╯")
}

// SectionContentLine renders a content line with left and right borders, padded to width.
// Format: │ content                                              │
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)

	contentWidth := lipgloss.Width(content)

	// Inner width is total width minus the borders and padding: "│ " and " │"
	innerWidth := width - 4

	padding := innerWidth - contentWidth
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}
