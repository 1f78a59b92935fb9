package logview

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"
)

// Highlight patterns. The UUID form accepts both the dashed 8-4-4-4-12
// layout and a bare 32-hex token.
var (
	ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d+)?\b`)

	httpQuotedPattern = regexp.MustCompile(`"(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS) [^"]* HTTP/[0-9.]+" (\d{3})`)
	httpSimplePattern = regexp.MustCompile(`\b(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\s+(/\S*)(?:\s+(\d{3})\b)?`)

	uuidPattern = regexp.MustCompile(`\b(?:[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|[0-9a-fA-F]{32})\b`)
)

var (
	ipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	httpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	uuidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// HighlightOptions selects which patterns are applied.
type HighlightOptions struct {
	HTTP   bool
	UUID   bool
	Errors bool
	// ErrorPattern is a user-supplied regexp. Invalid patterns disable
	// error highlighting rather than failing.
	ErrorPattern string
}

// Highlighter applies display-time pattern highlights to message text.
// It is a pure rendering transform: buffers always store the raw
// message, and timestamp/level/logger fields are never touched.
type Highlighter struct {
	opts    HighlightOptions
	errorRE *regexp.Regexp
}

// NewHighlighter compiles the configured patterns.
func NewHighlighter(opts HighlightOptions) *Highlighter {
	h := &Highlighter{opts: opts}
	if opts.Errors && opts.ErrorPattern != "" {
		if re, err := regexp.Compile(opts.ErrorPattern); err == nil {
			h.errorRE = re
		}
	}
	return h
}

// Apply returns the message with highlight styling. The input is never
// modified; callers pass the stored raw message each render.
func (h *Highlighter) Apply(message string) string {
	out := message

	// IP addresses are always highlighted
	out = ipv4Pattern.ReplaceAllStringFunc(out, styleMatch(ipStyle))

	if h.opts.HTTP {
		if httpQuotedPattern.MatchString(out) {
			out = httpQuotedPattern.ReplaceAllStringFunc(out, styleMatch(httpStyle))
		} else {
			out = httpSimplePattern.ReplaceAllStringFunc(out, styleMatch(httpStyle))
		}
	}

	if h.opts.UUID {
		out = uuidPattern.ReplaceAllStringFunc(out, styleMatch(uuidStyle))
	}

	if h.errorRE != nil {
		out = h.errorRE.ReplaceAllStringFunc(out, styleMatch(errorStyle))
	}

	return out
}

// styleMatch adapts a style to the single-argument signature
// regexp.ReplaceAllStringFunc expects.
func styleMatch(style lipgloss.Style) func(string) string {
	return func(m string) string {
		return style.Render(m)
	}
}

// LevelStyle returns the style for a level tag.
func LevelStyle(level string) lipgloss.Style {
	switch level {
	case LevelDebug:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	case LevelWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	case LevelCritical:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}
