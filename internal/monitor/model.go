package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/srvscope/srvscope/internal/config"
	"github.com/srvscope/srvscope/internal/httpapi"
	"github.com/srvscope/srvscope/internal/inspector"
	"github.com/srvscope/srvscope/internal/logview"
	"github.com/srvscope/srvscope/internal/telemetry"
	"github.com/srvscope/srvscope/internal/transport"
)

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewDashboard ViewMode = iota
	ViewLogs
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: values only, no graphs
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns: single-row graphs
	LayoutCompact
	// LayoutStandard is for terminals 120+ columns: full sections with braille graphs
	LayoutStandard
)

// Width breakpoints for layout modes
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
)

// HeightMinimal is the minimum terminal height for showing the footer.
const HeightMinimal = 24

// EventMsg wraps a session event for delivery through Bubble Tea.
// The program's sink converts inspector events to these via Send.
type EventMsg struct {
	Event inspector.Event
}

// tickMsg drives the "Xs ago" header refresh.
type tickMsg time.Time

// spinnerTickMsg advances spinner animation frames.
type spinnerTickMsg time.Time

// restartResultMsg carries the outcome of an async restart request.
type restartResultMsg struct {
	err error
}

// downloadResultMsg carries the outcome of an async log download.
type downloadResultMsg struct {
	path string
	err  error
}

const (
	headerTickInterval = time.Second
	spinnerInterval    = 150 * time.Millisecond
	noticeLifetime     = 8 * time.Second
)

// Model is the Bubble Tea model for the server dashboard.
type Model struct {
	insp *inspector.Inspector
	cfg  *config.Config

	width  int
	height int

	viewMode       ViewMode
	showHelp       bool
	confirmRestart bool
	quitting       bool
	spinnerFrame   int

	// Last coalesced snapshot and its derived stats
	snapshot     *telemetry.Snapshot
	derived      inspector.Derived
	haveSnapshot bool
	lastUpdate   time.Time

	// Delivery path
	state     transport.State
	connected bool
	realtime  bool

	// Health probe and latency
	health   *httpapi.HealthInfo
	httpRTT  time.Duration
	pushRTT  time.Duration
	havePush bool

	// Restart watch
	restarting bool

	// Log viewer
	badge       int
	logLevel    string
	highlighter *logview.Highlighter
	logViewport viewport.Model
	vpReady     bool
	follow      bool

	// Transient notice line
	notice         string
	noticeCritical bool
	noticeUntil    time.Time
}

// NewModel creates the dashboard model. The inspector must be opened by
// the caller before the program runs and closed after it exits.
func NewModel(insp *inspector.Inspector, cfg *config.Config) Model {
	return Model{
		insp:     insp,
		cfg:      cfg,
		realtime: cfg.Realtime,
		logLevel: cfg.Logs.BadgeLevel,
		highlighter: logview.NewHighlighter(logview.HighlightOptions{
			HTTP:         cfg.Logs.Highlight.HTTP,
			UUID:         cfg.Logs.Highlight.UUID,
			Errors:       cfg.Logs.Highlight.Errors,
			ErrorPattern: cfg.Logs.Highlight.ErrorPattern,
		}),
		state:  transport.StateDisconnected,
		follow: true,
	}
}

// Init starts the periodic refresh timers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.spinnerTickCmd())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		// Terminal geometry changed under the renderer; re-issue the
		// latest snapshot so the next frame reflects it.
		m.insp.Invalidate()

	case tea.FocusMsg:
		m.insp.SetHidden(false)

	case tea.BlurMsg:
		m.insp.SetHidden(true)

	case tickMsg:
		if m.notice != "" && time.Now().After(m.noticeUntil) {
			m.notice = ""
		}
		return m, m.tickCmd()

	case spinnerTickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % 10000
		return m, m.spinnerTickCmd()

	case EventMsg:
		m.applyEvent(msg.Event)

	case restartResultMsg:
		if msg.err != nil {
			m.setNotice("restart failed: "+msg.err.Error(), true)
		}

	case downloadResultMsg:
		if msg.err != nil {
			m.setNotice("download failed: "+msg.err.Error(), true)
		} else {
			m.setNotice("logs saved to "+msg.path, false)
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.viewMode == ViewLogs {
		return m.renderLogView()
	}
	return m.renderDashboard()
}

// applyEvent folds a session event into the model state.
func (m *Model) applyEvent(ev inspector.Event) {
	switch ev := ev.(type) {
	case inspector.SnapshotEvent:
		m.snapshot = ev.Snapshot
		m.derived = ev.Derived
		m.haveSnapshot = true
		m.lastUpdate = time.Now()

	case inspector.StateEvent:
		m.state = ev.State
		m.connected = ev.Connected

	case inspector.LogBatchEvent:
		m.badge = ev.Badge
		if m.viewMode == ViewLogs {
			m.refreshLogContent()
		}

	case inspector.RestartingEvent:
		m.restarting = true
		m.setNotice("server restarting", false)

	case inspector.RestartedEvent:
		m.restarting = false
		m.setNotice("server back online (boot "+ev.BootID+")", false)

	case inspector.HealthEvent:
		m.health = ev.Info
		m.httpRTT = ev.RTT

	case inspector.PongEvent:
		m.pushRTT = ev.RTT
		m.havePush = true

	case inspector.NotificationEvent:
		n := ev.Notification
		m.setNotice(n.Title+": "+n.Body, n.Critical)
	}
}

func (m *Model) setNotice(text string, critical bool) {
	m.notice = text
	m.noticeCritical = critical
	m.noticeUntil = time.Now().Add(noticeLifetime)
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointStandard:
		return LayoutStandard
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter returns true if the terminal is tall enough to show the footer.
func (m Model) ShowFooter() bool {
	return m.height >= HeightMinimal
}

// SecondsSinceUpdate returns how many seconds have passed since the last
// rendered snapshot.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(time.Since(m.lastUpdate).Seconds())
}

// tickCmd returns a command that sends a tick for the header refresh.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(headerTickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// spinnerTickCmd returns a command that sends a spinner animation frame.
func (m Model) spinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// resizeViewport sizes the log viewport to the terminal, reserving rows
// for the header and footer.
func (m *Model) resizeViewport() {
	headerHeight := 3
	footerHeight := 2
	vpHeight := m.height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.vpReady {
		m.logViewport = viewport.New(m.width, vpHeight)
		m.logViewport.YPosition = headerHeight
		m.vpReady = true
	} else {
		m.logViewport.Width = m.width
		m.logViewport.Height = vpHeight
	}

	if m.viewMode == ViewLogs {
		m.refreshLogContent()
	}
}
