package monitor

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/srvscope/srvscope/internal/logview"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyToggleLogs  = "l"
	KeyRealtime    = "t"
	KeyCleanup     = "c"
	KeyRestart     = "R"
	KeyConfirmYes  = "y"
	KeyConfirmNo   = "n"
	KeyCycleLevel  = "L"
	KeyDownload    = "d"
	KeyBottom      = "G"
	KeyCollapse    = "esc"
	KeyToggleHelp  = "?"
	KeyScrollUp    = "up"
	KeyScrollUpK   = "k"
	KeyScrollDown  = "down"
	KeyScrollDownJ = "j"
	KeyPageUp      = "pgup"
	KeyPageDown    = "pgdown"
)

// logLevelCycle orders the level filter for the L key.
var logLevelCycle = []string{
	logview.LevelDebug,
	logview.LevelInfo,
	logview.LevelWarning,
	logview.LevelError,
	logview.LevelCritical,
}

// HandleKeyMsg processes keyboard input and returns updated model state and command.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Restart confirmation intercepts everything but y/n/esc
	if m.confirmRestart {
		switch key {
		case KeyConfirmYes:
			m.confirmRestart = false
			return true, m.restartCmd()
		case KeyConfirmNo, KeyCollapse, KeyQuit:
			m.confirmRestart = false
			return true, nil
		}
		return true, nil
	}

	// Help toggle takes priority
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		m.insp.RequestOnce()
		return true, nil

	case KeyRealtime:
		m.realtime = !m.realtime
		m.insp.SetRealtime(m.realtime)
		if m.realtime {
			m.setNotice("realtime on", false)
		} else {
			m.setNotice(fmt.Sprintf("polling every %s", m.cfg.Interval), false)
		}
		return true, nil

	case KeyCleanup:
		m.insp.ForceCleanup()
		m.setNotice("heap cleanup forced", false)
		return true, nil

	case KeyRestart:
		m.confirmRestart = true
		return true, nil

	case KeyToggleLogs:
		if m.viewMode == ViewLogs {
			m.leaveLogView()
		} else {
			m.enterLogView()
		}
		return true, nil

	case KeyCollapse:
		if m.viewMode == ViewLogs {
			m.leaveLogView()
			return true, nil
		}
	}

	if m.viewMode == ViewLogs {
		return m.handleLogViewKey(key)
	}

	return false, nil
}

// handleLogViewKey processes keys specific to the log viewer.
func (m *Model) handleLogViewKey(key string) (bool, tea.Cmd) {
	switch key {
	case KeyScrollUp, KeyScrollUpK:
		m.logViewport.LineUp(1)
		m.noteScroll()
		return true, nil

	case KeyScrollDown, KeyScrollDownJ:
		m.logViewport.LineDown(1)
		m.noteScroll()
		return true, nil

	case KeyPageUp:
		m.logViewport.ViewUp()
		m.noteScroll()
		return true, nil

	case KeyPageDown:
		m.logViewport.ViewDown()
		m.noteScroll()
		return true, nil

	case KeyBottom:
		m.logViewport.GotoBottom()
		m.follow = true
		m.insp.Logs().SetAutoscroll(true)
		m.insp.Logs().SetAtBottom(true)
		return true, nil

	case KeyCycleLevel:
		m.cycleLogLevel()
		return true, nil

	case KeyDownload:
		return true, m.downloadCmd()
	}

	return false, nil
}

// noteScroll records whether the viewport still hugs the tail after a
// manual scroll; leaving the bottom pauses follow mode.
func (m *Model) noteScroll() {
	atBottom := m.logViewport.AtBottom()
	m.follow = atBottom
	m.insp.Logs().SetAutoscroll(atBottom)
	m.insp.Logs().SetAtBottom(atBottom)
}

// enterLogView attaches the log channel and backfills the viewer.
func (m *Model) enterLogView() {
	m.viewMode = ViewLogs
	logs := m.insp.Logs()
	logs.Attach()
	logs.SetAutoscroll(true)
	logs.SetAtBottom(true)
	m.follow = true
	m.badge = 0

	if len(logs.View()) == 0 {
		logs.FetchOnce(m.logLevel, "", m.cfg.Logs.FetchLimit)
	}
	m.refreshLogContent()
	m.logViewport.GotoBottom()
}

// leaveLogView detaches the channel so arrivals buffer for the badge.
func (m *Model) leaveLogView() {
	m.viewMode = ViewDashboard
	m.insp.Logs().Detach()
}

// cycleLogLevel advances the minimum level filter and backfills with it.
func (m *Model) cycleLogLevel() {
	next := 0
	for i, lvl := range logLevelCycle {
		if lvl == m.logLevel {
			next = (i + 1) % len(logLevelCycle)
			break
		}
	}
	m.logLevel = logLevelCycle[next]

	logs := m.insp.Logs()
	logs.SetBadgeLevel(m.logLevel)
	logs.FetchOnce(m.logLevel, "", m.cfg.Logs.FetchLimit)
	m.refreshLogContent()
	m.logViewport.GotoBottom()
	m.setNotice("log level ≥ "+m.logLevel, false)
}

// restartCmd issues the restart request off the update loop.
func (m *Model) restartCmd() tea.Cmd {
	insp := m.insp
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return restartResultMsg{err: insp.RequestRestart(ctx)}
	}
}

// downloadCmd fetches the export and writes it next to the working directory.
func (m *Model) downloadCmd() tea.Cmd {
	logs := m.insp.Logs()
	level := m.logLevel
	return func() tea.Msg {
		text := logs.DownloadText(level, "")
		if text == "" {
			return downloadResultMsg{err: fmt.Errorf("no log data available")}
		}

		path := fmt.Sprintf("srvscope-logs-%s.txt", time.Now().Format("20060102-150405"))
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return downloadResultMsg{err: err}
		}
		return downloadResultMsg{path: path}
	}
}
