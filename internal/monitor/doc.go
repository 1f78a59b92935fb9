// Package monitor implements the real-time TUI dashboard for a srvscope
// session.
//
// The dashboard displays the server's telemetry snapshots (CPU, memory,
// disk, queues, database, websocket traffic, GC activity) together with
// this client's view of the delivery path, and embeds a scrollable log
// viewer with level filtering and pattern highlighting.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm
// Architecture (Model-Update-View pattern):
//
//   - Model: Holds display state (latest snapshot, derived stats,
//     delivery state, log viewer state, notices)
//   - Update: Processes messages (keystrokes, ticks, session events)
//   - View: Renders the current state to a string for display
//
// All data acquisition lives in the inspector package. The inspector's
// event sink feeds the program via Send, so each event arrives in the
// update loop as an EventMsg and rendering stays single-threaded.
//
// # Message Flow
//
//  1. inspector emits an event (snapshot, state change, log batch, alert)
//  2. the program sink wraps it in EventMsg and Sends it
//  3. Update folds it into the Model
//  4. View re-renders on the next frame
//
// Snapshot pacing is handled upstream: the inspector's scheduler
// coalesces bursts before they ever reach this package, so the dashboard
// renders at most one snapshot per scheduler interval.
//
// # Layout Modes
//
// The dashboard adapts to terminal width with three layout modes:
//
//	LayoutMinimal  (<80 cols)  - Values only, no graphs
//	LayoutCompact  (80-120)    - Single-row graphs
//	LayoutStandard (120+)      - Two-column layout, braille graphs
//
// # Keyboard Shortcuts
//
// Navigation and control is handled via keybindings defined in
// keybindings.go:
//
//	q, Ctrl+C   - Quit
//	l           - Toggle log viewer
//	r           - Request a fresh snapshot
//	t           - Toggle realtime push
//	c           - Force heap cleanup
//	R           - Restart server (confirmed with y/n)
//	L           - Cycle log level filter
//	d           - Download logs to a file
//	?           - Toggle help overlay
package monitor
