package inspector

import (
	"sync"
	"time"

	"github.com/srvscope/srvscope/internal/clock"
	"github.com/srvscope/srvscope/internal/config"
)

// Notification is one user-facing alert.
type Notification struct {
	// Key groups repeats for throttling (e.g. "cpu", "temp_gpu").
	Key      string
	Title    string
	Body     string
	Critical bool
}

// Notifier applies the notification policy: global and critical-only
// toggles, plus a per-key anti-spam window. An interval of zero means
// notify every time.
type Notifier struct {
	mu sync.Mutex

	clk  clock.Clock
	emit func(Notification)

	cfg  config.NotificationConfig
	last map[string]time.Time
}

// NewNotifier creates a notifier delivering through emit.
func NewNotifier(clk clock.Clock, cfg config.NotificationConfig, emit func(Notification)) *Notifier {
	return &Notifier{
		clk:  clk,
		emit: emit,
		cfg:  cfg,
		last: make(map[string]time.Time),
	}
}

// Notify delivers n unless policy or the throttle window suppresses it.
// Returns true when the notification was emitted.
func (n *Notifier) Notify(note Notification) bool {
	n.mu.Lock()

	if n.cfg.DisableAll || !n.cfg.Enabled {
		n.mu.Unlock()
		return false
	}
	if n.cfg.OnlyCritical && !note.Critical {
		n.mu.Unlock()
		return false
	}

	now := n.clk.Now()
	if n.cfg.Interval > 0 {
		if last, ok := n.last[note.Key]; ok && now.Sub(last) < n.cfg.Interval {
			n.mu.Unlock()
			return false
		}
	}
	n.last[note.Key] = now
	n.mu.Unlock()

	n.emit(note)
	return true
}

// SetConfig replaces the policy. Throttle history is retained so a
// config change cannot re-fire a recent alert.
func (n *Notifier) SetConfig(cfg config.NotificationConfig) {
	n.mu.Lock()
	n.cfg = cfg
	n.mu.Unlock()
}

// Reset clears the throttle history.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.last = make(map[string]time.Time)
	n.mu.Unlock()
}
