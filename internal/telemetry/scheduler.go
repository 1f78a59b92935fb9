package telemetry

import (
	"sync"
	"time"

	"github.com/srvscope/srvscope/internal/clock"
)

// DefaultMinRenderInterval is the minimum spacing between renders.
const DefaultMinRenderInterval = 250 * time.Millisecond

// Scheduler coalesces bursts of incoming snapshots into at most one
// render per minimum interval. It is a rate limiter, not a queue:
// intermediate snapshots between two flushes are discarded since only
// the latest state matters for a live dashboard.
type Scheduler struct {
	mu sync.Mutex

	clk         clock.Clock
	minInterval time.Duration
	render      func(*Snapshot)

	latest  *Snapshot
	pending bool
	timer   clock.Timer

	lastRendered time.Time
	haveRendered bool

	holdUntil time.Time
	stopped   bool
}

// NewScheduler creates a scheduler delivering coalesced snapshots to
// render. minInterval <= 0 selects the default.
func NewScheduler(clk clock.Clock, minInterval time.Duration, render func(*Snapshot)) *Scheduler {
	if minInterval <= 0 {
		minInterval = DefaultMinRenderInterval
	}
	return &Scheduler{
		clk:         clk,
		minInterval: minInterval,
		render:      render,
	}
}

// Submit stores the snapshot as the latest, overwriting any not yet
// rendered one, and arms a flush if none is scheduled.
func (s *Scheduler) Submit(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.latest = snap
	s.scheduleFlushLocked()
}

// Invalidate re-renders the latest snapshot through the same coalescing
// path. Used when the rendering layer changes shape (resize, section
// toggle) and needs a repaint without new data.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.latest == nil {
		return
	}
	s.scheduleFlushLocked()
}

// HoldFor suppresses rendering for the given duration. The latest
// snapshot received during the hold is rendered once when it ends.
// Used for the initial loading placeholder window.
func (s *Scheduler) HoldFor(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdUntil = s.clk.Now().Add(d)
}

// Stop cancels any scheduled flush. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scheduleFlushLocked arms the flush timer if one is not already armed.
// Must be called with s.mu held.
func (s *Scheduler) scheduleFlushLocked() {
	if s.pending {
		return
	}

	now := s.clk.Now()

	var delay time.Duration
	if now.Before(s.holdUntil) {
		delay = s.holdUntil.Sub(now)
	} else if s.haveRendered {
		elapsed := now.Sub(s.lastRendered)
		if elapsed < s.minInterval {
			delay = s.minInterval - elapsed
		}
	}

	s.pending = true
	s.timer = s.clk.AfterFunc(delay, s.flush)
}

func (s *Scheduler) flush() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	snap := s.latest
	s.pending = false
	s.timer = nil
	s.lastRendered = s.clk.Now()
	s.haveRendered = true
	s.mu.Unlock()

	if snap != nil {
		s.render(snap)
	}
}
