package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/srvscope/srvscope/internal/clock"
	"github.com/srvscope/srvscope/internal/logger"
)

// Delivery-path timing. The nudge watchdog re-requests a snapshot when
// push has gone quiet; the HTTP fallback loop self-throttles while the
// view is hidden.
const (
	NudgePeriod      = 2 * time.Second
	StalePushAfter   = 5 * time.Second
	MinPollInterval  = 2 * time.Second
	MaxPollInterval  = 60 * time.Second
	HTTPFallbackBase = 4 * time.Second
	HTTPFallbackSpan = 500 * time.Millisecond
	HiddenHTTPPeriod = 30 * time.Second
)

// State identifies the active delivery path.
type State int

const (
	StateDisconnected State = iota
	StatePushSubscribed
	StateRealtimeFallback
	StateTimedPoll
	StateHTTPFallback
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StatePushSubscribed:
		return "push"
	case StateRealtimeFallback:
		return "realtime-fallback"
	case StateTimedPoll:
		return "timed-poll"
	case StateHTTPFallback:
		return "http-fallback"
	default:
		return "disconnected"
	}
}

// Selector decides which of push-nudge, timed-poll, or HTTP-fallback is
// the active delivery path and transitions between them on connect,
// disconnect, and visibility changes. At most one of the poll and nudge
// tasks is armed at any time, and the HTTP fallback is mutually
// exclusive with both: it only starts on disconnect and is canceled on
// reconnect.
type Selector struct {
	mu sync.Mutex

	clk clock.Clock
	log logger.Logger

	// requestInfo sends a snapshot request over the push connection.
	requestInfo func()
	// fetchHTTP performs one HTTP metrics fetch. Errors are the
	// callee's concern; the next tick is the retry.
	fetchHTTP func()

	realtime  bool
	connected bool
	stopped   bool

	// interval and hidden feed the task delay functions, which run
	// while s.mu is held (Task.Start evaluates its delay inline), so
	// they live outside the mutex.
	interval atomic.Int64
	hidden   atomic.Bool

	lastPush     time.Time
	haveLastPush bool

	poll         *Task
	nudge        *Task
	httpFallback *Task
}

// NewSelector creates a selector. interval is the configured poll
// cadence, clamped to [MinPollInterval, MaxPollInterval].
func NewSelector(clk clock.Clock, realtime bool, interval time.Duration, requestInfo, fetchHTTP func()) *Selector {
	s := &Selector{
		clk:         clk,
		log:         logger.NewEnvLogger("[selector]"),
		requestInfo: requestInfo,
		fetchHTTP:   fetchHTTP,
		realtime:    realtime,
	}
	s.interval.Store(int64(clampInterval(interval)))

	s.poll = NewTask(clk, func() time.Duration { return s.pollInterval() }, s.pollTick)
	s.nudge = NewTask(clk, FixedDelay(NudgePeriod), s.nudgeTick)
	s.httpFallback = NewTask(clk, s.fallbackDelay, s.fallbackTick)
	return s
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinPollInterval {
		return MinPollInterval
	}
	if d > MaxPollInterval {
		return MaxPollInterval
	}
	return d
}

// OnConnect cancels the HTTP fallback and arms the path matching the
// realtime setting, unless the view is hidden.
func (s *Selector) OnConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.connected = true
	s.httpFallback.Stop()
	s.armActivePathLocked()
	s.log.Debug("connected, state=%s", s.stateLocked())
}

// OnDisconnect cancels poll and nudge and starts the HTTP fallback.
func (s *Selector) OnDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.connected = false
	s.poll.Stop()
	s.nudge.Stop()
	s.httpFallback.Start()
	s.log.Debug("disconnected, state=%s", s.stateLocked())
}

// SetHidden informs the selector of the view's visibility. Hiding
// cancels poll and nudge; the HTTP fallback keeps running and
// self-throttles. Unhiding resumes the active path.
func (s *Selector) SetHidden(hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hidden.Load() == hidden {
		return
	}
	s.hidden.Store(hidden)

	if hidden {
		s.poll.Stop()
		s.nudge.Stop()
		return
	}
	if s.connected {
		s.armActivePathLocked()
	}
}

// SetRealtime switches between the realtime-nudge and timed-poll paths.
func (s *Selector) SetRealtime(realtime bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.realtime == realtime {
		return
	}
	s.realtime = realtime

	if s.connected && !s.hidden.Load() {
		s.poll.Stop()
		s.nudge.Stop()
		s.armActivePathLocked()
	}
}

// SetInterval updates the poll cadence; it takes effect on the next arm.
func (s *Selector) SetInterval(d time.Duration) {
	s.interval.Store(int64(clampInterval(d)))
}

// NotePush records that a push update arrived, resetting the staleness
// watchdog.
func (s *Selector) NotePush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPush = s.clk.Now()
	s.haveLastPush = true
}

// RequestOnce fires a single snapshot request. Only valid while the
// push transport is connected; otherwise it is a no-op.
func (s *Selector) RequestOnce() {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()

	if connected {
		s.requestInfo()
	}
}

// State reports the active delivery path.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// ActiveTimers counts armed delivery tasks. Teardown asserts zero.
func (s *Selector) ActiveTimers() int {
	n := 0
	for _, t := range []*Task{s.poll, s.nudge, s.httpFallback} {
		if t.Running() {
			n++
		}
	}
	return n
}

// Stop tears down every delivery task. Terminal and idempotent: connect
// and disconnect callbacks arriving after Stop (the conn read goroutine
// races teardown) can no longer arm anything.
func (s *Selector) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.connected = false
	s.poll.Stop()
	s.nudge.Stop()
	s.httpFallback.Stop()
}

func (s *Selector) stateLocked() State {
	switch {
	case s.httpFallback.Running():
		return StateHTTPFallback
	case !s.connected:
		return StateDisconnected
	case s.nudge.Running():
		return StateRealtimeFallback
	case s.poll.Running():
		return StateTimedPoll
	default:
		return StatePushSubscribed
	}
}

// armActivePathLocked starts poll or nudge per the realtime setting.
// Must be called with s.mu held.
func (s *Selector) armActivePathLocked() {
	if s.stopped || s.hidden.Load() {
		return
	}
	if s.realtime {
		s.nudge.Start()
	} else {
		s.poll.Start()
	}
}

// pollInterval is a task delay function; it must not take s.mu.
func (s *Selector) pollInterval() time.Duration {
	return time.Duration(s.interval.Load())
}

func (s *Selector) pollTick() {
	s.requestInfo()
}

// nudgeTick re-requests a snapshot only when push has gone quiet.
func (s *Selector) nudgeTick() {
	s.mu.Lock()
	stale := !s.haveLastPush || s.clk.Now().Sub(s.lastPush) > StalePushAfter
	s.mu.Unlock()

	if stale {
		s.requestInfo()
	}
}

// fallbackDelay yields the next HTTP fallback interval: a fixed slow
// cadence while hidden, otherwise the poll interval floored at the
// fallback base plus jitter to spread clients apart. It is a task delay
// function and must not take s.mu.
func (s *Selector) fallbackDelay() time.Duration {
	if s.hidden.Load() {
		return HiddenHTTPPeriod
	}
	base := HTTPFallbackBase
	if interval := time.Duration(s.interval.Load()); interval > base {
		base = interval
	}
	return JitteredDelay(base, HTTPFallbackSpan)()
}

// fallbackTick fetches over HTTP unless hidden; hidden cycles keep the
// loop alive without spending bandwidth.
func (s *Selector) fallbackTick() {
	if !s.hidden.Load() {
		s.fetchHTTP()
	}
}
