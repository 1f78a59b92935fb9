package transport

import (
	"math/rand"
	"sync"
	"time"

	"github.com/srvscope/srvscope/internal/clock"
)

// Task is a cancelable self-rescheduling timer: after each run of fn it
// asks delay for the next interval. This is deliberately not fixed-rate;
// a slow fn pushes the next run out instead of bunching runs up.
type Task struct {
	mu      sync.Mutex
	clk     clock.Clock
	delay   func() time.Duration
	fn      func()
	timer   clock.Timer
	running bool
}

// NewTask creates a task. delay is evaluated before every arm, so
// jittered or state-dependent cadences re-evaluate each cycle.
func NewTask(clk clock.Clock, delay func() time.Duration, fn func()) *Task {
	return &Task{clk: clk, delay: delay, fn: fn}
}

// Start arms the task. Idempotent.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.timer = t.clk.AfterFunc(t.delay(), t.tick)
}

// Stop cancels the task. Idempotent.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Running reports whether the task is armed.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Task) tick() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.timer = t.clk.AfterFunc(t.delay(), t.tick)
}

// FixedDelay returns a delay function with a constant interval.
func FixedDelay(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

// JitteredDelay returns a delay function yielding base plus a uniform
// random jitter in [0, span), spreading synchronized clients apart.
func JitteredDelay(base, span time.Duration) func() time.Duration {
	return func() time.Duration {
		if span <= 0 {
			return base
		}
		return base + time.Duration(rand.Int63n(int64(span)))
	}
}
