package telemetry

import (
	"math"
	"sync"
	"time"
)

// DefaultGapCapacity caps the inter-arrival gap list.
const DefaultGapCapacity = 600

// DefaultGapWindow is the lookback used when averaging gaps.
const DefaultGapWindow = 60 * time.Second

// RatePerMinute derives an events-per-minute rate from two cumulative
// counter readings with millisecond timestamps. ok is false when the
// rate is undefined: equal timestamps or non-finite inputs. A counter
// reset (cLast < cPrev) clamps the delta to zero rather than producing
// a negative rate.
func RatePerMinute(cPrev, cLast float64, tPrevMS, tLastMS int64) (float64, bool) {
	if tLastMS == tPrevMS {
		return 0, false
	}
	if !isFinite(cPrev) || !isFinite(cLast) {
		return 0, false
	}

	delta := cLast - cPrev
	if delta < 0 {
		delta = 0
	}

	minutes := float64(tLastMS-tPrevMS) / 60000.0
	rate := delta / minutes
	if !isFinite(rate) || rate < 0 {
		return 0, false
	}
	return rate, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IntervalWindow tracks inter-arrival gaps for the average-interval
// metric. It keeps a capped list of gaps with their observation times
// and averages only the gaps inside a sliding lookback window.
type IntervalWindow struct {
	mu sync.Mutex

	capacity int
	last     time.Time
	haveLast bool
	gaps     []gapSample
}

type gapSample struct {
	at  time.Time
	gap time.Duration
}

// NewIntervalWindow creates an IntervalWindow with the given gap capacity.
func NewIntervalWindow(capacity int) *IntervalWindow {
	if capacity <= 0 {
		capacity = DefaultGapCapacity
	}
	return &IntervalWindow{capacity: capacity}
}

// Observe records an arrival. The first observation establishes a
// baseline and records no gap.
func (w *IntervalWindow) Observe(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.haveLast {
		if len(w.gaps) == w.capacity {
			copy(w.gaps, w.gaps[1:])
			w.gaps = w.gaps[:len(w.gaps)-1]
		}
		w.gaps = append(w.gaps, gapSample{at: now, gap: now.Sub(w.last)})
	}
	w.last = now
	w.haveLast = true
}

// Average returns the mean gap among gaps observed within the lookback
// window ending at now. ok is false if no gaps qualify.
func (w *IntervalWindow) Average(now time.Time, window time.Duration) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-window)
	var sum time.Duration
	var n int
	for _, g := range w.gaps {
		if g.at.Before(cutoff) {
			continue
		}
		sum += g.gap
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / time.Duration(n), true
}

// Reset drops all recorded gaps and the arrival baseline.
func (w *IntervalWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gaps = w.gaps[:0]
	w.haveLast = false
}
