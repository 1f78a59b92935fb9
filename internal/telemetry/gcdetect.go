package telemetry

import (
	"sync"
	"time"

	"github.com/srvscope/srvscope/internal/clock"
	"github.com/srvscope/srvscope/internal/logger"
)

// GC detector tuning. A drop of at least minDropFraction from the
// ratcheted peak counts as a collection; at majorDropFraction it is
// classified as major. Drops closer together than debounce are treated
// as one event window.
const (
	GCSamplePeriod    = 5 * time.Second
	minDropFraction   = 0.05
	majorDropFraction = 0.15
	gcDebounce        = 500 * time.Millisecond
)

// GCKind classifies a detected collection by magnitude.
type GCKind int

const (
	GCMinor GCKind = iota
	GCMajor
)

// String returns the lowercase kind name.
func (k GCKind) String() string {
	if k == GCMajor {
		return "major"
	}
	return "minor"
}

// GCEvent is one inferred collection.
type GCEvent struct {
	At         time.Time
	FreedBytes uint64
	Kind       GCKind
}

// GCStatsView is a read-only view of the detector counters.
type GCStatsView struct {
	Minor     uint64
	Major     uint64
	Total     uint64
	LastEvent time.Time
	HasEvent  bool
	Supported bool
}

// HeapFunc reads the current heap usage in bytes. ok is false when the
// counter is unavailable, which the detector reports as an explicit
// unsupported state rather than zero activity.
type HeapFunc func() (used uint64, ok bool)

// GCDetector infers collection events from downward excursions in a
// noisy, monotonic-looking memory counter. It keeps a peak ratchet per
// event window: the peak only grows between events, so a sustained
// climb cannot mask a later drop from a higher peak.
type GCDetector struct {
	mu sync.Mutex

	clk     clock.Clock
	heap    HeapFunc
	onEvent func(GCEvent)
	log     logger.Logger

	timer   clock.Timer
	running bool

	peak     uint64
	havePeak bool

	lastEvent     time.Time
	haveLastEvent bool

	minor, major uint64
	unsupported  bool
}

// NewGCDetector creates a detector. onEvent may be nil.
func NewGCDetector(clk clock.Clock, heap HeapFunc, onEvent func(GCEvent)) *GCDetector {
	return &GCDetector{
		clk:     clk,
		heap:    heap,
		onEvent: onEvent,
		log:     logger.NewEnvLogger("[gc]"),
	}
}

// Start begins periodic sampling. Idempotent.
func (d *GCDetector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.timer = d.clk.AfterFunc(GCSamplePeriod, d.tick)
}

// Stop cancels the sampling timer. Idempotent; counters are retained.
func (d *GCDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.running = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Reset clears the peak, the counters, and the last-event time. The
// sampling timer keeps running.
func (d *GCDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.havePeak = false
	d.haveLastEvent = false
	d.minor = 0
	d.major = 0
	d.unsupported = false
}

// Stats returns the current counters. Supported is false once the heap
// counter has reported unavailable.
func (d *GCDetector) Stats() GCStatsView {
	d.mu.Lock()
	defer d.mu.Unlock()

	return GCStatsView{
		Minor:     d.minor,
		Major:     d.major,
		Total:     d.minor + d.major,
		LastEvent: d.lastEvent,
		HasEvent:  d.haveLastEvent,
		Supported: !d.unsupported,
	}
}

func (d *GCDetector) tick() {
	used, ok := d.heap()
	if !ok {
		d.mu.Lock()
		d.unsupported = true
		d.reschedule()
		d.mu.Unlock()
		return
	}

	ev := d.Sample(used)

	d.mu.Lock()
	d.reschedule()
	d.mu.Unlock()

	if ev != nil && d.onEvent != nil {
		d.onEvent(*ev)
	}
}

// reschedule arms the next sampling tick. Must be called with d.mu held.
func (d *GCDetector) reschedule() {
	if !d.running {
		return
	}
	d.timer = d.clk.AfterFunc(GCSamplePeriod, d.tick)
}

// Sample feeds one heap reading through the heuristic and returns the
// detected event, if any. Exposed separately from the timer loop so the
// heuristic itself is directly exercisable.
func (d *GCDetector) Sample(currentUsed uint64) *GCEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.havePeak {
		d.peak = currentUsed
		d.havePeak = true
		return nil
	}

	now := d.clk.Now()
	var emitted *GCEvent

	if d.peak > 0 {
		drop := 1 - float64(currentUsed)/float64(d.peak)
		if drop >= minDropFraction && (!d.haveLastEvent || now.Sub(d.lastEvent) > gcDebounce) {
			kind := GCMinor
			if drop >= majorDropFraction {
				kind = GCMajor
				d.major++
			} else {
				d.minor++
			}
			emitted = &GCEvent{
				At:         now,
				FreedBytes: d.peak - currentUsed,
				Kind:       kind,
			}
			d.lastEvent = now
			d.haveLastEvent = true
			d.log.Debug("detected %s collection, freed %d bytes", kind, emitted.FreedBytes)
		}
	}

	if emitted != nil {
		// New event window: baseline the ratchet at the post-drop level
		d.peak = currentUsed
	} else if currentUsed > d.peak {
		d.peak = currentUsed
	}

	return emitted
}

// Peak returns the current ratchet value. ok is false before the first
// sample.
func (d *GCDetector) Peak() (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak, d.havePeak
}
