package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srvscope/srvscope/internal/clock"
)

func newTestDetector(t *testing.T, heap HeapFunc) (*GCDetector, *clock.Fake, *[]GCEvent) {
	t.Helper()
	clk := clock.NewFake()
	events := &[]GCEvent{}
	d := NewGCDetector(clk, heap, func(ev GCEvent) {
		*events = append(*events, ev)
	})
	return d, clk, events
}

func TestGCDetectorFirstSampleNoEvent(t *testing.T) {
	d, _, _ := newTestDetector(t, nil)

	ev := d.Sample(1_000_000)
	assert.Nil(t, ev)

	peak, ok := d.Peak()
	require.True(t, ok)
	assert.Equal(t, uint64(1_000_000), peak)
}

func TestGCDetectorClassification(t *testing.T) {
	tests := []struct {
		name     string
		current  uint64
		wantKind GCKind
		wantNone bool
	}{
		{"two percent drop is noise", 980_000, 0, true},
		{"five percent drop is minor", 950_000, GCMinor, false},
		{"fifteen percent drop is major", 849_999, GCMajor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := newTestDetector(t, nil)
			d.Sample(1_000_000)

			ev := d.Sample(tt.current)
			if tt.wantNone {
				assert.Nil(t, ev)
				return
			}
			require.NotNil(t, ev)
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, 1_000_000-tt.current, ev.FreedBytes)
		})
	}
}

func TestGCDetectorPeakRatchet(t *testing.T) {
	d, clk, _ := newTestDetector(t, nil)

	// Peak only grows between events
	d.Sample(1_000_000)
	d.Sample(990_000)
	peak, _ := d.Peak()
	assert.Equal(t, uint64(1_000_000), peak, "small dip does not lower the peak")

	d.Sample(1_200_000)
	peak, _ = d.Peak()
	assert.Equal(t, uint64(1_200_000), peak, "climb raises the peak")

	// An emitted event rebases the ratchet at the post-drop level, so a
	// sustained climb cannot mask a later drop from a higher peak
	clk.Advance(time.Second)
	ev := d.Sample(900_000)
	require.NotNil(t, ev)
	assert.Equal(t, uint64(300_000), ev.FreedBytes)
	peak, _ = d.Peak()
	assert.Equal(t, uint64(900_000), peak)
}

func TestGCDetectorDebounce(t *testing.T) {
	d, clk, events := newTestDetector(t, nil)

	d.Sample(1_000_000)
	ev := d.Sample(900_000)
	require.NotNil(t, ev)

	// Second qualifying drop 300ms later is the same event window
	clk.Advance(300 * time.Millisecond)
	d.Sample(1_000_000)
	ev = d.Sample(800_000)
	assert.Nil(t, ev)

	// Past the debounce it counts again
	clk.Advance(time.Second)
	d.Sample(1_000_000)
	ev = d.Sample(800_000)
	assert.NotNil(t, ev)

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Total)
	assert.Empty(t, *events, "callback only fires from the sampling loop")
}

func TestGCDetectorCounters(t *testing.T) {
	d, clk, _ := newTestDetector(t, nil)

	d.Sample(1_000_000)
	d.Sample(900_000) // minor
	clk.Advance(time.Second)
	d.Sample(1_000_000)
	d.Sample(500_000) // major
	clk.Advance(time.Second)
	d.Sample(1_000_000)
	d.Sample(940_000) // minor

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Minor)
	assert.Equal(t, uint64(1), stats.Major)
	assert.Equal(t, uint64(3), stats.Total)
	assert.True(t, stats.HasEvent)
	assert.True(t, stats.Supported)
}

func TestGCDetectorReset(t *testing.T) {
	d, _, _ := newTestDetector(t, nil)

	d.Sample(1_000_000)
	d.Sample(900_000)
	d.Reset()

	stats := d.Stats()
	assert.Equal(t, uint64(0), stats.Total)
	assert.False(t, stats.HasEvent)

	_, ok := d.Peak()
	assert.False(t, ok, "reset clears the ratchet baseline")
}

func TestGCDetectorSamplingLoop(t *testing.T) {
	readings := []uint64{1_000_000, 1_100_000, 900_000}
	i := 0
	heap := func() (uint64, bool) {
		v := readings[i%len(readings)]
		i++
		return v, true
	}

	d, clk, events := newTestDetector(t, heap)
	d.Start()

	clk.Advance(3 * GCSamplePeriod)

	require.Len(t, *events, 1)
	assert.Equal(t, GCMajor, (*events)[0].Kind)
	assert.Equal(t, uint64(200_000), (*events)[0].FreedBytes)

	d.Stop()
	assert.Equal(t, 0, clk.ActiveTimers())
}

func TestGCDetectorUnsupportedHeap(t *testing.T) {
	d, clk, _ := newTestDetector(t, func() (uint64, bool) { return 0, false })
	d.Start()

	clk.Advance(GCSamplePeriod)

	stats := d.Stats()
	assert.False(t, stats.Supported, "unavailable counter is reported, not inferred as zero")
	assert.Equal(t, uint64(0), stats.Total)

	d.Stop()
}

func TestGCDetectorStartStopIdempotent(t *testing.T) {
	d, clk, _ := newTestDetector(t, func() (uint64, bool) { return 1, true })

	d.Start()
	d.Start()
	assert.Equal(t, 1, clk.ActiveTimers(), "double start arms a single timer")

	d.Stop()
	d.Stop()
	assert.Equal(t, 0, clk.ActiveTimers())
}
