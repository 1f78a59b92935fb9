package inspector

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srvscope/srvscope/internal/clock"
	"github.com/srvscope/srvscope/internal/config"
	"github.com/srvscope/srvscope/internal/telemetry"
	"github.com/srvscope/srvscope/internal/transport"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventLog) sink(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventLog) notifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Notification
	for _, ev := range e.events {
		if n, ok := ev.(NotificationEvent); ok {
			out = append(out, n.Notification)
		}
	}
	return out
}

func (e *eventLog) snapshots() []SnapshotEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []SnapshotEvent
	for _, ev := range e.events {
		if s, ok := ev.(SnapshotEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func newTestInspector(t *testing.T) (*Inspector, *clock.Fake, *eventLog) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.URL = "http://127.0.0.1:1" // nothing listens here
	clk := clock.NewFake()
	events := &eventLog{}
	return New(cfg, clk, events.sink), clk, events
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		url  string
		path string
		want string
	}{
		{"http://localhost:8765", "/ws", "ws://localhost:8765/ws"},
		{"https://box.example", "/push", "wss://box.example/push"},
		{"http://localhost:8765/", "", "ws://localhost:8765/ws"},
	}

	for _, tt := range tests {
		got := WSURL(config.ServerConfig{URL: tt.url, SocketPath: tt.path})
		assert.Equal(t, tt.want, got)
	}
}

func TestThresholdClassificationAndThrottle(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	cpu := 85.0
	mem := 50.0
	snap := &telemetry.Snapshot{TSMillis: 1, CPUPercent: &cpu, MemoryPercent: &mem}
	insp.Submit(snap)

	notes := events.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "cpu", notes[0].Key)
	assert.True(t, notes[0].Critical, "85%% against crit=80 is critical")

	// Three more critical snapshots inside the notify window stay quiet
	for ts := int64(2); ts <= 4; ts++ {
		insp.Submit(&telemetry.Snapshot{TSMillis: ts, CPUPercent: &cpu})
	}
	assert.Len(t, events.notifications(), 1)

	// Past the window the alert may fire again
	clk.Advance(time.Minute)
	insp.Submit(&telemetry.Snapshot{TSMillis: 5, CPUPercent: &cpu})
	assert.Len(t, events.notifications(), 2)
}

func TestSubmitRendersCoalesced(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	for ts := int64(1); ts <= 5; ts++ {
		insp.Submit(&telemetry.Snapshot{TSMillis: ts})
	}
	clk.Advance(time.Millisecond)

	snaps := events.snapshots()
	require.Len(t, snaps, 1, "a burst coalesces into one render")
	assert.Equal(t, int64(5), snaps[0].Snapshot.TSMillis)
	assert.Equal(t, 5, insp.History().Len(), "history keeps every arrival")
}

func TestDerivedGCRate(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	insp.Submit(&telemetry.Snapshot{
		TSMillis: 0,
		GC:       &telemetry.GCStats{Collections: i64(10)},
	})
	clk.Advance(time.Second)
	insp.Submit(&telemetry.Snapshot{
		TSMillis: 60000,
		GC:       &telemetry.GCStats{Collections: i64(3)}, // counter reset
	})
	clk.Advance(time.Second)

	snaps := events.snapshots()
	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	require.NotNil(t, last.Derived.GCRatePerMin)
	assert.Equal(t, 0.0, *last.Derived.GCRatePerMin, "resets clamp to zero, never negative")
}

func TestInterArrivalMetric(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	// Any inbound frame counts, payloads are not interpreted
	insp.onEnvelope(transport.Envelope{Type: "whatever"})
	clk.Advance(2 * time.Second)
	insp.onEnvelope(transport.Envelope{Type: "other"})

	insp.Submit(&telemetry.Snapshot{TSMillis: 1})
	clk.Advance(time.Second)

	snaps := events.snapshots()
	require.NotEmpty(t, snaps)
	assert.True(t, snaps[0].Derived.HasInterval)
	assert.Equal(t, 2*time.Second, snaps[0].Derived.AvgInterval)
}

func TestMalformedSnapshotIgnored(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	insp.onServerInfo(json.RawMessage(`{not json`))
	clk.Advance(time.Second)

	assert.Empty(t, events.snapshots())
	assert.Equal(t, 0, insp.History().Len())
}

func TestPartialSnapshotAccepted(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	insp.onServerInfo(json.RawMessage(`{"cpu_percent": 10}`))
	clk.Advance(time.Second)

	snaps := events.snapshots()
	require.Len(t, snaps, 1)
	assert.NotNil(t, snaps[0].Snapshot.CPUPercent)
	assert.Nil(t, snaps[0].Snapshot.MemoryMB, "absent fields stay absent")
	assert.NotZero(t, snaps[0].Snapshot.TSMillis, "missing timestamp filled at arrival")
}

func TestLogBatchFlowsToChannel(t *testing.T) {
	insp, _, events := newTestInspector(t)

	insp.onLogBatch(json.RawMessage(`{"logs": [
		{"ts_ms": 1, "level": "DEBUG", "logger": "a", "message": "skip"},
		{"ts_ms": 2, "level": "INFO", "logger": "a", "message": "count"},
		{"ts_ms": 3, "level": "WARNING", "logger": "a", "message": "count"}
	]}`))

	assert.Equal(t, 2, insp.Logs().Badge(), "badge level INFO excludes DEBUG")

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.events, 1)
	batch, ok := events.events[0].(LogBatchEvent)
	require.True(t, ok)
	assert.Len(t, batch.Records, 3)
	assert.Equal(t, 2, batch.Badge)
}

func TestIdempotentTeardown(t *testing.T) {
	insp, clk, _ := newTestInspector(t)

	insp.Open()
	insp.Open()
	insp.Submit(&telemetry.Snapshot{TSMillis: 1})

	insp.Close()
	insp.Close()

	assert.Equal(t, 0, clk.ActiveTimers(), "no timers survive teardown")
	assert.Equal(t, 0, insp.selector.ActiveTimers())

	// A reopened session works again
	insp.Open()
	assert.Equal(t, 1, clk.ActiveTimers(), "GC sampling rearms")
	insp.Close()
	assert.Equal(t, 0, clk.ActiveTimers())
}

func TestPongComputesRTT(t *testing.T) {
	insp, clk, events := newTestInspector(t)

	sent := clk.Now().UnixMilli()
	clk.Advance(40 * time.Millisecond)
	insp.onPong(transport.PingPayload{T: sent})

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.events, 1)
	pong, ok := events.events[0].(PongEvent)
	require.True(t, ok)
	assert.Equal(t, 40*time.Millisecond, pong.RTT)
}
