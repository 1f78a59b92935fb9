package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/srvscope/srvscope/internal/clock"
)

type selectorProbe struct {
	requests int
	fetches  int
}

func newTestSelector(t *testing.T, realtime bool, interval time.Duration) (*Selector, *clock.Fake, *selectorProbe) {
	t.Helper()
	clk := clock.NewFake()
	probe := &selectorProbe{}
	s := NewSelector(clk, realtime, interval,
		func() { probe.requests++ },
		func() { probe.fetches++ })
	return s, clk, probe
}

func TestSelectorMutualExclusion(t *testing.T) {
	s, _, _ := newTestSelector(t, false, 10*time.Second)

	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 0, s.ActiveTimers())

	s.OnConnect()
	assert.Equal(t, StateTimedPoll, s.State())
	assert.Equal(t, 1, s.ActiveTimers())

	s.OnDisconnect()
	assert.Equal(t, StateHTTPFallback, s.State())
	assert.Equal(t, 1, s.ActiveTimers())

	s.OnConnect()
	assert.Equal(t, StateTimedPoll, s.State())
	assert.Equal(t, 1, s.ActiveTimers())

	s.Stop()
	assert.Equal(t, 0, s.ActiveTimers())
}

func TestSelectorRealtimeUsesNudge(t *testing.T) {
	s, _, _ := newTestSelector(t, true, 10*time.Second)

	s.OnConnect()
	assert.Equal(t, StateRealtimeFallback, s.State())
	assert.Equal(t, 1, s.ActiveTimers())

	s.SetRealtime(false)
	assert.Equal(t, StateTimedPoll, s.State())
	assert.Equal(t, 1, s.ActiveTimers())

	s.SetRealtime(true)
	assert.Equal(t, StateRealtimeFallback, s.State())
	assert.Equal(t, 1, s.ActiveTimers())

	s.Stop()
}

func TestSelectorPollRequestsOnInterval(t *testing.T) {
	s, clk, probe := newTestSelector(t, false, 10*time.Second)

	s.OnConnect()
	clk.Advance(30 * time.Second)

	assert.Equal(t, 3, probe.requests)
	s.Stop()
}

func TestSelectorIntervalClamped(t *testing.T) {
	s, clk, probe := newTestSelector(t, false, time.Millisecond)

	s.OnConnect()
	clk.Advance(MinPollInterval)
	assert.Equal(t, 1, probe.requests, "sub-minimum interval clamps to the floor")

	s.SetInterval(5 * time.Minute)
	clk.Advance(MaxPollInterval)
	assert.Equal(t, 2, probe.requests, "oversized interval clamps to the ceiling")

	s.Stop()
}

func TestSelectorNudgeOnlyWhenStale(t *testing.T) {
	s, clk, probe := newTestSelector(t, true, 10*time.Second)

	s.OnConnect()
	s.NotePush()

	// Push arriving every 2s keeps the watchdog quiet
	for i := 0; i < 3; i++ {
		clk.Advance(NudgePeriod)
		s.NotePush()
	}
	assert.Equal(t, 0, probe.requests)

	// Silence for longer than the staleness cutoff triggers a re-request
	clk.Advance(StalePushAfter + NudgePeriod)
	assert.Greater(t, probe.requests, 0)

	s.Stop()
}

func TestSelectorHTTPFallbackFetches(t *testing.T) {
	s, clk, probe := newTestSelector(t, false, 10*time.Second)

	s.OnDisconnect()
	clk.Advance(time.Minute)

	// Base delay is max(4s, interval)=10s plus up to 500ms jitter,
	// so a minute fits at least 5 fetches
	assert.GreaterOrEqual(t, probe.fetches, 5)
	assert.Equal(t, 0, probe.requests, "no push requests while disconnected")

	s.Stop()
}

func TestSelectorHiddenCancelsPollButNotFallback(t *testing.T) {
	s, _, _ := newTestSelector(t, false, 10*time.Second)

	s.OnConnect()
	s.SetHidden(true)
	assert.Equal(t, 0, s.ActiveTimers(), "hidden cancels the poll")

	s.SetHidden(false)
	assert.Equal(t, StateTimedPoll, s.State(), "visible resumes the poll")

	s.OnDisconnect()
	s.SetHidden(true)
	assert.Equal(t, StateHTTPFallback, s.State(), "fallback survives hiding")

	s.Stop()
}

func TestSelectorHiddenFallbackSkipsFetch(t *testing.T) {
	s, clk, probe := newTestSelector(t, false, 10*time.Second)

	s.OnDisconnect()
	s.SetHidden(true)

	clk.Advance(2 * HiddenHTTPPeriod)
	assert.Equal(t, 0, probe.fetches, "hidden cycles skip the fetch")

	s.SetHidden(false)
	clk.Advance(time.Minute)
	assert.Greater(t, probe.fetches, 0)

	s.Stop()
}

func TestSelectorRequestOnce(t *testing.T) {
	s, _, probe := newTestSelector(t, false, 10*time.Second)

	s.RequestOnce()
	assert.Equal(t, 0, probe.requests, "ignored while disconnected")

	s.OnConnect()
	s.RequestOnce()
	assert.Equal(t, 1, probe.requests)

	s.Stop()
}

func TestSelectorTransitionsDoNotBlock(t *testing.T) {
	s, _, _ := newTestSelector(t, false, 10*time.Second)

	// Every transition arms a task whose delay function reads selector
	// settings; none of them may wait on the transition lock.
	done := make(chan struct{})
	go func() {
		s.OnConnect()
		s.SetRealtime(true)
		s.SetHidden(true)
		s.SetHidden(false)
		s.OnDisconnect()
		s.OnConnect()
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("selector transition blocked")
	}
}

func TestSelectorStopTerminal(t *testing.T) {
	s, clk, probe := newTestSelector(t, false, 10*time.Second)

	s.OnConnect()
	s.Stop()

	// The conn read goroutine can deliver its disconnect after teardown;
	// it must not re-arm the fallback loop.
	s.OnDisconnect()
	assert.Equal(t, 0, s.ActiveTimers())
	assert.Equal(t, 0, clk.ActiveTimers())

	s.OnConnect()
	assert.Equal(t, 0, s.ActiveTimers())
	assert.Equal(t, StateDisconnected, s.State())

	clk.Advance(time.Minute)
	assert.Equal(t, 0, probe.fetches)
	assert.Equal(t, 0, probe.requests)
}

func TestSelectorStopIdempotent(t *testing.T) {
	s, clk, _ := newTestSelector(t, false, 10*time.Second)

	s.OnConnect()
	s.Stop()
	s.Stop()

	assert.Equal(t, 0, s.ActiveTimers())
	assert.Equal(t, 0, clk.ActiveTimers())
}
