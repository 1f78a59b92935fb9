package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/srvscope/srvscope/internal/clock"
	"github.com/srvscope/srvscope/internal/config"
	"github.com/srvscope/srvscope/internal/httpapi"
	"github.com/srvscope/srvscope/internal/logger"
	"github.com/srvscope/srvscope/internal/logview"
	"github.com/srvscope/srvscope/internal/telemetry"
	"github.com/srvscope/srvscope/internal/transport"
)

// The initial skeleton window: renders are held back briefly after open
// so the dashboard does not flash a half-populated layout.
const skeletonHold = 2 * time.Second

// restartPollPeriod is the health-poll cadence while waiting for the
// server to come back with a new boot ID.
const restartPollPeriod = 2 * time.Second

// Event is delivered to the UI sink. All events originate from the
// inspector's own goroutines; the sink must be safe to call from any.
type Event interface{ isEvent() }

// SnapshotEvent carries a coalesced snapshot with derived stats.
type SnapshotEvent struct {
	Snapshot *telemetry.Snapshot
	Derived  Derived
}

// StateEvent reports a delivery-path change.
type StateEvent struct {
	State     transport.State
	Connected bool
}

// LogBatchEvent reports arrived log records and the current badge.
type LogBatchEvent struct {
	Records []logview.Record
	Badge   int
}

// RestartingEvent signals an imminent server restart.
type RestartingEvent struct{}

// RestartedEvent signals the server came back with a new boot ID.
type RestartedEvent struct {
	BootID string
}

// HealthEvent carries a health-check result and its round-trip time.
type HealthEvent struct {
	Info *httpapi.HealthInfo
	RTT  time.Duration
}

// PongEvent carries a push round-trip measurement.
type PongEvent struct {
	RTT time.Duration
}

// NotificationEvent carries a threshold alert that passed the policy.
type NotificationEvent struct {
	Notification Notification
}

func (SnapshotEvent) isEvent()     {}
func (StateEvent) isEvent()        {}
func (LogBatchEvent) isEvent()     {}
func (RestartingEvent) isEvent()   {}
func (RestartedEvent) isEvent()    {}
func (HealthEvent) isEvent()       {}
func (PongEvent) isEvent()         {}
func (NotificationEvent) isEvent() {}

// Derived bundles the stats computed from history rather than carried
// in a snapshot. Nil pointers mean undefined, rendered as placeholders.
type Derived struct {
	GCRatePerMin  *float64
	AvgInterval   time.Duration
	HasInterval   bool
	DiskBusyPct   *float64
	DetectorStats telemetry.GCStatsView
}

// Inspector owns one dashboard session: the push connection, the
// delivery-path selector, history, GC detection, the log channel, and
// notification policy. Create one per application start and thread it
// through; there is no process-wide instance.
type Inspector struct {
	mu sync.Mutex

	cfg *config.Config
	clk clock.Clock
	log logger.Logger

	api      *httpapi.Client
	conn     *transport.Conn
	selector *transport.Selector
	sched    *telemetry.Scheduler
	history  *telemetry.History
	interval *telemetry.IntervalWindow
	gc       *telemetry.GCDetector
	logs     *logview.Channel
	notifier *Notifier

	sink func(Event)

	ctx    context.Context
	cancel context.CancelFunc

	restartWatch *transport.Task
	bootID       string

	open bool
}

// New creates an inspector from config. The sink receives every event;
// it must not block.
func New(cfg *config.Config, clk clock.Clock, sink func(Event)) *Inspector {
	insp := &Inspector{
		cfg:  cfg,
		clk:  clk,
		log:  logger.NewEnvLogger("[inspector]"),
		api:  httpapi.NewClient(cfg.Server.URL),
		sink: sink,
	}

	insp.history = telemetry.NewHistory(telemetry.DefaultHistorySize)
	insp.interval = telemetry.NewIntervalWindow(telemetry.DefaultGapCapacity)
	insp.sched = telemetry.NewScheduler(clk, telemetry.DefaultMinRenderInterval, insp.renderSnapshot)
	insp.gc = telemetry.NewGCDetector(clk, processHeap, nil)

	insp.selector = transport.NewSelector(clk, cfg.Realtime, cfg.Interval,
		insp.requestInfo, insp.fetchFallback)

	insp.conn = transport.NewConn(WSURL(cfg.Server), transport.Handlers{
		OnEnvelope:   insp.onEnvelope,
		OnServerInfo: insp.onServerInfo,
		OnRestarting: insp.onRestarting,
		OnLogBatch:   insp.onLogBatch,
		OnPong:       insp.onPong,
		OnConnect:    insp.onConnect,
		OnDisconnect: insp.onDisconnect,
	})

	insp.logs = logview.NewChannel(&pushLogTransport{insp: insp}, insp.api, logview.Options{
		ViewLimit:  cfg.Logs.ViewLimit,
		BufferSize: cfg.Logs.BufferSize,
		BadgeLevel: cfg.Logs.BadgeLevel,
	})

	insp.notifier = NewNotifier(clk, cfg.Notifications, func(n Notification) {
		insp.emit(NotificationEvent{Notification: n})
	})

	insp.restartWatch = transport.NewTask(clk,
		transport.FixedDelay(restartPollPeriod), insp.restartPoll)

	return insp
}

// WSURL derives the push endpoint from the server config.
func WSURL(s config.ServerConfig) string {
	url := s.URL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	url = strings.TrimRight(url, "/")
	path := s.SocketPath
	if path == "" {
		path = "/ws"
	}
	return url + path
}

// Logs exposes the log channel.
func (i *Inspector) Logs() *logview.Channel { return i.logs }

// History exposes the snapshot history for sparkline rendering.
func (i *Inspector) History() *telemetry.History { return i.history }

// Open starts the session: connects the push transport, arms GC
// sampling, and holds rendering until the skeleton window passes.
// Idempotent.
func (i *Inspector) Open() {
	i.mu.Lock()
	if i.open {
		i.mu.Unlock()
		return
	}
	i.open = true
	i.ctx, i.cancel = context.WithCancel(context.Background())
	ctx := i.ctx
	i.mu.Unlock()

	i.gc.Reset()
	i.gc.Start()
	i.sched.HoldFor(skeletonHold)

	go i.conn.Run(ctx)
	go i.probeHealth(ctx)
}

// Close tears down every timer, the push connection, and the log
// subscription. Idempotent: closing an already-closed inspector is a
// no-op.
func (i *Inspector) Close() {
	i.mu.Lock()
	if !i.open {
		i.mu.Unlock()
		return
	}
	i.open = false
	cancel := i.cancel
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	i.selector.Stop()
	i.sched.Stop()
	i.gc.Stop()
	i.restartWatch.Stop()
	if err := i.logs.Unsubscribe(); err != nil {
		i.log.Debug("unsubscribe on close: %v", err)
	}
	i.conn.Close()
}

// SetHidden forwards visibility to the selector. Hiding cancels poll
// and nudge; the HTTP fallback self-throttles.
func (i *Inspector) SetHidden(hidden bool) {
	i.selector.SetHidden(hidden)
}

// SetRealtime switches the delivery mode.
func (i *Inspector) SetRealtime(realtime bool) {
	i.selector.SetRealtime(realtime)
}

// RequestOnce asks for one snapshot over push, if connected.
func (i *Inspector) RequestOnce() {
	i.selector.RequestOnce()
}

// Invalidate re-renders the latest snapshot, coalesced. The UI calls
// this on layout changes (resize, section toggles).
func (i *Inspector) Invalidate() {
	i.sched.Invalidate()
}

// ForceCleanup triggers a collection in this process and resets the
// detector counters, mirroring the dashboard's cleanup action.
func (i *Inspector) ForceCleanup() {
	runtime.GC()
	i.gc.Reset()
}

// PingRTT sends an si_ping; the answering pong arrives as a PongEvent.
func (i *Inspector) PingRTT(ctx context.Context) error {
	return i.conn.Send(ctx, transport.Ping(i.clk.Now().UnixMilli()))
}

// RequestRestart asks the server to restart and starts watching for the
// new boot ID. The returned error is user-facing; a rejected restart
// leaves local state unchanged.
func (i *Inspector) RequestRestart(ctx context.Context) error {
	if err := i.api.Restart(ctx); err != nil {
		return err
	}
	i.emit(RestartingEvent{})
	i.restartWatch.Start()
	return nil
}

// State reports the active delivery path.
func (i *Inspector) State() transport.State {
	return i.selector.State()
}

func (i *Inspector) emit(ev Event) {
	if i.sink != nil {
		i.sink(ev)
	}
}

func (i *Inspector) onConnect() {
	i.selector.OnConnect()
	if err := i.logs.EnsureBackgroundSubscription(); err != nil {
		i.log.Debug("background log subscription: %v", err)
	}
	i.requestInfo()
	i.emit(StateEvent{State: i.selector.State(), Connected: true})
}

func (i *Inspector) onDisconnect(err error) {
	if err != nil {
		i.log.Debug("push connection dropped: %v", err)
	}
	i.selector.OnDisconnect()
	i.emit(StateEvent{State: i.selector.State(), Connected: false})
}

// onEnvelope timestamps every inbound frame for the average-interval
// metric without interpreting the payload.
func (i *Inspector) onEnvelope(transport.Envelope) {
	i.interval.Observe(i.clk.Now())
}

func (i *Inspector) onServerInfo(payload json.RawMessage) {
	var snap telemetry.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		i.log.Debug("malformed snapshot: %v", err)
		return
	}
	i.selector.NotePush()
	i.Submit(&snap)
}

// Submit runs a snapshot through the acquisition path: history,
// thresholds, then the coalescing scheduler.
func (i *Inspector) Submit(snap *telemetry.Snapshot) {
	if snap.TSMillis == 0 {
		snap.TSMillis = i.clk.Now().UnixMilli()
	}
	i.history.Push(snap)
	i.checkThresholds(snap)
	i.sched.Submit(snap)
}

func (i *Inspector) onLogBatch(payload json.RawMessage) {
	var batch struct {
		Logs []logview.Record `json:"logs"`
	}
	if err := json.Unmarshal(payload, &batch); err != nil {
		i.log.Debug("malformed log batch: %v", err)
		return
	}
	i.logs.OnBatch(batch.Logs)
	i.emit(LogBatchEvent{Records: batch.Logs, Badge: i.logs.Badge()})
}

func (i *Inspector) onRestarting() {
	i.emit(RestartingEvent{})
	i.restartWatch.Start()
}

func (i *Inspector) onPong(p transport.PingPayload) {
	rtt := i.clk.Now().UnixMilli() - p.T
	if rtt < 0 {
		return
	}
	i.emit(PongEvent{RTT: time.Duration(rtt) * time.Millisecond})
}

// requestInfo is the selector's snapshot request hook.
func (i *Inspector) requestInfo() {
	i.mu.Lock()
	ctx := i.ctx
	i.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := i.conn.Send(ctx, transport.RequestServerInfo()); err != nil {
		i.log.Debug("snapshot request: %v", err)
	}
}

// fetchFallback is the selector's HTTP fallback hook. Fetch errors are
// swallowed per attempt; the next scheduled tick is the retry.
func (i *Inspector) fetchFallback() {
	i.mu.Lock()
	ctx := i.ctx
	i.mu.Unlock()
	if ctx == nil {
		return
	}

	info, rtt, err := i.api.Health(ctx)
	if err != nil {
		i.log.Debug("fallback fetch: %v", err)
		return
	}
	i.recordHealth(info, rtt)
	if info.Metrics != nil {
		i.Submit(info.Metrics)
	}
}

// probeHealth seeds the components bar and boot ID right after open.
func (i *Inspector) probeHealth(ctx context.Context) {
	info, rtt, err := i.api.Health(ctx)
	if err != nil {
		i.log.Debug("initial health probe: %v", err)
		return
	}
	i.recordHealth(info, rtt)
}

func (i *Inspector) recordHealth(info *httpapi.HealthInfo, rtt time.Duration) {
	i.mu.Lock()
	if info.BootID != "" && i.bootID == "" {
		i.bootID = info.BootID
	}
	i.mu.Unlock()
	i.emit(HealthEvent{Info: info, RTT: rtt})
}

// restartPoll watches for a boot ID different from the recorded one.
func (i *Inspector) restartPoll() {
	i.mu.Lock()
	ctx := i.ctx
	known := i.bootID
	i.mu.Unlock()
	if ctx == nil {
		i.restartWatch.Stop()
		return
	}

	info, _, err := i.api.Health(ctx)
	if err != nil || info.BootID == "" {
		return
	}
	if info.BootID != known {
		i.mu.Lock()
		i.bootID = info.BootID
		i.mu.Unlock()
		i.restartWatch.Stop()
		i.emit(RestartedEvent{BootID: info.BootID})
	}
}

// renderSnapshot is the scheduler's flush target.
func (i *Inspector) renderSnapshot(snap *telemetry.Snapshot) {
	i.emit(SnapshotEvent{Snapshot: snap, Derived: i.derive()})
}

// derive computes the history-based stats for one render.
func (i *Inspector) derive() Derived {
	d := Derived{DetectorStats: i.gc.Stats()}

	if avg, ok := i.interval.Average(i.clk.Now(), telemetry.DefaultGapWindow); ok {
		d.AvgInterval = avg
		d.HasInterval = true
	}

	prev, last, ok := i.history.LastTwo()
	if !ok {
		return d
	}

	if prev.GC != nil && last.GC != nil &&
		prev.GC.Collections != nil && last.GC.Collections != nil {
		if rate, ok := telemetry.RatePerMinute(
			float64(*prev.GC.Collections), float64(*last.GC.Collections),
			prev.TSMillis, last.TSMillis); ok {
			d.GCRatePerMin = &rate
		}
	}

	if busy, ok := DiskBusyPercent(prev, last); ok {
		d.DiskBusyPct = &busy
	}

	return d
}

// checkThresholds grades the snapshot and raises throttled alerts.
func (i *Inspector) checkThresholds(snap *telemetry.Snapshot) {
	th := i.cfg.Thresholds

	i.checkValue("cpu", "CPU usage", snap.CPUPercent, th.CPUWarn, th.CPUCrit, "%.0f%%")
	i.checkValue("mem", "Memory usage", snap.MemoryPercent, th.MemWarn, th.MemCrit, "%.0f%%")

	if snap.Temps != nil {
		i.checkValue("temp_cpu", "CPU temperature", snap.Temps.CPU, th.TempCPUWarn, th.TempCPUCrit, "%.0f°C")
		i.checkValue("temp_gpu", "GPU temperature", snap.Temps.GPU, th.TempGPUWarn, th.TempGPUCrit, "%.0f°C")
	}
}

func (i *Inspector) checkValue(key, title string, v *float64, warn, crit float64, format string) {
	if v == nil {
		return
	}
	class := Classify(*v, warn, crit)
	if class == ClassOK {
		return
	}
	i.notifier.Notify(Notification{
		Key:      key,
		Title:    title,
		Body:     fmt.Sprintf(format, *v),
		Critical: class == ClassCrit,
	})
}

// processHeap reads this process's heap usage for the GC detector.
func processHeap() (uint64, bool) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc, true
}

// pushLogTransport adapts the push connection to the log channel.
type pushLogTransport struct {
	insp *Inspector
}

func (p *pushLogTransport) SubscribeLogs(level, grep string) error {
	p.insp.mu.Lock()
	ctx := p.insp.ctx
	p.insp.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return p.insp.conn.Send(ctx, transport.SubscribeLogs(level, grep))
}

func (p *pushLogTransport) UnsubscribeLogs() error {
	p.insp.mu.Lock()
	ctx := p.insp.ctx
	p.insp.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return p.insp.conn.Send(ctx, transport.UnsubscribeLogs())
}
