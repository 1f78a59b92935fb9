package logview

import (
	"strings"
	"sync"

	"github.com/srvscope/srvscope/internal/logger"
)

// Backfill limits. User-configured fetch limits clamp to the min/max;
// download uses its own higher cap.
const (
	DefaultFetchLimit = 500
	MinFetchLimit     = 100
	MaxFetchLimit     = 5000
	DownloadLimit     = 2000
)

// DefaultViewLimit caps the attached viewer's line count.
const DefaultViewLimit = 1000

// DefaultBufferSize caps the detached ring buffer.
const DefaultBufferSize = 200

// Transport is the push-subscription surface the channel drives.
// Subscription failures are indistinguishable from "no messages yet";
// the channel does not track an explicit subscribe-ack state.
type Transport interface {
	SubscribeLogs(level, grep string) error
	UnsubscribeLogs() error
}

// Fetcher is the HTTP backfill surface.
type Fetcher interface {
	FetchLogs(level, grep string, limit int) ([]Record, error)
}

// Options configures a Channel. Zero values select the defaults.
type Options struct {
	ViewLimit  int
	BufferSize int
	// BadgeLevel is the minimum level counted while detached.
	BadgeLevel string
}

// Channel owns the log viewer's line set and the detached buffer. No
// other component mutates them. Batches are applied in arrival order;
// trimming always removes from the oldest end.
type Channel struct {
	mu sync.Mutex

	transport Transport
	fetcher   Fetcher
	log       logger.Logger

	viewLimit  int
	bufferSize int
	badgeLevel string

	subscribed bool
	subLevel   string
	subGrep    string

	attached   bool
	autoscroll bool
	atBottom   bool

	view     []Record
	detached *Ring[Record]
	badge    int
	newCount int
}

// NewChannel creates a channel over the given transport and fetcher.
func NewChannel(transport Transport, fetcher Fetcher, opts Options) *Channel {
	if opts.ViewLimit <= 0 {
		opts.ViewLimit = DefaultViewLimit
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.BadgeLevel == "" {
		opts.BadgeLevel = LevelInfo
	}
	return &Channel{
		transport:  transport,
		fetcher:    fetcher,
		log:        logger.NewEnvLogger("[logs]"),
		viewLimit:  opts.ViewLimit,
		bufferSize: opts.BufferSize,
		badgeLevel: opts.BadgeLevel,
		autoscroll: true,
		atBottom:   true,
		detached:   NewRing[Record](opts.BufferSize),
	}
}

// Subscribe requests a push subscription at the given minimum level and
// optional text filter. Re-subscribing with identical parameters while
// already subscribed is a no-op.
func (c *Channel) Subscribe(level, grep string) error {
	c.mu.Lock()
	if c.subscribed && c.subLevel == level && c.subGrep == grep {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.transport.SubscribeLogs(level, grep); err != nil {
		return err
	}

	c.mu.Lock()
	c.subscribed = true
	c.subLevel = level
	c.subGrep = grep
	c.mu.Unlock()
	return nil
}

// Unsubscribe cancels the push subscription.
func (c *Channel) Unsubscribe() error {
	c.mu.Lock()
	if !c.subscribed {
		c.mu.Unlock()
		return nil
	}
	c.subscribed = false
	c.mu.Unlock()

	return c.transport.UnsubscribeLogs()
}

// EnsureBackgroundSubscription (re)subscribes at the badge level so the
// detached buffer stays populated while the viewer is closed. It only
// switches the subscription when the desired parameters differ from the
// current ones.
func (c *Channel) EnsureBackgroundSubscription() error {
	c.mu.Lock()
	level := c.badgeLevel
	c.mu.Unlock()
	return c.Subscribe(level, "")
}

// SetBadgeLevel updates the detached filter level.
func (c *Channel) SetBadgeLevel(level string) {
	if !ValidLevel(level) {
		return
	}
	c.mu.Lock()
	c.badgeLevel = level
	c.mu.Unlock()
}

// Attach marks the viewer open. The badge resets; buffered records are
// drained via TakeNew for the "show new" affordance.
func (c *Channel) Attach() {
	c.mu.Lock()
	c.attached = true
	c.badge = 0
	c.mu.Unlock()
}

// Detach marks the viewer closed. The view keeps its content so a
// reopen shows where the viewer left off until the next backfill.
func (c *Channel) Detach() {
	c.mu.Lock()
	c.attached = false
	c.newCount = 0
	c.mu.Unlock()
}

// Attached reports whether the viewer is open.
func (c *Channel) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// SetAutoscroll toggles follow-the-tail behavior.
func (c *Channel) SetAutoscroll(on bool) {
	c.mu.Lock()
	c.autoscroll = on
	c.mu.Unlock()
}

// SetAtBottom records whether the viewport was scrolled to the bottom.
// The UI reports this before each append; it decides whether new lines
// count as unseen.
func (c *Channel) SetAtBottom(atBottom bool) {
	c.mu.Lock()
	c.atBottom = atBottom
	c.mu.Unlock()
}

// OnBatch applies one arriving batch. Attached: append to the view and
// trim the oldest lines beyond the cap; new lines count as unseen
// unless the viewport follows the tail. Detached: records at or above
// the badge level go to the bounded ring and bump the badge.
func (c *Channel) OnBatch(records []Record) {
	if len(records) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attached {
		c.view = append(c.view, records...)
		if over := len(c.view) - c.viewLimit; over > 0 {
			c.view = append(c.view[:0], c.view[over:]...)
		}
		if c.autoscroll && c.atBottom {
			c.newCount = 0
		} else {
			c.newCount += len(records)
		}
		return
	}

	for _, r := range records {
		if !LevelAtLeast(r.Level, c.badgeLevel) {
			continue
		}
		c.detached.Push(r)
		c.badge++
	}
}

// FetchOnce replaces the view with up to limit matching historical
// records. limit clamps to the user range; 0 selects the default.
// Failures are silent and keep the previous view.
func (c *Channel) FetchOnce(level, grep string, limit int) {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	if limit < MinFetchLimit {
		limit = MinFetchLimit
	}
	if limit > MaxFetchLimit {
		limit = MaxFetchLimit
	}

	records, err := c.fetcher.FetchLogs(level, grep, limit)
	if err != nil {
		c.log.Debug("backfill failed: %v", err)
		return
	}

	c.mu.Lock()
	c.view = append(c.view[:0], records...)
	if over := len(c.view) - c.viewLimit; over > 0 {
		c.view = append(c.view[:0], c.view[over:]...)
	}
	if c.autoscroll && c.atBottom {
		c.newCount = 0
	}
	c.mu.Unlock()
}

// DownloadText fetches up to the download cap and serializes the result
// as plain lines. Failures return an empty string and keep all state.
func (c *Channel) DownloadText(level, grep string) string {
	records, err := c.fetcher.FetchLogs(level, grep, DownloadLimit)
	if err != nil {
		c.log.Debug("download failed: %v", err)
		return ""
	}

	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// View returns a copy of the viewer lines in arrival order.
func (c *Channel) View() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.view))
	copy(out, c.view)
	return out
}

// ClearView empties the viewer.
func (c *Channel) ClearView() {
	c.mu.Lock()
	c.view = c.view[:0]
	c.newCount = 0
	c.mu.Unlock()
}

// TakeNew drains the detached buffer in arrival order and resets the
// badge. Called on viewer open to seed the "show new" highlight.
func (c *Channel) TakeNew() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.detached.Items()
	c.detached.Clear()
	c.badge = 0
	return items
}

// Badge returns the count of unseen records accumulated while detached.
func (c *Channel) Badge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badge
}

// NewCount returns the count of appended-but-unseen lines while the
// viewer is open and not following the tail.
func (c *Channel) NewCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newCount
}
