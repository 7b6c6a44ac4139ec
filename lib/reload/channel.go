// Package reload broadcasts "the server was reloaded" to request handlers
// and browsers.
//
// The only shared state is a generation counter. Publish increments it with
// one atomic operation; readers load it without locking. Consumers keep
// their own watermark (a Cursor) and compare.
package reload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Event records one completed reload.
type Event struct {
	Generation uint64
	At         time.Time
}

// Option configures a Channel.
type Option func(*Channel)

// WithGeneration starts the counter at gen instead of zero. A process
// started by a handoff uses it to continue its parent's numbering.
func WithGeneration(gen uint64) Option {
	return func(c *Channel) {
		c.gen.Store(gen)
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) {
		c.now = now
	}
}

// Channel is a broadcast point for reload events.
type Channel struct {
	gen    atomic.Uint64
	latest atomic.Pointer[Event]
	now    func() time.Time

	mu       sync.Mutex
	watchers map[chan Event]struct{}
}

// NewChannel creates a channel at generation zero unless told otherwise.
func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		now:      time.Now,
		watchers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.latest.Store(&Event{Generation: c.gen.Load()})
	return c
}

var (
	processChannel     *Channel
	processChannelOnce sync.Once
)

// Process returns the process-wide channel, created on first use.
func Process() *Channel {
	processChannelOnce.Do(func() {
		processChannel = NewChannel()
	})
	return processChannel
}

// Publish records a reload and notifies watchers. It never blocks: a
// watcher that has not drained its previous event has it replaced.
func (c *Channel) Publish() Event {
	ev := Event{Generation: c.gen.Add(1), At: c.now()}
	c.storeLatest(ev)

	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.watchers {
		offer(ch, ev)
	}
	return ev
}

// Restore raises the counter to gen without publishing. A process taking
// over from a previous instance calls it before serving so its numbering
// continues where the parent stopped. Lower values are ignored.
func (c *Channel) Restore(gen uint64) {
	for {
		cur := c.gen.Load()
		if cur >= gen {
			return
		}
		if c.gen.CompareAndSwap(cur, gen) {
			c.storeLatest(Event{Generation: gen})
			return
		}
	}
}

// Generation returns the current generation.
func (c *Channel) Generation() uint64 {
	return c.gen.Load()
}

// Latest returns the most recent event. Before any publish it carries the
// starting generation and a zero timestamp.
func (c *Channel) Latest() Event {
	return *c.latest.Load()
}

// HasAdvancedSince reports whether a reload happened after gen.
func (c *Channel) HasAdvancedSince(gen uint64) bool {
	return c.gen.Load() > gen
}

// Subscribe returns a cursor positioned at the current generation, so
// reloads that happened before the call are not reported.
func (c *Channel) Subscribe() *Cursor {
	cur := &Cursor{ch: c}
	cur.seen.Store(c.gen.Load())
	return cur
}

// Watch streams events until ctx is done. The stream holds at most one
// pending event; only the newest generation matters.
func (c *Channel) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.watchers, ch)
		close(ch)
		c.mu.Unlock()
	}()

	return ch
}

// storeLatest keeps the newest event; concurrent publishers may finish out
// of order.
func (c *Channel) storeLatest(ev Event) {
	for {
		cur := c.latest.Load()
		if cur.Generation >= ev.Generation {
			return
		}
		if c.latest.CompareAndSwap(cur, &ev) {
			return
		}
	}
}

// offer delivers ev, dropping the oldest pending event if the buffer is full.
func offer(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
