package reload

import (
	"context"
	"net"
	"sync/atomic"
)

// Cursor is one consumer's watermark over a Channel.
//
// A Cursor is typically held per connection. It is safe for concurrent
// use, since HTTP/2 serves several streams of one connection at once.
type Cursor struct {
	ch   *Channel
	seen atomic.Uint64
}

// Seen returns the last generation this cursor reported.
func (c *Cursor) Seen() uint64 {
	return c.seen.Load()
}

// Pending reports whether a reload happened after Seen, without consuming it.
func (c *Cursor) Pending() bool {
	return c.ch.HasAdvancedSince(c.seen.Load())
}

// Advance reports whether the channel moved past the watermark and, if so,
// moves the watermark to the current generation. Each new generation is
// reported exactly once across concurrent callers.
func (c *Cursor) Advance() bool {
	for {
		seen := c.seen.Load()
		if !c.ch.HasAdvancedSince(seen) {
			return false
		}
		if c.seen.CompareAndSwap(seen, c.ch.Generation()) {
			return true
		}
	}
}

type cursorKey struct{}

// WithCursor attaches cur to ctx.
func WithCursor(ctx context.Context, cur *Cursor) context.Context {
	return context.WithValue(ctx, cursorKey{}, cur)
}

// CursorFrom returns the cursor attached to ctx, or nil.
func CursorFrom(ctx context.Context) *Cursor {
	cur, _ := ctx.Value(cursorKey{}).(*Cursor)
	return cur
}

// ConnContext returns an http.Server ConnContext hook giving every accepted
// connection its own cursor, positioned at the generation current when the
// connection was accepted.
func ConnContext(ch *Channel) func(context.Context, net.Conn) context.Context {
	return func(ctx context.Context, _ net.Conn) context.Context {
		return WithCursor(ctx, ch.Subscribe())
	}
}
