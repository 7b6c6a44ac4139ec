package reload

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType is the kind of message sent to browsers.
type MessageType string

const (
	MessageReload MessageType = "reload"
	MessageHello  MessageType = "hello"
)

// Message is sent to browsers as JSON.
type Message struct {
	Type       MessageType `json:"type"`
	Generation uint64      `json:"generation"`
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub's logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithCheckOrigin overrides the websocket origin check. The default allows
// every origin, which is only acceptable in development.
func WithCheckOrigin(fn func(*http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// Hub pushes reload events to open pages over websockets.
//
// Pages connect with ?generation=N, the generation they were rendered at.
// A page behind the channel is told to reload immediately, which covers
// pages that reconnect to a freshly handed-off process.
type Hub struct {
	ch       *Channel
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewHub creates a hub broadcasting events from ch.
func NewHub(ch *Channel, opts ...HubOption) *Hub {
	h := &Hub{
		ch:      ch,
		logger:  slog.Default(),
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and streams reload messages until the
// client goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "reloading", http.StatusServiceUnavailable)
		return
	}

	since, err := strconv.ParseUint(r.URL.Query().Get("generation"), 10, 64)
	if err != nil {
		since = h.ch.Generation()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("reload websocket upgrade failed", "error", err)
		return
	}

	if !h.register(conn) {
		_ = conn.Close()
		return
	}
	defer h.unregister(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := h.ch.Watch(ctx)

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.stream(ctx, conn, since, events)
}

// messageWriter is the part of *websocket.Conn stream writes to.
type messageWriter interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
}

// stream greets the page, tells it to reload when it is older than the
// channel, then forwards each newer event until ctx ends or a write fails.
func (h *Hub) stream(ctx context.Context, conn messageWriter, since uint64, events <-chan Event) {
	if err := conn.WriteJSON(Message{Type: MessageHello, Generation: h.ch.Generation()}); err != nil {
		return
	}
	if gen := h.ch.Generation(); gen > since {
		if err := conn.WriteJSON(Message{Type: MessageReload, Generation: gen}); err != nil {
			return
		}
		// Events already queued by Watch up to gen were covered.
		since = gen
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Generation <= since {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(Message{Type: MessageReload, Generation: ev.Generation}); err != nil {
				return
			}
			since = ev.Generation
		}
	}
}

// CloseAll disconnects every page and refuses new ones. Pages reconnect
// with backoff and land on whichever process owns the socket next.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	h.closed = true
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseServiceRestart, reason)
	deadline := time.Now().Add(time.Second)
	for _, c := range clients {
		_ = c.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.Close()
	}
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = struct{}{}
	return true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}
