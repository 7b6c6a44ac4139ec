package reload

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubBroadcastsPublishes(t *testing.T) {
	ch := NewChannel()
	hub := NewHub(ch)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "?generation=0")
	assert.Equal(t, Message{Type: MessageHello, Generation: 0}, readMessage(t, conn))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	ch.Publish()
	assert.Equal(t, Message{Type: MessageReload, Generation: 1}, readMessage(t, conn))
}

func TestHubTellsStalePageToReload(t *testing.T) {
	ch := NewChannel(WithGeneration(7))
	srv := httptest.NewServer(NewHub(ch))
	defer srv.Close()

	conn := dialHub(t, srv, "?generation=6")
	assert.Equal(t, MessageHello, readMessage(t, conn).Type)
	assert.Equal(t, Message{Type: MessageReload, Generation: 7}, readMessage(t, conn))
}

func TestHubCloseAll(t *testing.T) {
	ch := NewChannel()
	hub := NewHub(ch)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.CloseAll("handoff")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseServiceRestart))

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestScript(t *testing.T) {
	s := Script("", 12)
	assert.Contains(t, s, `"/_hxssr/reload"`)
	assert.Contains(t, s, "var generation = 12;")
	assert.Contains(t, s, "hxssr:reload")
}

type recordingWriter struct {
	msgs []Message
}

func (w *recordingWriter) WriteJSON(v any) error {
	w.msgs = append(w.msgs, v.(Message))
	return nil
}

func (w *recordingWriter) SetWriteDeadline(time.Time) error { return nil }

func TestHubCatchUpCoversQueuedEvents(t *testing.T) {
	ch := NewChannel()
	hub := NewHub(ch)

	// A publish landed between Watch and the catch-up check.
	ch.Publish()
	events := make(chan Event, 2)
	events <- Event{Generation: 1}
	close(events)

	w := &recordingWriter{}
	hub.stream(context.Background(), w, 0, events)

	assert.Equal(t, []Message{
		{Type: MessageHello, Generation: 1},
		{Type: MessageReload, Generation: 1},
	}, w.msgs)
}

func TestHubStreamForwardsNewerEvents(t *testing.T) {
	ch := NewChannel(WithGeneration(3))
	hub := NewHub(ch)

	events := make(chan Event, 3)
	events <- Event{Generation: 3}
	events <- Event{Generation: 4}
	events <- Event{Generation: 4}
	close(events)

	w := &recordingWriter{}
	hub.stream(context.Background(), w, 3, events)

	assert.Equal(t, []Message{
		{Type: MessageHello, Generation: 3},
		{Type: MessageReload, Generation: 4},
	}, w.msgs)
}
