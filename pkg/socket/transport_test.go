package socket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/socket"
)

func TestWebsocketDialer_EndToEnd(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	authHeader := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader <- r.Header.Get("Authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		// answer every "load-notifications" with an empty snapshot
		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(frame), `"load-notifications"`) {
				_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"notifications-loaded","data":[]}`))
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := newClient(socket.NewWebsocketDialer(url, "secret"))
	defer c.Close()

	connected := signal(c, socket.EventConnect)
	loaded := make(chan string, 1)
	c.Subscribe("notifications-loaded", func(m socket.Message) { loaded <- string(m.Data) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	waitFor(t, connected)
	assert.Equal(t, "Bearer secret", <-authHeader)

	c.Emit("load-notifications", map[string]int64{"userId": 1})

	select {
	case data := <-loaded:
		assert.Equal(t, "[]", data)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestWebsocketDialer_HandshakeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := socket.NewWebsocketDialer("ws"+strings.TrimPrefix(srv.URL, "http"), "")
	_, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, socket.ErrHandshake)
}
