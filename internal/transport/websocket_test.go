// SPDX-License-Identifier: MIT
package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	c1, c2 := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return wst.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, wst.Send(NewFrameMessage(testFrame())))

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg FrameMessage
		require.NoError(t, c.ReadJSON(&msg))
		assert.Equal(t, "frame", msg.Type)
		assert.Equal(t, []int{0, 128, 255}, msg.Bars)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return wst.Clients() == 1 }, time.Second, 5*time.Millisecond)
	c.Close()
	require.Eventually(t, func() bool { return wst.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst := NewWebSocketTransport("")
	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
	assert.ErrorIs(t, wst.Send("x"), ErrTransportClosed)
}

func TestWebSocketSendNeverBlocks(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range broadcastQueue * 4 {
			_ = wst.Send("frame")
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked")
	}
}

func TestWebSocketMaxRate(t *testing.T) {
	wst := NewWebSocketTransport("", WithMaxRate(10))
	defer wst.Close()

	for range 20 {
		require.NoError(t, wst.Send("frame"))
	}
	// The burst of one passes, the rest arrive faster than 10/s.
	assert.GreaterOrEqual(t, wst.Throttled(), uint64(18))

	unlimited := NewWebSocketTransport("", WithMaxRate(0))
	defer unlimited.Close()
	for range 20 {
		require.NoError(t, unlimited.Send("frame"))
	}
	assert.Zero(t, unlimited.Throttled())
}
