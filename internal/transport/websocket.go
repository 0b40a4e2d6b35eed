// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	applog "dentvoice/internal/log"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport: closed")

// broadcastQueue bounds the frames waiting for slow clients; Send drops
// frames when it is full.
const broadcastQueue = 256

// WebSocketTransport implements the Transport interface for WebSocket
// connections. Clients connect to /ws and receive every message as JSON.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	done      chan struct{}

	limiter   *rate.Limiter // nil: every message is queued
	throttled atomic.Uint64

	closeMu sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// WebSocketOption configures a WebSocketTransport.
type WebSocketOption func(*WebSocketTransport)

// WithMaxRate limits broadcasts to maxPerSecond messages; extra messages
// are skipped. Non-positive values disable the limit.
func WithMaxRate(maxPerSecond int) WebSocketOption {
	return func(wst *WebSocketTransport) {
		if maxPerSecond > 0 {
			wst.limiter = rate.NewLimiter(rate.Limit(maxPerSecond), 1)
		}
	}
}

// NewWebSocketTransport creates a new WebSocketTransport instance. With a
// non-empty addr it also starts an HTTP server; otherwise mount Handler
// on an existing server.
func NewWebSocketTransport(addr string, opts ...WebSocketOption) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Frames carry no private data.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(wst)
	}

	wst.start()
	return wst
}

// Handler serves the WebSocket endpoint at /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// start begins the broadcast loop and, when configured, the HTTP server.
func (wst *WebSocketTransport) start() {
	if wst.addr != "" {
		wst.server = &http.Server{
			Addr:    wst.addr,
			Handler: wst.Handler(),
		}

		go func() {
			applog.Infof("WebSocketTransport: Starting WebSocket server on %s", wst.addr)
			if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				applog.Errorf("WebSocketTransport: Server error: %v", err)
			}
		}()
	}

	go wst.handleBroadcasts()
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.clientsMu.Lock()
		_, known := wst.clients[conn]
		delete(wst.clients, conn)
		total := len(wst.clients)
		wst.clientsMu.Unlock()
		conn.Close()
		if known {
			applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
		}
	}()
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(data); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Throttled counts messages skipped by the rate limit.
func (wst *WebSocketTransport) Throttled() uint64 {
	return wst.throttled.Load()
}

// Send queues data for broadcast to all connected WebSocket clients. It
// never blocks: when the queue is full the message is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	wst.closeMu.RLock()
	defer wst.closeMu.RUnlock()
	if wst.closed {
		return ErrTransportClosed
	}
	if wst.limiter != nil && !wst.limiter.Allow() {
		wst.throttled.Add(1)
		return nil
	}

	select {
	case wst.broadcast <- data:
	default:
		if n := wst.dropped.Add(1); n%broadcastQueue == 1 {
			applog.Debugf("WebSocketTransport: Queue full, dropped %d messages", n)
		}
	}
	return nil
}

// Close shuts down the WebSocket server and disconnects all clients.
func (wst *WebSocketTransport) Close() error {
	wst.closeMu.Lock()
	if wst.closed {
		wst.closeMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.done)
	wst.closeMu.Unlock()
	applog.Infof("WebSocketTransport: Closing server")

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
