package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielpatrickdp/mindstate/internal/display"
)

// #region hub

// Hub fans the per-tick display model out to websocket subscribers.
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty subscriber hub.
func NewHub(writeTimeout time.Duration) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		clients:      make(map[*websocket.Conn]bool),
	}
}

// HandleWS upgrades the request and registers the subscriber. The
// connection is read only to detect close; subscribers never send.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the model to every subscriber, dropping any whose write
// fails or stalls.
func (h *Hub) Broadcast(model display.Model) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if h.writeTimeout > 0 {
			c.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		}
		if err := c.WriteJSON(model); err != nil {
			h.drop(c)
		}
	}
}

// ClientCount reports the number of live subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// #endregion hub
