// Package events streams live engagement updates to websocket subscribers.
package events

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"devblog/internal/domain"
)

const sendBuffer = 16

// Hub implements domain.EventPublisher by fanning events out to connected
// websocket clients. Slow clients are dropped rather than allowed to block
// publishers.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan domain.Event
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish sends the event to every connected client without blocking. A
// client whose buffer is full is disconnected.
func (h *Hub) Publish(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("dropping slow event subscriber", "remote", c.conn.RemoteAddr())
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams events to it
// until the peer disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan domain.Event, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("event subscriber connected", "remote", conn.RemoteAddr())

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop serializes events to the peer. It exits when the send channel
// closes or a write fails.
func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.Close()
}

// readLoop discards inbound frames; its only job is noticing disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// subscriberCount reports how many clients are connected.
func (h *Hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
