// Package stream pushes finished reports to WebSocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/address"
	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/observability"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// Message is one frame sent to subscribers.
type Message struct {
	Type      string         `json:"type"` // "report"
	Report    *domain.Report `json:"report,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	entity string // empty receives every report
	remote string
}

// Hub tracks subscribers and broadcasts reports to them.
// A subscriber that cannot keep up is disconnected rather than blocking the hub.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "stream_hub").Logger(),
	}
}

// ServeHTTP upgrades the request and subscribes the connection.
// The optional "entity" query parameter limits delivery to one entity.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to upgrade to websocket")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: r.RemoteAddr,
	}
	if entity := r.URL.Query().Get("entity"); entity != "" {
		c.entity = address.CanonicalOrRaw(entity)
	}

	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info().Str("remote_addr", c.remote).Str("entity", c.entity).Msg("subscriber connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	observability.SetStreamClients(len(h.clients))
	return true
}

// unregister removes c and closes its send channel once.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	observability.SetStreamClients(len(h.clients))
}

// readPump discards client frames and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Info().Str("remote_addr", c.remote).Msg("subscriber disconnected")
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug().Err(err).Str("remote_addr", c.remote).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Name returns "websocket".
func (h *Hub) Name() string { return "websocket" }

// Publish broadcasts the report to matching subscribers without blocking.
func (h *Hub) Publish(_ context.Context, r *domain.Report) error {
	payload, err := json.Marshal(Message{Type: "report", Report: r, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}

	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		if c.entity != "" && c.entity != r.Entity {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn().Str("remote_addr", c.remote).Msg("dropping slow subscriber")
		h.unregister(c)
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	observability.SetStreamClients(0)
	return nil
}
