// Package lobby pushes board changes to connected WebSocket clients. Clients
// only listen; the hub never reads application messages from them.
package lobby

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is the envelope written to every lobby client
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds configuration for lobby connections
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns default lobby configuration
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Hub tracks lobby connections and fans events out to them
type Hub struct {
	conns map[*conn]struct{}
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   Config

	broadcastCh chan Event
}

type conn struct {
	id          string
	ws          *websocket.Conn
	send        chan []byte
	hub         *Hub
	connectedAt time.Time
}

// NewHub creates a lobby hub. Call Start to begin delivering events.
func NewHub(config Config) *Hub {
	return &Hub{
		conns: make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan Event, 1000),
	}
}

// Start delivers queued events until ctx is done, then closes every connection.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("lobby hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Info().Msg("lobby hub shutting down")
			return
		case event := <-h.broadcastCh:
			h.deliver(event)
		}
	}
}

// Broadcast queues an event for every connected client. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Broadcast(eventType string, payload any) {
	event := Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
	select {
	case h.broadcastCh <- event:
	default:
		log.Warn().Str("event_type", eventType).Msg("lobby broadcast queue full, dropping event")
	}
}

// ServeHTTP upgrades the request and registers the connection
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Msg("failed to upgrade lobby connection")
		return
	}

	c := &conn{
		id:          uuid.NewString(),
		ws:          ws,
		send:        make(chan []byte, h.config.SendBuffer),
		hub:         h,
		connectedAt: time.Now(),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()

	log.Debug().Str("connection_id", c.id).Int("total_connections", total).Msg("lobby connection registered")
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.send)

	log.Debug().
		Str("connection_id", c.id).
		Dur("connected_for", time.Since(c.connectedAt)).
		Msg("lobby connection unregistered")
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	all := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.unregister(c)
	}
}

func (h *Hub) deliver(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("failed to marshal lobby event")
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("connection_id", c.id).Msg("lobby client too slow, closing connection")
			h.unregister(c)
			c.ws.Close()
		}
	}

	log.Debug().
		Str("event_type", event.Type).
		Int("connections", len(targets)).
		Msg("lobby event broadcast")
}

func (c *conn) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("lobby write failed")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames and detects disconnects.
func (c *conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.hub.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("lobby connection closed unexpectedly")
			}
			return
		}
	}
}
