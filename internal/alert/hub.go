package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxClientBytes = 512
	sendBuffer     = 16
)

// FeedMessage is one frame of the live feed.
type FeedMessage struct {
	Type    string    `json:"type"`
	CycleID int64     `json:"cycle_id"`
	Alerts  []Payload `json:"alerts"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts alerts to connected websocket clients. Clients whose send
// buffer is full are dropped.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*hubClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zerolog.Logger) *Hub {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: l.With().Str("sink", "websocket").Logger(),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("remote", r.RemoteAddr).Int("clients", n).Msg("feed client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// Emit broadcasts the cycle to every client.
func (h *Hub) Emit(_ context.Context, cycle Cycle) error {
	if len(cycle.Alerts) == 0 {
		return nil
	}
	msg, err := json.Marshal(FeedMessage{Type: "alerts", CycleID: cycle.ID, Alerts: Payloads(cycle.Alerts)})
	if err != nil {
		return fmt.Errorf("marshal feed message: %w", err)
	}
	h.Broadcast(msg)
	return nil
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Msg("feed client too slow, dropping")
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// removeLocked unregisters c and closes its send channel; the write pump
// then closes the connection.
func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards client frames and unregisters the client on error.
func (h *Hub) readPump(c *hubClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxClientBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var _ Emitter = (*Hub)(nil)
