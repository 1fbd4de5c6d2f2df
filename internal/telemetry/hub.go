// Package telemetry streams frame snapshots to read-only websocket viewers.
package telemetry

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"driftpursuit/corridor/internal/logging"
)

const (
	// DefaultPingInterval keeps idle viewer connections alive.
	DefaultPingInterval = 30 * time.Second
	// DefaultClientBuffer is how many messages may queue per viewer before it is dropped.
	DefaultClientBuffer = 256
	writeTimeout        = 5 * time.Second
	maxInboundBytes     = 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans encoded frames out to every connected viewer.
type Hub struct {
	mu           sync.Mutex
	clients      map[*client]struct{}
	log          *logging.Logger
	pingInterval time.Duration
	buffer       int
	marshal      protojson.MarshalOptions
	limiter      *SlidingWindowLimiter
	now          func() time.Time
}

// NewHub constructs an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.L()
	}
	return &Hub{
		clients:      make(map[*client]struct{}),
		log:          logger.With(logging.String("component", "telemetry")),
		pingInterval: DefaultPingInterval,
		buffer:       DefaultClientBuffer,
		marshal:      protojson.MarshalOptions{UseProtoNames: true},
		now:          time.Now,
	}
}

// LimitConnections rejects upgrades beyond limit per window with 429.
func (h *Hub) LimitConnections(window time.Duration, limit int) {
	h.limiter = NewSlidingWindowLimiter(window, limit, h.now)
}

// Clients reports how many viewers are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish encodes msg as JSON and queues it for every viewer.
func (h *Hub) Publish(msg proto.Message) error {
	payload, err := h.marshal.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	h.broadcast(payload)
	return nil
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			//1.- A viewer that cannot keep up is dropped instead of stalling the frame loop.
			h.log.Warn("telemetry viewer dropped", logging.String("client", c.id))
			h.removeLocked(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the request and streams frames until the viewer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		h.log.Warn("telemetry viewer rejected: rate limit exceeded", logging.String("client", r.RemoteAddr))
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("telemetry upgrade failed", logging.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.buffer), id: r.RemoteAddr}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("telemetry viewer connected", logging.String("client", c.id))

	go h.readPump(c)
	go h.writePump(c)
}

// readPump discards inbound messages; viewers cannot steer the simulation.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundBytes)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
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
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
