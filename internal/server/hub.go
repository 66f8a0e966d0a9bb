package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/pkg/events"
)

const (
	clientBuffer = 32
	writeWait    = 10 * time.Second
)

// Hub fans backend change events out to websocket subscribers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*feedClient]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan events.Event
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and streams events until the peer goes
// away. Anything the peer sends is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &feedClient{conn: conn, send: make(chan events.Event, clientBuffer)}
	h.add(c)
	go h.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) add(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("feed subscriber connected", zap.Int("subscribers", n))
}

// remove closes the send channel; Broadcast never sees c afterwards.
func (h *Hub) remove(c *feedClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *feedClient) {
	defer c.conn.Close()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.logger.Debug("feed write failed", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Broadcast queues ev for every subscriber. A subscriber whose buffer is
// full misses the event.
func (h *Hub) Broadcast(ev events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn("dropping event for slow feed subscriber",
				zap.String("event_type", string(ev.Type)))
		}
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.conn.Close()
	}
}
