package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

const clientSendBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one connected websocket subscriber.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts leaderboard events to connected websocket clients.
// A client whose send buffer is full is dropped rather than allowed
// to stall the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	logger  logger.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.Get().Named("events"),
	}
}

var _ Emitter = (*Hub)(nil)

// EmitRankChange broadcasts a rank change to all clients.
func (h *Hub) EmitRankChange(ctx context.Context, ev RankChange) {
	ev.Type = TypeRankChange
	h.broadcast(ctx, ev)
}

// EmitPlayerUpdate broadcasts a rating update to all clients.
func (h *Hub) EmitPlayerUpdate(ctx context.Context, ev PlayerUpdate) {
	ev.Type = TypePlayerUpdate
	h.broadcast(ctx, ev)
}

func (h *Hub) broadcast(ctx context.Context, ev any) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error(ctx, "encoding event", logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; disconnect instead of blocking everyone.
			delete(h.clients, id)
			close(c.send)
			h.logger.Warn(ctx, "dropping slow subscriber", logger.String("clientID", id))
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades the request and subscribes the connection to
// the event stream until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		metrics.RecordErrorByComponent("events", "upgrade_failed")
		return
	}

	c := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	h.add(c)

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug(context.Background(), "subscriber connected",
		logger.String("clientID", c.ID),
		logger.Int("clients", n),
	)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
		close(c.send)
	}
	h.mu.Unlock()
}

// readLoop discards inbound frames; its job is noticing disconnects.
func (h *Hub) readLoop(c *Client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	// send was closed by the hub; tell the client we are done.
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}
