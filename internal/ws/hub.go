package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/playsquare/arena-server/internal/arena"
	"github.com/playsquare/arena-server/internal/obslog"
)

// Envelope is the JSON frame used in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub owns all live websocket channels and implements arena.Sender.
// Each accepted connection gets a fresh channel id; identity binding is
// the coordinator's business.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	coord *arena.Coordinator
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// SetCoordinator wires the event consumer. Must be called before the
// hub starts accepting connections.
func (h *Hub) SetCoordinator(c *arena.Coordinator) { h.coord = c }

// ServeHTTP upgrades the request and services the connection until the
// peer goes away. Runs on the caller's goroutine.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	cl := newClient(uuid.NewString(), conn, h)
	h.register(cl)
	obslog.L().Info("channel_connected", zap.String("channel_id", cl.id))

	cl.readLoop(r.Context())
	h.drop(context.Background(), cl)
}

func (h *Hub) register(cl *Client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
}

// drop disconnects a client exactly once and surfaces the disconnect to
// the coordinator. Safe to call for an already dropped client.
func (h *Hub) drop(ctx context.Context, cl *Client) {
	h.mu.Lock()
	_, present := h.clients[cl.id]
	delete(h.clients, cl.id)
	h.mu.Unlock()
	if !present {
		return
	}
	cl.close(websocket.StatusNormalClosure, "bye")
	if h.coord != nil {
		h.coord.HandleDisconnect(ctx, cl.id)
	}
	obslog.L().Info("channel_disconnected", zap.String("channel_id", cl.id))
}

// Send pushes one event to a channel. Unknown channels are dropped
// silently: the peer may have just disconnected.
func (h *Hub) Send(channelID, event string, data any) {
	h.mu.RLock()
	cl := h.clients[channelID]
	h.mu.RUnlock()
	if cl == nil {
		return
	}
	if err := cl.write(event, data); err != nil {
		obslog.L().Warn("ws_write_error",
			zap.String("channel_id", channelID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// Count reports the number of open channels.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
