package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/eventbus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub relays LOG and PORTFOLIO_STRATEGY bus events to connected websocket
// subscribers.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewHub constructs an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("ws"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// AttachBus subscribes the hub to the event types it relays.
func (h *Hub) AttachBus(bus *eventbus.Bus) {
	bus.Register(eventbus.EventLog, func(ev eventbus.Event) {
		if le, ok := ev.(eventbus.LogEvent); ok {
			h.Broadcast(map[string]interface{}{
				"type":   "log",
				"time":   le.OccurredAt().Format(time.RFC3339),
				"level":  le.Level,
				"source": le.Name,
				"msg":    le.Msg,
			})
		}
	})
	bus.Register(eventbus.EventPortfolioStrategy, func(ev eventbus.Event) {
		if se, ok := ev.(eventbus.PortfolioStrategyEvent); ok {
			h.Broadcast(map[string]interface{}{
				"type":          "strategy",
				"strategy_name": se.StrategyName,
			})
		}
	})
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Reader loop exists only to observe disconnects; the stream is
	// one-directional.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends v as JSON to every connected client; write failures drop
// the client.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
