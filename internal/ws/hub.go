package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	done       chan struct{} // closed when Run returns
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every connected client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			n := len(h.Clients)
			h.mutex.Unlock()
			h.log.Debug("ws client connected", zap.Int("clients", n))

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish encodes an event as {"type", "action", "timestamp", ...payload}
// and queues it for every client. Events are delivered in publish order;
// once the hub has stopped they are dropped.
func (h *Hub) Publish(eventType, action string, payload map[string]interface{}) {
	msg := make(map[string]interface{}, len(payload)+3)
	for k, v := range payload {
		msg[k] = v
	}
	msg["type"] = eventType
	msg["action"] = action
	msg["timestamp"] = time.Now()

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode ws event", zap.String("type", eventType), zap.String("action", action), zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- data:
	case <-h.done:
	}
}

// Serve is the per-connection loop for the /ws route. Clients only listen;
// anything they send is discarded.
func (h *Hub) Serve(c *websocket.Conn) {
	select {
	case h.Register <- c:
	case <-h.done:
		return
	}
	defer func() {
		select {
		case h.Unregister <- c:
		case <-h.done:
		}
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
