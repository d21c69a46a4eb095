// Package telemetry optionally broadcasts periodic snapshots of the
// runtime state and scan-cycle statistics to HMI/observer clients over
// WebSocket; image-table contents are not broadcast. It is purely
// observational: no client input can mutate runtime state.
package telemetry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Hub maintains active telemetry WebSocket connections and broadcasts
// messages to all of them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// Client is one observer's WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// NewHub creates an empty hub. Call Run in its own goroutine before
// serving any clients.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run processes registration, unregistration, and broadcast until stopCh
// is closed.
func (h *Hub) Run(stopCh <-chan struct{}) {
	log := logger.Telemetry()

	for {
		select {
		case <-stopCh:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Str("client", client.id).Int("total", h.ClientCount()).Msg("telemetry client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			var stuck []*Client
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					stuck = append(stuck, client)
				}
			}
			h.mu.RUnlock()

			if len(stuck) > 0 {
				h.mu.Lock()
				for _, client := range stuck {
					close(client.send)
					delete(h.clients, client)
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast enqueues message for delivery to every connected client.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		logger.Telemetry().Warn().Msg("broadcast channel full, dropping telemetry message")
	}
}

// ClientCount returns the number of currently registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds conn as a new observer client and starts its write pump.
func (h *Hub) Register(conn *websocket.Conn, id string) *Client {
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), id: id}
	h.register <- c
	go c.writePump()
	return c
}

// Unregister removes c from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
