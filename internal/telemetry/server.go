package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scancycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/statemachine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Snapshot is the periodic message broadcast to every connected observer.
type Snapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	State     string              `json:"state"`
	Stats     scancycle.Stats     `json:"stats"`
}

// Server wraps a Hub with an HTTP upgrade handler.
type Server struct {
	hub *Hub
}

// NewServer constructs a telemetry server around hub.
func NewServer(hub *Hub) *Server {
	return &Server{hub: hub}
}

// ServeHTTP upgrades the connection and registers it with the hub.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Telemetry().Warn().Err(err).Msg("telemetry upgrade failed")
		return
	}
	client := s.hub.Register(conn, r.RemoteAddr)
	go func() {
		defer s.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// PublishSnapshot periodically broadcasts a Snapshot built from stateFn
// and tracker, until stopCh closes.
func PublishSnapshot(hub *Hub, stateFn func() statemachine.State, tracker *scancycle.Tracker, period time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			stats, _ := tracker.Snapshot()
			snap := Snapshot{Timestamp: time.Now(), State: stateFn().String(), Stats: stats}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			hub.Broadcast(data)
		}
	}
}
