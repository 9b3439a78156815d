package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/agenda/internal/interfaces"
	"github.com/ternarybob/arbor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling connects cross-origin
	},
}

// WebSocketHandler pushes job lifecycle events to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string
}

// wsMessage is the frame pushed for every job lifecycle transition
type wsMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewWebSocketHandler creates the handler and wires it to the job
// lifecycle events on the bus
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	jobEvents := []interfaces.EventType{
		interfaces.EventJobSubmitted,
		interfaces.EventJobStarted,
		interfaces.EventJobCompleted,
		interfaces.EventJobFailed,
		interfaces.EventJobCanceled,
	}
	for _, eventType := range jobEvents {
		eventService.Subscribe(eventType, h.handleJobEvent)
	}

	logger.Debug().
		Str("server_instance_id", h.serverInstanceID).
		Msg("WebSocket handler initialized")

	return h
}

// HandleWebSocket handles GET /ws upgrade requests
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("remote", r.RemoteAddr).
		Int("clients", count).
		Msg("WebSocket client connected")

	h.send(conn, wsMessage{
		Type:      "connected",
		Payload:   map[string]string{"server_instance_id": h.serverInstanceID},
		Timestamp: time.Now(),
	})

	// Read loop: client frames are ignored, errors drop the connection
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) handleJobEvent(ctx context.Context, event interfaces.Event) error {
	h.broadcast(wsMessage{
		Type:      string(event.Type),
		Payload:   event.Payload,
		Timestamp: time.Now(),
	})
	return nil
}

func (h *WebSocketHandler) broadcast(msg wsMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.send(conn, msg)
	}
}

// send serializes writes per connection; gorilla allows one writer at a time
func (h *WebSocketHandler) send(conn *websocket.Conn, msg wsMessage) {
	h.mu.RLock()
	connMu, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to marshal WebSocket message")
		return
	}

	connMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	connMu.Unlock()

	if err != nil {
		h.removeClient(conn)
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()

	h.logger.Debug().
		Int("clients", count).
		Msg("WebSocket client disconnected")
}
