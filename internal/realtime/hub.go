// Package realtime drives the portal event loop over WebSockets.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Hub tracks the open WebSocket connections of every portal session so a
// view produced in one tab can be pushed to the others.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]struct{})}
}

// Register adds a connection for a session.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[sessionID]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		h.active[sessionID] = conns
	}
	conns[conn] = struct{}{}
	slog.Info("Portal socket registered", "session_id", sessionID, "connections", len(conns))
}

// Unregister removes a connection for a session.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[sessionID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; !exists {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.active, sessionID)
	}
	slog.Info("Portal socket unregistered", "session_id", sessionID)
}

// Connections returns a snapshot of the session's connections.
func (h *Hub) Connections(sessionID string) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(h.active[sessionID]))
	for c := range h.active[sessionID] {
		conns = append(conns, c)
	}
	return conns
}

// Broadcast writes msg as JSON to every connection of the session except skip.
func (h *Hub) Broadcast(ctx context.Context, sessionID string, msg any, skip *websocket.Conn) {
	for _, conn := range h.Connections(sessionID) {
		if conn == skip {
			continue
		}
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			slog.Debug("Failed to push to portal socket", "error", err, "session_id", sessionID)
		}
	}
}

// CloseSession terminates all connections of a session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.active[sessionID]
	delete(h.active, sessionID)
	h.mu.Unlock()

	for conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	if len(conns) > 0 {
		slog.Info("Portal sockets closed", "session_id", sessionID, "count", len(conns))
	}
}
