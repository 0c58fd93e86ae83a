package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ashureev/umit-portal/internal/assistant"
	"github.com/ashureev/umit-portal/internal/domain"
	"github.com/ashureev/umit-portal/internal/identity"
	"github.com/ashureev/umit-portal/internal/portal"
	"github.com/ashureev/umit-portal/internal/validation"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// Message types exchanged over the socket.
const (
	TypeEvent    = "event"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeView     = "view"
	TypeThinking = "thinking"
	TypeError    = "error"
)

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Type  string        `json:"type"`
	Event *portal.Event `json:"event,omitempty"`
}

// ServerMessage is sent to the browser.
type ServerMessage struct {
	Type  string       `json:"type"`
	View  *portal.View `json:"view,omitempty"`
	Error string       `json:"error,omitempty"`
}

// Handler serves the portal event loop on a WebSocket.
type Handler struct {
	svc           *portal.Service
	hub           *Hub
	limiter       *assistant.RateLimiter
	validator     *validation.Validator
	thinkingDelay time.Duration
	origins       []string
	isDev         bool
}

// NewHandler creates a WebSocket handler. allowedOrigins are full origins
// such as "https://portal.umit.ac.in"; an empty list allows any origin.
func NewHandler(svc *portal.Service, hub *Hub, limiter *assistant.RateLimiter, thinkingDelay time.Duration, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{
		svc:           svc,
		hub:           hub,
		limiter:       limiter,
		validator:     validation.New(),
		thinkingDelay: thinkingDelay,
		origins:       allowedOrigins,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Portal socket request", "session_id", sessionID, "ip", identity.IPFromRequest(r))
	if sessionID == "" {
		http.Error(w, `{"error":"no session"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns(),
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.hub.Register(sessionID, ws)
	defer h.hub.Unregister(sessionID, ws)

	ctx := r.Context()

	view, err := h.svc.View(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to load portal view", "error", err, "session_id", sessionID)
		_ = h.write(ctx, ws, ServerMessage{Type: TypeError, Error: "failed to load session"})
		return
	}
	if err := h.write(ctx, ws, ServerMessage{Type: TypeView, View: &view}); err != nil {
		return
	}

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				slog.Info("Portal socket closed by client", "session_id", sessionID)
			} else {
				slog.Debug("Portal socket read failed", "error", err, "session_id", sessionID)
			}
			return
		}

		if err := h.handleMessage(ctx, ws, sessionID, msg); err != nil {
			slog.Debug("Portal socket write failed", "error", err, "session_id", sessionID)
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, ws *websocket.Conn, sessionID string, msg ClientMessage) error {
	switch msg.Type {
	case TypePing:
		return h.write(ctx, ws, ServerMessage{Type: TypePong})
	case TypeEvent:
	default:
		return h.write(ctx, ws, ServerMessage{Type: TypeError, Error: "unknown message type"})
	}

	if msg.Event == nil {
		return h.write(ctx, ws, ServerMessage{Type: TypeError, Error: "event is required"})
	}
	ev := *msg.Event
	if err := h.validator.Struct(ev); err != nil {
		return h.write(ctx, ws, ServerMessage{Type: TypeError, Error: err.Error()})
	}
	if isChatEvent(ev) && h.limiter != nil && h.limiter.Exceeded(sessionID) {
		return h.write(ctx, ws, ServerMessage{Type: TypeError, Error: "rate limit exceeded"})
	}

	res, err := h.svc.Dispatch(ctx, sessionID, ev)
	if err != nil {
		slog.Error("Portal event failed", "error", err, "session_id", sessionID, "event", ev.Kind)
		return h.write(ctx, ws, ServerMessage{Type: TypeError, Error: "failed to handle event"})
	}

	if res.Replied() && h.limiter != nil {
		h.limiter.Record(sessionID)
	}

	if res.Replied() && h.thinkingDelay > 0 {
		pending := PendingView(res.View)
		if err := h.write(ctx, ws, ServerMessage{Type: TypeView, View: &pending}); err != nil {
			return err
		}
		if err := h.write(ctx, ws, ServerMessage{Type: TypeThinking}); err != nil {
			return err
		}
		if err := assistant.Think(ctx, h.thinkingDelay); err != nil {
			return err
		}
	}

	final := ServerMessage{Type: TypeView, View: &res.View}
	if err := h.write(ctx, ws, final); err != nil {
		return err
	}
	h.hub.Broadcast(ctx, sessionID, final, ws)
	return nil
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}

// originPatterns converts the allowed origins to the host patterns
// websocket.Accept matches against.
func (h *Handler) originPatterns() []string {
	if h.isDev || len(h.origins) == 0 {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(h.origins))
	for _, origin := range h.origins {
		if origin == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			patterns = append(patterns, origin)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

func isChatEvent(ev portal.Event) bool {
	return ev.Kind == portal.EventChat || ev.Kind == portal.EventQuickReply
}

// PendingView returns v as it looks while the assistant is still thinking:
// the trailing assistant reply is withheld and quick replies are hidden.
func PendingView(v portal.View) portal.View {
	n := len(v.Transcript)
	if n == 0 || v.Transcript[n-1].Role != domain.RoleAssistant {
		return v
	}
	v.Transcript = append([]domain.ChatMessage(nil), v.Transcript[:n-1]...)
	v.QuickReplies = nil
	return v
}
