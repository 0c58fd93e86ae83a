package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/umit-portal/internal/assistant"
	"github.com/ashureev/umit-portal/internal/domain"
	"github.com/ashureev/umit-portal/internal/identity"
	"github.com/ashureev/umit-portal/internal/portal"
	"github.com/ashureev/umit-portal/internal/realtime"
	"github.com/ashureev/umit-portal/internal/validation"
	"github.com/go-chi/chi/v5"
)

// PortalHandlerConfig tunes the portal endpoints.
type PortalHandlerConfig struct {
	ThinkingDelay time.Duration
	MaxUploadSize int64
}

// PortalHandler exposes the portal event loop over HTTP.
type PortalHandler struct {
	svc       *portal.Service
	hub       *realtime.Hub
	limiter   *assistant.RateLimiter
	validator *validation.Validator
	cfg       PortalHandlerConfig
}

// NewPortalHandler creates the portal HTTP handler. hub and limiter may be nil.
func NewPortalHandler(svc *portal.Service, hub *realtime.Hub, limiter *assistant.RateLimiter, cfg PortalHandlerConfig) *PortalHandler {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 10 << 20
	}
	return &PortalHandler{
		svc:       svc,
		hub:       hub,
		limiter:   limiter,
		validator: validation.New(),
		cfg:       cfg,
	}
}

type loginRequest struct {
	AppID    string `json:"app_id" validate:"max=128"`
	Password string `json:"password" validate:"max=256"`
}

type pageRequest struct {
	Page domain.Page `json:"page" validate:"required"`
}

type chatRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type quickReplyRequest struct {
	Label string `json:"label" validate:"required"`
}

// RegisterRoutes registers portal routes.
func (h *PortalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Get("/view", h.GetView)
		r.Post("/events", h.PostEvent)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/page", h.SelectPage)
		r.Post("/chat", h.Chat)
		r.Post("/quick-reply", h.QuickReply)
		r.Post("/documents", h.SubmitDocument)
		r.Delete("/session", h.ForgetSession)
	})
}

// GetConfig returns the static UI configuration.
func (h *PortalHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"pages":             domain.NavigablePages,
		"quick_replies":     assistant.QuickReplies(),
		"thinking_delay_ms": h.cfg.ThinkingDelay.Milliseconds(),
		"max_upload_size":   h.cfg.MaxUploadSize,
	})
}

// GetView returns the current view of the caller's session.
func (h *PortalHandler) GetView(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		Error(w, http.StatusUnauthorized, "no session")
		return
	}
	view, err := h.svc.View(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load portal view", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, view)
}

// PostEvent accepts any portal event as JSON.
func (h *PortalHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var ev portal.Event
	if !bind(w, r, h.validator, &ev) {
		return
	}
	h.dispatch(w, r, ev)
}

// Login handles credential submission.
func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, h.validator, &req) {
		return
	}
	h.dispatch(w, r, portal.Login(req.AppID, req.Password))
}

// Logout ends the authenticated part of the session.
func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, portal.Logout())
}

// SelectPage handles sidebar navigation.
func (h *PortalHandler) SelectPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !bind(w, r, h.validator, &req) {
		return
	}
	h.dispatch(w, r, portal.SelectPage(req.Page))
}

// Chat handles free-text chat input.
func (h *PortalHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !bind(w, r, h.validator, &req) {
		return
	}
	h.dispatch(w, r, portal.Chat(req.Text))
}

// QuickReply handles a quick-reply button click.
func (h *PortalHandler) QuickReply(w http.ResponseWriter, r *http.Request) {
	var req quickReplyRequest
	if !bind(w, r, h.validator, &req) {
		return
	}
	h.dispatch(w, r, portal.QuickReply(req.Label))
}

// SubmitDocument accepts a multipart upload in field "file". The content
// is only checked for presence and then discarded.
func (h *PortalHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 10); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Debug("failed to remove multipart temp files", "error", err)
		}
	}()

	fileName := ""
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		if closeErr := file.Close(); closeErr != nil {
			slog.Debug("failed to close uploaded file", "error", closeErr)
		}
		fileName = header.Filename
		if fileName == "" {
			fileName = "document"
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		Error(w, http.StatusBadRequest, "invalid file")
		return
	}

	slog.Info("Document upload received",
		"session_id", identity.SessionIDFromContext(r.Context()),
		"file_present", fileName != "",
	)
	h.dispatch(w, r, portal.SubmitDocument(fileName))
}

// ForgetSession deletes the caller's session entirely.
func (h *PortalHandler) ForgetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		Error(w, http.StatusUnauthorized, "no session")
		return
	}
	if err := h.svc.Forget(r.Context(), sessionID); err != nil {
		slog.Error("Failed to forget session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if h.hub != nil {
		h.hub.CloseSession(sessionID)
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PortalHandler) dispatch(w http.ResponseWriter, r *http.Request, ev portal.Event) {
	ctx := r.Context()
	sessionID := identity.SessionIDFromContext(ctx)
	if sessionID == "" {
		Error(w, http.StatusUnauthorized, "no session")
		return
	}

	// Only turns that produce a reply count against the limit.
	if (ev.Kind == portal.EventChat || ev.Kind == portal.EventQuickReply) &&
		h.limiter != nil && h.limiter.Exceeded(sessionID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	res, err := h.svc.Dispatch(ctx, sessionID, ev)
	if err != nil {
		slog.Error("Portal event failed", "error", err, "session_id", sessionID, "event", ev.Kind)
		Error(w, http.StatusInternalServerError, "failed to handle event")
		return
	}

	if res.Replied() {
		if h.limiter != nil {
			h.limiter.Record(sessionID)
		}
		if err := assistant.Think(ctx, h.cfg.ThinkingDelay); err != nil {
			slog.Debug("Client left while assistant was thinking", "session_id", sessionID)
			return
		}
	}

	if h.hub != nil {
		h.hub.Broadcast(ctx, sessionID, realtime.ServerMessage{Type: realtime.TypeView, View: &res.View}, nil)
	}
	JSON(w, http.StatusOK, res.View)
}
