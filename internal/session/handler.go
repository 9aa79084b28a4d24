package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "agrimarket/pkg/domainerrors"
	"agrimarket/pkg/platform/httputil"
	"agrimarket/pkg/requestcontext"
)

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// Handler exposes session endpoints.
type Handler struct {
	service *Service
	cookie  CookieOptions
	logger  *slog.Logger
}

// NewHandler creates a session Handler.
func NewHandler(service *Service, cookie CookieOptions, logger *slog.Logger) *Handler {
	return &Handler{service: service, cookie: cookie, logger: logger}
}

// Register registers the session routes. The router is expected to run
// Service.Middleware already.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/session", h.handleOpen)
	r.Get("/api/session", h.handleCurrent)
	r.Delete("/api/session", h.handleClose)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid open session request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sess, err := h.service.Open(ctx, req.Token, req.User)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to open session",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.ID.String(),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusCreated, toResponse(sess))
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no active session"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess, ok := FromContext(ctx); ok {
		if err := h.service.Close(ctx, sess.ID); err != nil {
			h.logger.ErrorContext(ctx, "failed to close session",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			httputil.WriteError(w, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
