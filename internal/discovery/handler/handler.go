package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"agrimarket/internal/directory/models"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery"
	"agrimarket/internal/session"
	dErrors "agrimarket/pkg/domainerrors"
	"agrimarket/pkg/platform/httputil"
	"agrimarket/pkg/requestcontext"
)

// Service defines the discovery operations the handler needs.
type Service interface {
	Kinds() []schema.Kind
	Kind(kind models.Kind) (schema.Kind, error)
	Discover(ctx context.Context, kind models.Kind, filter models.FilterState, token string, device requestcontext.DeviceClass) (discovery.Snapshot, error)
	Overview(ctx context.Context, filter models.FilterState, token string, device requestcontext.DeviceClass, allow func(schema.Kind) bool) (discovery.Overview, error)
	Detail(ctx context.Context, kind models.Kind, id, token string) (discovery.Detail, error)
}

// Handler serves the discovery pages.
type Handler struct {
	service Service
	gate    *session.Gate
	logger  *slog.Logger
}

// New creates a discovery Handler.
func New(service Service, gate *session.Gate, logger *slog.Logger) *Handler {
	return &Handler{service: service, gate: gate, logger: logger}
}

// Register registers the discovery routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/discovery", func(r chi.Router) {
		r.Get("/", h.handleKinds)
		r.Get("/overview", h.handleOverview)
		r.Get("/{kind}", h.handleDiscover)
		r.Get("/{kind}/{id}", h.handleDetail)
	})
}

type kindView struct {
	schema.Kind
	Visible bool `json:"visible"`
}

func (h *Handler) handleKinds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kinds := h.service.Kinds()
	out := make([]kindView, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, kindView{Kind: k, Visible: h.gate.Allows(ctx, k)})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"kinds":     out,
		"login_url": h.gate.LoginURL(),
	})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	allow := func(k schema.Kind) bool { return h.gate.Allows(ctx, k) }
	ov, err := h.service.Overview(ctx, filter, session.Token(ctx), requestcontext.Device(ctx), allow)
	if err != nil {
		h.logger.ErrorContext(ctx, "overview failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ov)
}

func (h *Handler) handleDiscover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := h.admit(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := h.service.Discover(ctx, kind.Kind, filter, session.Token(ctx), requestcontext.Device(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Upstream failures are carried inline; the page still renders.
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := h.admit(w, r)
	if !ok {
		return
	}

	d, err := h.service.Detail(ctx, kind.Kind, chi.URLParam(r, "id"), session.Token(ctx))
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.WarnContext(ctx, "detail failed",
				"request_id", requestcontext.RequestID(ctx),
				"kind", string(kind.Kind),
				"error", err.Error(),
			)
		}
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// admit resolves the {kind} parameter and applies the session gate.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request) (schema.Kind, bool) {
	kind, err := h.service.Kind(models.Kind(chi.URLParam(r, "kind")))
	if err != nil {
		httputil.WriteError(w, err)
		return schema.Kind{}, false
	}
	if err := h.gate.Check(r.Context(), kind); err != nil {
		h.writeError(w, err)
		return schema.Kind{}, false
	}
	return kind, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if dErrors.Is(err, dErrors.CodeUnauthorized) {
		httputil.WriteErrorWith(w, err, map[string]string{"login_url": h.gate.LoginURL()})
		return
	}
	httputil.WriteError(w, err)
}

// parseFilter reads q, verified and category. verified defaults to true.
func parseFilter(r *http.Request) (models.FilterState, error) {
	q := r.URL.Query()
	filter := models.DefaultFilterState()
	filter.Search = strings.TrimSpace(q.Get("q"))
	if c := strings.TrimSpace(q.Get("category")); c != "" {
		filter.Category = c
	}
	switch q.Get("verified") {
	case "", "true", "1":
	case "false", "0":
		filter.VerifiedOnly = false
	default:
		return models.FilterState{}, dErrors.New(dErrors.CodeBadRequest, "verified must be true, false, 1 or 0")
	}
	return filter, nil
}
