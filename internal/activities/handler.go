package activities

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/internal/pkg/httputil"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Handler handles HTTP requests for the activities module.
type Handler struct {
	service *Service
}

// NewHandler creates a new activities handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers activity routes. The audit trail is visible
// to admins only.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(httputil.RequireRole(domain.RoleAdmin)).Get("/activities", h.List)
}

// List handles GET /activities.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := ListQuery{
		Page: pagination.FromRequest(r, DefaultListLimit),
	}

	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		query.Filter.ActorID = &raw
	}
	if raw := r.URL.Query().Get("entity_kind"); raw != "" {
		query.Filter.EntityKind = &raw
	}
	if raw := r.URL.Query().Get("entity_id"); raw != "" {
		query.Filter.EntityID = &raw
	}
	if raw := r.URL.Query().Get("action"); raw != "" {
		action := domain.ActivityAction(raw)
		query.Filter.Action = &action
	}

	items, total, err := h.service.List(r.Context(), query)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.Paginated(w, http.StatusOK, items, pagination.NewMeta(query.Page, total))
}
