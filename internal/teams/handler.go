package teams

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/internal/pkg/httputil"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Handler handles HTTP requests for the teams module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new teams handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers team routes. The router group is expected to
// already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(httputil.RequireManagerOrAdmin()).Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)

			r.Post("/members/{userID}", h.AddMember)
			r.Delete("/members/{userID}", h.RemoveMember)
		})
	})
}

// CreateRequest represents the team creation request body.
type CreateRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids" validate:"omitempty,dive,uuid"`
}

// Create handles POST /teams.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	principal := httputil.GetPrincipal(r.Context())
	team, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		Description: req.Description,
		LeadID:      principal.UserID,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, team)
}

// Get handles GET /teams/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, team)
}

// List handles GET /teams.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := ListQuery{
		Page: pagination.FromRequest(r, pagination.DefaultLimit),
		Filter: TeamFilter{
			Search: r.URL.Query().Get("search"),
		},
	}

	if raw := r.URL.Query().Get("lead_id"); raw != "" {
		query.Filter.LeadID = &raw
	}
	if raw := r.URL.Query().Get("member_id"); raw != "" {
		query.Filter.MemberID = &raw
	}

	items, total, err := h.service.List(r.Context(), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Paginated(w, http.StatusOK, items, pagination.NewMeta(query.Page, total))
}

// UpdateRequest represents the team update request body.
type UpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	LeadID      *string `json:"lead_id" validate:"omitempty,uuid"`
}

// Update handles PATCH /teams/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	team, err := h.service.Update(r.Context(), UpdateInput{
		ID:          chi.URLParam(r, "id"),
		Actor:       httputil.GetPrincipal(r.Context()),
		Name:        req.Name,
		Description: req.Description,
		LeadID:      req.LeadID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, team)
}

// Delete handles DELETE /teams/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), httputil.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember handles POST /teams/{id}/members/{userID}.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.AddMember(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "userID"),
		httputil.GetPrincipal(r.Context()),
	)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, team)
}

// RemoveMember handles DELETE /teams/{id}/members/{userID}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.RemoveMember(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "userID"),
		httputil.GetPrincipal(r.Context()),
	)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, team)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTeamNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrMemberNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyMember):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAccessDenied):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		ctxlog.FromContext(r.Context()).Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
