package projects

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/internal/pkg/httputil"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Handler handles HTTP requests for the projects module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new projects handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers project routes. The router group is expected
// to already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(httputil.RequirePermissions("project:create")).Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequirePermissions("project:manage_members"))
				r.Post("/members/{userID}", h.AddMember)
				r.Delete("/members/{userID}", h.RemoveMember)
			})
		})
	})
}

// CreateRequest represents the project creation request body.
type CreateRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=255"`
	Description string     `json:"description"`
	MemberIDs   []string   `json:"member_ids"`
	DueDate     *time.Time `json:"due_date"`
}

// Create handles POST /projects.
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
	project, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     principal.UserID,
		MemberIDs:   req.MemberIDs,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, project)
}

// Get handles GET /projects/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// List handles GET /projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := ListQuery{
		Page: pagination.FromRequest(r, pagination.DefaultLimit),
		Filter: ProjectFilter{
			Search: r.URL.Query().Get("search"),
		},
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.ProjectStatus(raw)
		query.Filter.Status = &status
	}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		query.Filter.OwnerID = &raw
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

// UpdateRequest represents the project update request body.
type UpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=active completed archived"`
	DueDate     *time.Time `json:"due_date"`
}

// Update handles PATCH /projects/{id}.
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

	input := UpdateInput{
		ID:          chi.URLParam(r, "id"),
		Actor:       httputil.GetPrincipal(r.Context()),
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status := domain.ProjectStatus(*req.Status)
		input.Status = &status
	}

	project, err := h.service.Update(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// Delete handles DELETE /projects/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), httputil.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMember handles POST /projects/{id}/members/{userID}.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.AddMember(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "userID"),
		httputil.GetPrincipal(r.Context()),
	)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

// RemoveMember handles DELETE /projects/{id}/members/{userID}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.RemoveMember(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "userID"),
		httputil.GetPrincipal(r.Context()),
	)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, project)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrMemberNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlugExists), errors.Is(err, ErrAlreadyMember):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccessDenied):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		ctxlog.FromContext(r.Context()).Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
