package tasks

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

// Handler handles HTTP requests for the tasks module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new tasks handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers task routes. The router group is expected to
// already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/kanban", h.Kanban)
		r.Patch("/bulk/status", h.BulkUpdateStatus)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Patch("/status", h.UpdateStatus)

			r.Get("/comments", h.ListComments)
			r.Post("/comments", h.AddComment)

			r.Get("/subtasks", h.ListSubtasks)
			r.Post("/subtasks", h.AddSubtask)

			r.Get("/time-entries", h.ListTimeEntries)
			r.Post("/time-entries", h.LogTime)
		})
	})

	r.Delete("/comments/{commentID}", h.DeleteComment)
	r.Patch("/subtasks/{subtaskID}", h.UpdateSubtask)
}

// CreateRequest represents the task creation request body.
type CreateRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description"`
	ProjectID   string     `json:"project_id" validate:"required,uuid"`
	AssigneeID  *string    `json:"assignee_id" validate:"omitempty,uuid"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"due_date"`
}

// Create handles POST /tasks.
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
	task, err := h.service.Create(r.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		ReporterID:  principal.UserID,
		AssigneeID:  req.AssigneeID,
		Priority:    domain.TaskPriority(req.Priority),
		Tags:        req.Tags,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, task)
}

// Get handles GET /tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, task)
}

// List handles GET /tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := ListQuery{
		Page: pagination.FromRequest(r, pagination.DefaultLimit),
		Filter: TaskFilter{
			Search: r.URL.Query().Get("search"),
		},
	}

	if raw := r.URL.Query().Get("project_id"); raw != "" {
		query.Filter.ProjectID = &raw
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		query.Filter.Status = &status
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority := domain.TaskPriority(raw)
		query.Filter.Priority = &priority
	}
	if raw := r.URL.Query().Get("assignee_id"); raw != "" {
		query.Filter.AssigneeID = &raw
	}
	if raw := r.URL.Query().Get("reporter_id"); raw != "" {
		query.Filter.ReporterID = &raw
	}
	if raw := r.URL.Query().Get("tag"); raw != "" {
		query.Filter.Tag = &raw
	}

	items, total, err := h.service.List(r.Context(), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Paginated(w, http.StatusOK, items, pagination.NewMeta(query.Page, total))
}

// UpdateRequest represents the task update request body.
type UpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *string    `json:"assignee_id" validate:"omitempty,uuid"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"due_date"`
}

// Update handles PATCH /tasks/{id}.
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
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Tags:        req.Tags,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		input.Priority = &priority
	}

	task, err := h.service.Update(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, task)
}

// UpdateStatusRequest represents the status change request body.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress in_review done"`
}

// UpdateStatus handles PATCH /tasks/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	task, err := h.service.UpdateStatus(r.Context(),
		chi.URLParam(r, "id"),
		domain.TaskStatus(req.Status),
		httputil.GetPrincipal(r.Context()),
	)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, task)
}

// Delete handles DELETE /tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), httputil.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Kanban handles GET /tasks/kanban?project_id=.
func (h *Handler) Kanban(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httputil.Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	board, err := h.service.Kanban(r.Context(), projectID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, board)
}

// BulkUpdateStatusRequest represents the bulk status change request body.
type BulkUpdateStatusRequest struct {
	TaskIDs []string `json:"task_ids" validate:"required,min=1,dive,uuid"`
	Status  string   `json:"status" validate:"required,oneof=todo in_progress in_review done"`
}

// BulkUpdateStatus handles PATCH /tasks/bulk/status.
func (h *Handler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	updated, err := h.service.BulkUpdateStatus(r.Context(), BulkUpdateStatusInput{
		IDs:     req.TaskIDs,
		Status:  domain.TaskStatus(req.Status),
		ActorID: httputil.GetPrincipal(r.Context()).UserID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int{"updated": updated})
}

// AddCommentRequest represents the comment creation request body.
type AddCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

// AddComment handles POST /tasks/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	comment, err := h.service.AddComment(r.Context(), AddCommentInput{
		TaskID:   chi.URLParam(r, "id"),
		AuthorID: httputil.GetPrincipal(r.Context()).UserID,
		Body:     req.Body,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, comment)
}

// ListComments handles GET /tasks/{id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, comments)
}

// DeleteComment handles DELETE /comments/{commentID}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteComment(r.Context(),
		chi.URLParam(r, "commentID"),
		httputil.GetPrincipal(r.Context()),
	)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddSubtaskRequest represents the subtask creation request body.
type AddSubtaskRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

// AddSubtask handles POST /tasks/{id}/subtasks.
func (h *Handler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	var req AddSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	subtask, err := h.service.AddSubtask(r.Context(), AddSubtaskInput{
		TaskID: chi.URLParam(r, "id"),
		Title:  req.Title,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, subtask)
}

// ListSubtasks handles GET /tasks/{id}/subtasks.
func (h *Handler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	subtasks, err := h.service.ListSubtasks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, subtasks)
}

// UpdateSubtaskRequest represents the subtask update request body.
type UpdateSubtaskRequest struct {
	Title  *string `json:"title" validate:"omitempty,min=1,max=255"`
	IsDone *bool   `json:"is_done"`
}

// UpdateSubtask handles PATCH /subtasks/{subtaskID}.
func (h *Handler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	subtask, err := h.service.UpdateSubtask(r.Context(), UpdateSubtaskInput{
		SubtaskID: chi.URLParam(r, "subtaskID"),
		Title:     req.Title,
		IsDone:    req.IsDone,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, subtask)
}

// LogTimeRequest represents the time entry creation request body.
type LogTimeRequest struct {
	Minutes     int        `json:"minutes" validate:"required"`
	Description string     `json:"description" validate:"max=1000"`
	LoggedAt    *time.Time `json:"logged_at"`
}

// LogTime handles POST /tasks/{id}/time-entries.
func (h *Handler) LogTime(w http.ResponseWriter, r *http.Request) {
	var req LogTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry, err := h.service.LogTime(r.Context(), LogTimeInput{
		TaskID:      chi.URLParam(r, "id"),
		UserID:      httputil.GetPrincipal(r.Context()).UserID,
		Minutes:     req.Minutes,
		Description: req.Description,
		LoggedAt:    req.LoggedAt,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, entry)
}

// ListTimeEntries handles GET /tasks/{id}/time-entries.
func (h *Handler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListTimeEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrCommentNotFound),
		errors.Is(err, ErrSubtaskNotFound), errors.Is(err, ErrProjectNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrNoTaskIDs), errors.Is(err, ErrInvalidTimeSpent):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrNotCommentAuthor):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		ctxlog.FromContext(r.Context()).Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
