// Package tasks provides HTTP handlers and business logic for tasks and
// their comments, subtasks, and time entries.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// ActivityRecorder records audit-trail entries. Implementations are
// best-effort and never return an error to the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, activity domain.Activity)
}

// TaskNotifier delivers in-app notifications for task events.
type TaskNotifier interface {
	NotifyTaskAssigned(ctx context.Context, userID string, task *domain.Task) error
	NotifyTaskStatusChanged(ctx context.Context, userID string, task *domain.Task) error
}

// ProjectChecker verifies that a project exists before tasks attach to it.
type ProjectChecker interface {
	ProjectExists(ctx context.Context, id string) (bool, error)
}

// Service provides task business logic.
type Service struct {
	repo     Repository
	projects ProjectChecker
	activity ActivityRecorder
	notifier TaskNotifier
}

// NewService creates a new task service. The notifier may be nil.
func NewService(repo Repository, projects ProjectChecker, activity ActivityRecorder, notifier TaskNotifier) *Service {
	return &Service{repo: repo, projects: projects, activity: activity, notifier: notifier}
}

// CreateInput represents task creation parameters. ReporterID is the
// acting principal's id, stamped by the handler.
type CreateInput struct {
	Title       string
	Description string
	ProjectID   string
	ReporterID  string
	AssigneeID  *string
	Priority    domain.TaskPriority
	Tags        []string
	DueDate     *time.Time
}

// Create creates a task in the todo column and notifies the assignee.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Task, error) {
	priority := input.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	exists, err := s.projects.ProjectExists(ctx, input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	tags := input.Tags
	if tags == nil {
		tags = make([]string, 0)
	}

	task := &domain.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TaskStatusTodo,
		Priority:    priority,
		ProjectID:   input.ProjectID,
		AssigneeID:  input.AssigneeID,
		ReporterID:  input.ReporterID,
		Tags:        tags,
		DueDate:     input.DueDate,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.record(ctx, input.ReporterID, domain.ActivityCreated, task.ID, nil)
	s.notifyAssigned(ctx, task)

	return task, nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.repo.GetByID(ctx, id)
}

// ListQuery represents task listing parameters.
type ListQuery struct {
	Filter TaskFilter
	Page   pagination.Params
}

// List returns a page of tasks matching the filter.
func (s *Service) List(ctx context.Context, query ListQuery) ([]domain.Task, int, error) {
	return s.repo.List(ctx, query.Filter, query.Page)
}

// UpdateInput represents partial task update parameters. Nil fields are
// left unchanged.
type UpdateInput struct {
	ID          string
	Actor       *domain.Principal
	Title       *string
	Description *string
	Priority    *domain.TaskPriority
	AssigneeID  *string
	Tags        []string
	DueDate     *time.Time
}

// Update applies partial changes and notifies a newly assigned user.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	previousAssignee := task.AssigneeID

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.AssigneeID != nil {
		task.AssigneeID = input.AssigneeID
	}
	if input.Tags != nil {
		task.Tags = input.Tags
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.record(ctx, input.Actor.UserID, domain.ActivityUpdated, task.ID, nil)

	if task.AssigneeID != nil && (previousAssignee == nil || *previousAssignee != *task.AssigneeID) {
		s.notifyAssigned(ctx, task)
	}

	return task, nil
}

// UpdateStatus moves a task to the given workflow status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, actor *domain.Principal) (*domain.Task, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Status == status {
		return task, nil
	}

	previous := task.Status
	task.Status = status
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	s.record(ctx, actor.UserID, domain.ActivityStatusChanged, task.ID, map[string]string{
		"from": string(previous),
		"to":   string(status),
	})

	if task.AssigneeID != nil && *task.AssigneeID != actor.UserID {
		if s.notifier != nil {
			if err := s.notifier.NotifyTaskStatusChanged(ctx, *task.AssigneeID, task); err != nil {
				ctxlog.FromContext(ctx).Warn("failed to notify status change", "task_id", task.ID, "error", err)
			}
		}
	}

	return task, nil
}

// Delete removes a task. Only the reporter, a manager, or an admin may
// delete it.
func (s *Service) Delete(ctx context.Context, id string, actor *domain.Principal) error {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && actor.Role != domain.RoleManager && task.ReporterID != actor.UserID {
		return ErrAccessDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, actor.UserID, domain.ActivityDeleted, id, map[string]string{"title": task.Title})
	return nil
}

// Kanban returns the project's tasks grouped by status. Every status
// appears in the result, empty columns included.
func (s *Service) Kanban(ctx context.Context, projectID string) (map[domain.TaskStatus][]domain.Task, error) {
	exists, err := s.projects.ProjectExists(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	items, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}

	board := make(map[domain.TaskStatus][]domain.Task, len(domain.TaskStatuses))
	for _, status := range domain.TaskStatuses {
		board[status] = make([]domain.Task, 0)
	}
	for _, task := range items {
		board[task.Status] = append(board[task.Status], task)
	}

	return board, nil
}

// BulkUpdateStatusInput represents a bulk status move.
type BulkUpdateStatusInput struct {
	IDs     []string
	Status  domain.TaskStatus
	ActorID string
}

// BulkUpdateStatus moves every listed task to the new status and returns
// the number of tasks updated. Unknown ids are skipped.
func (s *Service) BulkUpdateStatus(ctx context.Context, input BulkUpdateStatusInput) (int, error) {
	if len(input.IDs) == 0 {
		return 0, ErrNoTaskIDs
	}
	if !input.Status.IsValid() {
		return 0, ErrInvalidStatus
	}

	updated, err := s.repo.BulkUpdateStatus(ctx, input.IDs, input.Status)
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	s.record(ctx, input.ActorID, domain.ActivityStatusChanged, "", map[string]string{
		"to":    string(input.Status),
		"count": fmt.Sprintf("%d", updated),
	})

	return updated, nil
}

// AddCommentInput represents comment creation parameters.
type AddCommentInput struct {
	TaskID   string
	AuthorID string
	Body     string
}

// AddComment attaches a comment to a task.
func (s *Service) AddComment(ctx context.Context, input AddCommentInput) (*domain.Comment, error) {
	if _, err := s.repo.GetByID(ctx, input.TaskID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TaskID:   input.TaskID,
		AuthorID: input.AuthorID,
		Body:     input.Body,
	}

	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns all comments on a task, oldest first.
func (s *Service) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	if _, err := s.repo.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, taskID)
}

// DeleteComment removes a comment. Only the author or an admin may
// delete it.
func (s *Service) DeleteComment(ctx context.Context, commentID string, actor *domain.Principal) error {
	comment, err := s.repo.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && comment.AuthorID != actor.UserID {
		return ErrNotCommentAuthor
	}

	return s.repo.DeleteComment(ctx, commentID)
}

// AddSubtaskInput represents subtask creation parameters.
type AddSubtaskInput struct {
	TaskID string
	Title  string
}

// AddSubtask attaches a checklist item to a task.
func (s *Service) AddSubtask(ctx context.Context, input AddSubtaskInput) (*domain.Subtask, error) {
	if _, err := s.repo.GetByID(ctx, input.TaskID); err != nil {
		return nil, err
	}

	subtask := &domain.Subtask{
		TaskID: input.TaskID,
		Title:  input.Title,
	}

	if err := s.repo.CreateSubtask(ctx, subtask); err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	return subtask, nil
}

// ListSubtasks returns all subtasks of a task.
func (s *Service) ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error) {
	if _, err := s.repo.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListSubtasks(ctx, taskID)
}

// UpdateSubtaskInput represents partial subtask update parameters.
type UpdateSubtaskInput struct {
	SubtaskID string
	Title     *string
	IsDone    *bool
}

// UpdateSubtask renames or toggles a subtask.
func (s *Service) UpdateSubtask(ctx context.Context, input UpdateSubtaskInput) (*domain.Subtask, error) {
	subtask, err := s.repo.GetSubtaskByID(ctx, input.SubtaskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		subtask.Title = *input.Title
	}
	if input.IsDone != nil {
		subtask.IsDone = *input.IsDone
	}

	if err := s.repo.UpdateSubtask(ctx, subtask); err != nil {
		return nil, fmt.Errorf("update subtask: %w", err)
	}
	return subtask, nil
}

// LogTimeInput represents time entry creation parameters.
type LogTimeInput struct {
	TaskID      string
	UserID      string
	Minutes     int
	Description string
	LoggedAt    *time.Time
}

// LogTime records time spent against a task.
func (s *Service) LogTime(ctx context.Context, input LogTimeInput) (*domain.TimeEntry, error) {
	if input.Minutes <= 0 {
		return nil, ErrInvalidTimeSpent
	}

	if _, err := s.repo.GetByID(ctx, input.TaskID); err != nil {
		return nil, err
	}

	loggedAt := time.Now()
	if input.LoggedAt != nil {
		loggedAt = *input.LoggedAt
	}

	entry := &domain.TimeEntry{
		TaskID:      input.TaskID,
		UserID:      input.UserID,
		Minutes:     input.Minutes,
		Description: input.Description,
		LoggedAt:    loggedAt,
	}

	if err := s.repo.CreateTimeEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create time entry: %w", err)
	}
	return entry, nil
}

// ListTimeEntries returns all time entries of a task.
func (s *Service) ListTimeEntries(ctx context.Context, taskID string) ([]domain.TimeEntry, error) {
	if _, err := s.repo.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListTimeEntries(ctx, taskID)
}

func (s *Service) record(ctx context.Context, actorID string, action domain.ActivityAction, taskID string, metadata map[string]string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.Activity{
		ActorID:    actorID,
		Action:     action,
		EntityKind: "task",
		EntityID:   taskID,
		Metadata:   metadata,
	})
}

func (s *Service) notifyAssigned(ctx context.Context, task *domain.Task) {
	if s.notifier == nil || task.AssigneeID == nil {
		return
	}
	if err := s.notifier.NotifyTaskAssigned(ctx, *task.AssigneeID, task); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to notify assignee", "task_id", task.ID, "error", err)
	}
}
