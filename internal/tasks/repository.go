package tasks

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// TaskFilter represents filter criteria for listing tasks. All provided
// fields are combined with AND; Search matches title and description
// case-insensitively.
type TaskFilter struct {
	ProjectID  *string
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	AssigneeID *string
	ReporterID *string
	Tag        *string
	Search     string
}

// Repository defines the interface for task persistence.
type Repository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter, page pagination.Params) ([]domain.Task, int, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error

	// BulkUpdateStatus moves all listed tasks to status and returns the
	// number actually updated; unknown ids are skipped, not errors.
	BulkUpdateStatus(ctx context.Context, ids []string, status domain.TaskStatus) (int, error)

	CreateComment(ctx context.Context, comment *domain.Comment) error
	ListComments(ctx context.Context, taskID string) ([]domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	CreateSubtask(ctx context.Context, subtask *domain.Subtask) error
	ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error)
	GetSubtaskByID(ctx context.Context, id string) (*domain.Subtask, error)
	UpdateSubtask(ctx context.Context, subtask *domain.Subtask) error

	CreateTimeEntry(ctx context.Context, entry *domain.TimeEntry) error
	ListTimeEntries(ctx context.Context, taskID string) ([]domain.TimeEntry, error)
}
