package projects

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// ProjectFilter represents filter criteria for listing projects. All
// provided fields are combined with AND; Search matches name and
// description case-insensitively.
type ProjectFilter struct {
	Status   *domain.ProjectStatus
	OwnerID  *string
	MemberID *string
	Search   string
}

// Repository defines the interface for project persistence.
type Repository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter, page pagination.Params) ([]domain.Project, int, error)
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, projectID, userID string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
}
