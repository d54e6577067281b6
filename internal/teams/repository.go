package teams

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// TeamFilter represents filter criteria for listing teams.
type TeamFilter struct {
	LeadID   *string
	MemberID *string
	Search   string
}

// Repository defines the interface for team persistence.
type Repository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context, filter TeamFilter, page pagination.Params) ([]domain.Team, int, error)
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, teamID, userID string) error
	RemoveMember(ctx context.Context, teamID, userID string) error
}
