package activities

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// ActivityFilter represents filter criteria for listing activities.
type ActivityFilter struct {
	ActorID    *string
	EntityKind *string
	EntityID   *string
	Action     *domain.ActivityAction
}

// Repository defines the interface for activity persistence.
type Repository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	List(ctx context.Context, filter ActivityFilter, page pagination.Params) ([]domain.Activity, int, error)
}
