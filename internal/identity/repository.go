package identity

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// UserFilter represents filter criteria for listing users. All provided
// fields are combined with AND; Search matches name and email
// case-insensitively.
type UserFilter struct {
	Role     *domain.Role
	IsActive *bool
	Search   string
}

// Repository defines the interface for user persistence.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filter UserFilter, page pagination.Params) ([]domain.User, int, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error

	// TouchLastActive stamps last_active_at. Callers treat failures as
	// best-effort: log and continue.
	TouchLastActive(ctx context.Context, id string) error
}
