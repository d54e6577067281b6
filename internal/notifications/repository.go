package notifications

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Repository defines the interface for notification persistence.
type Repository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, onlyUnread bool, page pagination.Params) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	Delete(ctx context.Context, id string) error
}
