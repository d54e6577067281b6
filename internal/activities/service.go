// Package activities maintains the audit trail of who did what.
package activities

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// DefaultListLimit is the page size used when the client does not ask
// for one.
const DefaultListLimit = 50

// Service provides audit-trail recording and querying.
type Service struct {
	repo Repository
}

// NewService creates a new activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record persists an audit entry. Recording is best-effort: failures
// are logged and never propagated to the caller.
func (s *Service) Record(ctx context.Context, activity domain.Activity) {
	if err := s.repo.Create(ctx, &activity); err != nil {
		ctxlog.FromContext(ctx).Error("failed to record activity",
			"action", activity.Action,
			"entity_kind", activity.EntityKind,
			"entity_id", activity.EntityID,
			"error", err,
		)
	}
}

// ListQuery represents activity listing parameters.
type ListQuery struct {
	Filter ActivityFilter
	Page   pagination.Params
}

// List returns a page of audit entries, newest first.
func (s *Service) List(ctx context.Context, query ListQuery) ([]domain.Activity, int, error) {
	return s.repo.List(ctx, query.Filter, query.Page)
}
