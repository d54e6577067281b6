// Package projects provides HTTP handlers and business logic for
// managing projects and their memberships.
package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/pkg/pagination"
	"github.com/taskhub/taskhub/pkg/slug"
)

// ActivityRecorder records audit-trail entries. Implementations are
// best-effort and never return an error to the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, activity domain.Activity)
}

// MemberNotifier delivers in-app notifications for membership changes.
type MemberNotifier interface {
	NotifyProjectMemberAdded(ctx context.Context, userID string, project *domain.Project) error
}

// Service provides project business logic.
type Service struct {
	repo     Repository
	activity ActivityRecorder
	notifier MemberNotifier
}

// NewService creates a new project service. The notifier may be nil.
func NewService(repo Repository, activity ActivityRecorder, notifier MemberNotifier) *Service {
	return &Service{repo: repo, activity: activity, notifier: notifier}
}

// CreateInput represents project creation parameters. OwnerID is the
// acting principal's id, stamped by the handler.
type CreateInput struct {
	Name        string
	Description string
	OwnerID     string
	MemberIDs   []string
	DueDate     *time.Time
}

// Create creates a project owned by the acting user. The slug is derived
// from the name; on collision a short random suffix is appended.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Project, error) {
	memberIDs := input.MemberIDs
	if memberIDs == nil {
		memberIDs = make([]string, 0)
	}

	project := &domain.Project{
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: input.Description,
		Status:      domain.ProjectStatusActive,
		OwnerID:     input.OwnerID,
		MemberIDs:   memberIDs,
		DueDate:     input.DueDate,
	}

	err := s.repo.Create(ctx, project)
	if errors.Is(err, ErrSlugExists) {
		project.Slug = fmt.Sprintf("%s-%s", project.Slug, uuid.NewString()[:8])
		err = s.repo.Create(ctx, project)
	}
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.record(ctx, input.OwnerID, domain.ActivityCreated, project.ID, nil)
	return project, nil
}

// Get returns a project by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// ProjectExists reports whether a project with the given id exists.
func (s *Service) ProjectExists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListQuery represents project listing parameters.
type ListQuery struct {
	Filter ProjectFilter
	Page   pagination.Params
}

// List returns a page of projects matching the filter.
func (s *Service) List(ctx context.Context, query ListQuery) ([]domain.Project, int, error) {
	return s.repo.List(ctx, query.Filter, query.Page)
}

// UpdateInput represents partial project update parameters. Nil fields
// are left unchanged.
type UpdateInput struct {
	ID          string
	Actor       *domain.Principal
	Name        *string
	Description *string
	Status      *domain.ProjectStatus
	DueDate     *time.Time
}

// Update applies partial changes. Only the owner, a manager, or an admin
// may update a project.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Project, error) {
	project, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if !canManage(input.Actor, project) {
		return nil, ErrAccessDenied
	}

	if input.Name != nil {
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		project.Status = *input.Status
	}
	if input.DueDate != nil {
		project.DueDate = input.DueDate
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.record(ctx, input.Actor.UserID, domain.ActivityUpdated, project.ID, nil)
	return project, nil
}

// Delete removes a project. Only the owner, a manager, or an admin may
// delete it.
func (s *Service) Delete(ctx context.Context, id string, actor *domain.Principal) error {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !canManage(actor, project) {
		return ErrAccessDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, actor.UserID, domain.ActivityDeleted, id, map[string]string{"name": project.Name})
	return nil
}

// AddMember adds a user to the project member list and notifies them.
func (s *Service) AddMember(ctx context.Context, projectID, userID string, actor *domain.Principal) (*domain.Project, error) {
	if err := s.repo.AddMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyProjectMemberAdded(ctx, userID, project); err != nil {
			ctxlog.FromContext(ctx).Warn("failed to notify project member", "user_id", userID, "error", err)
		}
	}

	s.record(ctx, actor.UserID, domain.ActivityMemberAdded, projectID, map[string]string{"user_id": userID})
	return project, nil
}

// RemoveMember removes a user from the project member list.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID string, actor *domain.Principal) (*domain.Project, error) {
	if err := s.repo.RemoveMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor.UserID, domain.ActivityMemberRemoved, projectID, map[string]string{"user_id": userID})
	return project, nil
}

func (s *Service) record(ctx context.Context, actorID string, action domain.ActivityAction, projectID string, metadata map[string]string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.Activity{
		ActorID:    actorID,
		Action:     action,
		EntityKind: "project",
		EntityID:   projectID,
		Metadata:   metadata,
	})
}

// canManage reports whether the actor may modify the project: the owner,
// any manager, or an admin.
func canManage(actor *domain.Principal, project *domain.Project) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() || actor.Role == domain.RoleManager {
		return true
	}
	return project.OwnerID == actor.UserID
}
