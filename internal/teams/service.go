// Package teams provides HTTP handlers and business logic for teams and
// their memberships.
package teams

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// ActivityRecorder records audit-trail entries. Implementations are
// best-effort and never return an error to the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, activity domain.Activity)
}

// MemberNotifier delivers in-app notifications for membership changes.
type MemberNotifier interface {
	NotifyTeamMemberAdded(ctx context.Context, userID string, team *domain.Team) error
}

// Service provides team business logic.
type Service struct {
	repo     Repository
	activity ActivityRecorder
	notifier MemberNotifier
}

// NewService creates a new team service. The notifier may be nil.
func NewService(repo Repository, activity ActivityRecorder, notifier MemberNotifier) *Service {
	return &Service{repo: repo, activity: activity, notifier: notifier}
}

// CreateInput represents team creation parameters. LeadID is the acting
// principal's id, stamped by the handler.
type CreateInput struct {
	Name        string
	Description string
	LeadID      string
	MemberIDs   []string
}

// Create creates a team led by the acting user.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Team, error) {
	memberIDs := input.MemberIDs
	if memberIDs == nil {
		memberIDs = make([]string, 0)
	}

	team := &domain.Team{
		Name:        input.Name,
		Description: input.Description,
		LeadID:      input.LeadID,
		MemberIDs:   memberIDs,
	}

	if err := s.repo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.record(ctx, input.LeadID, domain.ActivityCreated, team.ID, nil)
	return team, nil
}

// Get returns a team by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Team, error) {
	return s.repo.GetByID(ctx, id)
}

// ListQuery represents team listing parameters.
type ListQuery struct {
	Filter TeamFilter
	Page   pagination.Params
}

// List returns a page of teams matching the filter.
func (s *Service) List(ctx context.Context, query ListQuery) ([]domain.Team, int, error) {
	return s.repo.List(ctx, query.Filter, query.Page)
}

// UpdateInput represents partial team update parameters. Nil fields are
// left unchanged.
type UpdateInput struct {
	ID          string
	Actor       *domain.Principal
	Name        *string
	Description *string
	LeadID      *string
}

// Update applies partial changes to a team.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Team, error) {
	team, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if !canManage(input.Actor, team) {
		return nil, ErrAccessDenied
	}

	if input.Name != nil {
		team.Name = *input.Name
	}
	if input.Description != nil {
		team.Description = *input.Description
	}
	if input.LeadID != nil {
		team.LeadID = *input.LeadID
	}

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}

	s.record(ctx, input.Actor.UserID, domain.ActivityUpdated, team.ID, nil)
	return team, nil
}

// Delete removes a team. Only the lead, a manager, or an admin may
// delete it.
func (s *Service) Delete(ctx context.Context, id string, actor *domain.Principal) error {
	team, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !canManage(actor, team) {
		return ErrAccessDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, actor.UserID, domain.ActivityDeleted, id, map[string]string{"name": team.Name})
	return nil
}

// AddMember adds a user to the team and notifies them.
func (s *Service) AddMember(ctx context.Context, teamID, userID string, actor *domain.Principal) (*domain.Team, error) {
	if err := s.repo.AddMember(ctx, teamID, userID); err != nil {
		return nil, err
	}

	team, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyTeamMemberAdded(ctx, userID, team); err != nil {
			ctxlog.FromContext(ctx).Warn("failed to notify team member", "user_id", userID, "error", err)
		}
	}

	s.record(ctx, actor.UserID, domain.ActivityMemberAdded, teamID, map[string]string{"user_id": userID})
	return team, nil
}

// RemoveMember removes a user from the team.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID string, actor *domain.Principal) (*domain.Team, error) {
	if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
		return nil, err
	}

	team, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor.UserID, domain.ActivityMemberRemoved, teamID, map[string]string{"user_id": userID})
	return team, nil
}

func (s *Service) record(ctx context.Context, actorID string, action domain.ActivityAction, teamID string, metadata map[string]string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.Activity{
		ActorID:    actorID,
		Action:     action,
		EntityKind: "team",
		EntityID:   teamID,
		Metadata:   metadata,
	})
}

// canManage reports whether the actor may modify the team: the lead, any
// manager, or an admin.
func canManage(actor *domain.Principal, team *domain.Team) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() || actor.Role == domain.RoleManager {
		return true
	}
	return team.LeadID == actor.UserID
}
