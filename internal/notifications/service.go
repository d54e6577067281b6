// Package notifications provides in-app notifications: delivery hooks
// called by other modules and the HTTP surface users read them through.
package notifications

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// DefaultListLimit is the page size used when the client does not ask
// for one. Notification feeds page larger than entity lists.
const DefaultListLimit = 50

// Service provides notification business logic.
type Service struct {
	repo Repository
}

// NewService creates a new notification service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListQuery represents notification listing parameters.
type ListQuery struct {
	RecipientID string
	OnlyUnread  bool
	Page        pagination.Params
}

// List returns a page of the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, query ListQuery) ([]domain.Notification, int, error) {
	return s.repo.ListByRecipient(ctx, query.RecipientID, query.OnlyUnread, query.Page)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// MarkRead marks a notification as read. Users may only mark their own.
func (s *Service) MarkRead(ctx context.Context, id string, actor *domain.Principal) (*domain.Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if notification.RecipientID != actor.UserID {
		return nil, ErrAccessDenied
	}

	if !notification.IsRead {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			return nil, fmt.Errorf("mark notification read: %w", err)
		}
		notification.IsRead = true
	}
	return notification, nil
}

// MarkAllRead marks every unread notification of the actor as read and
// returns the number updated.
func (s *Service) MarkAllRead(ctx context.Context, actor *domain.Principal) (int, error) {
	return s.repo.MarkAllRead(ctx, actor.UserID)
}

// Delete removes a notification. Users may only delete their own.
func (s *Service) Delete(ctx context.Context, id string, actor *domain.Principal) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if notification.RecipientID != actor.UserID {
		return ErrAccessDenied
	}

	return s.repo.Delete(ctx, id)
}

// NotifyTaskAssigned notifies a user that a task was assigned to them.
func (s *Service) NotifyTaskAssigned(ctx context.Context, userID string, task *domain.Task) error {
	return s.repo.Create(ctx, &domain.Notification{
		RecipientID: userID,
		Type:        domain.NotificationTaskAssigned,
		Title:       "Task assigned to you",
		Body:        fmt.Sprintf("You were assigned the task %q.", task.Title),
		EntityKind:  "task",
		EntityID:    task.ID,
	})
}

// NotifyTaskStatusChanged notifies a user that a task they are assigned
// to changed status.
func (s *Service) NotifyTaskStatusChanged(ctx context.Context, userID string, task *domain.Task) error {
	return s.repo.Create(ctx, &domain.Notification{
		RecipientID: userID,
		Type:        domain.NotificationTaskStatus,
		Title:       "Task status changed",
		Body:        fmt.Sprintf("The task %q moved to %s.", task.Title, task.Status),
		EntityKind:  "task",
		EntityID:    task.ID,
	})
}

// NotifyProjectMemberAdded notifies a user that they were added to a
// project.
func (s *Service) NotifyProjectMemberAdded(ctx context.Context, userID string, project *domain.Project) error {
	return s.repo.Create(ctx, &domain.Notification{
		RecipientID: userID,
		Type:        domain.NotificationProjectMember,
		Title:       "Added to a project",
		Body:        fmt.Sprintf("You were added to the project %q.", project.Name),
		EntityKind:  "project",
		EntityID:    project.ID,
	})
}

// NotifyTeamMemberAdded notifies a user that they were added to a team.
func (s *Service) NotifyTeamMemberAdded(ctx context.Context, userID string, team *domain.Team) error {
	return s.repo.Create(ctx, &domain.Notification{
		RecipientID: userID,
		Type:        domain.NotificationTeamMemberAdded,
		Title:       "Added to a team",
		Body:        fmt.Sprintf("You were added to the team %q.", team.Name),
		EntityKind:  "team",
		EntityID:    team.ID,
	})
}
