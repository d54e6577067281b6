package notifications

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

type mockRepository struct {
	notifications map[string]*domain.Notification
	nextID        int
	markReadCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{notifications: make(map[string]*domain.Notification)}
}

func (m *mockRepository) Create(_ context.Context, notification *domain.Notification) error {
	m.nextID++
	notification.ID = fmt.Sprintf("notification-%d", m.nextID)
	m.notifications[notification.ID] = notification
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	copied := *n
	return &copied, nil
}

func (m *mockRepository) ListByRecipient(_ context.Context, recipientID string, onlyUnread bool, _ pagination.Params) ([]domain.Notification, int, error) {
	var items []domain.Notification
	for _, n := range m.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if onlyUnread && n.IsRead {
			continue
		}
		items = append(items, *n)
	}
	return items, len(items), nil
}

func (m *mockRepository) CountUnread(_ context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) MarkRead(_ context.Context, id string) error {
	n, ok := m.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	m.markReadCalls++
	n.IsRead = true
	return nil
}

func (m *mockRepository) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	updated := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(m.notifications, id)
	return nil
}

func memberPrincipal(userID string) *domain.Principal {
	return &domain.Principal{UserID: userID, Role: domain.RoleMember}
}

func seedNotification(t *testing.T, repo *mockRepository, recipientID string) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		RecipientID: recipientID,
		Type:        domain.NotificationTaskAssigned,
		Title:       "Task assigned to you",
		Body:        `You were assigned the task "Fix login page".`,
		EntityKind:  "task",
		EntityID:    "task-1",
	}
	require.NoError(t, repo.Create(context.Background(), n))
	return n
}

func TestService_NotifyTaskAssigned(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)

	// Act
	err := service.NotifyTaskAssigned(context.Background(), "user-1", &domain.Task{
		ID:    "task-1",
		Title: "Fix login page",
	})

	// Assert
	require.NoError(t, err)
	items, total, err := service.List(context.Background(), ListQuery{RecipientID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.NotificationTaskAssigned, items[0].Type)
	assert.Contains(t, items[0].Body, "Fix login page")
	assert.False(t, items[0].IsRead)
}

func TestService_MarkRead(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)
	n := seedNotification(t, repo, "user-1")

	// Act
	updated, err := service.MarkRead(context.Background(), n.ID, memberPrincipal("user-1"))

	// Assert
	require.NoError(t, err)
	assert.True(t, updated.IsRead)

	count, err := service.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_MarkRead_Idempotent(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)
	n := seedNotification(t, repo, "user-1")
	_, err := service.MarkRead(context.Background(), n.ID, memberPrincipal("user-1"))
	require.NoError(t, err)

	// Act
	updated, err := service.MarkRead(context.Background(), n.ID, memberPrincipal("user-1"))

	// Assert: already-read notifications skip the store write
	require.NoError(t, err)
	assert.True(t, updated.IsRead)
	assert.Equal(t, 1, repo.markReadCalls)
}

func TestService_MarkRead_OtherUserDenied(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)
	n := seedNotification(t, repo, "user-1")

	// Act
	_, err := service.MarkRead(context.Background(), n.ID, memberPrincipal("user-2"))

	// Assert
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestService_MarkAllRead(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)
	seedNotification(t, repo, "user-1")
	seedNotification(t, repo, "user-1")
	seedNotification(t, repo, "user-2")

	// Act
	updated, err := service.MarkAllRead(context.Background(), memberPrincipal("user-1"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	count, err := service.UnreadCount(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_Delete_OtherUserDenied(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)
	n := seedNotification(t, repo, "user-1")

	// Act
	err := service.Delete(context.Background(), n.ID, memberPrincipal("user-2"))

	// Assert
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, getErr := repo.GetByID(context.Background(), n.ID)
	assert.NoError(t, getErr)
}

func TestService_List_OnlyUnread(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo)
	read := seedNotification(t, repo, "user-1")
	seedNotification(t, repo, "user-1")
	_, err := service.MarkRead(context.Background(), read.ID, memberPrincipal("user-1"))
	require.NoError(t, err)

	// Act
	items, total, err := service.List(context.Background(), ListQuery{
		RecipientID: "user-1",
		OnlyUnread:  true,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.NotEqual(t, read.ID, items[0].ID)
}
