package projects

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

type mockRepository struct {
	projects map[string]*domain.Project
	slugs    map[string]bool

	nextID      int
	createCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		projects: make(map[string]*domain.Project),
		slugs:    make(map[string]bool),
	}
}

func (m *mockRepository) Create(_ context.Context, project *domain.Project) error {
	m.createCalls++
	if m.slugs[project.Slug] {
		return ErrSlugExists
	}
	m.nextID++
	project.ID = fmt.Sprintf("project-%d", m.nextID)
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.slugs[project.Slug] = true
	m.projects[project.ID] = project
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.Project, error) {
	project, ok := m.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	copied := *project
	return &copied, nil
}

func (m *mockRepository) List(_ context.Context, _ ProjectFilter, _ pagination.Params) ([]domain.Project, int, error) {
	items := make([]domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		items = append(items, *p)
	}
	return items, len(items), nil
}

func (m *mockRepository) Update(_ context.Context, project *domain.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return ErrProjectNotFound
	}
	copied := *project
	m.projects[project.ID] = &copied
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockRepository) AddMember(_ context.Context, projectID, userID string) error {
	project, ok := m.projects[projectID]
	if !ok {
		return ErrProjectNotFound
	}
	for _, id := range project.MemberIDs {
		if id == userID {
			return ErrAlreadyMember
		}
	}
	project.MemberIDs = append(project.MemberIDs, userID)
	return nil
}

func (m *mockRepository) RemoveMember(_ context.Context, projectID, userID string) error {
	project, ok := m.projects[projectID]
	if !ok {
		return ErrProjectNotFound
	}
	for i, id := range project.MemberIDs {
		if id == userID {
			project.MemberIDs = append(project.MemberIDs[:i], project.MemberIDs[i+1:]...)
			return nil
		}
	}
	return ErrMemberNotFound
}

type mockActivityRecorder struct {
	recorded []domain.Activity
}

func (m *mockActivityRecorder) Record(_ context.Context, activity domain.Activity) {
	m.recorded = append(m.recorded, activity)
}

type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) NotifyProjectMemberAdded(_ context.Context, userID string, _ *domain.Project) error {
	m.notified = append(m.notified, userID)
	return nil
}

type serviceFixture struct {
	repo     *mockRepository
	activity *mockActivityRecorder
	notifier *mockNotifier
	service  *Service
}

func newServiceFixture() *serviceFixture {
	repo := newMockRepository()
	activity := &mockActivityRecorder{}
	notifier := &mockNotifier{}
	return &serviceFixture{
		repo:     repo,
		activity: activity,
		notifier: notifier,
		service:  NewService(repo, activity, notifier),
	}
}

func strPtr(s string) *string { return &s }

func memberPrincipal(userID string) *domain.Principal {
	return &domain.Principal{UserID: userID, Role: domain.RoleMember}
}

func TestService_Create(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	project, err := f.service.Create(context.Background(), CreateInput{
		Name:    "Mobile App Redesign",
		OwnerID: "user-1",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "mobile-app-redesign", project.Slug)
	assert.Equal(t, domain.ProjectStatusActive, project.Status)
	assert.NotNil(t, project.MemberIDs)
	require.Len(t, f.activity.recorded, 1)
	assert.Equal(t, "project", f.activity.recorded[0].EntityKind)
	assert.Equal(t, domain.ActivityCreated, f.activity.recorded[0].Action)
}

func TestService_Create_SlugCollisionGetsSuffix(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	first, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
	require.NoError(t, err)

	// Act
	second, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-2"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "mobile-app", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Regexp(t, `^mobile-app-[0-9a-f]{8}$`, second.Slug)
	assert.Equal(t, 3, f.repo.createCalls)
}

func TestService_Update_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		actor   *domain.Principal
		wantErr error
	}{
		{"owner may update", memberPrincipal("user-1"), nil},
		{"manager may update", &domain.Principal{UserID: "user-9", Role: domain.RoleManager}, nil},
		{"admin may update", &domain.Principal{UserID: "user-9", Role: domain.RoleAdmin}, nil},
		{"other member denied", memberPrincipal("user-9"), ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newServiceFixture()
			project, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
			require.NoError(t, err)

			// Act
			updated, err := f.service.Update(context.Background(), UpdateInput{
				ID:    project.ID,
				Actor: tt.actor,
				Name:  strPtr("Mobile App v2"),
			})

			// Assert
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Mobile App v2", updated.Name)
		})
	}
}

func TestService_Update_InvalidStatus(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	project, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
	require.NoError(t, err)

	// Act
	status := domain.ProjectStatus("paused")
	_, err = f.service.Update(context.Background(), UpdateInput{
		ID:     project.ID,
		Actor:  memberPrincipal("user-1"),
		Status: &status,
	})

	// Assert
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Delete_OtherMemberDenied(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	project, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
	require.NoError(t, err)

	// Act
	err = f.service.Delete(context.Background(), project.ID, memberPrincipal("user-9"))

	// Assert
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, getErr := f.service.Get(context.Background(), project.ID)
	assert.NoError(t, getErr)
}

func TestService_AddMember_NotifiesAndRecords(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	project, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
	require.NoError(t, err)

	// Act
	updated, err := f.service.AddMember(context.Background(), project.ID, "user-2", memberPrincipal("user-1"))

	// Assert
	require.NoError(t, err)
	assert.Contains(t, updated.MemberIDs, "user-2")
	assert.Equal(t, []string{"user-2"}, f.notifier.notified)
	require.Len(t, f.activity.recorded, 2)
	last := f.activity.recorded[1]
	assert.Equal(t, domain.ActivityMemberAdded, last.Action)
	assert.Equal(t, map[string]string{"user_id": "user-2"}, last.Metadata)
}

func TestService_AddMember_Duplicate(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	project, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
	require.NoError(t, err)
	_, err = f.service.AddMember(context.Background(), project.ID, "user-2", memberPrincipal("user-1"))
	require.NoError(t, err)

	// Act
	_, err = f.service.AddMember(context.Background(), project.ID, "user-2", memberPrincipal("user-1"))

	// Assert
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestService_RemoveMember(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	project, err := f.service.Create(context.Background(), CreateInput{
		Name:      "Mobile App",
		OwnerID:   "user-1",
		MemberIDs: []string{"user-2"},
	})
	require.NoError(t, err)

	// Act
	updated, err := f.service.RemoveMember(context.Background(), project.ID, "user-2", memberPrincipal("user-1"))

	// Assert
	require.NoError(t, err)
	assert.NotContains(t, updated.MemberIDs, "user-2")

	_, err = f.service.RemoveMember(context.Background(), project.ID, "user-2", memberPrincipal("user-1"))
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestService_ProjectExists(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	project, err := f.service.Create(context.Background(), CreateInput{Name: "Mobile App", OwnerID: "user-1"})
	require.NoError(t, err)

	// Act / Assert
	exists, err := f.service.ProjectExists(context.Background(), project.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.service.ProjectExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}
