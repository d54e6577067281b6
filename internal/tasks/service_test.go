package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

type mockRepository struct {
	tasks    map[string]*domain.Task
	comments map[string]*domain.Comment
	subtasks map[string]*domain.Subtask
	entries  []*domain.TimeEntry

	nextID      int
	bulkIDs     []string
	bulkStatus  domain.TaskStatus
	deletedIDs  []string
	updateCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		tasks:    make(map[string]*domain.Task),
		comments: make(map[string]*domain.Comment),
		subtasks: make(map[string]*domain.Subtask),
	}
}

func (m *mockRepository) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *mockRepository) Create(_ context.Context, task *domain.Task) error {
	task.ID = m.id()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	m.tasks[task.ID] = task
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *mockRepository) List(_ context.Context, _ TaskFilter, _ pagination.Params) ([]domain.Task, int, error) {
	items := make([]domain.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		items = append(items, *task)
	}
	return items, len(items), nil
}

func (m *mockRepository) ListByProject(_ context.Context, projectID string) ([]domain.Task, error) {
	var items []domain.Task
	for _, task := range m.tasks {
		if task.ProjectID == projectID {
			items = append(items, *task)
		}
	}
	return items, nil
}

func (m *mockRepository) Update(_ context.Context, task *domain.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}
	m.updateCalls++
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(m.tasks, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockRepository) BulkUpdateStatus(_ context.Context, ids []string, status domain.TaskStatus) (int, error) {
	m.bulkIDs = ids
	m.bulkStatus = status
	updated := 0
	for _, id := range ids {
		if task, ok := m.tasks[id]; ok {
			task.Status = status
			updated++
		}
	}
	return updated, nil
}

func (m *mockRepository) CreateComment(_ context.Context, comment *domain.Comment) error {
	comment.ID = m.id()
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockRepository) ListComments(_ context.Context, taskID string) ([]domain.Comment, error) {
	var items []domain.Comment
	for _, c := range m.comments {
		if c.TaskID == taskID {
			items = append(items, *c)
		}
	}
	return items, nil
}

func (m *mockRepository) GetCommentByID(_ context.Context, id string) (*domain.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) DeleteComment(_ context.Context, id string) error {
	if _, ok := m.comments[id]; !ok {
		return ErrCommentNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *mockRepository) CreateSubtask(_ context.Context, subtask *domain.Subtask) error {
	subtask.ID = m.id()
	m.subtasks[subtask.ID] = subtask
	return nil
}

func (m *mockRepository) ListSubtasks(_ context.Context, taskID string) ([]domain.Subtask, error) {
	var items []domain.Subtask
	for _, st := range m.subtasks {
		if st.TaskID == taskID {
			items = append(items, *st)
		}
	}
	return items, nil
}

func (m *mockRepository) GetSubtaskByID(_ context.Context, id string) (*domain.Subtask, error) {
	st, ok := m.subtasks[id]
	if !ok {
		return nil, ErrSubtaskNotFound
	}
	copied := *st
	return &copied, nil
}

func (m *mockRepository) UpdateSubtask(_ context.Context, subtask *domain.Subtask) error {
	if _, ok := m.subtasks[subtask.ID]; !ok {
		return ErrSubtaskNotFound
	}
	copied := *subtask
	m.subtasks[subtask.ID] = &copied
	return nil
}

func (m *mockRepository) CreateTimeEntry(_ context.Context, entry *domain.TimeEntry) error {
	entry.ID = m.id()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRepository) ListTimeEntries(_ context.Context, taskID string) ([]domain.TimeEntry, error) {
	var items []domain.TimeEntry
	for _, e := range m.entries {
		if e.TaskID == taskID {
			items = append(items, *e)
		}
	}
	return items, nil
}

type mockProjectChecker struct {
	existing map[string]bool
}

func (m *mockProjectChecker) ProjectExists(_ context.Context, id string) (bool, error) {
	return m.existing[id], nil
}

type mockActivityRecorder struct {
	recorded []domain.Activity
}

func (m *mockActivityRecorder) Record(_ context.Context, activity domain.Activity) {
	m.recorded = append(m.recorded, activity)
}

type mockNotifier struct {
	assigned      []string
	statusChanged []string
	err           error
}

func (m *mockNotifier) NotifyTaskAssigned(_ context.Context, userID string, _ *domain.Task) error {
	m.assigned = append(m.assigned, userID)
	return m.err
}

func (m *mockNotifier) NotifyTaskStatusChanged(_ context.Context, userID string, _ *domain.Task) error {
	m.statusChanged = append(m.statusChanged, userID)
	return m.err
}

type serviceFixture struct {
	repo     *mockRepository
	projects *mockProjectChecker
	activity *mockActivityRecorder
	notifier *mockNotifier
	service  *Service
}

func newServiceFixture() *serviceFixture {
	repo := newMockRepository()
	projects := &mockProjectChecker{existing: map[string]bool{"project-1": true}}
	activity := &mockActivityRecorder{}
	notifier := &mockNotifier{}
	return &serviceFixture{
		repo:     repo,
		projects: projects,
		activity: activity,
		notifier: notifier,
		service:  NewService(repo, projects, activity, notifier),
	}
}

func (f *serviceFixture) seedTask(t *testing.T, task *domain.Task) *domain.Task {
	t.Helper()
	require.NoError(t, f.repo.Create(context.Background(), task))
	return task
}

func strPtr(s string) *string { return &s }

func memberPrincipal(userID string) *domain.Principal {
	return &domain.Principal{UserID: userID, Role: domain.RoleMember}
}

func TestService_Create_DefaultsToMediumPriority(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	task, err := f.service.Create(context.Background(), CreateInput{
		Title:      "Fix login page",
		ProjectID:  "project-1",
		ReporterID: "user-1",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
	assert.Equal(t, domain.TaskStatusTodo, task.Status)
	assert.NotNil(t, task.Tags)
	assert.Empty(t, task.Tags)
}

func TestService_Create_NotifiesAssignee(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.Create(context.Background(), CreateInput{
		Title:      "Fix login page",
		ProjectID:  "project-1",
		ReporterID: "user-1",
		AssigneeID: strPtr("user-2"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, f.notifier.assigned)
}

func TestService_Create_RecordsActivity(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	task, err := f.service.Create(context.Background(), CreateInput{
		Title:      "Fix login page",
		ProjectID:  "project-1",
		ReporterID: "user-1",
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, f.activity.recorded, 1)
	assert.Equal(t, domain.ActivityCreated, f.activity.recorded[0].Action)
	assert.Equal(t, "task", f.activity.recorded[0].EntityKind)
	assert.Equal(t, task.ID, f.activity.recorded[0].EntityID)
	assert.Equal(t, "user-1", f.activity.recorded[0].ActorID)
}

func TestService_Create_UnknownProject(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.Create(context.Background(), CreateInput{
		Title:      "Fix login page",
		ProjectID:  "project-missing",
		ReporterID: "user-1",
	})

	// Assert
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_Create_InvalidPriority(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.Create(context.Background(), CreateInput{
		Title:      "Fix login page",
		ProjectID:  "project-1",
		ReporterID: "user-1",
		Priority:   domain.TaskPriority("blocker"),
	})

	// Assert
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestService_Update_NotifiesNewAssigneeOnly(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	task := f.seedTask(t, &domain.Task{
		Title:      "Fix login page",
		Status:     domain.TaskStatusTodo,
		Priority:   domain.TaskPriorityMedium,
		ProjectID:  "project-1",
		ReporterID: "user-1",
		AssigneeID: strPtr("user-2"),
	})

	// Act: unrelated change keeps the current assignee
	_, err := f.service.Update(context.Background(), UpdateInput{
		ID:    task.ID,
		Actor: memberPrincipal("user-1"),
		Title: strPtr("Fix login page for SSO"),
	})
	require.NoError(t, err)

	// Act: handing the task to someone else notifies them
	_, err = f.service.Update(context.Background(), UpdateInput{
		ID:         task.ID,
		Actor:      memberPrincipal("user-1"),
		AssigneeID: strPtr("user-3"),
	})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"user-3"}, f.notifier.assigned)
}

func TestService_Update_NotFound(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.Update(context.Background(), UpdateInput{
		ID:    "missing",
		Actor: memberPrincipal("user-1"),
	})

	// Assert
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestService_UpdateStatus(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	task := f.seedTask(t, &domain.Task{
		Title:      "Fix login page",
		Status:     domain.TaskStatusTodo,
		Priority:   domain.TaskPriorityMedium,
		ProjectID:  "project-1",
		ReporterID: "user-1",
		AssigneeID: strPtr("user-2"),
	})

	// Act
	updated, err := f.service.UpdateStatus(context.Background(), task.ID, domain.TaskStatusInProgress, memberPrincipal("user-1"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
	require.Len(t, f.activity.recorded, 1)
	assert.Equal(t, map[string]string{"from": "todo", "to": "in_progress"}, f.activity.recorded[0].Metadata)
	assert.Equal(t, []string{"user-2"}, f.notifier.statusChanged)
}

func TestService_UpdateStatus_SameStatusIsNoOp(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	task := f.seedTask(t, &domain.Task{
		Title:      "Fix login page",
		Status:     domain.TaskStatusTodo,
		Priority:   domain.TaskPriorityMedium,
		ProjectID:  "project-1",
		ReporterID: "user-1",
	})

	// Act
	_, err := f.service.UpdateStatus(context.Background(), task.ID, domain.TaskStatusTodo, memberPrincipal("user-1"))

	// Assert
	require.NoError(t, err)
	assert.Zero(t, f.repo.updateCalls)
	assert.Empty(t, f.activity.recorded)
}

func TestService_UpdateStatus_ActorIsAssignee_NoNotification(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	task := f.seedTask(t, &domain.Task{
		Title:      "Fix login page",
		Status:     domain.TaskStatusTodo,
		Priority:   domain.TaskPriorityMedium,
		ProjectID:  "project-1",
		ReporterID: "user-1",
		AssigneeID: strPtr("user-2"),
	})

	// Act
	_, err := f.service.UpdateStatus(context.Background(), task.ID, domain.TaskStatusDone, memberPrincipal("user-2"))

	// Assert
	require.NoError(t, err)
	assert.Empty(t, f.notifier.statusChanged)
}

func TestService_UpdateStatus_InvalidStatus(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.UpdateStatus(context.Background(), "any", domain.TaskStatus("archived"), memberPrincipal("user-1"))

	// Assert
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Delete_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		actor   *domain.Principal
		wantErr error
	}{
		{"reporter may delete", memberPrincipal("user-1"), nil},
		{"manager may delete", &domain.Principal{UserID: "user-9", Role: domain.RoleManager}, nil},
		{"admin may delete", &domain.Principal{UserID: "user-9", Role: domain.RoleAdmin}, nil},
		{"other member denied", memberPrincipal("user-9"), ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newServiceFixture()
			task := f.seedTask(t, &domain.Task{
				Title:      "Fix login page",
				Status:     domain.TaskStatusTodo,
				Priority:   domain.TaskPriorityMedium,
				ProjectID:  "project-1",
				ReporterID: "user-1",
			})

			// Act
			err := f.service.Delete(context.Background(), task.ID, tt.actor)

			// Assert
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.repo.deletedIDs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{task.ID}, f.repo.deletedIDs)
		})
	}
}

func TestService_Kanban_IncludesEmptyColumns(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	f.seedTask(t, &domain.Task{
		Title:      "Fix login page",
		Status:     domain.TaskStatusInProgress,
		Priority:   domain.TaskPriorityMedium,
		ProjectID:  "project-1",
		ReporterID: "user-1",
	})

	// Act
	board, err := f.service.Kanban(context.Background(), "project-1")

	// Assert
	require.NoError(t, err)
	require.Len(t, board, len(domain.TaskStatuses))
	for _, status := range domain.TaskStatuses {
		column, ok := board[status]
		assert.True(t, ok, "missing column %q", status)
		assert.NotNil(t, column)
	}
	assert.Len(t, board[domain.TaskStatusInProgress], 1)
	assert.Empty(t, board[domain.TaskStatusDone])
}

func TestService_Kanban_UnknownProject(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.Kanban(context.Background(), "project-missing")

	// Assert
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestService_BulkUpdateStatus(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	a := f.seedTask(t, &domain.Task{Title: "a", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityMedium, ProjectID: "project-1", ReporterID: "user-1"})
	b := f.seedTask(t, &domain.Task{Title: "b", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityMedium, ProjectID: "project-1", ReporterID: "user-1"})

	// Act: one unknown id is skipped, not an error
	updated, err := f.service.BulkUpdateStatus(context.Background(), BulkUpdateStatusInput{
		IDs:     []string{a.ID, b.ID, "missing"},
		Status:  domain.TaskStatusDone,
		ActorID: "user-1",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	require.Len(t, f.activity.recorded, 1)
	assert.Equal(t, map[string]string{"to": "done", "count": "2"}, f.activity.recorded[0].Metadata)
}

func TestService_BulkUpdateStatus_Validation(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.BulkUpdateStatus(context.Background(), BulkUpdateStatusInput{Status: domain.TaskStatusDone})
	assert.ErrorIs(t, err, ErrNoTaskIDs)

	_, err = f.service.BulkUpdateStatus(context.Background(), BulkUpdateStatusInput{
		IDs:    []string{"a"},
		Status: domain.TaskStatus("archived"),
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_AddComment_UnknownTask(t *testing.T) {
	// Arrange
	f := newServiceFixture()

	// Act
	_, err := f.service.AddComment(context.Background(), AddCommentInput{
		TaskID:   "missing",
		AuthorID: "user-1",
		Body:     "looks good",
	})

	// Assert
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestService_DeleteComment_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		actor   *domain.Principal
		wantErr error
	}{
		{"author may delete", memberPrincipal("user-2"), nil},
		{"admin may delete", &domain.Principal{UserID: "user-9", Role: domain.RoleAdmin}, nil},
		{"manager is not exempt", &domain.Principal{UserID: "user-9", Role: domain.RoleManager}, ErrNotCommentAuthor},
		{"other member denied", memberPrincipal("user-9"), ErrNotCommentAuthor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newServiceFixture()
			task := f.seedTask(t, &domain.Task{Title: "a", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityMedium, ProjectID: "project-1", ReporterID: "user-1"})
			comment, err := f.service.AddComment(context.Background(), AddCommentInput{
				TaskID:   task.ID,
				AuthorID: "user-2",
				Body:     "looks good",
			})
			require.NoError(t, err)

			// Act
			err = f.service.DeleteComment(context.Background(), comment.ID, tt.actor)

			// Assert
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_UpdateSubtask(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	task := f.seedTask(t, &domain.Task{Title: "a", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityMedium, ProjectID: "project-1", ReporterID: "user-1"})
	subtask, err := f.service.AddSubtask(context.Background(), AddSubtaskInput{TaskID: task.ID, Title: "write tests"})
	require.NoError(t, err)

	// Act
	done := true
	updated, err := f.service.UpdateSubtask(context.Background(), UpdateSubtaskInput{
		SubtaskID: subtask.ID,
		IsDone:    &done,
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, updated.IsDone)
	assert.Equal(t, "write tests", updated.Title)
}

func TestService_LogTime(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	task := f.seedTask(t, &domain.Task{Title: "a", Status: domain.TaskStatusTodo, Priority: domain.TaskPriorityMedium, ProjectID: "project-1", ReporterID: "user-1"})

	// Act
	entry, err := f.service.LogTime(context.Background(), LogTimeInput{
		TaskID:  task.ID,
		UserID:  "user-1",
		Minutes: 90,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 90, entry.Minutes)
	assert.False(t, entry.LoggedAt.IsZero())
}

func TestService_LogTime_RejectsNonPositiveMinutes(t *testing.T) {
	f := newServiceFixture()

	for _, minutes := range []int{0, -15} {
		_, err := f.service.LogTime(context.Background(), LogTimeInput{
			TaskID:  "any",
			UserID:  "user-1",
			Minutes: minutes,
		})
		assert.ErrorIs(t, err, ErrInvalidTimeSpent)
	}
}

func TestService_NotifierFailureDoesNotFailCreate(t *testing.T) {
	// Arrange
	f := newServiceFixture()
	f.notifier.err = errors.New("notification store down")

	// Act
	task, err := f.service.Create(context.Background(), CreateInput{
		Title:      "Fix login page",
		ProjectID:  "project-1",
		ReporterID: "user-1",
		AssigneeID: strPtr("user-2"),
	})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
}
