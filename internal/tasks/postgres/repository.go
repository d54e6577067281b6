// Package postgres provides the PostgreSQL implementation of the tasks
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/tasks"
	"github.com/taskhub/taskhub/pkg/pagination"
)

const foreignKeyViolation = "23503"

const taskColumns = `id, title, description, status, priority, project_id, assignee_id, reporter_id, tags, due_date, created_at, updated_at`

// Repository implements tasks.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL tasks repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.ProjectID,
		&task.AssigneeID,
		&task.ReporterID,
		&task.Tags,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (title, description, status, priority, project_id, assignee_id, reporter_id, tags, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.ProjectID,
		task.AssigneeID,
		task.ReporterID,
		task.Tags,
		task.DueDate,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return tasks.ErrProjectNotFound
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tasks.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return task, nil
}

// List retrieves a page of tasks matching the filter.
func (r *Repository) List(ctx context.Context, filter tasks.TaskFilter, page pagination.Params) ([]domain.Task, int, error) {
	conditions := make([]string, 0, 7)
	args := make([]interface{}, 0, 9)

	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", len(args)))
	}
	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)))
	}
	if filter.Tag != nil {
		args = append(args, *filter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`, taskColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items, err := collectTasks(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByProject retrieves all tasks in a project, oldest first.
func (r *Repository) ListByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Update updates an existing task.
func (r *Repository) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, assignee_id = $6, tags = $7, due_date = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.AssigneeID,
		task.Tags,
		task.DueDate,
	).Scan(&task.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tasks.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete deletes a task. Comments, subtasks, and time entries are
// removed via cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tasks.ErrTaskNotFound
	}
	return nil
}

// BulkUpdateStatus moves all listed tasks to status. Unknown ids are
// simply not matched by the query.
func (r *Repository) BulkUpdateStatus(ctx context.Context, ids []string, status domain.TaskStatus) (int, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = ANY($2)`,
		status, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk update task status: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// CreateComment inserts a new comment.
func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (task_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		comment.TaskID,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return tasks.ErrTaskNotFound
		}
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListComments retrieves all comments on a task, oldest first.
func (r *Repository) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	query := `
		SELECT id, task_id, author_id, body, created_at, updated_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Comment, 0)
	for rows.Next() {
		var comment domain.Comment
		err := rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// GetCommentByID retrieves a comment by id.
func (r *Repository) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `
		SELECT id, task_id, author_id, body, created_at, updated_at
		FROM comments
		WHERE id = $1
	`
	var comment domain.Comment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tasks.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment by id: %w", err)
	}
	return &comment, nil
}

// DeleteComment deletes a comment.
func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return tasks.ErrCommentNotFound
	}
	return nil
}

// CreateSubtask inserts a new subtask.
func (r *Repository) CreateSubtask(ctx context.Context, subtask *domain.Subtask) error {
	query := `
		INSERT INTO subtasks (task_id, title)
		VALUES ($1, $2)
		RETURNING id, is_done, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		subtask.TaskID,
		subtask.Title,
	).Scan(&subtask.ID, &subtask.IsDone, &subtask.CreatedAt, &subtask.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return tasks.ErrTaskNotFound
		}
		return fmt.Errorf("create subtask: %w", err)
	}
	return nil
}

// ListSubtasks retrieves all subtasks of a task, oldest first.
func (r *Repository) ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error) {
	query := `
		SELECT id, task_id, title, is_done, created_at, updated_at
		FROM subtasks
		WHERE task_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Subtask, 0)
	for rows.Next() {
		var subtask domain.Subtask
		err := rows.Scan(
			&subtask.ID,
			&subtask.TaskID,
			&subtask.Title,
			&subtask.IsDone,
			&subtask.CreatedAt,
			&subtask.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		items = append(items, subtask)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtasks: %w", err)
	}
	return items, nil
}

// GetSubtaskByID retrieves a subtask by id.
func (r *Repository) GetSubtaskByID(ctx context.Context, id string) (*domain.Subtask, error) {
	query := `
		SELECT id, task_id, title, is_done, created_at, updated_at
		FROM subtasks
		WHERE id = $1
	`
	var subtask domain.Subtask
	err := r.db.QueryRow(ctx, query, id).Scan(
		&subtask.ID,
		&subtask.TaskID,
		&subtask.Title,
		&subtask.IsDone,
		&subtask.CreatedAt,
		&subtask.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tasks.ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("get subtask by id: %w", err)
	}
	return &subtask, nil
}

// UpdateSubtask updates a subtask's title and done flag.
func (r *Repository) UpdateSubtask(ctx context.Context, subtask *domain.Subtask) error {
	query := `
		UPDATE subtasks
		SET title = $2, is_done = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		subtask.ID,
		subtask.Title,
		subtask.IsDone,
	).Scan(&subtask.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tasks.ErrSubtaskNotFound
		}
		return fmt.Errorf("update subtask: %w", err)
	}
	return nil
}

// CreateTimeEntry inserts a new time entry.
func (r *Repository) CreateTimeEntry(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		INSERT INTO time_entries (task_id, user_id, minutes, description, logged_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		entry.TaskID,
		entry.UserID,
		entry.Minutes,
		entry.Description,
		entry.LoggedAt,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return tasks.ErrTaskNotFound
		}
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

// ListTimeEntries retrieves all time entries of a task, oldest first.
func (r *Repository) ListTimeEntries(ctx context.Context, taskID string) ([]domain.TimeEntry, error) {
	query := `
		SELECT id, task_id, user_id, minutes, description, logged_at, created_at
		FROM time_entries
		WHERE task_id = $1
		ORDER BY logged_at, id
	`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	items := make([]domain.TimeEntry, 0)
	for rows.Next() {
		var entry domain.TimeEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.UserID,
			&entry.Minutes,
			&entry.Description,
			&entry.LoggedAt,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		items = append(items, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time entries: %w", err)
	}
	return items, nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	items := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}
