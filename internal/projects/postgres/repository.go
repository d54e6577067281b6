// Package postgres provides the PostgreSQL implementation of the
// projects repository.
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
	"github.com/taskhub/taskhub/internal/projects"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Postgres error codes surfaced as domain conditions.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository implements projects.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL projects repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new project and its initial member list.
func (r *Repository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (name, slug, description, status, owner_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		project.Name,
		project.Slug,
		project.Description,
		project.Status,
		project.OwnerID,
		project.DueDate,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return projects.ErrSlugExists
		}
		return fmt.Errorf("create project: %w", err)
	}

	for _, userID := range project.MemberIDs {
		if err := r.AddMember(ctx, project.ID, userID); err != nil && !errors.Is(err, projects.ErrAlreadyMember) {
			return err
		}
	}
	return nil
}

// GetByID retrieves a project with its member id list.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `
		SELECT id, name, slug, description, status, owner_id, due_date, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	var project domain.Project
	err := r.db.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.Slug,
		&project.Description,
		&project.Status,
		&project.OwnerID,
		&project.DueDate,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, projects.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}

	memberIDs, err := r.getMemberIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	project.MemberIDs = memberIDs

	return &project, nil
}

// List retrieves a page of projects matching the filter.
func (r *Repository) List(ctx context.Context, filter projects.ProjectFilter, page pagination.Params) ([]domain.Project, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.MemberID != nil {
		args = append(args, *filter.MemberID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(owner_id = $%d OR EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = projects.id AND pm.user_id = $%d))", n, n))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT id, name, slug, description, status, owner_id, due_date, created_at, updated_at
		FROM projects%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Project, 0)
	for rows.Next() {
		var project domain.Project
		err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.Slug,
			&project.Description,
			&project.Status,
			&project.OwnerID,
			&project.DueDate,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, project)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate projects: %w", err)
	}

	for i := range items {
		memberIDs, err := r.getMemberIDs(ctx, items[i].ID)
		if err != nil {
			return nil, 0, err
		}
		items[i].MemberIDs = memberIDs
	}

	return items, total, nil
}

// Update updates an existing project.
func (r *Repository) Update(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, status = $4, due_date = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.Status,
		project.DueDate,
	).Scan(&project.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return projects.ErrProjectNotFound
		}
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// Delete deletes a project. Member rows are removed via cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return projects.ErrProjectNotFound
	}
	return nil
}

// AddMember inserts a membership row.
func (r *Repository) AddMember(ctx context.Context, projectID, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id) VALUES ($1, $2)`,
		projectID, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return projects.ErrAlreadyMember
			case foreignKeyViolation:
				if strings.Contains(pgErr.ConstraintName, "user") {
					return projects.ErrUserNotFound
				}
				return projects.ErrProjectNotFound
			}
		}
		return fmt.Errorf("add project member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove project member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return projects.ErrMemberNotFound
	}
	return nil
}

func (r *Repository) getMemberIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM project_members WHERE project_id = $1 ORDER BY added_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("get project members: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project members: %w", err)
	}
	return ids, nil
}
