// Package postgres provides the PostgreSQL implementation of the
// activities repository.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/activities"
	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Repository implements activities.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL activities repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new audit entry. Metadata is stored as jsonb.
func (r *Repository) Create(ctx context.Context, activity *domain.Activity) error {
	query := `
		INSERT INTO activities (actor_id, action, entity_kind, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		activity.ActorID,
		activity.Action,
		activity.EntityKind,
		activity.EntityID,
		activity.Metadata,
	).Scan(&activity.ID, &activity.CreatedAt)

	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// List retrieves a page of audit entries matching the filter, newest
// first.
func (r *Repository) List(ctx context.Context, filter activities.ActivityFilter, page pagination.Params) ([]domain.Activity, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.EntityKind != nil {
		args = append(args, *filter.EntityKind)
		conditions = append(conditions, fmt.Sprintf("entity_kind = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM activities`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT id, actor_id, action, entity_kind, entity_id, metadata, created_at
		FROM activities%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		var activity domain.Activity
		err := rows.Scan(
			&activity.ID,
			&activity.ActorID,
			&activity.Action,
			&activity.EntityKind,
			&activity.EntityID,
			&activity.Metadata,
			&activity.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activities: %w", err)
	}
	return items, total, nil
}
