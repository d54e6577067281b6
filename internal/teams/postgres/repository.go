// Package postgres provides the PostgreSQL implementation of the teams
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
	"github.com/taskhub/taskhub/internal/teams"
	"github.com/taskhub/taskhub/pkg/pagination"
)

// Postgres error codes surfaced as domain conditions.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository implements teams.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL teams repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new team and its initial member list.
func (r *Repository) Create(ctx context.Context, team *domain.Team) error {
	query := `
		INSERT INTO teams (name, description, lead_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		team.Name,
		team.Description,
		team.LeadID,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return teams.ErrUserNotFound
		}
		return fmt.Errorf("create team: %w", err)
	}

	for _, userID := range team.MemberIDs {
		if err := r.AddMember(ctx, team.ID, userID); err != nil && !errors.Is(err, teams.ErrAlreadyMember) {
			return err
		}
	}
	return nil
}

// GetByID retrieves a team with its member id list.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `
		SELECT id, name, description, lead_id, created_at, updated_at
		FROM teams
		WHERE id = $1
	`
	var team domain.Team
	err := r.db.QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.LeadID,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, teams.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team by id: %w", err)
	}

	memberIDs, err := r.getMemberIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	team.MemberIDs = memberIDs

	return &team, nil
}

// List retrieves a page of teams matching the filter.
func (r *Repository) List(ctx context.Context, filter teams.TeamFilter, page pagination.Params) ([]domain.Team, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if filter.LeadID != nil {
		args = append(args, *filter.LeadID)
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", len(args)))
	}
	if filter.MemberID != nil {
		args = append(args, *filter.MemberID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(lead_id = $%d OR EXISTS (SELECT 1 FROM team_members tm WHERE tm.team_id = teams.id AND tm.user_id = $%d))", n, n))
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
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM teams`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT id, name, description, lead_id, created_at, updated_at
		FROM teams%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		err := rows.Scan(
			&team.ID,
			&team.Name,
			&team.Description,
			&team.LeadID,
			&team.CreatedAt,
			&team.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan team: %w", err)
		}
		items = append(items, team)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate teams: %w", err)
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

// Update updates an existing team.
func (r *Repository) Update(ctx context.Context, team *domain.Team) error {
	query := `
		UPDATE teams
		SET name = $2, description = $3, lead_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		team.ID,
		team.Name,
		team.Description,
		team.LeadID,
	).Scan(&team.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return teams.ErrTeamNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return teams.ErrUserNotFound
		}
		return fmt.Errorf("update team: %w", err)
	}
	return nil
}

// Delete deletes a team. Member rows are removed via cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	if result.RowsAffected() == 0 {
		return teams.ErrTeamNotFound
	}
	return nil
}

// AddMember inserts a membership row.
func (r *Repository) AddMember(ctx context.Context, teamID, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`,
		teamID, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return teams.ErrAlreadyMember
			case foreignKeyViolation:
				if strings.Contains(pgErr.ConstraintName, "user") {
					return teams.ErrUserNotFound
				}
				return teams.ErrTeamNotFound
			}
		}
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *Repository) RemoveMember(ctx context.Context, teamID, userID string) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`,
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return teams.ErrMemberNotFound
	}
	return nil
}

func (r *Repository) getMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY added_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("get team members: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return ids, nil
}
