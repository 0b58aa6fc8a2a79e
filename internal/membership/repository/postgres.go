package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saasgate/backend/internal/db"
	"saasgate/backend/internal/membership/domain"
)

const memberColumns = `id, user_id, team_id, role, joined_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

func (r *PostgresRepository) GetForUser(ctx context.Context, userID string) (*domain.Membership, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM team_members WHERE user_id = $1 ORDER BY joined_at, id LIMIT 1`, userID)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM team_members WHERE user_id = $1 ORDER BY joined_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByUserAndTeam(ctx context.Context, userID, teamID string) (*domain.Membership, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM team_members WHERE user_id = $1 AND team_id = $2`, userID, teamID)
}

func (r *PostgresRepository) GetByIDAndTeam(ctx context.Context, id, teamID string) (*domain.Membership, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM team_members WHERE id = $1 AND team_id = $2`, id, teamID)
}

func (r *PostgresRepository) IsMemberByEmail(ctx context.Context, teamID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM team_members m JOIN users u ON u.id = m.user_id
		   WHERE m.team_id = $1 AND u.email = $2 AND u.deleted_at IS NULL)`,
		teamID, email,
	).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_members (id, user_id, team_id, role, joined_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.TeamID, string(m.Role), m.JoinedAt,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return domain.ErrAlreadyMember
		}
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByIDAndTeam(ctx context.Context, id, teamID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1 AND team_id = $2`, id, teamID)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountOwnersByTeam(ctx context.Context, teamID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM team_members WHERE team_id = $1 AND role = 'owner'`, teamID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) CountByTeam(ctx context.Context, teamID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM team_members WHERE team_id = $1`, teamID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Membership, error) {
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(row scanner) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.TeamID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}
