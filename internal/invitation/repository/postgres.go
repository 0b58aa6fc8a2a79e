package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"saasgate/backend/internal/db"
	"saasgate/backend/internal/invitation/domain"
	memberdomain "saasgate/backend/internal/membership/domain"
)

const invitationColumns = `id, team_id, email, role, invited_by, status, invited_at, accepted_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an invitation repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id)
}

func (r *PostgresRepository) GetPending(ctx context.Context, teamID, email string) (*domain.Invitation, error) {
	return r.getOne(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE team_id = $1 AND email = $2 AND status = 'pending'`, teamID, email)
}

func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	if inv.Status == "" {
		inv.Status = domain.StatusPending
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (id, team_id, email, role, invited_by, status, invited_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.TeamID, inv.Email, string(inv.Role), inv.InvitedBy, string(inv.Status), inv.InvitedAt,
	)
	if err != nil {
		if c, ok := db.UniqueViolation(err); ok && c == "invitations_team_email_pending_key" {
			return domain.ErrDuplicatePending
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'accepted', accepted_at = $2 WHERE id = $1 AND status = 'pending'`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("accept invitation: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Invitation, error) {
	var (
		inv          domain.Invitation
		role, status string
		acceptedAt   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&inv.ID, &inv.TeamID, &inv.Email, &role, &inv.InvitedBy, &status, &inv.InvitedAt, &acceptedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv.Role = memberdomain.Role(role)
	inv.Status = domain.Status(status)
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}
