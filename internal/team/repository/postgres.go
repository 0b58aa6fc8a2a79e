package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saasgate/backend/internal/db"
	"saasgate/backend/internal/team/domain"
)

// ErrTeamNotFound is returned by UpdateSubscription when no team has the id.
var ErrTeamNotFound = errors.New("team not found")

const teamColumns = `id, name, stripe_customer_id, stripe_subscription_id, stripe_product_id, plan_name, subscription_status, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a team repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

// GetByID returns the team for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return r.getOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
}

// GetByStripeCustomerID returns the team billed to customerID, or nil if not found.
func (r *PostgresRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Team, error) {
	return r.getOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE stripe_customer_id = $1`, customerID)
}

// Create persists t. The team must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Team) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// UpdateSubscription writes the billing columns for teamID.
func (r *PostgresRepository) UpdateSubscription(ctx context.Context, teamID string, sub domain.Subscription) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE teams SET stripe_customer_id = $2, stripe_subscription_id = $3, stripe_product_id = $4,
		        plan_name = $5, subscription_status = $6, updated_at = now()
		 WHERE id = $1`,
		teamID, db.NullString(sub.CustomerID), db.NullString(sub.SubscriptionID), db.NullString(sub.ProductID),
		db.NullString(sub.PlanName), db.NullString(sub.Status),
	)
	if err != nil {
		return fmt.Errorf("update team subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.Team, error) {
	var (
		t                                   domain.Team
		customer, sub, product, plan, state sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.Name, &customer, &sub, &product, &plan, &state, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.StripeCustomerID = customer.String
	t.StripeSubscriptionID = sub.String
	t.StripeProductID = product.String
	t.PlanName = plan.String
	t.SubscriptionStatus = state.String
	return &t, nil
}
