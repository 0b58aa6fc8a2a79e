package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"saasgate/backend/internal/db"
	"saasgate/backend/internal/user/domain"
)

const userColumns = `id, email, name, password_hash, role, created_at, updated_at, deleted_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

// GetByID returns the active user for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanOptional(row)
}

// GetByEmail returns the active user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	return scanOptional(row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	stamp(u)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, db.NullString(u.Name), db.NullString(u.PasswordHash), string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	return mapWriteErr("create user", err)
}

// Update writes name and email for an active user and bumps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = $4 WHERE id = $1 AND deleted_at IS NULL`,
		u.ID, db.NullString(u.Name), u.Email, u.UpdatedAt,
	)
	if err != nil {
		return mapWriteErr("update user", err)
	}
	return requireRow(res)
}

// UpdatePasswordHash replaces the stored hash of an active user.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, hash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// SoftDelete sets deleted_at; the partial unique index frees the email.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	return requireRow(res)
}

// UpsertFederated inserts the user keyed by its provider-assigned id, or returns
// the existing active row untouched.
func (r *PostgresRepository) UpsertFederated(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	stamp(u)
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO UPDATE SET updated_at = users.updated_at
		 WHERE users.deleted_at IS NULL
		 RETURNING `+userColumns,
		u.ID, u.Email, db.NullString(u.Name), string(u.Role), u.CreatedAt,
	)
	out, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountDeleted
	}
	if err != nil {
		return nil, mapWriteErr("upsert federated user", err)
	}
	return out, nil
}

// stamp fills zero creation and update times with the current time.
func stamp(u *domain.User) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
}

func scanOptional(row *sql.Row) (*domain.User, error) {
	u, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func scan(row *sql.Row) (*domain.User, error) {
	var (
		u        domain.User
		name     sql.NullString
		hash     sql.NullString
		role     string
		deleteAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &hash, &role, &u.CreatedAt, &u.UpdatedAt, &deleteAt); err != nil {
		return nil, err
	}
	u.Name = name.String
	u.PasswordHash = hash.String
	u.Role = domain.Role(role)
	if deleteAt.Valid {
		t := deleteAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok && constraint == "users_email_active_key" {
		return domain.ErrEmailTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountDeleted
	}
	return nil
}
