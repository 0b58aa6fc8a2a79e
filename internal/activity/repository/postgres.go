package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/db"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an activity repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, team_id, user_id, action, ip_address, metadata, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.TeamID, db.NullString(e.UserID), string(e.Action), db.NullString(e.IPAddress), db.NullString(e.Metadata), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByTeam returns the newest entries for teamID first.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, team_id, user_id, action, ip_address, metadata, timestamp
		 FROM activity_logs WHERE team_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		teamID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		var (
			e                 domain.Entry
			action            string
			userID, ip, metaD sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TeamID, &userID, &action, &ip, &metaD, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Action = domain.ActionType(action)
		e.UserID = userID.String
		e.IPAddress = ip.String
		e.Metadata = metaD.String
		out = append(out, &e)
	}
	return out, rows.Err()
}
