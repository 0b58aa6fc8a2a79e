// Package dbtest opens a migrated Postgres database for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"saasgate/backend/internal/db"
	"saasgate/backend/internal/db/migrate"
)

// Open returns a connection to TEST_DATABASE_URL with all migrations applied and
// all tables truncated. The test is skipped when the variable is unset.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := conn.Exec(`TRUNCATE activity_logs, invitations, team_members, teams, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return conn
}
