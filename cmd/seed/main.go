// seed inserts development sample data: one team with an owner and a member.
// Idempotent: skips inserts if the dev owner (owner@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"saasgate/backend/internal/activity"
	"saasgate/backend/internal/activity/domain"
	activityrepo "saasgate/backend/internal/activity/repository"
	"saasgate/backend/internal/config"
	"saasgate/backend/internal/db"
	membershipdomain "saasgate/backend/internal/membership/domain"
	membershiprepo "saasgate/backend/internal/membership/repository"
	"saasgate/backend/internal/security"
	teamdomain "saasgate/backend/internal/team/domain"
	teamrepo "saasgate/backend/internal/team/repository"
	userdomain "saasgate/backend/internal/user/domain"
	userrepo "saasgate/backend/internal/user/repository"
)

const (
	devPassword      = "password123"
	devTeamID        = "dev-team-001"
	devOwnerID       = "dev-user-001"
	devMemberID      = "dev-user-002"
	devMembershipID  = "dev-membership-001"
	devMembership2ID = "dev-membership-002"
	ownerEmail       = "owner@example.com"
	memberEmail      = "member@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	teams := teamrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, ownerEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", ownerEmail)
		os.Exit(0)
	}

	hasher := security.NewHasher(security.HashParams{Memory: cfg.HashMemory, Time: cfg.HashTime, Threads: cfg.HashThreads})
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	if err := teams.Create(ctx, &teamdomain.Team{ID: devTeamID, Name: "Dev Team", CreatedAt: now, UpdatedAt: now}); err != nil {
		log.Fatalf("create team: %v", err)
	}
	for _, u := range []*userdomain.User{
		{ID: devOwnerID, Email: ownerEmail, Name: "Dev Owner", PasswordHash: passwordHash, Role: userdomain.RoleOwner, CreatedAt: now, UpdatedAt: now},
		{ID: devMemberID, Email: memberEmail, Name: "Dev Member", PasswordHash: passwordHash, Role: userdomain.RoleMember, CreatedAt: now, UpdatedAt: now},
	} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}
	for _, m := range []*membershipdomain.Membership{
		{ID: devMembershipID, UserID: devOwnerID, TeamID: devTeamID, Role: membershipdomain.RoleOwner, JoinedAt: now},
		{ID: devMembership2ID, UserID: devMemberID, TeamID: devTeamID, Role: membershipdomain.RoleMember, JoinedAt: now},
	} {
		if err := memberships.Create(ctx, m); err != nil {
			log.Fatalf("create membership %s: %v", m.ID, err)
		}
	}

	recorder := activity.NewLogger(activityrepo.NewPostgresRepository(conn), nil)
	if err := recorder.Record(ctx, activity.Event{TeamID: devTeamID, UserID: devOwnerID, Action: domain.ActionCreateTeam}); err != nil {
		log.Fatalf("record activity: %v", err)
	}

	log.Printf("Seed complete. Sign in as %s or %s with password %q.", ownerEmail, memberEmail, devPassword)
}
