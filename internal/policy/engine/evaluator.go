package engine

import "context"

// Action is a team operation subject to authorization.
type Action string

const (
	ActionViewTeam     Action = "view_team"
	ActionInviteMember Action = "invite_member"
	ActionRemoveMember Action = "remove_member"
)

// Authorizer decides whether a team role may perform an action.
type Authorizer interface {
	// Allow reports whether role may perform action. An error means the decision could not be made;
	// callers must deny.
	Allow(ctx context.Context, role string, action Action) (bool, error)
}
