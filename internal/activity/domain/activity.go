package domain

import "time"

// ActionType is the kind of security-relevant action recorded in the activity log.
type ActionType string

const (
	ActionSignUp           ActionType = "SIGN_UP"
	ActionSignIn           ActionType = "SIGN_IN"
	ActionSignOut          ActionType = "SIGN_OUT"
	ActionUpdatePassword   ActionType = "UPDATE_PASSWORD"
	ActionDeleteAccount    ActionType = "DELETE_ACCOUNT"
	ActionUpdateAccount    ActionType = "UPDATE_ACCOUNT"
	ActionCreateTeam       ActionType = "CREATE_TEAM"
	ActionRemoveTeamMember ActionType = "REMOVE_TEAM_MEMBER"
	ActionInviteTeamMember ActionType = "INVITE_TEAM_MEMBER"
	ActionAcceptInvitation ActionType = "ACCEPT_INVITATION"
)

// Entry is one append-only activity record. Entries always carry a team.
type Entry struct {
	ID        string     `json:"id"`
	TeamID    string     `json:"teamId"`
	UserID    string     `json:"userId"`
	Action    ActionType `json:"action"`
	IPAddress string     `json:"ipAddress,omitempty"`
	Metadata  string     `json:"metadata,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
