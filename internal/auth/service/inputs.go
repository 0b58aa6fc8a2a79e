package service

// SignInInput is the email/password sign-in form. Redirect "checkout" with a
// PriceID continues to billing.
type SignInInput struct {
	Email    string `form:"email" validate:"required,min=3,max=255,email"`
	Password string `form:"password" validate:"required,min=8,max=100"`
	Redirect string `form:"redirect"`
	PriceID  string `form:"priceId"`
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
	InviteID string `form:"inviteId"`
}

// FederatedBeginInput starts an OAuth sign-in. The intents are carried through the callback.
type FederatedBeginInput struct {
	Provider string
	Redirect string
	PriceID  string
	InviteID string
}

// FederatedCompleteInput is the OAuth callback. Nonce is the value returned in
// the state; ExpectedNonce is the one stored when the flow began.
type FederatedCompleteInput struct {
	Code          string
	Verifier      string
	Nonce         string
	ExpectedNonce string
	Redirect      string
	PriceID       string
	InviteID      string
}

// UpdateAccountInput changes profile fields.
type UpdateAccountInput struct {
	Name  string `form:"name" validate:"required,min=1,max=255"`
	Email string `form:"email" validate:"required,min=3,max=255,email"`
}

// UpdatePasswordInput changes the password.
type UpdatePasswordInput struct {
	CurrentPassword string `form:"currentPassword" validate:"required,min=8,max=100"`
	NewPassword     string `form:"newPassword" validate:"required,min=8,max=100"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,min=8,max=100"`
}

// DeleteAccountInput confirms deletion with the password.
type DeleteAccountInput struct {
	Password string `form:"password" validate:"required,min=8,max=100"`
}

// InviteInput invites an email to the caller's team.
type InviteInput struct {
	Email string `form:"email" validate:"required,email"`
	Role  string `form:"role" validate:"required,oneof=owner member"`
}

// RemoveMemberInput removes a membership from the caller's team.
type RemoveMemberInput struct {
	MemberID string `form:"memberId" validate:"required"`
}
