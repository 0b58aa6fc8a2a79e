// Package apperr defines the typed failures returned by the auth boundary and
// the category each one maps to.
package apperr

import (
	"errors"
	"net/http"
)

// Kind identifies a specific failure.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindConfirmationMismatch Kind = "confirmation_mismatch"
	KindSamePassword         Kind = "same_password"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindOAuthOnlyAccount     Kind = "oauth_only_account"
	KindUnauthenticated      Kind = "unauthenticated"
	KindForbidden            Kind = "forbidden"
	KindCannotRemoveSelf     Kind = "cannot_remove_self"
	KindLastOwner            Kind = "last_owner"
	KindAccountExists        Kind = "account_exists"
	KindAlreadyMember        Kind = "already_member"
	KindDuplicateInvitation  Kind = "duplicate_invitation"
	KindMemberOfAnotherTeam  Kind = "member_of_another_team"
	KindNotFound             Kind = "not_found"
	KindUpstream             Kind = "upstream"
)

// Category groups kinds by how a caller should react.
type Category string

const (
	CategoryValidation      Category = "validation"
	CategoryCredentials     Category = "credentials"
	CategoryUnauthenticated Category = "unauthenticated"
	CategoryForbidden       Category = "forbidden"
	CategoryConflict        Category = "conflict"
	CategoryNotFound        Category = "not_found"
	CategoryUpstream        Category = "upstream"
)

var categories = map[Kind]Category{
	KindValidation:           CategoryValidation,
	KindConfirmationMismatch: CategoryValidation,
	KindSamePassword:         CategoryValidation,
	KindInvalidCredentials:   CategoryCredentials,
	KindOAuthOnlyAccount:     CategoryCredentials,
	KindUnauthenticated:      CategoryUnauthenticated,
	KindForbidden:            CategoryForbidden,
	KindCannotRemoveSelf:     CategoryForbidden,
	KindLastOwner:            CategoryForbidden,
	KindAccountExists:        CategoryConflict,
	KindAlreadyMember:        CategoryConflict,
	KindDuplicateInvitation:  CategoryConflict,
	KindMemberOfAnotherTeam:  CategoryConflict,
	KindNotFound:             CategoryNotFound,
	KindUpstream:             CategoryUpstream,
}

// Category returns the kind's category. Unknown kinds are upstream.
func (k Kind) Category() Category {
	if c, ok := categories[k]; ok {
		return c
	}
	return CategoryUpstream
}

// HTTPStatus maps a category to its response status.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryValidation:
		return http.StatusUnprocessableEntity
	case CategoryCredentials, CategoryUnauthenticated:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryConflict:
		return http.StatusConflict
	case CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// Error is a typed failure. Fields maps input field names to messages; Values
// echoes non-sensitive inputs for redisplay and never holds passwords.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Values  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithValues returns e with values attached. Keys named like passwords are dropped.
func (e *Error) WithValues(values map[string]string) *Error {
	if len(values) == 0 {
		return e
	}
	clean := make(map[string]string, len(values))
	for k, v := range values {
		if isSecretField(k) {
			continue
		}
		clean[k] = v
	}
	e.Values = clean
	return e
}

func isSecretField(name string) bool {
	switch name {
	case "password", "currentPassword", "newPassword", "confirmPassword":
		return true
	}
	return false
}

// New returns a failure of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation returns a validation failure with per-field messages.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid input.", Fields: fields}
}

// Upstream wraps a collaborator failure behind a generic message.
func Upstream(err error) *Error {
	return &Error{Kind: KindUpstream, Message: "Something went wrong. Please try again.", Err: err}
}

// Unauthenticated is returned when an operation needs a session and has none.
func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "You must be signed in."}
}

// Forbidden is returned when the acting member lacks permission.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "You do not have permission to do that."}
}

// InvalidCredentials never says which of email or password was wrong.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password. Please try again."}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, "" for nil and upstream for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUpstream
}
