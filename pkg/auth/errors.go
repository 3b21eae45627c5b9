package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUsernameTaken is returned when registering a username that already exists
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountNotFound is returned by the account store for unknown ids or usernames
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmptySecret is returned when the token signing secret is not configured
	ErrEmptySecret = errors.New("token signing secret must not be empty")
)

// ValidationError reports a missing or malformed request field.
// It is raised before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func requireField(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}
