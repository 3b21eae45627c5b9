package auth

import (
	"time"
)

// Account represents a registered user and its credential material
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CurrentToken *string   `json:"-"` // last issued token, informational only
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IdentitySource names the channel a principal was resolved from
type IdentitySource string

const (
	SourceBearer  IdentitySource = "bearer"
	SourceSession IdentitySource = "session"
)

// Principal is the authenticated identity attached to a request
type Principal struct {
	AccountID int64
	Username  string
	Via       IdentitySource
}

// Credentials is the request body for register and login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordChange is the request body for a password change
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TokenResponse is returned by every operation that issues a token
type TokenResponse struct {
	Token string `json:"token"`
}
