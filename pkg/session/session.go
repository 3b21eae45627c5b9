// Package session stores server-side login sessions keyed by an opaque id.
//
// A session is a secondary identity channel: it lets a client that has just
// registered or logged in act before it echoes its bearer token back. Bearer
// token validation stays authoritative whenever an Authorization header is sent.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

// DefaultTTL is the idle lifetime of a session
const DefaultTTL = 20 * time.Minute

// Session is the server-held record behind a session cookie
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions
type Store interface {
	// Create stores a new session for the account and returns its id
	Create(ctx context.Context, accountID int64, username string) (*Session, error)
	// Get returns the session or ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)
	// Delete removes the session; deleting an unknown id is not an error
	Delete(ctx context.Context, id string) error
	// Len reports the number of live sessions
	Len(ctx context.Context) (int, error)
}

func newSession(accountID int64, username string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Username:  username,
		CreatedAt: now.UTC(),
	}
}
