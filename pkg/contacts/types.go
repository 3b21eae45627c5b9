package contacts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultFieldValue is stored for optional fields the client left out
const DefaultFieldValue = "None"

// ErrContactNotFound is returned for unknown ids and for contacts owned by another account
var ErrContactNotFound = errors.New("contact not found")

// Contact is one entry in an account's address book
type Contact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest is the body of POST /api/contacts
type CreateRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

// Validate checks required fields and fills defaults
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return fmt.Errorf("phone_number is required")
	}
	if r.Email == "" {
		r.Email = DefaultFieldValue
	}
	if r.Address == "" {
		r.Address = DefaultFieldValue
	}
	return nil
}

// UpdateRequest is the body of PATCH /api/contacts/{id}; nil fields are left unchanged
type UpdateRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
}

// Validate rejects blanking a required field
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if r.PhoneNumber != nil && strings.TrimSpace(*r.PhoneNumber) == "" {
		return fmt.Errorf("phone_number must not be empty")
	}
	return nil
}
