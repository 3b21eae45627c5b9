package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/contactbook/pkg/storage"
)

// Store persists contacts. Every read and write is scoped to the owning account.
type Store interface {
	Create(ctx context.Context, userID int64, req CreateRequest) (*Contact, error)
	Get(ctx context.Context, userID, id int64) (*Contact, error)
	List(ctx context.Context, userID int64) ([]*Contact, error)
	Update(ctx context.Context, userID, id int64, req UpdateRequest) (*Contact, error)
	Delete(ctx context.Context, userID, id int64) error
	Search(ctx context.Context, userID int64, query string) ([]*Contact, error)
	Count(ctx context.Context) (int64, error)
}

// DBStore implements Store over database/sql
type DBStore struct {
	db  storage.DBTX
	now func() time.Time
}

// NewDBStore creates a new database-backed contact store
func NewDBStore(db storage.DBTX) *DBStore {
	return &DBStore{db: db, now: time.Now}
}

const contactColumns = `id, user_id, name, phone_number, email, address, created_at, updated_at`

// Create inserts a contact owned by userID
func (s *DBStore) Create(ctx context.Context, userID int64, req CreateRequest) (*Contact, error) {
	now := s.now().UTC()
	contact := &Contact{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Address:     req.Address,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contacts (user_id, name, phone_number, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, userID, contact.Name, contact.PhoneNumber, contact.Email, contact.Address, now, now).Scan(&contact.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact: %w", err)
	}
	return contact, nil
}

// Get returns the contact if it exists and belongs to userID
func (s *DBStore) Get(ctx context.Context, userID, id int64) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)

	contact, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// List returns all contacts owned by userID
func (s *DBStore) List(ctx context.Context, userID int64) ([]*Contact, error) {
	return s.query(ctx, "list",
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY id`, userID)
}

// Update applies the non-nil fields of req and returns the updated contact
func (s *DBStore) Update(ctx context.Context, userID, id int64, req UpdateRequest) (*Contact, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE contacts
		SET name = COALESCE($1, name),
		    phone_number = COALESCE($2, phone_number),
		    email = COALESCE($3, email),
		    address = COALESCE($4, address),
		    updated_at = $5
		WHERE id = $6 AND user_id = $7
	`, nullable(req.Name), nullable(req.PhoneNumber), nullable(req.Email), nullable(req.Address),
		s.now().UTC(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the contact if it belongs to userID
func (s *DBStore) Delete(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireRow(result)
}

// Search returns the owner's contacts whose name, phone number or email contains query
func (s *DBStore) Search(ctx context.Context, userID int64, query string) ([]*Contact, error) {
	pattern := "%" + escapeLike(query) + "%"
	return s.query(ctx, "search", `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		  AND (name LIKE $2 ESCAPE '\' OR phone_number LIKE $2 ESCAPE '\' OR email LIKE $2 ESCAPE '\')
		ORDER BY id
	`, userID, pattern)
}

// Count returns the total number of contacts
func (s *DBStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func (s *DBStore) query(ctx context.Context, op, query string, args ...any) ([]*Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s contacts: %w", op, err)
	}
	defer rows.Close()

	contacts := make([]*Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrContactNotFound
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
