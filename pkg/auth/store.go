package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/contactbook/pkg/storage"
)

// AccountStore persists accounts and their credential material
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	UpdateCredentials(ctx context.Context, id int64, passwordHash, salt, token string) error
	UpdateToken(ctx context.Context, id int64, token string) error
	Count(ctx context.Context) (int64, error)
}

// DBAccountStore implements AccountStore over database/sql
type DBAccountStore struct {
	db  storage.DBTX
	now func() time.Time
}

// NewDBAccountStore creates an account store bound to db
func NewDBAccountStore(db storage.DBTX) *DBAccountStore {
	return &DBAccountStore{db: db, now: time.Now}
}

const accountColumns = `id, username, password_hash, salt, current_token, created_at, updated_at`

// Create inserts account and sets its ID and timestamps
func (s *DBAccountStore) Create(ctx context.Context, account *Account) error {
	now := s.now().UTC()
	query := `
		INSERT INTO accounts (username, password_hash, salt, current_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		account.Username, account.PasswordHash, account.Salt,
		nullString(account.CurrentToken), now, now,
	).Scan(&id)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetByUsername returns the account with the given username
func (s *DBAccountStore) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// GetByID returns the account with the given id
func (s *DBAccountStore) GetByID(ctx context.Context, id int64) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// UpdateCredentials replaces the password digest, salt and current token
func (s *DBAccountStore) UpdateCredentials(ctx context.Context, id int64, passwordHash, salt, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $1, salt = $2, current_token = $3, updated_at = $4
		WHERE id = $5
	`, passwordHash, salt, token, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	return requireRow(result)
}

// UpdateToken records the most recently issued token
func (s *DBAccountStore) UpdateToken(ctx context.Context, id int64, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET current_token = $1, updated_at = $2 WHERE id = $3
	`, token, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return requireRow(result)
}

// Count returns the number of registered accounts
func (s *DBAccountStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	var (
		account Account
		token   sql.NullString
	)
	err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.Salt,
		&token, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if token.Valid {
		account.CurrentToken = &token.String
	}
	return &account, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
