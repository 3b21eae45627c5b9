package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/platinummonkey/contactbook/pkg/storage"
)

// Service implements registration, login and password change
type Service struct {
	db     *sql.DB
	hasher *PasswordHasher
	tokens *TokenIssuer

	decoyOnce   sync.Once
	decoyDigest string
}

// NewService creates an auth service over db
func NewService(db *sql.DB, hasher *PasswordHasher, tokens *TokenIssuer) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
		tokens: tokens,
	}
}

// Tokens returns the issuer used by the service
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *Service) accounts(db storage.DBTX) AccountStore {
	return NewDBAccountStore(db)
}

// Register creates an account and returns it together with its first token
func (s *Service) Register(ctx context.Context, req Credentials) (*Account, string, error) {
	if err := validateCredentials(req); err != nil {
		return nil, "", err
	}

	digest, salt, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}

	account := &Account{
		Username:     req.Username,
		PasswordHash: digest,
		Salt:         salt,
	}

	var token string
	err = storage.WithTx(ctx, s.db, nil, func(ctx context.Context, tx storage.DBTX) error {
		accounts := s.accounts(tx)
		if err := accounts.Create(ctx, account); err != nil {
			return err
		}

		issued, err := s.tokens.Issue(account.Username, account.ID)
		if err != nil {
			return err
		}
		token = issued
		return accounts.UpdateToken(ctx, account.ID, token)
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", fmt.Errorf("register %q: %w", req.Username, err)
	}

	account.CurrentToken = &token
	return account, token, nil
}

// Login checks credentials and issues a fresh token.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req Credentials) (_ *Account, _ string, err error) {
	if err := validateCredentials(req); err != nil {
		return nil, "", err
	}

	ctx, span := observability.StartSpan(ctx, "auth.login")
	defer func() { observability.EndSpan(span, err) }()

	accounts := s.accounts(s.db)
	account, err := accounts.GetByUsername(ctx, req.Username)
	if errors.Is(err, ErrAccountNotFound) {
		s.burnVerify(req.Password)
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("login lookup: %w", err)
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash, account.Salt) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.Username, account.ID)
	if err != nil {
		return nil, "", err
	}
	if err := accounts.UpdateToken(ctx, account.ID, token); err != nil {
		return nil, "", fmt.Errorf("login store token: %w", err)
	}

	account.CurrentToken = &token
	return account, token, nil
}

// ChangePassword replaces the principal's password after checking the current one
// and returns a newly issued token. Older tokens remain valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, principal *Principal, req PasswordChange) (string, error) {
	if principal == nil {
		return "", ErrInvalidCredentials
	}
	if err := requireField("current_password", req.CurrentPassword); err != nil {
		return "", err
	}
	if err := requireField("new_password", req.NewPassword); err != nil {
		return "", err
	}

	accounts := s.accounts(s.db)
	account, err := accounts.GetByID(ctx, principal.AccountID)
	if errors.Is(err, ErrAccountNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("change password lookup: %w", err)
	}

	if !s.hasher.Verify(req.CurrentPassword, account.PasswordHash, account.Salt) {
		return "", ErrInvalidCredentials
	}

	digest, salt, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(account.Username, account.ID)
	if err != nil {
		return "", err
	}

	if err := accounts.UpdateCredentials(ctx, account.ID, digest, salt, token); err != nil {
		return "", fmt.Errorf("change password store: %w", err)
	}
	return token, nil
}

// decoySalt salts the digest burnVerify checks against. It is never stored.
const decoySalt = "contactbook-decoy"

// burnVerify spends the same KDF work as a real verify so unknown usernames
// are not distinguishable by latency. The decoy digest is never empty, so
// Verify always reaches the KDF.
func (s *Service) burnVerify(password string) {
	s.decoyOnce.Do(func() {
		s.decoyDigest = s.hasher.derive("decoy", decoySalt)
	})
	_ = s.hasher.Verify(password, s.decoyDigest, decoySalt)
}

func validateCredentials(req Credentials) error {
	if err := requireField("username", req.Username); err != nil {
		return err
	}
	return requireField("password", req.Password)
}
