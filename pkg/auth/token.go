package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of an issued bearer token
	DefaultTokenTTL = time.Hour
	// DefaultTokenIssuer is the iss claim written into every token
	DefaultTokenIssuer = "contactbook"
)

// Claims is the fixed claim set carried by every bearer token.
// Subject holds the username.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64 `json:"account_id"`
}

// Validate is called by the jwt parser after the registered claims pass
func (c Claims) Validate() error {
	if c.Subject == "" {
		return errors.New("subject claim is required")
	}
	if c.AccountID <= 0 {
		return errors.New("account_id claim must be positive")
	}
	return nil
}

// ValidationStatus is the outcome of validating a bearer token
type ValidationStatus int

const (
	// StatusOK means the token is authentic and unexpired
	StatusOK ValidationStatus = iota
	// StatusUnauthenticated means the token parsed but failed signature, expiry or claim checks
	StatusUnauthenticated
	// StatusMalformed means the input is not a parsable token
	StatusMalformed
)

func (s ValidationStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Validation is the result of TokenIssuer.Validate. Claims is set only for StatusOK.
type Validation struct {
	Status ValidationStatus
	Claims *Claims
}

// Principal converts a successful validation into a request principal
func (v Validation) Principal() (*Principal, bool) {
	if v.Status != StatusOK || v.Claims == nil {
		return nil, false
	}
	return &Principal{
		AccountID: v.Claims.AccountID,
		Username:  v.Claims.Subject,
		Via:       SourceBearer,
	}, true
}

// TokenIssuer mints and validates HS256 bearer tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenIssuer
type TokenOption func(*TokenIssuer)

// WithTokenTTL overrides the token lifetime
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithIssuer overrides the iss claim
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		if issuer != "" {
			t.issuer = issuer
		}
	}
}

// WithClock overrides the time source used for issuance and expiry checks
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer creates a token issuer. An empty secret is a configuration error.
func NewTokenIssuer(secret []byte, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTokenTTL,
		issuer: DefaultTokenIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL returns the configured token lifetime
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue mints a token for the given account. Previously issued tokens stay valid.
func (t *TokenIssuer) Issue(username string, accountID int64) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
		AccountID: accountID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm, issuer and expiry.
// Bad tokens are reported through the status, never as an error.
func (t *TokenIssuer) Validate(tokenString string) Validation {
	if tokenString == "" {
		return Validation{Status: StatusMalformed}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Validation{Status: StatusMalformed}
		}
		return Validation{Status: StatusUnauthenticated}
	}
	if !token.Valid {
		return Validation{Status: StatusUnauthenticated}
	}

	return Validation{Status: StatusOK, Claims: claims}
}
