package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/platinummonkey/contactbook/pkg/session"
)

// SessionCookieName is the cookie carrying the server-side session id
const SessionCookieName = "contactbook_session"

// ResolutionStatus is the outcome of resolving a request's identity
type ResolutionStatus int

const (
	// ResolutionAnonymous means the request presented no credentials
	ResolutionAnonymous ResolutionStatus = iota
	// ResolutionAuthenticated means a principal was resolved
	ResolutionAuthenticated
	// ResolutionUnauthenticated means credentials were presented but rejected
	ResolutionUnauthenticated
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionAnonymous:
		return "anonymous"
	case ResolutionAuthenticated:
		return "authenticated"
	case ResolutionUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Resolution is the result of IdentityResolver.Resolve
type Resolution struct {
	Status    ResolutionStatus
	Principal *auth.Principal
	// Reason is diagnostic only and never sent to clients
	Reason string
}

// TokenValidator validates bearer tokens
type TokenValidator interface {
	Validate(token string) auth.Validation
}

// IdentityResolver turns a request into a principal.
// A bearer token is authoritative whenever an Authorization header is sent;
// the session cookie is consulted only when the header is absent.
type IdentityResolver struct {
	tokens   TokenValidator
	sessions session.Store
	metrics  *observability.Metrics
}

// NewIdentityResolver creates a resolver. sessions and metrics may be nil.
func NewIdentityResolver(tokens TokenValidator, sessions session.Store, metrics *observability.Metrics) *IdentityResolver {
	return &IdentityResolver{
		tokens:   tokens,
		sessions: sessions,
		metrics:  metrics,
	}
}

// Resolve inspects the Authorization header, then the session cookie
func (ir *IdentityResolver) Resolve(r *http.Request) Resolution {
	if header := r.Header.Get("Authorization"); header != "" {
		return ir.resolveBearer(header)
	}
	return ir.resolveSession(r)
}

func (ir *IdentityResolver) resolveBearer(header string) Resolution {
	// Format: "Bearer <token>"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		ir.metrics.RecordTokenValidation(auth.StatusMalformed.String())
		return Resolution{Status: ResolutionUnauthenticated, Reason: "invalid authorization header format"}
	}

	validation := ir.tokens.Validate(strings.TrimSpace(parts[1]))
	ir.metrics.RecordTokenValidation(validation.Status.String())

	principal, ok := validation.Principal()
	if !ok {
		return Resolution{Status: ResolutionUnauthenticated, Reason: "token " + validation.Status.String()}
	}
	return Resolution{Status: ResolutionAuthenticated, Principal: principal}
}

func (ir *IdentityResolver) resolveSession(r *http.Request) Resolution {
	if ir.sessions == nil {
		return Resolution{Status: ResolutionAnonymous}
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Resolution{Status: ResolutionAnonymous}
	}

	sess, err := ir.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			observability.FromContext(r.Context()).WithError(err).Warn("session lookup failed")
		}
		return Resolution{Status: ResolutionUnauthenticated, Reason: "session not found"}
	}

	return Resolution{
		Status: ResolutionAuthenticated,
		Principal: &auth.Principal{
			AccountID: sess.AccountID,
			Username:  sess.Username,
			Via:       auth.SourceSession,
		},
	}
}

// AuthMiddleware attaches the resolved principal to the request context
type AuthMiddleware struct {
	resolver *IdentityResolver
	optional bool // If true, requests without a principal pass through untouched
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver *IdentityResolver, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := m.resolver.Resolve(r)
		if res.Status == ResolutionAuthenticated {
			ctx := auth.WithPrincipal(r.Context(), res.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if m.optional {
			next.ServeHTTP(w, r)
			return
		}

		observability.FromContext(r.Context()).
			WithField("reason", res.Reason).
			Debug("request rejected")
		unauthorizedResponse(w)
	})
}

// RequirePrincipal rejects requests that reach it without a resolved principal.
// It expects an optional AuthMiddleware earlier in the chain.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			unauthorizedResponse(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorizedResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="contactbook"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}
