package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/httputil"
	"github.com/platinummonkey/contactbook/pkg/middleware"
	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/platinummonkey/contactbook/pkg/session"
)

// CookieSettings controls the session cookie handed out on register and login
type CookieSettings struct {
	TTL    time.Duration
	Secure bool
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	service  *auth.Service
	sessions session.Store
	metrics  *observability.Metrics
	cookies  CookieSettings
}

// NewAuthHandlers creates a new auth handlers instance. sessions and metrics may be nil.
func NewAuthHandlers(service *auth.Service, sessions session.Store, metrics *observability.Metrics, cookies CookieSettings) *AuthHandlers {
	return &AuthHandlers{
		service:  service,
		sessions: sessions,
		metrics:  metrics,
		cookies:  cookies,
	}
}

// RegisterRoutes registers the routes that need a principal.
// Register and login are mounted by the server behind the rate limiter.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/password", h.changePassword).Methods(http.MethodPatch)
	router.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
}

// register handles POST /api/auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if !httputil.ParseJSONOrError(w, r, &req) {
		h.metrics.RecordAuthAttempt("register", observability.ResultInvalid)
		return
	}

	account, token, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.metrics.RecordAuthAttempt("register", resultFor(err))
		h.writeAuthError(w, r, err)
		return
	}

	h.metrics.RecordAuthAttempt("register", observability.ResultSuccess)
	observability.FromContext(r.Context()).
		WithField("account_id", account.ID).
		Info("account registered")

	h.startSession(w, r, account)
	_ = httputil.WriteSuccess(w, auth.TokenResponse{Token: token})
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if !httputil.ParseJSONOrError(w, r, &req) {
		h.metrics.RecordAuthAttempt("login", observability.ResultInvalid)
		return
	}

	account, token, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.metrics.RecordAuthAttempt("login", resultFor(err))
		h.writeAuthError(w, r, err)
		return
	}

	h.metrics.RecordAuthAttempt("login", observability.ResultSuccess)
	h.startSession(w, r, account)
	_ = httputil.WriteSuccess(w, auth.TokenResponse{Token: token})
}

// changePassword handles PATCH /api/auth/password
func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req auth.PasswordChange
	if !httputil.ParseJSONOrError(w, r, &req) {
		h.metrics.RecordAuthAttempt("change_password", observability.ResultInvalid)
		return
	}

	token, err := h.service.ChangePassword(r.Context(), principal, req)
	if err != nil {
		h.metrics.RecordAuthAttempt("change_password", resultFor(err))
		h.writeAuthError(w, r, err)
		return
	}

	h.metrics.RecordAuthAttempt("change_password", observability.ResultSuccess)
	observability.FromContext(r.Context()).
		WithField("account_id", principal.AccountID).
		Info("password changed")
	_ = httputil.WriteSuccess(w, auth.TokenResponse{Token: token})
}

// logout handles POST /api/auth/logout
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	if id := middleware.SessionID(r); id != "" && h.sessions != nil {
		if err := h.sessions.Delete(r.Context(), id); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("failed to delete session")
		}
	}
	middleware.ClearSessionCookie(w, h.cookies.Secure)
	httputil.WriteNoContent(w)
}

// startSession opens a server-side session for the account.
// Failure is logged only; the bearer token still authenticates the client.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, account *auth.Account) {
	if h.sessions == nil {
		return
	}
	sess, err := h.sessions.Create(r.Context(), account.ID, account.Username)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to create session")
		return
	}
	middleware.SetSessionCookie(w, sess.ID, h.cookies.TTL, h.cookies.Secure)
}

func (h *AuthHandlers) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *auth.ValidationError
	switch {
	case errors.As(err, &validationErr):
		httputil.WriteValidationError(w, validationErr.Error())
	case errors.Is(err, auth.ErrUsernameTaken):
		httputil.WriteConflict(w, auth.ErrUsernameTaken.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, auth.ErrInvalidCredentials.Error())
	default:
		httputil.WriteInternalError(w, r, err)
	}
}

func resultFor(err error) string {
	var validationErr *auth.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return observability.ResultInvalid
	case errors.Is(err, auth.ErrUsernameTaken):
		return observability.ResultConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return observability.ResultRejected
	default:
		return observability.ResultError
	}
}
