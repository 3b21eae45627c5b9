package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/contactbook/pkg/audit"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/contacts"
	"github.com/platinummonkey/contactbook/pkg/httputil"
	"github.com/platinummonkey/contactbook/pkg/middleware"
	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/platinummonkey/contactbook/pkg/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxRequestBytes caps request bodies accepted by the API
const DefaultMaxRequestBytes = 4 << 20

// Options wires the server's collaborators. Metrics, RateLimiter and Sessions may be nil.
type Options struct {
	Auth        *auth.Service
	Sessions    session.Store
	History     audit.Store
	Contacts    contacts.Store
	Metrics     *observability.Metrics
	Logger      *observability.Logger
	RateLimiter *middleware.RateLimiter

	Audit           audit.Config
	SessionTTL      time.Duration
	SecureCookies   bool
	MaxRequestBytes int64
	// Tracing wraps the handler with otelhttp
	Tracing bool
}

// Server represents our API server
type Server struct {
	router       *mux.Router
	handler      http.Handler
	authHandlers *AuthHandlers
	unmatched    []mux.MiddlewareFunc
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = DefaultMaxRequestBytes
	}

	s := &Server{
		router: mux.NewRouter(),
		authHandlers: NewAuthHandlers(opts.Auth, opts.Sessions, opts.Metrics, CookieSettings{
			TTL:    opts.SessionTTL,
			Secure: opts.SecureCookies,
		}),
	}

	s.setupMiddleware(opts)
	s.setupRoutes(opts)

	s.handler = s.router
	if opts.Tracing {
		s.handler = otelhttp.NewHandler(s.router, "contactbook",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + observability.RouteTemplate(r)
			}),
		)
	}
	return s
}

// setupMiddleware installs the chain every matched route runs through.
// Identity resolution is optional here; protected routes enforce it themselves.
func (s *Server) setupMiddleware(opts Options) {
	resolver := middleware.NewIdentityResolver(opts.Auth.Tokens(), opts.Sessions, opts.Metrics)

	chain := []mux.MiddlewareFunc{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(opts.Logger),
		observability.RecoveryMiddleware(opts.Logger),
	}
	if opts.Metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	chain = append(chain,
		httputil.MaxBytesMiddleware(opts.MaxRequestBytes),
		middleware.NewAuthMiddleware(resolver, true).Handler,
		audit.NewMiddleware(opts.History, opts.Audit, opts.Metrics).Handler,
	)

	// mux skips Use middleware for 404 and 405, so those handlers get the
	// same chain minus the content type check
	s.unmatched = chain
	s.router.Use(chain...)
	s.router.Use(httputil.ContentTypeMiddleware)
}

// wrapUnmatched applies the unmatched-route chain to h, outermost first
func (s *Server) wrapUnmatched(h http.Handler) http.Handler {
	for i := len(s.unmatched) - 1; i >= 0; i-- {
		h = s.unmatched[i](h)
	}
	return h
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options) {
	// Credential routes are public and throttled per client
	throttle := func(h http.HandlerFunc) http.Handler {
		if opts.RateLimiter == nil {
			return h
		}
		return opts.RateLimiter.Handler(h)
	}
	s.router.Handle("/api/auth/register", throttle(s.authHandlers.register)).Methods(http.MethodPost)
	s.router.Handle("/api/auth/login", throttle(s.authHandlers.login)).Methods(http.MethodPost)

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequirePrincipal)

	s.authHandlers.RegisterRoutes(protected)
	audit.NewHandlers(opts.History).RegisterRoutes(protected)
	contacts.NewHandlers(opts.Contacts).RegisterRoutes(protected)

	s.router.NotFoundHandler = s.wrapUnmatched(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	}))
	s.router.MethodNotAllowedHandler = s.wrapUnmatched(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	}))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router for route inspection
func (s *Server) Router() *mux.Router {
	return s.router
}
