// Package middleware resolves request identity and throttles credential endpoints.
//
// # Identity
//
//	resolver := middleware.NewIdentityResolver(issuer, sessions, metrics)
//	router.Use(middleware.NewAuthMiddleware(resolver, true).Handler)
//	protected.Use(middleware.RequirePrincipal)
//
// An Authorization header, when present, is authoritative: it must carry a valid
// "Bearer <token>" or the request is unauthenticated, whatever cookies it holds.
// Without the header the contactbook_session cookie is looked up in the session
// store. Every rejection is answered with the same 401 {"error":"unauthorized"}.
//
// # Rate Limiting
//
//	limiter := middleware.NewRateLimiter(middleware.CredentialRateLimitConfig())
//	authRoutes.Use(limiter.Handler)
//
// Each client address gets its own golang.org/x/time/rate limiter, kept in
// process memory and forgotten after two idle windows.
package middleware
