// Package audit records the request history of authenticated accounts.
//
// # Overview
//
// Middleware runs after identity resolution. For every request that carries a
// principal it stores one HistoryRecord before the handler runs: the method,
// the path, the raw query ("?a=b", or "" when absent), a UTC timestamp and,
// for methods other than GET and HEAD, the request body. Anonymous requests
// leave no trace.
//
// The body is captured up to Config.MaxBodyBytes and the handler still reads
// the complete original body. A failed capture or write is logged and counted
// in contactbook_audit_failures_total; the request itself is never affected.
// Each write runs in an "audit.record" trace span.
//
// # Usage Example
//
//	store := audit.NewDBStore(db)
//	router.Use(audit.NewMiddleware(store, audit.DefaultConfig(), metrics).Handler)
//	audit.NewHandlers(store).RegisterRoutes(protected)
//
// # Endpoints
//
//	GET    /api/requesthistory            caller's records, oldest first
//	GET    /api/requesthistory?format=csv  also ndjson; csv is an attachment
//	DELETE /api/requesthistory            purge the caller's records
//
// # Related Packages
//
//   - pkg/middleware: identity resolution
//   - pkg/storage: request_history schema
package audit
