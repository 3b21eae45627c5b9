// Package httputil holds the JSON plumbing shared by the contactbook handlers.
//
// Every answer is JSON marked Cache-Control: no-store. Errors have the shape
// {"error": "..."}; WriteInternalError logs the cause and the client only
// ever sees "internal server error".
//
// Handlers parse bodies and row ids with the OrError helpers, which answer
// 400 themselves:
//
//	var req contacts.CreateRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// ParseJSON accepts exactly one JSON value per body and rewrites decoder
// errors into messages that name the offending offset or field.
//
// The middleware in this package assigns request ids, logs completed
// requests, caps body size and requires JSON bodies on writes.
package httputil
