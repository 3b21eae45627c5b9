package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/contactbook/pkg/observability"
)

// InternalErrorMessage is the only body a client sees for unexpected failures
const InternalErrorMessage = "internal server error"

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes data and writes it with status. Responses carry tokens
// and contact details, so they are marked uncacheable. If data cannot be
// encoded nothing is written and the error is returned.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	body = append(body, '\n')

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// WriteErrorMessage writes {"error": message} with status
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteValidationError answers 400 for a request that failed field checks
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteBadRequest answers 400 for a body or parameter that could not be parsed
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized answers 401
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteNotFoundError answers 404. Rows owned by another account are reported
// the same way as missing ones.
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteConflict answers 409
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusConflict, message)
}

// WriteInternalError logs err against the request and writes an opaque 500
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).
		WithError(err).
		WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).
		Error("request failed")
	WriteErrorMessage(w, http.StatusInternalServerError, InternalErrorMessage)
}

// WriteCreated answers 201 with data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess answers 200 with data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent answers 204
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
