package httputil

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteJSON(w, http.StatusOK, map[string]string{"token": "abc"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "{\"token\":\"abc\"}\n", w.Body.String())
}

func TestWriteJSON_EncodeFailureWritesNothing(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteJSON(w, http.StatusCreated, map[string]float64{"bad": math.NaN()})

	require.Error(t, err)
	assert.False(t, w.Flushed)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Type"))
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name  string
		write func(w http.ResponseWriter)
		code  int
	}{
		{"validation", func(w http.ResponseWriter) { WriteValidationError(w, "msg") }, http.StatusBadRequest},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "msg") }, http.StatusBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "msg") }, http.StatusUnauthorized},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "msg") }, http.StatusNotFound},
		{"conflict", func(w http.ResponseWriter) { WriteConflict(w, "msg") }, http.StatusConflict},
		{"custom", func(w http.ResponseWriter) { WriteErrorMessage(w, http.StatusTooManyRequests, "msg") }, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, `{"error":"msg"}`, w.Body.String())
		})
	}
}

func TestWriteInternalError(t *testing.T) {
	var logs bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &logs)

	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req = req.WithContext(observability.WithLogger(req.Context(), logger))
	w := httptest.NewRecorder()

	WriteInternalError(w, req, errors.New("pq: relation \"contacts\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "relation")
	assert.Contains(t, logs.String(), "relation")
	assert.Contains(t, logs.String(), "/api/contacts")
}

func TestSuccessWriters(t *testing.T) {
	created := httptest.NewRecorder()
	require.NoError(t, WriteCreated(created, map[string]int{"id": 123}))
	assert.Equal(t, http.StatusCreated, created.Code)
	assert.JSONEq(t, `{"id":123}`, created.Body.String())

	ok := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(ok, []string{"a"}))
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.JSONEq(t, `["a"]`, ok.Body.String())

	empty := httptest.NewRecorder()
	WriteNoContent(empty)
	assert.Equal(t, http.StatusNoContent, empty.Code)
	assert.Empty(t, empty.Body.String())
}
