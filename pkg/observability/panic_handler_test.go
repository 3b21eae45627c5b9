package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "worker")
		panic("boom")
	}()

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "PANIC recovered", entry.Message)
	assert.Equal(t, "boom", entry.Fields["panic"])
	assert.Equal(t, "worker", entry.Fields["context"])
	assert.NotEmpty(t, entry.Fields["stack"])
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("bad"), "panic: bad")
	assert.EqualError(t, MustRecover(errors.New("worse")), "panic: worse")
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("panic becomes opaque 500", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(InfoLevel, &buf)

		handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("secret internal detail")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req = req.WithContext(WithLogger(req.Context(), logger))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), "secret")
		assert.Contains(t, buf.String(), "secret internal detail")
	})

	t.Run("passes through", func(t *testing.T) {
		logger := NewLogger(InfoLevel, &bytes.Buffer{})
		handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/x", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("abort handler is re-raised", func(t *testing.T) {
		logger := NewLogger(InfoLevel, &bytes.Buffer{})
		handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		})
	})
}
