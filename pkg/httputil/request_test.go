package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactBody struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Favorite    bool   `json:"favorite"`
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "object", body: `{"name": "Bob", "phone_number": "555-0100"}`},
		{name: "trailing whitespace", body: "{\"name\": \"Bob\"}\n\n"},
		{name: "empty body", body: "", wantErr: "request body is required"},
		{name: "syntax error", body: `{"name": Bob}`, wantErr: "invalid JSON at offset"},
		{name: "truncated", body: `{"name": "Bob"`, wantErr: "invalid JSON: unexpected end of body"},
		{name: "wrong field type", body: `{"favorite": "yes"}`, wantErr: "invalid JSON: favorite must be bool"},
		{name: "two values", body: `{"name": "Bob"}{"name": "Eve"}`, wantErr: "request body must contain a single JSON value"},
		{name: "trailing garbage", body: `{"name": "Bob"} x`, wantErr: "request body must contain a single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(tt.body))
			var dest contactBody

			err := ParseJSON(req, &dest)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bob", dest.Name)
		})
	}
}

func TestParseJSON_NoBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contacts", nil)

	var dest contactBody
	assert.ErrorIs(t, ParseJSON(req, &dest), ErrEmptyBody)
}

func TestParseJSON_BareString(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contacts/search", strings.NewReader(`"bob"`))

	var raw json.RawMessage
	require.NoError(t, ParseJSON(req, &raw))
	assert.JSONEq(t, `"bob"`, string(raw))
}

func TestParseJSON_TooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	req.Body = http.MaxBytesReader(w, req.Body, 16)

	var dest contactBody
	assert.EqualError(t, ParseJSON(req, &dest), "request body exceeds 16 bytes")
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(`{invalid}`))

	var dest contactBody
	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON at offset")
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		want    int64
		wantErr string
	}{
		{name: "max int64", vars: map[string]string{"id": "9223372036854775807"}, want: 9223372036854775807},
		{name: "missing", vars: map[string]string{}, wantErr: "missing path parameter: id"},
		{name: "not a number", vars: map[string]string{"id": "abc"}, wantErr: "id must be a positive integer"},
		{name: "zero", vars: map[string]string{"id": "0"}, wantErr: "id must be a positive integer"},
		{name: "negative", vars: map[string]string{"id": "-4"}, wantErr: "id must be a positive integer"},
		{name: "overflow", vars: map[string]string{"id": "9223372036854775808"}, wantErr: "id must be a positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/contacts/x", nil), tt.vars)

			id, err := ParsePathInt64(req, "id")

			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestParsePathInt64OrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/contacts/x", nil), map[string]string{"id": "x"})

	_, ok := ParsePathInt64OrError(w, req, "id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "id must be a positive integer"}`, w.Body.String())
}
