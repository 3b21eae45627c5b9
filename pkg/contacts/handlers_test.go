package contacts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	NewHandlers(NewDBStore(storagetest.OpenSQLite(t))).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func do(router http.Handler, accountID int64, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if accountID != 0 {
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{AccountID: accountID, Username: "u"}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeContact(t *testing.T, w *httptest.ResponseRecorder) Contact {
	t.Helper()
	var c Contact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	return c
}

func TestHandlers_CRUD(t *testing.T) {
	router := setupRouter(t)

	w := do(router, 1, http.MethodPost, "/api/contacts", `{"name":"Bob","phone_number":"555-0100"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeContact(t, w)
	assert.Equal(t, "None", created.Email)
	assert.Equal(t, "None", created.Address)
	assert.Equal(t, int64(1), created.UserID)

	path := "/api/contacts/" + jsonInt(created.ID)

	w = do(router, 1, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bob", decodeContact(t, w).Name)

	w = do(router, 1, http.MethodPatch, path, `{"email":"bob@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	patched := decodeContact(t, w)
	assert.Equal(t, "bob@example.com", patched.Email)
	assert.Equal(t, "555-0100", patched.PhoneNumber)

	w = do(router, 1, http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []Contact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(router, 1, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, 1, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_OwnerScoping(t *testing.T) {
	router := setupRouter(t)

	w := do(router, 1, http.MethodPost, "/api/contacts", `{"name":"Bob","phone_number":"1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/api/contacts/" + jsonInt(decodeContact(t, w).ID)

	assert.Equal(t, http.StatusNotFound, do(router, 2, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, 2, http.MethodPatch, path, `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(router, 2, http.MethodDelete, path, "").Code)

	w = do(router, 2, http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestHandlers_Validation(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"missing name", http.MethodPost, "/api/contacts", `{"phone_number":"1"}`, http.StatusBadRequest},
		{"missing phone", http.MethodPost, "/api/contacts", `{"name":"a"}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/contacts", "", http.StatusBadRequest},
		{"invalid json", http.MethodPost, "/api/contacts", `{`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/contacts/abc", "", http.StatusBadRequest},
		{"blank name on patch", http.MethodPatch, "/api/contacts/1", `{"name":""}`, http.StatusBadRequest},
		{"empty search", http.MethodPost, "/api/contacts/search", `""`, http.StatusBadRequest},
		{"search wrong type", http.MethodPost, "/api/contacts/search", `42`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, 1, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandlers_Search(t *testing.T) {
	router := setupRouter(t)
	do(router, 1, http.MethodPost, "/api/contacts", `{"name":"Bob","phone_number":"555"}`)
	do(router, 1, http.MethodPost, "/api/contacts", `{"name":"Carol","phone_number":"777"}`)
	do(router, 2, http.MethodPost, "/api/contacts", `{"name":"Bobby","phone_number":"555"}`)

	for _, body := range []string{`"Bob"`, `{"query":"Bob"}`} {
		t.Run(body, func(t *testing.T) {
			w := do(router, 1, http.MethodPost, "/api/contacts/search", body)
			require.Equal(t, http.StatusOK, w.Code)

			var found []Contact
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
			require.Len(t, found, 1)
			assert.Equal(t, "Bob", found[0].Name)
		})
	}
}

func TestHandlers_RequiresPrincipal(t *testing.T) {
	router := setupRouter(t)

	w := do(router, 0, http.MethodGet, "/api/contacts", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
