package contacts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/httputil"
)

// Handlers serves the contact CRUD and search API
type Handlers struct {
	store Store
}

// NewHandlers creates new contact handlers
func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers contact routes on a router that already requires a principal
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/contacts", h.createContact).Methods(http.MethodPost)
	router.HandleFunc("/contacts", h.listContacts).Methods(http.MethodGet)
	router.HandleFunc("/contacts/search", h.searchContacts).Methods(http.MethodPost)
	router.HandleFunc("/contacts/{id}", h.getContact).Methods(http.MethodGet)
	router.HandleFunc("/contacts/{id}", h.updateContact).Methods(http.MethodPatch)
	router.HandleFunc("/contacts/{id}", h.deleteContact).Methods(http.MethodDelete)
}

// createContact handles POST /contacts
func (h *Handlers) createContact(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	contact, err := h.store.Create(r.Context(), principal.AccountID, req)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}

	_ = httputil.WriteCreated(w, contact)
}

// listContacts handles GET /contacts
func (h *Handlers) listContacts(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	contacts, err := h.store.List(r.Context(), principal.AccountID)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, contacts)
}

// getContact handles GET /contacts/{id}
func (h *Handlers) getContact(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	contact, err := h.store.Get(r.Context(), principal.AccountID, id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, contact)
}

// updateContact handles PATCH /contacts/{id}
func (h *Handlers) updateContact(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	contact, err := h.store.Update(r.Context(), principal.AccountID, id, req)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, contact)
}

// deleteContact handles DELETE /contacts/{id}
func (h *Handlers) deleteContact(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), principal.AccountID, id); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// searchContacts handles POST /contacts/search.
// The body is either a bare JSON string or {"query": "..."}.
func (h *Handlers) searchContacts(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var raw json.RawMessage
	if !httputil.ParseJSONOrError(w, r, &raw) {
		return
	}
	query, err := parseSearchQuery(raw)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	contacts, err := h.store.Search(r.Context(), principal.AccountID, query)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}

	_ = httputil.WriteSuccess(w, contacts)
}

func (h *Handlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrContactNotFound) {
		httputil.WriteNotFoundError(w, ErrContactNotFound.Error())
		return
	}
	httputil.WriteInternalError(w, r, err)
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "unauthorized")
		return nil, false
	}
	return principal, true
}

func parseSearchQuery(raw json.RawMessage) (string, error) {
	var query string
	if err := json.Unmarshal(raw, &query); err != nil {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return "", errors.New(`search body must be a JSON string or {"query": "..."}`)
		}
		query = body.Query
	}
	if strings.TrimSpace(query) == "" {
		return "", errors.New("query is required")
	}
	return query, nil
}
