package audit

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/httputil"
	"github.com/platinummonkey/contactbook/pkg/observability"
)

// Handlers provides HTTP handlers for the request history API
type Handlers struct {
	store Store
}

// NewHandlers creates new history handlers
func NewHandlers(store Store) *Handlers {
	return &Handlers{
		store: store,
	}
}

// RegisterRoutes registers history routes on a router that already requires a principal
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/requesthistory", h.listHistory).Methods(http.MethodGet)
	router.HandleFunc("/requesthistory", h.purgeHistory).Methods(http.MethodDelete)
}

// listHistory handles GET /requesthistory
func (h *Handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "unauthorized")
		return
	}

	format, err := ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	records, err := h.store.ListByUser(r.Context(), principal.AccountID)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}

	// Encode before writing so a failure can still become a 500
	var body bytes.Buffer
	if err := writeExport(&body, records, format); err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", format.ContentType())
	header.Set("Cache-Control", "no-store")
	if format == ExportFormatCSV {
		header.Set("Content-Disposition", `attachment; filename="requesthistory.csv"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

// purgeHistory handles DELETE /requesthistory
func (h *Handlers) purgeHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "unauthorized")
		return
	}

	deleted, err := h.store.PurgeByUser(r.Context(), principal.AccountID)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).
		WithField("account_id", principal.AccountID).
		WithField("deleted", deleted).
		Info("request history purged")
	httputil.WriteNoContent(w)
}
