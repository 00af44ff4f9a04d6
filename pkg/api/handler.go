package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/louhia/hankintadata/pkg/kit"
	"github.com/louhia/hankintadata/pkg/store"
)

// NewRouter returns an http.Handler with all query-service routes.
func NewRouter(invoices *store.InvoiceStore, ledger *store.Ledger) http.Handler {
	mux := http.NewServeMux()
	h := &handler{
		searchInvoices: searchInvoicesEndpoint(invoices),
		yearStats:      yearStatsEndpoint(invoices),
		listImports:    listImportsEndpoint(ledger),
		invoices:       invoices,
	}

	mux.HandleFunc("GET /v1/invoices", h.handleSearchInvoices)
	mux.HandleFunc("GET /v1/stats/years", h.handleYearStats)
	mux.HandleFunc("GET /v1/imports", h.handleListImports)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	searchInvoices kit.Endpoint
	yearStats      kit.Endpoint
	listImports    kit.Endpoint
	invoices       *store.InvoiceStore
}

// --- invoice search ---

func (h *handler) handleSearchInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.searchInvoices(r.Context(), &searchReq{Filter: filter})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- year stats ---

func (h *handler) handleYearStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.yearStats(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- import ledger ---

func (h *handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listImports(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status   string `json:"status"`
	Invoices int    `json:"invoices"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.invoices.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Invoices: count})
}

// --- helpers ---

type badParamError struct{ param string }

func (e badParamError) Error() string { return "invalid value for " + e.param }

func parseFilter(r *http.Request) (store.InvoiceFilter, error) {
	q := r.URL.Query()
	f := store.InvoiceFilter{
		SupplierQuery: q.Get("supplier"),
		SupplierID:    q.Get("supplier_id"),
		CategoryQuery: q.Get("category"),
		CityQuery:     q.Get("city"),
		UnitQuery:     q.Get("unit"),
		Sector:        q.Get("sector"),
		FromDate:      q.Get("from"),
		ToDate:        q.Get("to"),
	}

	intParams := map[string]*int{
		"year":   &f.Year,
		"limit":  &f.Limit,
		"offset": &f.Offset,
	}
	for name, dst := range intParams {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, badParamError{name}
			}
			*dst = n
		}
	}

	floatParams := map[string]**float64{
		"min_amount": &f.MinAmount,
		"max_amount": &f.MaxAmount,
	}
	for name, dst := range floatParams {
		if v := q.Get(name); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return f, badParamError{name}
			}
			*dst = &n
		}
	}

	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID tags every request with a correlation id, echoed back in the
// response headers.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
