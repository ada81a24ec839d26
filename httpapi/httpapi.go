package httpapi

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/kvedge/kvedge/handler"
	"github.com/kvedge/kvedge/kverrors"
)

// API wraps a handler.Handler with net/http routes.
type API struct {
	h *handler.Handler
}

// New constructs an API over an already-wired Handler.
func New(h *handler.Handler) *API { return &API{h: h} }

// Mux builds a ServeMux with the three routes wired. Registered as methods
// so a caller can mount it under a prefix or alongside other routes (e.g.
// /metrics — see cmd/server).
func (a *API) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/create", a.handleCreate)
	mux.HandleFunc("/read", a.handleRead)
	mux.HandleFunc("/delete", a.handleDelete)
	return mux
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	key := r.FormValue("key")
	value := r.FormValue("value")

	if err := a.h.Create(r.Context(), key, []byte(value)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "created\n")
}

func (a *API) handleRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key := r.URL.Query().Get("key")

	value, err := a.h.Read(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key := r.URL.Query().Get("key")

	if err := a.h.Delete(r.Context(), key); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "deleted\n")
}

// writeErr maps a kverrors kind to its HTTP status equivalent.
// Kinds that reach here with no matching case — they should not — fall
// back to 500 rather than leaking internals to the client.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, kverrors.BadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, kverrors.NotFound):
		status = http.StatusNotFound
	case errors.Is(err, kverrors.Timeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, kverrors.Shutdown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, kverrors.StoreError), errors.Is(err, kverrors.ConnectError):
		status = http.StatusInternalServerError
	default:
		log.Printf("httpapi: unmapped error kind, defaulting to 500: %v", err)
	}
	http.Error(w, err.Error(), status)
}
