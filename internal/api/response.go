package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rsaleh/gearroom/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeError maps a store-layer error onto an HTTP response. Business-rule
// violations surface with their message; anything else is a storage failure
// and stays opaque to the caller.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrEmptyCheckout),
		errors.Is(err, store.ErrInvalidQuantity):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrNotAllSettled),
		errors.Is(err, store.ErrAlreadyClosed),
		errors.Is(err, store.ErrAlreadySettled),
		errors.Is(err, store.ErrNotVerified):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("storage failure", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
