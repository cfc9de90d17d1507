package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/shramba/internal/store"
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

// storeError maps a store error to a response. Unexpected errors are logged
// and reported without detail.
func storeError(w http.ResponseWriter, err error, op string) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrPrecondition):
		jsonError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, store.ErrConflict):
		jsonError(w, http.StatusConflict, "conflicting update, try again")
	default:
		slog.Error(op, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the named path value as an ID, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// maxDays bounds day windows taken from the query string.
const maxDays = 36500

// daysParam reads a days= window, falling back to def when it is absent.
func daysParam(w http.ResponseWriter, r *http.Request, def time.Duration) (time.Duration, bool) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return def, true
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 0 || days > maxDays {
		jsonError(w, http.StatusBadRequest, "invalid days")
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

// emptyIfNil keeps empty collections encoded as [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
