package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// LocationsHandler handles storage locations.
type LocationsHandler struct {
	Store *store.Store
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Store.Locations.List(r.Context())
	if err != nil {
		storeError(w, err, "listing locations")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(locs))
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.Location
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.Store.Locations.Create(r.Context(), req)
	if err != nil {
		storeError(w, err, "creating location")
		return
	}
	loc, err := h.Store.Locations.Get(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting location")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location created", "user", claims.Username, "area", loc.Area)
	jsonResponse(w, http.StatusCreated, loc)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	loc, err := h.Store.Locations.Get(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting location")
		return
	}
	if loc == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, loc)
}
