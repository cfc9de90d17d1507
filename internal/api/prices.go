package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// PricesHandler handles the price log.
type PricesHandler struct {
	Store *store.Store
}

// List handles GET /api/items/{id}/prices.
func (h *PricesHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	records, err := h.Store.Prices.ListByItem(r.Context(), id)
	if err != nil {
		storeError(w, err, "listing prices")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(records))
}

// Add handles POST /api/items/{id}/prices.
func (h *PricesHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var rec model.PriceRecord
	if err := decodeJSON(r, &rec); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.ItemID = id

	priceID, err := h.Store.Prices.Add(r.Context(), rec)
	if err != nil {
		storeError(w, err, "recording price")
		return
	}

	// Reload to report the stored date and trimmed fields.
	records, err := h.Store.Prices.ListByItem(r.Context(), id)
	if err != nil {
		storeError(w, err, "listing prices")
		return
	}
	for _, stored := range records {
		if stored.ID == priceID {
			rec = stored
			break
		}
	}

	claims := GetClaims(r.Context())
	slog.Info("price recorded", "user", claims.Username, "item_id", id, "price", rec.Price, "channel", rec.Channel)
	jsonResponse(w, http.StatusCreated, rec)
}

// Stats handles GET /api/items/{id}/prices/stats.
func (h *PricesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.Store.Prices.Stats(r.Context(), id)
	if err != nil {
		storeError(w, err, "computing price stats")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Delete handles DELETE /api/prices/{id}.
func (h *PricesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.Prices.Delete(r.Context(), id); err != nil {
		storeError(w, err, "deleting price")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("price deleted", "user", claims.Username, "price_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "price deleted"})
}
