package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/shramba/internal/store"
)

// defaultPriceCheckAge is how old a price check may be before the item is
// reported as stale.
const defaultPriceCheckAge = 7 * 24 * time.Hour

// WishlistHandler handles wishlist price tracking.
type WishlistHandler struct {
	Store *store.Store
	Now   func() time.Time
}

type priceCheckRequest struct {
	Price float64    `json:"price"`
	At    *time.Time `json:"at,omitempty"`
}

// Deals handles GET /api/wishlist/deals.
func (h *WishlistHandler) Deals(w http.ResponseWriter, r *http.Request) {
	details, err := h.Store.Wishlist.ItemsAtOrUnderTargetPrice(r.Context())
	if err != nil {
		storeError(w, err, "listing wishlist deals")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// Stale handles GET /api/wishlist/stale?days=.
func (h *WishlistHandler) Stale(w http.ResponseWriter, r *http.Request) {
	age, ok := daysParam(w, r, defaultPriceCheckAge)
	if !ok {
		return
	}

	details, err := h.Store.Wishlist.NeedingPriceCheck(r.Context(), h.Now().Add(-age))
	if err != nil {
		storeError(w, err, "listing stale wishlist items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// PriceCheck handles POST /api/items/{id}/price-check.
func (h *WishlistHandler) PriceCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req priceCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	at := h.Now()
	if req.At != nil {
		at = *req.At
	}

	if err := h.Store.Wishlist.RecordPriceCheck(r.Context(), id, req.Price, at); err != nil {
		storeError(w, err, "recording price check")
		return
	}

	d, err := h.Store.Wishlist.GetByItem(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting wishlist detail")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("price checked", "user", claims.Username, "item_id", id, "price", req.Price)
	jsonResponse(w, http.StatusOK, d)
}
