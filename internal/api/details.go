package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// DetailsHandler serves the per-stage detail of an item.
type DetailsHandler struct {
	Store *store.Store
}

// Get returns a handler for GET /api/items/{id}/<stage>.
func (h *DetailsHandler) Get(stage model.StageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		d, err := h.load(r.Context(), stage, id)
		if err != nil {
			storeError(w, err, "getting detail")
			return
		}
		if d == nil {
			jsonError(w, http.StatusNotFound, "detail not found")
			return
		}
		jsonResponse(w, http.StatusOK, d)
	}
}

// Put returns a handler for PUT /api/items/{id}/<stage>. The detail is
// created or replaced; the item's stages are left untouched.
func (h *DetailsHandler) Put(stage model.StageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		var raw json.RawMessage
		if err := decodeJSON(r, &raw); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		detail, err := decodeDetail(stage, raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		switch d := detail.(type) {
		case model.ShoppingDetail:
			d.ItemID = id
			err = h.Store.Shopping.Upsert(r.Context(), d)
		case model.InventoryDetail:
			d.ItemID = id
			err = h.Store.Inventory.Upsert(r.Context(), d)
		case model.WishlistDetail:
			d.ItemID = id
			err = h.Store.Wishlist.Upsert(r.Context(), d)
		}
		if err != nil {
			storeError(w, err, "saving detail")
			return
		}

		saved, err := h.load(r.Context(), stage, id)
		if err != nil {
			storeError(w, err, "getting detail")
			return
		}

		claims := GetClaims(r.Context())
		slog.Info("detail saved", "user", claims.Username, "item_id", id, "stage", stage)
		jsonResponse(w, http.StatusOK, saved)
	}
}

// Delete returns a handler for DELETE /api/items/{id}/<stage>.
func (h *DetailsHandler) Delete(stage model.StageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		var err error
		switch stage {
		case model.StageShopping:
			err = h.Store.Shopping.DeleteByItem(r.Context(), id)
		case model.StageInventory:
			err = h.Store.Inventory.DeleteByItem(r.Context(), id)
		case model.StageWishlist:
			err = h.Store.Wishlist.DeleteByItem(r.Context(), id)
		}
		if err != nil {
			storeError(w, err, "deleting detail")
			return
		}

		claims := GetClaims(r.Context())
		slog.Info("detail deleted", "user", claims.Username, "item_id", id, "stage", stage)
		jsonResponse(w, http.StatusOK, map[string]string{"message": "detail deleted"})
	}
}

// load returns the stage's detail for itemID, or nil when there is none.
func (h *DetailsHandler) load(ctx context.Context, stage model.StageType, itemID int64) (any, error) {
	switch stage {
	case model.StageShopping:
		d, err := h.Store.Shopping.GetByItem(ctx, itemID)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	case model.StageInventory:
		d, err := h.Store.Inventory.GetByItem(ctx, itemID)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	case model.StageWishlist:
		d, err := h.Store.Wishlist.GetByItem(ctx, itemID)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, nil
}
