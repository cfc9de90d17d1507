package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// TransfersHandler moves items between stages.
type TransfersHandler struct {
	Store *store.Store
}

type transferResponse struct {
	transitionResponse
	Item *model.ItemView `json:"item"`
}

// ToInventory handles POST /api/items/{id}/to-inventory. The body is the
// new inventory detail.
func (h *TransfersHandler) ToInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var d model.InventoryDetail
	if err := decodeJSON(r, &d); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Store.Transfers.ShoppingToInventory(r.Context(), id, d)
	if err != nil {
		storeError(w, err, "moving item to inventory")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item moved to inventory", "user", claims.Username, "item_id", id)
	h.respond(w, r, id, res)
}

// ToShopping handles POST /api/items/{id}/to-shopping. The body is the new
// shopping detail.
func (h *TransfersHandler) ToShopping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var d model.ShoppingDetail
	if err := decodeJSON(r, &d); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Store.Transfers.WishlistToShopping(r.Context(), id, d)
	if err != nil {
		storeError(w, err, "moving item to shopping")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item moved to shopping", "user", claims.Username, "item_id", id)
	h.respond(w, r, id, res)
}

func (h *TransfersHandler) respond(w http.ResponseWriter, r *http.Request, id int64, res store.TransitionResult) {
	view, err := h.Store.Transfers.View(r.Context(), id)
	if err != nil {
		storeError(w, err, "loading item")
		return
	}
	jsonResponse(w, http.StatusOK, transferResponse{
		transitionResponse: newTransitionResponse(res),
		Item:               view,
	})
}
