package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// ItemsHandler handles item identity, lifecycle and detail endpoints.
type ItemsHandler struct {
	Store *store.Store
}

// createItemRequest carries the item fields and an optional initial
// detail for stage.
type createItemRequest struct {
	model.Item
	Stage  string          `json:"stage,omitempty"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

type deleteItemRequest struct {
	Reason string `json:"reason"`
}

type restoreItemRequest struct {
	Stage string `json:"stage"`
}

type transitionRequest struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	ContextID *int64  `json:"context_id,omitempty"`
	Reason    *string `json:"reason,omitempty"`
}

type transitionResponse struct {
	Deactivated int64  `json:"deactivated"`
	Warning     string `json:"warning,omitempty"`
}

func newTransitionResponse(res store.TransitionResult) transitionResponse {
	out := transitionResponse{Deactivated: res.Deactivated}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	return out
}

// decodeDetail decodes raw as the detail type of stage.
func decodeDetail(stage model.StageType, raw json.RawMessage) (model.Detail, error) {
	switch stage {
	case model.StageShopping:
		var d model.ShoppingDetail
		err := json.Unmarshal(raw, &d)
		return d, err
	case model.StageInventory:
		var d model.InventoryDetail
		err := json.Unmarshal(raw, &d)
		return d, err
	case model.StageWishlist:
		var d model.WishlistDetail
		err := json.Unmarshal(raw, &d)
		return d, err
	}
	return nil, fmt.Errorf("stage %s has no detail", stage)
}

// Search handles GET /api/items?q=.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.Items.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		storeError(w, err, "searching items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// Similar handles GET /api/items/similar.
func (h *ItemsHandler) Similar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Store.Items.FindSimilar(r.Context(),
		q.Get("name"), q.Get("category"), q.Get("brand"), q.Get("specification"))
	if err != nil {
		storeError(w, err, "finding similar items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var detail model.Detail
	if req.Stage != "" {
		stage, err := model.ParseStage(req.Stage)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		raw := req.Detail
		if len(raw) == 0 {
			raw = json.RawMessage("{}")
		}
		if detail, err = decodeDetail(stage, raw); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid detail: "+err.Error())
			return
		}
	}

	id, err := h.Store.Transfers.Create(r.Context(), req.Item, detail)
	if err != nil {
		storeError(w, err, "creating item")
		return
	}

	view, err := h.Store.Transfers.View(r.Context(), id)
	if err != nil {
		storeError(w, err, "loading item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item created", "user", claims.Username, "item", view.Item.Name, "stages", view.Stages)
	jsonResponse(w, http.StatusCreated, view)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.Store.Transfers.View(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting item")
		return
	}
	if view == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, view)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var item model.Item
	if err := decodeJSON(r, &item); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item.ID = id

	if err := h.Store.Items.Update(r.Context(), item); err != nil {
		storeError(w, err, "updating item")
		return
	}

	updated, err := h.Store.Items.Get(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. Items are only ever soft-deleted;
// the optional reason is taken from the reason query parameter.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	reason := r.URL.Query().Get("reason")
	if err := h.Store.Transfers.SoftDelete(r.Context(), id, reason); err != nil {
		storeError(w, err, "deleting item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item_id", id, "reason", reason)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Restore handles POST /api/items/{id}/restore.
func (h *ItemsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req restoreItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stage, err := model.ParseStage(req.Stage)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.Transfers.Restore(r.Context(), id, stage); err != nil {
		storeError(w, err, "restoring item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item restored", "user", claims.Username, "item_id", id, "stage", stage)
	h.Get(w, r)
}

// History handles GET /api/items/{id}/history.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	entries, err := h.Store.Ledger.History(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting item history")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(entries))
}

// Transition handles POST /api/items/{id}/transition.
func (h *ItemsHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from := model.StageType(strings.ToUpper(req.From))
	to := model.StageType(strings.ToUpper(req.To))
	res, err := h.Store.Ledger.Transition(r.Context(), id, from, to, req.ContextID, req.Reason)
	if err != nil {
		storeError(w, err, "transitioning item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item transitioned", "user", claims.Username, "item_id", id, "from", from, "to", to)
	jsonResponse(w, http.StatusOK, newTransitionResponse(res))
}

// ActiveByStage handles GET /api/stages/{stage}.
func (h *ItemsHandler) ActiveByStage(w http.ResponseWriter, r *http.Request) {
	stage, err := model.ParseStage(r.PathValue("stage"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.Store.Ledger.ListActive(r.Context(), stage)
	if err != nil {
		storeError(w, err, "listing active entries")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(entries))
}

// StreamStage handles GET /api/stages/{stage}/stream.
func (h *ItemsHandler) StreamStage(w http.ResponseWriter, r *http.Request) {
	stage, err := model.ParseStage(r.PathValue("stage"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub := h.Store.Ledger.ActiveItemsByStage(r.Context(), stage)
	defer sub.Close()
	streamEvents(w, r, sub.C, emptyIfNil[model.StateEntry])
}
