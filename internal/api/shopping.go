package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// ShoppingHandler handles shopping lists and their pending and purchased
// items.
type ShoppingHandler struct {
	Store *store.Store
	Now   func() time.Time
}

type purchaseRequest struct {
	ActualPrice *float64   `json:"actual_price,omitempty"`
	At          *time.Time `json:"at,omitempty"`
}

type totalsResponse struct {
	ListID    int64    `json:"list_id"`
	Estimated float64  `json:"estimated"`
	Actual    float64  `json:"actual"`
	Budget    *float64 `json:"budget,omitempty"`
}

// ListLists handles GET /api/lists.
func (h *ShoppingHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.Store.Lists.List(r.Context())
	if err != nil {
		storeError(w, err, "listing shopping lists")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(lists))
}

// CreateList handles POST /api/lists.
func (h *ShoppingHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req model.ShoppingList
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.Store.Lists.Create(r.Context(), req)
	if err != nil {
		storeError(w, err, "creating shopping list")
		return
	}
	list, err := h.Store.Lists.Get(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting shopping list")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("shopping list created", "user", claims.Username, "list", list.Name)
	jsonResponse(w, http.StatusCreated, list)
}

// GetList handles GET /api/lists/{id}.
func (h *ShoppingHandler) GetList(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Pending handles GET /api/lists/{id}/pending.
func (h *ShoppingHandler) Pending(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	details, err := h.Store.Shopping.PendingByList(r.Context(), list.ID)
	if err != nil {
		storeError(w, err, "listing pending items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// Purchased handles GET /api/lists/{id}/purchased.
func (h *ShoppingHandler) Purchased(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	details, err := h.Store.Shopping.PurchasedByList(r.Context(), list.ID)
	if err != nil {
		storeError(w, err, "listing purchased items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// Totals handles GET /api/lists/{id}/totals.
func (h *ShoppingHandler) Totals(w http.ResponseWriter, r *http.Request) {
	list, ok := h.list(w, r)
	if !ok {
		return
	}
	estimated, err := h.Store.Shopping.EstimatedTotal(r.Context(), list.ID)
	if err != nil {
		storeError(w, err, "computing estimated total")
		return
	}
	actual, err := h.Store.Shopping.ActualTotal(r.Context(), list.ID)
	if err != nil {
		storeError(w, err, "computing actual total")
		return
	}
	jsonResponse(w, http.StatusOK, totalsResponse{
		ListID:    list.ID,
		Estimated: estimated,
		Actual:    actual,
		Budget:    list.Budget,
	})
}

// Overdue handles GET /api/shopping/overdue.
func (h *ShoppingHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	details, err := h.Store.Shopping.Overdue(r.Context(), h.Now())
	if err != nil {
		storeError(w, err, "listing overdue items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// Purchase handles POST /api/items/{id}/purchase. It marks the shopping
// entry as bought without moving the item into inventory.
func (h *ShoppingHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	at := h.Now()
	if req.At != nil {
		at = *req.At
	}

	if err := h.Store.Shopping.MarkPurchased(r.Context(), id, req.ActualPrice, at); err != nil {
		storeError(w, err, "marking purchased")
		return
	}

	d, err := h.Store.Shopping.GetByItem(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting shopping detail")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item purchased", "user", claims.Username, "item_id", id)
	jsonResponse(w, http.StatusOK, d)
}

func (h *ShoppingHandler) list(w http.ResponseWriter, r *http.Request) (*model.ShoppingList, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	list, err := h.Store.Lists.Get(r.Context(), id)
	if err != nil {
		storeError(w, err, "getting shopping list")
		return nil, false
	}
	if list == nil {
		jsonError(w, http.StatusNotFound, "shopping list not found")
		return nil, false
	}
	return list, true
}
