package api

import (
	"net/http"
	"time"

	"github.com/erazemk/shramba/internal/auth"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/query"
	"github.com/erazemk/shramba/internal/store"
)

// RouterOptions tunes handler behaviour.
type RouterOptions struct {
	// ExpirationWarning is the default look-ahead of the expiring endpoint.
	ExpirationWarning time.Duration
	// Debounce is the quiet period of streamed browse queries.
	Debounce time.Duration
}

// NewRouter creates the API router with all endpoints registered. A nil m
// disables metrics and the /metrics endpoint.
func NewRouter(s *store.Store, signer *auth.Signer, m *metrics.Metrics, opts RouterOptions) http.Handler {
	if opts.Debounce <= 0 {
		opts.Debounce = query.DefaultDebounce
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{Accounts: s.Accounts, Signer: signer}
	usersHandler := &UsersHandler{Accounts: s.Accounts}
	itemsHandler := &ItemsHandler{Store: s}
	detailsHandler := &DetailsHandler{Store: s}
	transfersHandler := &TransfersHandler{Store: s}
	inventoryHandler := &InventoryHandler{
		Store:             s,
		ExpirationWarning: opts.ExpirationWarning,
		Debounce:          opts.Debounce,
		Now:               s.Now,
	}
	shoppingHandler := &ShoppingHandler{Store: s, Now: s.Now}
	wishlistHandler := &WishlistHandler{Store: s, Now: s.Now}
	pricesHandler := &PricesHandler{Store: s}
	locationsHandler := &LocationsHandler{Store: s}

	authMW := AuthMiddleware(signer, s.Accounts)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireMember := RequireRole(model.RoleMember)

	read := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	write := func(h http.HandlerFunc) http.Handler { return authMW(requireMember(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	// Own account.
	mux.Handle("PUT /api/auth/password", read(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", read(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Items: read (all roles), write (member+).
	mux.Handle("GET /api/items", read(itemsHandler.Search))
	mux.Handle("GET /api/items/similar", read(itemsHandler.Similar))
	mux.Handle("POST /api/items", write(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", read(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", write(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", write(itemsHandler.Delete))
	mux.Handle("POST /api/items/{id}/restore", write(itemsHandler.Restore))
	mux.Handle("GET /api/items/{id}/history", read(itemsHandler.History))
	mux.Handle("POST /api/items/{id}/transition", write(itemsHandler.Transition))

	// Stage details.
	for _, st := range []struct {
		path  string
		stage model.StageType
	}{
		{"shopping", model.StageShopping},
		{"inventory", model.StageInventory},
		{"wishlist", model.StageWishlist},
	} {
		mux.Handle("GET /api/items/{id}/"+st.path, read(detailsHandler.Get(st.stage)))
		mux.Handle("PUT /api/items/{id}/"+st.path, write(detailsHandler.Put(st.stage)))
		mux.Handle("DELETE /api/items/{id}/"+st.path, write(detailsHandler.Delete(st.stage)))
	}

	// Ledger.
	mux.Handle("GET /api/stages/{stage}", read(itemsHandler.ActiveByStage))
	mux.Handle("GET /api/stages/{stage}/stream", read(itemsHandler.StreamStage))

	// Transfers.
	mux.Handle("POST /api/items/{id}/to-inventory", write(transfersHandler.ToInventory))
	mux.Handle("POST /api/items/{id}/to-shopping", write(transfersHandler.ToShopping))

	// Inventory.
	mux.Handle("GET /api/inventory", read(inventoryHandler.Browse))
	mux.Handle("GET /api/inventory/stream", read(inventoryHandler.Stream))
	mux.Handle("GET /api/inventory/expired", read(inventoryHandler.Expired))
	mux.Handle("GET /api/inventory/expiring", read(inventoryHandler.Expiring))
	mux.Handle("GET /api/inventory/low-stock", read(inventoryHandler.LowStock))

	// Shopping.
	mux.Handle("GET /api/lists", read(shoppingHandler.ListLists))
	mux.Handle("POST /api/lists", write(shoppingHandler.CreateList))
	mux.Handle("GET /api/lists/{id}", read(shoppingHandler.GetList))
	mux.Handle("GET /api/lists/{id}/pending", read(shoppingHandler.Pending))
	mux.Handle("GET /api/lists/{id}/purchased", read(shoppingHandler.Purchased))
	mux.Handle("GET /api/lists/{id}/totals", read(shoppingHandler.Totals))
	mux.Handle("GET /api/shopping/overdue", read(shoppingHandler.Overdue))
	mux.Handle("POST /api/items/{id}/purchase", write(shoppingHandler.Purchase))

	// Wishlist.
	mux.Handle("GET /api/wishlist/deals", read(wishlistHandler.Deals))
	mux.Handle("GET /api/wishlist/stale", read(wishlistHandler.Stale))
	mux.Handle("POST /api/items/{id}/price-check", write(wishlistHandler.PriceCheck))

	// Prices.
	mux.Handle("GET /api/items/{id}/prices", read(pricesHandler.List))
	mux.Handle("POST /api/items/{id}/prices", write(pricesHandler.Add))
	mux.Handle("GET /api/items/{id}/prices/stats", read(pricesHandler.Stats))
	mux.Handle("DELETE /api/prices/{id}", write(pricesHandler.Delete))

	// Locations.
	mux.Handle("GET /api/locations", read(locationsHandler.List))
	mux.Handle("POST /api/locations", write(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", read(locationsHandler.Get))
	mux.Handle("GET /api/locations/{id}/inventory", read(inventoryHandler.ByLocation))

	return LoggingMiddleware(m)(mux)
}
