package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/auth"
	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/query"
	"github.com/erazemk/shramba/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	signer *auth.Signer
	token  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	m := metrics.New()
	s := store.New(db.NewTestDB(t), live.NewHub(), store.Options{Metrics: m})
	signer := auth.NewSigner(testJWTSecret, 0)
	router := NewRouter(s, signer, m, RouterOptions{
		ExpirationWarning: 7 * 24 * time.Hour,
		Debounce:          10 * time.Millisecond,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, store: s, signer: signer}
	createUser(t, env, "admin", "password", model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	env.token = loginResp["token"]
	if env.token == "" {
		t.Fatal("empty token from login")
	}

	return env
}

func createUser(t *testing.T, env *testEnv, username, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := env.store.Accounts.CreateUser(context.Background(), username, string(hash), role)
	require.NoError(t, err)
	return u
}

func tokenFor(t *testing.T, env *testEnv, u *model.User) string {
	t.Helper()
	token, _, err := env.signer.Issue(u)
	require.NoError(t, err)
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// call performs an authenticated request, decodes the response into out
// when it is non-nil, and returns the status code.
func (env *testEnv) call(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	return env.callAs(t, env.token, method, path, body, out)
}

func (env *testEnv) callAs(t *testing.T, token, method, path string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, env.server.URL+path, token, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

// itemView mirrors model.ItemView with the detail left undecoded.
type itemView struct {
	Item   model.Item        `json:"item"`
	Stages []model.StageType `json:"stages"`
	Detail json.RawMessage   `json:"detail"`
}

func (env *testEnv) createItem(t *testing.T, body map[string]any) itemView {
	t.Helper()
	var view itemView
	status := env.call(t, "POST", "/api/items", body, &view)
	require.Equal(t, http.StatusCreated, status)
	return view
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Test missing fields.
	body, _ = json.Marshal(map[string]string{"username": "admin"})
	resp, _ = http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	if status := env.call(t, "GET", "/api/items?q=x", nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", status)
	}
	if status := env.call(t, "POST", "/api/auth/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", status)
	}
	if status := env.call(t, "GET", "/api/items?q=x", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)

	status := env.call(t, "PUT", "/api/auth/password", map[string]string{
		"current_password": "wrong", "new_password": "newpassword",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = env.call(t, "PUT", "/api/auth/password", map[string]string{
		"current_password": "password", "new_password": "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.call(t, "PUT", "/api/auth/password", map[string]string{
		"current_password": "password", "new_password": "newpassword",
	}, nil)
	assert.Equal(t, http.StatusOK, status)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "newpassword"})
	resp, err := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := http.Get(env.server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if status := env.callAs(t, "not-a-token", "GET", "/api/items", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", status)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	viewer := tokenFor(t, env, createUser(t, env, "viewer1", "password", model.RoleViewer))
	member := tokenFor(t, env, createUser(t, env, "member1", "password", model.RoleMember))

	item := map[string]any{"name": "Test", "category": "Misc"}

	// Viewers read but never write.
	if status := env.callAs(t, viewer, "POST", "/api/items", item, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for viewer creating item, got %d", status)
	}
	if status := env.callAs(t, viewer, "GET", "/api/inventory", nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 for viewer browsing, got %d", status)
	}

	// Members write but do not manage users.
	if status := env.callAs(t, member, "POST", "/api/items", item, nil); status != http.StatusCreated {
		t.Errorf("expected 201 for member creating item, got %d", status)
	}
	if status := env.callAs(t, member, "GET", "/api/users", nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for member accessing users, got %d", status)
	}
}

func TestUsersAPIFlow(t *testing.T) {
	env := setupTestServer(t)

	var user model.User
	status := env.call(t, "POST", "/api/users", map[string]string{
		"username": "bob", "password": "password", "role": model.RoleMember,
	}, &user)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "bob", user.Username)

	status = env.call(t, "POST", "/api/users", map[string]string{
		"username": "bob", "password": "password", "role": model.RoleMember,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = env.call(t, "POST", "/api/users", map[string]string{
		"username": "carol", "password": "password", "role": "owner",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.call(t, "PUT", "/api/users/"+itoa(user.ID), map[string]string{"role": model.RoleViewer}, &user)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.RoleViewer, user.Role)

	var users []model.User
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/users", nil, &users))
	assert.Len(t, users, 2)

	assert.Equal(t, http.StatusOK, env.call(t, "DELETE", "/api/users/"+itoa(user.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(t, "DELETE", "/api/users/"+itoa(user.ID), nil, nil))
	assert.Equal(t, http.StatusBadRequest, env.call(t, "DELETE", "/api/users/1", nil, nil))
}

func TestItemLifecycleFlow(t *testing.T) {
	env := setupTestServer(t)

	var list model.ShoppingList
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/lists", map[string]any{"name": "Weekly"}, &list))
	var loc model.Location
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/locations", map[string]any{"area": "Kitchen", "container": "Fridge"}, &loc))

	view := env.createItem(t, map[string]any{
		"name":     "Milk",
		"category": "Dairy",
		"stage":    "wishlist",
		"detail":   map[string]any{"target_price": 1.5},
	})
	id := itoa(view.Item.ID)
	assert.Equal(t, []model.StageType{model.StageWishlist}, view.Stages)

	// Wishlist to shopping.
	var moved struct {
		Deactivated int64    `json:"deactivated"`
		Warning     string   `json:"warning"`
		Item        itemView `json:"item"`
	}
	status := env.call(t, "POST", "/api/items/"+id+"/to-shopping", map[string]any{
		"list_id": list.ID, "quantity": 2, "estimated_price": 1.2,
	}, &moved)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, moved.Deactivated)
	assert.Empty(t, moved.Warning)
	assert.Equal(t, []model.StageType{model.StageShopping}, moved.Item.Stages)

	var pending []model.ShoppingDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/lists/"+itoa(list.ID)+"/pending", nil, &pending))
	require.Len(t, pending, 1)

	var totals totalsResponse
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/lists/"+itoa(list.ID)+"/totals", nil, &totals))
	assert.InDelta(t, 2.4, totals.Estimated, 1e-9)

	// Purchase, then move into inventory.
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/items/"+id+"/purchase", map[string]any{"actual_price": 1.1}, nil))
	status = env.call(t, "POST", "/api/items/"+id+"/to-inventory", map[string]any{
		"location_id": loc.ID, "quantity": 2, "rating": 4,
	}, &moved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []model.StageType{model.StageInventory}, moved.Item.Stages)

	var inv model.InventoryDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/items/"+id+"/inventory", nil, &inv))
	assert.Equal(t, loc.ID, *inv.LocationID)
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/lists/"+itoa(list.ID)+"/totals", nil, &totals))
	assert.InDelta(t, 2.2, totals.Actual, 1e-9)

	var history []model.StateEntry
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/items/"+id+"/history", nil, &history))
	require.Len(t, history, 3)
	assert.Equal(t, model.StageInventory, history[0].StageType)
	assert.True(t, history[0].IsActive)

	// Soft delete hides the detail; restore brings it back.
	require.Equal(t, http.StatusOK, env.call(t, "DELETE", "/api/items/"+id+"?reason=spoiled", nil, nil))
	var deleted itemView
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/items/"+id, nil, &deleted))
	assert.Equal(t, []model.StageType{model.StageDeleted}, deleted.Stages)
	assert.Empty(t, deleted.Detail)

	var restored itemView
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/items/"+id+"/restore", map[string]string{"stage": "inventory"}, &restored))
	assert.Equal(t, []model.StageType{model.StageInventory}, restored.Stages)
	assert.Contains(t, string(restored.Detail), `"location_id"`)
}

func TestStoreErrorMapping(t *testing.T) {
	env := setupTestServer(t)
	view := env.createItem(t, map[string]any{"name": "Rice", "category": "Pantry"})
	id := itoa(view.Item.ID)

	var errBody map[string]string
	status := env.call(t, "POST", "/api/items", map[string]any{"name": " ", "category": "Pantry"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name", errBody["field"])

	assert.Equal(t, http.StatusNotFound, env.call(t, "GET", "/api/items/999", nil, nil))
	assert.Equal(t, http.StatusBadRequest, env.call(t, "GET", "/api/items/abc", nil, nil))
	assert.Equal(t, http.StatusPreconditionFailed,
		env.call(t, "POST", "/api/items/"+id+"/to-inventory", map[string]any{"quantity": 1}, nil))
	assert.Equal(t, http.StatusPreconditionFailed,
		env.call(t, "POST", "/api/items/"+id+"/restore", map[string]string{"stage": "SHOPPING"}, nil))
	assert.Equal(t, http.StatusBadRequest,
		env.call(t, "POST", "/api/items/"+id+"/restore", map[string]string{"stage": "DELETED"}, nil))
	assert.Equal(t, http.StatusNotFound, env.call(t, "GET", "/api/items/"+id+"/shopping", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(t, "DELETE", "/api/items/"+id+"/shopping", nil, nil))
	assert.Equal(t, http.StatusBadRequest,
		env.call(t, "PUT", "/api/items/"+id+"/inventory", map[string]any{"quantity": -1}, nil))
}

func TestTransitionEndpointWarns(t *testing.T) {
	env := setupTestServer(t)
	view := env.createItem(t, map[string]any{"name": "Tent", "category": "Outdoor"})

	var res transitionResponse
	status := env.call(t, "POST", "/api/items/"+itoa(view.Item.ID)+"/transition", map[string]string{
		"from": "wishlist", "to": "shopping",
	}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, res.Deactivated)
	assert.NotEmpty(t, res.Warning)

	var active []model.StateEntry
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/stages/shopping", nil, &active))
	require.Len(t, active, 1)
	assert.Equal(t, view.Item.ID, active[0].ItemID)
}

func TestSearchAndSimilar(t *testing.T) {
	env := setupTestServer(t)
	env.createItem(t, map[string]any{"name": "Olive Oil", "category": "Pantry", "brand": "Acme"})
	env.createItem(t, map[string]any{"name": "Oil Filter", "category": "Garage"})

	var items []model.Item
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/items?q=oil", nil, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Oil Filter", items[0].Name)

	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/items/similar?name=Olive+Oil&category=Pantry&brand=Acme", nil, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Olive Oil", items[0].Name)
}

func TestInventoryBrowse(t *testing.T) {
	env := setupTestServer(t)

	var kitchen, garage model.Location
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/locations", map[string]any{"area": "Kitchen"}, &kitchen))
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/locations", map[string]any{"area": "Garage"}, &garage))

	env.createItem(t, map[string]any{
		"name": "Flour", "category": "Pantry", "stage": "INVENTORY",
		"detail": map[string]any{"quantity": 2, "rating": 3, "location_id": kitchen.ID},
	})
	env.createItem(t, map[string]any{
		"name": "Sugar", "category": "Pantry", "stage": "INVENTORY",
		"detail": map[string]any{"quantity": 0.5, "rating": 5, "location_id": kitchen.ID},
	})
	env.createItem(t, map[string]any{
		"name": "Motor Oil", "category": "Car", "stage": "INVENTORY",
		"detail": map[string]any{"quantity": 1, "location_id": garage.ID, "tags": "winter, car"},
	})

	var recs []model.InventoryRecord
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory?area=kitchen&sort=rating&desc=true", nil, &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "Sugar", recs[0].Item.Name)
	assert.Equal(t, "Flour", recs[1].Item.Name)

	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory?tag=winter", nil, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "Motor Oil", recs[0].Item.Name)
	require.NotNil(t, recs[0].Location)
	assert.Equal(t, "Garage", recs[0].Location.Area)

	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory?quantity_max=1&category=Pantry,Car", nil, &recs))
	assert.Len(t, recs, 2)

	var low []model.InventoryDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory/low-stock", nil, &low))
	assert.Len(t, low, 2)

	var byLoc []model.InventoryDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/locations/"+itoa(garage.ID)+"/inventory", nil, &byLoc))
	assert.Len(t, byLoc, 1)

	assert.Equal(t, http.StatusBadRequest, env.call(t, "GET", "/api/inventory?sort=colour", nil, nil))
	assert.Equal(t, http.StatusBadRequest, env.call(t, "GET", "/api/inventory?price_min=cheap", nil, nil))
}

func TestExpiringInventory(t *testing.T) {
	env := setupTestServer(t)
	now := time.Now().UTC()

	env.createItem(t, map[string]any{
		"name": "Yoghurt", "category": "Dairy", "stage": "INVENTORY",
		"detail": map[string]any{"quantity": 1, "expiration_date": now.Add(48 * time.Hour)},
	})
	env.createItem(t, map[string]any{
		"name": "Cheese", "category": "Dairy", "stage": "INVENTORY",
		"detail": map[string]any{"quantity": 1, "expiration_date": now.Add(-48 * time.Hour)},
	})

	var details []model.InventoryDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory/expiring", nil, &details))
	assert.Len(t, details, 1)
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory/expiring?days=1", nil, &details))
	assert.Empty(t, details)
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory/expiring?days=36500", nil, &details))
	assert.Len(t, details, 1)
	for _, days := range []string{"-1", "200000", "soon"} {
		assert.Equal(t, http.StatusBadRequest, env.call(t, "GET", "/api/inventory/expiring?days="+days, nil, nil), days)
		assert.Equal(t, http.StatusBadRequest, env.call(t, "GET", "/api/wishlist/stale?days="+days, nil, nil), days)
	}
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/inventory/expired", nil, &details))
	assert.Len(t, details, 1)
}

func TestWishlistAndPrices(t *testing.T) {
	env := setupTestServer(t)
	view := env.createItem(t, map[string]any{
		"name": "Headphones", "category": "Electronics", "stage": "WISHLIST",
		"detail": map[string]any{"target_price": 100},
	})
	id := itoa(view.Item.ID)

	var stale []model.WishlistDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/wishlist/stale", nil, &stale))
	assert.Len(t, stale, 1)

	var w model.WishlistDetail
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/items/"+id+"/price-check", map[string]any{"price": 120}, &w))
	require.Equal(t, http.StatusOK, env.call(t, "POST", "/api/items/"+id+"/price-check", map[string]any{"price": 95}, &w))
	assert.Equal(t, 95.0, *w.CurrentPrice)
	assert.Equal(t, 95.0, *w.LowestPrice)
	assert.Equal(t, 120.0, *w.HighestPrice)

	var deals []model.WishlistDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/wishlist/deals", nil, &deals))
	assert.Len(t, deals, 1)

	var rec model.PriceRecord
	require.Equal(t, http.StatusCreated, env.call(t, "POST", "/api/items/"+id+"/prices", map[string]any{"price": 95, "channel": "Online"}, &rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.RecordDate.IsZero())
	assert.Equal(t, http.StatusBadRequest, env.call(t, "POST", "/api/items/"+id+"/prices", map[string]any{"price": 95}, nil))

	var stats model.PriceStats
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/items/"+id+"/prices/stats", nil, &stats))
	assert.Equal(t, 1, stats.Count)

	assert.Equal(t, http.StatusOK, env.call(t, "DELETE", "/api/prices/"+itoa(rec.ID), nil, nil))
	assert.Equal(t, http.StatusNotFound, env.call(t, "DELETE", "/api/prices/"+itoa(rec.ID), nil, nil))
}

func TestOverdueShopping(t *testing.T) {
	env := setupTestServer(t)
	env.createItem(t, map[string]any{
		"name": "Batteries", "category": "Home", "stage": "SHOPPING",
		"detail": map[string]any{"quantity": 4, "deadline": time.Now().Add(-time.Hour)},
	})

	var overdue []model.ShoppingDetail
	require.Equal(t, http.StatusOK, env.call(t, "GET", "/api/shopping/overdue", nil, &overdue))
	assert.Len(t, overdue, 1)
}

func TestInventoryStream(t *testing.T) {
	env := setupTestServer(t)

	req, err := authRequest("GET", env.server.URL+"/api/inventory/stream?q=beans", env.token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)

	first := nextResult(t, events)
	assert.Empty(t, first.Records)

	env.createItem(t, map[string]any{
		"name": "Baked Beans", "category": "Pantry", "stage": "INVENTORY",
		"detail": map[string]any{"quantity": 3},
	})

	for {
		res := nextResult(t, events)
		if len(res.Records) == 1 {
			assert.Equal(t, "Baked Beans", res.Records[0].Item.Name)
			return
		}
	}
}

func readEvents(t *testing.T, body io.Reader) <-chan string {
	t.Helper()
	out := make(chan string, 16)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				out <- data
			}
		}
	}()
	return out
}

func nextResult(t *testing.T, events <-chan string) query.Result {
	t.Helper()
	select {
	case data, ok := <-events:
		require.True(t, ok, "stream closed")
		var res query.Result
		require.NoError(t, json.Unmarshal([]byte(data), &res))
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return query.Result{}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.createItem(t, map[string]any{"name": "Soap", "category": "Bathroom"})

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `shramba_transfers_total{kind="create",outcome="ok"} 1`)
	assert.Contains(t, string(body), `route="POST /api/items"`)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
