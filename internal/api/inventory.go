package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/query"
	"github.com/erazemk/shramba/internal/store"
)

// InventoryHandler handles inventory browsing and stage queries.
type InventoryHandler struct {
	Store             *store.Store
	ExpirationWarning time.Duration
	Debounce          time.Duration
	Now               func() time.Time
}

// Browse handles GET /api/inventory. Every filter field, the search
// keyword and the sort order are taken from query parameters.
func (h *InventoryHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q, err := parseBrowseQuery(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.Store.Inventory.Records(r.Context())
	if err != nil {
		storeError(w, err, "loading inventory")
		return
	}
	jsonResponse(w, http.StatusOK, query.Apply(recs, q, h.Now()))
}

// Stream handles GET /api/inventory/stream. Results of the query are
// pushed as server-sent events whenever the inventory changes.
func (h *InventoryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	q, err := parseBrowseQuery(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := query.NewBrowser(r.Context(), h.Store.Inventory, q,
		query.WithDebounce(h.Debounce), query.WithClock(h.Now))
	defer b.Close()
	streamEvents(w, r, b.Results(), func(res query.Result) query.Result {
		res.Records = emptyIfNil(res.Records)
		return res
	})
}

// Expired handles GET /api/inventory/expired?at=.
func (h *InventoryHandler) Expired(w http.ResponseWriter, r *http.Request) {
	at := h.Now()
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := parseTime(v, false)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid at")
			return
		}
		at = t
	}

	details, err := h.Store.Inventory.ExpiredAsOf(r.Context(), at)
	if err != nil {
		storeError(w, err, "listing expired inventory")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// Expiring handles GET /api/inventory/expiring. The window defaults to the
// configured warning period and may be overridden with days=.
func (h *InventoryHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	window, ok := daysParam(w, r, h.ExpirationWarning)
	if !ok {
		return
	}

	now := h.Now()
	details, err := h.Store.Inventory.NearExpiration(r.Context(), now, now.Add(window))
	if err != nil {
		storeError(w, err, "listing expiring inventory")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// LowStock handles GET /api/inventory/low-stock.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	details, err := h.Store.Inventory.LowStock(r.Context())
	if err != nil {
		storeError(w, err, "listing low stock")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// ByLocation handles GET /api/locations/{id}/inventory.
func (h *InventoryHandler) ByLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.Store.Inventory.ByLocation(r.Context(), id)
	if err != nil {
		storeError(w, err, "listing inventory by location")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(details))
}

// parseBrowseQuery builds a query from URL parameters. Set-valued
// parameters may be repeated or comma-separated.
func parseBrowseQuery(v url.Values) (query.Query, error) {
	sortKey, err := query.ParseSortKey(v.Get("sort"))
	if err != nil {
		return query.Query{}, err
	}
	q := query.Query{
		Search:     v.Get("q"),
		Sort:       sortKey,
		Descending: v.Get("desc") == "true" || v.Get("desc") == "1",
		Filter: query.FilterSpec{
			Categories:    listParam(v, "category"),
			SubCategory:   v.Get("sub_category"),
			Brand:         v.Get("brand"),
			LocationAreas: listParam(v, "area"),
			Container:     v.Get("container"),
			Sublocation:   v.Get("sublocation"),
			OpenStatuses:  listParam(v, "open_status"),
			Seasons:       listParam(v, "season"),
			Tags:          listParam(v, "tag"),
		},
	}

	f := &q.Filter
	for _, s := range listParam(v, "rating") {
		r, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return query.Query{}, fmt.Errorf("invalid rating %q", s)
		}
		f.Ratings = append(f.Ratings, r)
	}

	ranges := []struct {
		name string
		dst  *query.Range
	}{
		{"rating", &f.Rating},
		{"quantity", &f.Quantity},
		{"price", &f.Price},
	}
	for _, rg := range ranges {
		if rg.dst.Min, err = floatParam(v, rg.name+"_min"); err != nil {
			return query.Query{}, err
		}
		if rg.dst.Max, err = floatParam(v, rg.name+"_max"); err != nil {
			return query.Query{}, err
		}
	}

	dates := []struct {
		name string
		dst  *query.DateRange
	}{
		{"expires", &f.Expiration},
		{"created", &f.Created},
		{"purchased", &f.Purchased},
		{"produced", &f.Produced},
	}
	for _, dr := range dates {
		if dr.dst.From, err = timeParam(v, dr.name+"_from", false); err != nil {
			return query.Query{}, err
		}
		if dr.dst.To, err = timeParam(v, dr.name+"_to", true); err != nil {
			return query.Query{}, err
		}
	}

	return q, nil
}

func listParam(v url.Values, key string) []string {
	var out []string
	for _, raw := range v[key] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func floatParam(v url.Values, key string) (*float64, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	return &f, nil
}

func timeParam(v url.Values, key string, endOfDay bool) (*time.Time, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, s)
	}
	return &t, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates. A plain date
// means the start of that day, or its last instant when endOfDay is set.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

var _ query.Source = (*store.InventoryStore)(nil)
