package query

import (
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

// Query is a complete browse request: free-text search, filters and sort.
type Query struct {
	Search     string     `json:"search,omitempty"`
	Filter     FilterSpec `json:"filter"`
	Sort       SortKey    `json:"sort,omitempty"`
	Descending bool       `json:"descending,omitempty"`
}

// Apply returns the records matching q in q's order. Search is applied
// first, then the filter, then the sort. recs is not modified. now anchors
// remaining shelf life.
func Apply(recs []model.InventoryRecord, q Query, now time.Time) []model.InventoryRecord {
	keyword := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]model.InventoryRecord, 0, len(recs))
	for _, rec := range recs {
		if keyword != "" && !matchesText(rec, keyword) {
			continue
		}
		if !q.Filter.Matches(rec) {
			continue
		}
		out = append(out, rec)
	}

	sortRecords(out, q.Sort, q.Descending, now)
	return out
}
