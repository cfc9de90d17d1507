// Package query filters and sorts inventory records in memory, and keeps a
// debounced live view of the result for a changing query.
package query

import (
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

// Range bounds a numeric field. Nil bounds are open; both bounds are
// inclusive.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether the range has no bounds.
func (r Range) IsZero() bool { return r.Min == nil && r.Max == nil }

// Contains reports whether v lies within the range. A missing value only
// matches an unbounded range.
func (r Range) Contains(v *float64) bool {
	if r.IsZero() {
		return true
	}
	if v == nil {
		return false
	}
	if r.Min != nil && *v < *r.Min {
		return false
	}
	if r.Max != nil && *v > *r.Max {
		return false
	}
	return true
}

// DateRange bounds a time field. Nil bounds are open; both bounds are
// inclusive.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// IsZero reports whether the range has no bounds.
func (r DateRange) IsZero() bool { return r.From == nil && r.To == nil }

// Contains reports whether t lies within the range. A missing time only
// matches an unbounded range.
func (r DateRange) Contains(t *time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t == nil {
		return false
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// FilterSpec is a conjunction of optional predicates. An empty set or an
// unbounded range places no constraint; within a set any member matches.
// Set membership and equality are case-insensitive; seasons and tags match
// by substring.
type FilterSpec struct {
	Categories    []string `json:"categories,omitempty"`
	SubCategory   string   `json:"sub_category,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	LocationAreas []string `json:"location_areas,omitempty"`
	Container     string   `json:"container,omitempty"`
	Sublocation   string   `json:"sublocation,omitempty"`
	OpenStatuses  []string `json:"open_statuses,omitempty"`

	// Ratings matches exact ratings. Rating is only consulted when Ratings
	// is empty.
	Ratings []float64 `json:"ratings,omitempty"`
	Rating  Range     `json:"rating"`

	Seasons []string `json:"seasons,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	Quantity Range `json:"quantity"`
	Price    Range `json:"price"`

	Expiration DateRange `json:"expiration"`
	Created    DateRange `json:"created"`
	Purchased  DateRange `json:"purchased"`
	Produced   DateRange `json:"produced"`
}

// Matches reports whether rec satisfies every predicate.
func (f FilterSpec) Matches(rec model.InventoryRecord) bool {
	d := rec.Detail
	var area, container, sublocation string
	if rec.Location != nil {
		area = rec.Location.Area
		container = model.Deref(rec.Location.Container)
		sublocation = model.Deref(rec.Location.Sublocation)
	}

	qty := d.Quantity
	created := rec.Item.CreatedAt

	return oneOf(f.Categories, rec.Item.Category) &&
		equalOrEmpty(f.SubCategory, model.Deref(rec.Item.SubCategory)) &&
		equalOrEmpty(f.Brand, model.Deref(rec.Item.Brand)) &&
		oneOf(f.LocationAreas, area) &&
		equalOrEmpty(f.Container, container) &&
		equalOrEmpty(f.Sublocation, sublocation) &&
		oneOf(f.OpenStatuses, d.OpenStatus) &&
		f.matchRating(d.Rating) &&
		anySubstring(f.Seasons, model.Deref(d.Season)) &&
		anySubstring(f.Tags, model.Deref(d.Tags)) &&
		f.Quantity.Contains(&qty) &&
		f.Price.Contains(d.Price) &&
		f.Expiration.Contains(d.ExpirationDate) &&
		f.Created.Contains(&created) &&
		f.Purchased.Contains(d.PurchaseDate) &&
		f.Produced.Contains(d.ProductionDate)
}

func (f FilterSpec) matchRating(rating *float64) bool {
	if len(f.Ratings) == 0 {
		return f.Rating.Contains(rating)
	}
	if rating == nil {
		return false
	}
	for _, r := range f.Ratings {
		if r == *rating {
			return true
		}
	}
	return false
}

func oneOf(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}

func equalOrEmpty(want, v string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, v)
}

func anySubstring(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	v = strings.ToLower(v)
	for _, s := range set {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" && strings.Contains(v, s) {
			return true
		}
	}
	return false
}

// matchesText reports whether keyword occurs in any searchable field of
// rec. keyword must already be lower case.
func matchesText(rec model.InventoryRecord, keyword string) bool {
	fields := []string{
		rec.Item.Name,
		rec.Item.Category,
		model.Deref(rec.Item.SubCategory),
		model.Deref(rec.Item.Brand),
		model.Deref(rec.Item.Note),
		model.Deref(rec.Detail.Tags),
	}
	if rec.Location != nil {
		fields = append(fields,
			rec.Location.Area,
			model.Deref(rec.Location.Container),
			model.Deref(rec.Location.Sublocation),
		)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), keyword) {
			return true
		}
	}
	return false
}
