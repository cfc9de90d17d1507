package query

import (
	"cmp"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

// SortKey selects the ordering of query results.
type SortKey string

// Sort keys.
const (
	SortComprehensive      SortKey = "COMPREHENSIVE"
	SortQuantity           SortKey = "QUANTITY"
	SortPrice              SortKey = "PRICE"
	SortRating             SortKey = "RATING"
	SortRemainingShelfLife SortKey = "REMAINING_SHELF_LIFE"
	SortUpdateTime         SortKey = "UPDATE_TIME"
)

// ParseSortKey parses a sort key case-insensitively. The empty string is
// SortComprehensive.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case "":
		return SortComprehensive, nil
	case SortComprehensive, SortQuantity, SortPrice, SortRating, SortRemainingShelfLife, SortUpdateTime:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// sortRecords orders recs in place.
//
// Single keys sort ascending; desc reverses the order of records that have
// the value, and records without it always come last. COMPREHENSIVE orders
// by rating (highest first), then remaining shelf life (soonest first), then
// most recently updated; desc reverses each of those on present values
// only, so unrated and non-expiring records still trail. Remaining ties go
// to the lower item ID.
func sortRecords(recs []model.InventoryRecord, key SortKey, desc bool, now time.Time) {
	if key == SortComprehensive || key == "" {
		sort.SliceStable(recs, func(i, j int) bool {
			return compareComprehensive(recs[i], recs[j], desc, now) < 0
		})
		return
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if c := compareKey(recs[i], recs[j], key, desc, now); c != 0 {
			return c < 0
		}
		return recs[i].Item.ID < recs[j].Item.ID
	})
}

// compareComprehensive returns a negative number when a sorts before b.
func compareComprehensive(a, b model.InventoryRecord, desc bool, now time.Time) int {
	// Rating, highest first.
	if c := compareKey(a, b, SortRating, !desc, now); c != 0 {
		return c
	}
	// Shelf life, soonest expiry first.
	if c := compareKey(a, b, SortRemainingShelfLife, desc, now); c != 0 {
		return c
	}
	// Most recently updated first.
	if c := compareKey(a, b, SortUpdateTime, !desc, now); c != 0 {
		return c
	}

	switch {
	case a.Item.ID < b.Item.ID:
		return -1
	case a.Item.ID > b.Item.ID:
		return 1
	}
	return 0
}

// compareKey compares a and b by key, ascending unless desc. A record
// without the value sorts after one with it in either direction.
func compareKey(a, b model.InventoryRecord, key SortKey, desc bool, now time.Time) int {
	var c int
	if key == SortUpdateTime {
		c = lastUpdate(a).Compare(lastUpdate(b))
	} else {
		av, aok := sortValue(a, key, now)
		bv, bok := sortValue(b, key, now)
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case !aok && !bok:
			return 0
		}
		c = cmp.Compare(av, bv)
	}
	if desc {
		return -c
	}
	return c
}

func sortValue(rec model.InventoryRecord, key SortKey, now time.Time) (float64, bool) {
	d := rec.Detail
	switch key {
	case SortQuantity:
		return d.Quantity, true
	case SortPrice:
		if d.Price == nil {
			return 0, false
		}
		return *d.Price, true
	case SortRating:
		if d.Rating == nil {
			return 0, false
		}
		return *d.Rating, true
	case SortRemainingShelfLife:
		if d.ExpirationDate == nil {
			return 0, false
		}
		return d.ExpirationDate.Sub(now).Seconds(), true
	}
	return 0, false
}

// lastUpdate is the later of the item's and the detail's update times.
func lastUpdate(rec model.InventoryRecord) time.Time {
	if rec.Detail.UpdatedAt.After(rec.Item.UpdatedAt) {
		return rec.Detail.UpdatedAt
	}
	return rec.Item.UpdatedAt
}
