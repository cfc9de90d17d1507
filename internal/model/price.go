package model

import "time"

// PriceRecord is an append-only observation of an item's price.
type PriceRecord struct {
	ID         int64     `json:"id" db:"id"`
	ItemID     int64     `json:"item_id" db:"item_id"`
	RecordDate time.Time `json:"record_date" db:"record_date"`
	Price      float64   `json:"price" db:"price"`
	Channel    string    `json:"channel" db:"channel"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
}

// PriceStats summarises an item's price log. Min, Max, Average and Latest
// are nil when Count is zero.
type PriceStats struct {
	ItemID  int64    `json:"item_id"`
	Count   int      `json:"count"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Average *float64 `json:"average,omitempty"`
	Latest  *float64 `json:"latest,omitempty"`
}
