package model

import "time"

// Location is a place where inventory is kept: an area (kitchen, garage),
// optionally narrowed to a container and a sublocation within it.
type Location struct {
	ID          int64     `json:"id" db:"id"`
	Area        string    `json:"area" db:"area"`
	Container   *string   `json:"container,omitempty" db:"container"`
	Sublocation *string   `json:"sublocation,omitempty" db:"sublocation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ShoppingList groups shopping details.
type ShoppingList struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Budget    *float64  `json:"budget,omitempty" db:"budget"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InventoryRecord is the joined read model browsed by the query engine.
type InventoryRecord struct {
	Item     Item            `json:"item"`
	Detail   InventoryDetail `json:"detail"`
	Location *Location       `json:"location,omitempty"`
}
