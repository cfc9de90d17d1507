package model

import (
	"strings"
	"time"
)

// Detail is the stage-specific payload of an item. It is implemented only
// by ShoppingDetail, InventoryDetail and WishlistDetail.
type Detail interface {
	Stage() StageType
	DetailItemID() int64
	detail()
}

// Shopping urgencies.
const (
	UrgencyLow    = "LOW"
	UrgencyNormal = "NORMAL"
	UrgencyHigh   = "HIGH"
	UrgencyUrgent = "URGENT"
)

// Priorities (lower number = higher priority).
const (
	PriorityHighest = 1
	PriorityNormal  = 3
	PriorityLowest  = 5
)

// ShoppingDetail is an item's shopping-list payload. Prices are per unit.
type ShoppingDetail struct {
	ItemID         int64      `json:"item_id" db:"item_id"`
	ListID         *int64     `json:"list_id,omitempty" db:"list_id"`
	Quantity       float64    `json:"quantity" db:"quantity"`
	Unit           *string    `json:"unit,omitempty" db:"unit"`
	EstimatedPrice *float64   `json:"estimated_price,omitempty" db:"estimated_price"`
	ActualPrice    *float64   `json:"actual_price,omitempty" db:"actual_price"`
	BudgetLimit    *float64   `json:"budget_limit,omitempty" db:"budget_limit"`
	Priority       int        `json:"priority" db:"priority"`
	Urgency        string     `json:"urgency" db:"urgency"`
	Deadline       *time.Time `json:"deadline,omitempty" db:"deadline"`
	IsPurchased    bool       `json:"is_purchased" db:"is_purchased"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty" db:"purchase_date"`
	StoreName      *string    `json:"store_name,omitempty" db:"store_name"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (ShoppingDetail) Stage() StageType      { return StageShopping }
func (d ShoppingDetail) DetailItemID() int64 { return d.ItemID }
func (ShoppingDetail) detail()               {}

// Open statuses.
const (
	OpenStatusUnopened = "UNOPENED"
	OpenStatusOpened   = "OPENED"
)

// InventoryDetail is an item's in-stock payload.
type InventoryDetail struct {
	ItemID         int64      `json:"item_id" db:"item_id"`
	Quantity       float64    `json:"quantity" db:"quantity"`
	Unit           *string    `json:"unit,omitempty" db:"unit"`
	LocationID     *int64     `json:"location_id,omitempty" db:"location_id"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	ProductionDate *time.Time `json:"production_date,omitempty" db:"production_date"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty" db:"purchase_date"`
	Price          *float64   `json:"price,omitempty" db:"price"`
	OpenStatus     string     `json:"open_status" db:"open_status"`
	Rating         *float64   `json:"rating,omitempty" db:"rating"`
	Season         *string    `json:"season,omitempty" db:"season"`
	Tags           *string    `json:"tags,omitempty" db:"tags"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (InventoryDetail) Stage() StageType      { return StageInventory }
func (d InventoryDetail) DetailItemID() int64 { return d.ItemID }
func (InventoryDetail) detail()               {}

// TagList splits the comma-joined tag string.
func (d InventoryDetail) TagList() []string {
	if d.Tags == nil {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(*d.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// WishlistDetail is an item's wishlist payload.
type WishlistDetail struct {
	ItemID         int64      `json:"item_id" db:"item_id"`
	TargetPrice    *float64   `json:"target_price,omitempty" db:"target_price"`
	CurrentPrice   *float64   `json:"current_price,omitempty" db:"current_price"`
	LowestPrice    *float64   `json:"lowest_price,omitempty" db:"lowest_price"`
	HighestPrice   *float64   `json:"highest_price,omitempty" db:"highest_price"`
	Priority       int        `json:"priority" db:"priority"`
	PriceAlert     bool       `json:"price_alert" db:"price_alert"`
	LastPriceCheck *time.Time `json:"last_price_check,omitempty" db:"last_price_check"`
	SourceURL      *string    `json:"source_url,omitempty" db:"source_url"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (WishlistDetail) Stage() StageType      { return StageWishlist }
func (d WishlistDetail) DetailItemID() int64 { return d.ItemID }
func (WishlistDetail) detail()               {}
