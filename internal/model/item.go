package model

import "time"

// Item is the identity record of a tracked thing. It survives every stage
// change; deletion is a DELETED stage, never a row removal.
type Item struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Category      string    `json:"category" db:"category"`
	SubCategory   *string   `json:"sub_category,omitempty" db:"sub_category"`
	Brand         *string   `json:"brand,omitempty" db:"brand"`
	Specification *string   `json:"specification,omitempty" db:"specification"`
	Note          *string   `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ItemView joins an item with its active stages and the detail of its
// primary active stage. Detail is nil when no stage carries a detail row.
type ItemView struct {
	Item   Item        `json:"item"`
	Stages []StageType `json:"stages"`
	Detail Detail      `json:"detail,omitempty"`
}

// Deref returns the value of s, or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
