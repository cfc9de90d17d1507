package model

import (
	"fmt"
	"strings"
	"time"
)

// StageType is a lifecycle bucket an item can occupy.
type StageType string

// Stage types.
const (
	StageShopping  StageType = "SHOPPING"
	StageInventory StageType = "INVENTORY"
	StageWishlist  StageType = "WISHLIST"
	StageDeleted   StageType = "DELETED"
)

// Stages lists every stage type in display order.
var Stages = []StageType{StageShopping, StageInventory, StageWishlist, StageDeleted}

// ParseStage parses a stage name case-insensitively.
func ParseStage(s string) (StageType, error) {
	st := StageType(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return st, nil
}

// Valid reports whether st is a known stage type.
func (st StageType) Valid() bool {
	switch st {
	case StageShopping, StageInventory, StageWishlist, StageDeleted:
		return true
	}
	return false
}

// Order returns the position of st in Stages.
func (st StageType) Order() int {
	for i, s := range Stages {
		if s == st {
			return i
		}
	}
	return len(Stages)
}

// StateEntry records one occupancy of a stage by an item. Leaving a stage
// deactivates the entry instead of deleting it.
type StateEntry struct {
	ID            int64      `json:"id" db:"id"`
	ItemID        int64      `json:"item_id" db:"item_id"`
	StageType     StageType  `json:"stage_type" db:"stage_type"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	ContextID     *int64     `json:"context_id,omitempty" db:"context_id"`
	ActivatedAt   time.Time  `json:"activated_at" db:"activated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
	Reason        *string    `json:"reason,omitempty" db:"reason"`
}
