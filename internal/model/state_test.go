package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	st, err := ParseStage(" inventory ")
	require.NoError(t, err)
	assert.Equal(t, StageInventory, st)

	_, err = ParseStage("pantry")
	assert.Error(t, err)
}

func TestStageOrder(t *testing.T) {
	assert.Less(t, StageShopping.Order(), StageInventory.Order())
	assert.Less(t, StageWishlist.Order(), StageDeleted.Order())
	assert.Equal(t, len(Stages), StageType("x").Order())
}

func TestTagList(t *testing.T) {
	tags := "snack, sweet,,  chocolate "
	d := InventoryDetail{Tags: &tags}
	assert.Equal(t, []string{"snack", "sweet", "chocolate"}, d.TagList())
	assert.Nil(t, InventoryDetail{}.TagList())
}

func TestDetailStages(t *testing.T) {
	var details = []Detail{ShoppingDetail{ItemID: 1}, InventoryDetail{ItemID: 2}, WishlistDetail{ItemID: 3}}
	assert.Equal(t, StageShopping, details[0].Stage())
	assert.Equal(t, StageInventory, details[1].Stage())
	assert.Equal(t, StageWishlist, details[2].Stage())
	assert.Equal(t, int64(3), details[2].DetailItemID())
}
