package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/db"
	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
)

func TestShoppingToInventoryMilk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := createItem(t, s, "Milk", "Dairy")
	require.NoError(t, s.Shopping.Upsert(ctx, model.ShoppingDetail{ItemID: id, Quantity: 2, EstimatedPrice: ptr(8.0)}))
	require.NoError(t, s.Ledger.Activate(ctx, id, model.StageShopping, nil))

	res, err := s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{
		Quantity:       2,
		Price:          ptr(7.5),
		ExpirationDate: ptr(time.Now().Add(5 * 24 * time.Hour)),
	})
	require.NoError(t, err)
	assert.NoError(t, res.Warning)

	stages, err := s.Ledger.ActiveStageTypes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageInventory}, stages)

	inv, err := s.Inventory.GetByItem(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, 7.5, *inv.Price)

	sd, err := s.Shopping.GetByItem(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sd, "shopping row is kept as history")
	assert.Equal(t, 8.0, *sd.EstimatedPrice)
}

func TestShoppingToInventoryRequiresShoppingDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createItem(t, s, "Milk", "Dairy")

	_, err := s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 1})
	assert.ErrorIs(t, err, ErrPrecondition)

	inv, err := s.Inventory.GetByItem(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestShoppingToInventoryRefusesDeletedItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := shop(t, s, "Milk", model.ShoppingDetail{Quantity: 2})
	require.NoError(t, s.Transfers.SoftDelete(ctx, id, "spilled"))

	_, err := s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 2})
	assert.ErrorIs(t, err, ErrPrecondition)

	stages, err := s.Ledger.ActiveStageTypes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageDeleted}, stages)

	records, err := s.Inventory.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	inv, err := s.Inventory.GetByItem(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestShoppingToInventoryTwiceKeepsDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := shop(t, s, "Milk", model.ShoppingDetail{Quantity: 6})

	_, err := s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 6})
	require.NoError(t, err)

	_, err = s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 0})
	assert.ErrorIs(t, err, ErrPrecondition)

	inv, err := s.Inventory.GetByItem(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, 6.0, inv.Quantity)
}

func TestShoppingToInventoryContextIsLocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pantry, err := s.Locations.Create(ctx, model.Location{Area: "Pantry"})
	require.NoError(t, err)
	id := shop(t, s, "Oats", model.ShoppingDetail{Quantity: 1})

	_, err = s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 1, LocationID: &pantry})
	require.NoError(t, err)

	active, err := s.Ledger.ListActive(ctx, model.StageInventory)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, pantry, *active[0].ContextID)

	history, err := s.Ledger.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "purchased", model.Deref(history[1].Reason))
}

func TestShoppingToInventoryRollsBack(t *testing.T) {
	for _, point := range []string{"shopping_to_inventory.detail_written", "transition.deactivated"} {
		t.Run(point, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			id := shop(t, s, "Milk", model.ShoppingDetail{Quantity: 2})

			s.base.inject = func(p string) error {
				if p == point {
					return errors.New("injected failure")
				}
				return nil
			}
			_, err := s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 2})
			require.Error(t, err)
			s.base.inject = nil

			stages, err := s.Ledger.ActiveStageTypes(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []model.StageType{model.StageShopping}, stages)

			inv, err := s.Inventory.GetByItem(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, inv, "detail write is rolled back with the ledger")
		})
	}
}

func TestWishlistToShopping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	list := newList(t, s, "Gifts")
	id := wish(t, s, "Board game", model.WishlistDetail{TargetPrice: ptr(30.0)})

	res, err := s.Transfers.WishlistToShopping(ctx, id, model.ShoppingDetail{ListID: &list, Quantity: 1, EstimatedPrice: ptr(29.0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deactivated)

	stages, err := s.Ledger.ActiveStageTypes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageShopping}, stages)

	pending, err := s.Shopping.PendingByList(ctx, list)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ItemID)

	wd, err := s.Wishlist.GetByItem(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, wd)
}

func TestWishlistToShoppingRequiresWishlistDetail(t *testing.T) {
	s := newTestStore(t)
	id := createItem(t, s, "Board game", "Toys")

	_, err := s.Transfers.WishlistToShopping(context.Background(), id, model.ShoppingDetail{Quantity: 1})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestWishlistToShoppingRequiresActiveWishlist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := wish(t, s, "Board game", model.WishlistDetail{})

	_, err := s.Transfers.WishlistToShopping(ctx, id, model.ShoppingDetail{Quantity: 1})
	require.NoError(t, err)
	_, err = s.Transfers.WishlistToShopping(ctx, id, model.ShoppingDetail{Quantity: 3})
	assert.ErrorIs(t, err, ErrPrecondition, "already moved")

	sd, err := s.Shopping.GetByItem(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sd)
	assert.Equal(t, 1.0, sd.Quantity)

	other := wish(t, s, "Kite", model.WishlistDetail{})
	require.NoError(t, s.Transfers.SoftDelete(ctx, other, ""))
	_, err = s.Transfers.WishlistToShopping(ctx, other, model.ShoppingDetail{Quantity: 1})
	assert.ErrorIs(t, err, ErrPrecondition, "deleted")

	stages, err := s.Ledger.ActiveStageTypes(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageDeleted}, stages)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	shelf, err := s.Locations.Create(ctx, model.Location{Area: "Basement"})
	require.NoError(t, err)
	id := stock(t, s, "Wine", model.InventoryDetail{Quantity: 6, LocationID: &shelf, Rating: ptr(4.0)})
	require.NoError(t, s.Ledger.Activate(ctx, id, model.StageWishlist, nil))
	require.NoError(t, s.Wishlist.Upsert(ctx, model.WishlistDetail{ItemID: id}))

	before, err := s.Transfers.View(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []model.StageType{model.StageInventory, model.StageWishlist}, before.Stages)

	require.NoError(t, s.Transfers.SoftDelete(ctx, id, "gifted"))

	deleted, err := s.Transfers.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageDeleted}, deleted.Stages)
	assert.Nil(t, deleted.Detail)

	inv, err := s.Inventory.GetByItem(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, inv, "soft delete keeps detail rows")

	require.NoError(t, s.Transfers.Restore(ctx, id, model.StageInventory))

	after, err := s.Transfers.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageInventory}, after.Stages)
	assert.Equal(t, before.Detail, after.Detail)

	active, err := s.Ledger.ListActive(ctx, model.StageInventory)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, shelf, *active[0].ContextID, "context comes back with the stage")

	history, err := s.Ledger.History(ctx, id)
	require.NoError(t, err)
	for _, e := range history {
		if e.StageType == model.StageDeleted {
			assert.Equal(t, "gifted", model.Deref(e.Reason))
		}
	}
}

func TestRestorePreconditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := stock(t, s, "Wine", model.InventoryDetail{Quantity: 1})

	assert.ErrorIs(t, s.Transfers.Restore(ctx, id, model.StageInventory), ErrPrecondition, "not deleted")

	require.NoError(t, s.Transfers.SoftDelete(ctx, id, ""))
	assert.ErrorIs(t, s.Transfers.Restore(ctx, id, model.StageShopping), ErrPrecondition, "no shopping detail")
	assert.ErrorIs(t, s.Transfers.Restore(ctx, id, model.StageDeleted), ErrValidation)
	assert.ErrorIs(t, s.Transfers.Restore(ctx, 999, model.StageInventory), ErrNotFound)

	stages, err := s.Ledger.ActiveStageTypes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageDeleted}, stages)
}

func TestSoftDeleteRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := shop(t, s, "Batteries", model.ShoppingDetail{Quantity: 4})

	s.base.inject = func(string) error { return errors.New("injected failure") }
	require.Error(t, s.Transfers.SoftDelete(ctx, id, "duplicate"))
	s.base.inject = nil

	stages, err := s.Ledger.ActiveStageTypes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []model.StageType{model.StageShopping}, stages)
}

func TestCreateWithDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	list := newList(t, s, "Weekly")

	id, err := s.Transfers.Create(ctx, model.Item{Name: "Apples", Category: "Fruit"},
		model.ShoppingDetail{ListID: &list, Quantity: 6})
	require.NoError(t, err)

	view, err := s.Transfers.View(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, []model.StageType{model.StageShopping}, view.Stages)
	sd, ok := view.Detail.(model.ShoppingDetail)
	require.True(t, ok)
	assert.Equal(t, 6.0, sd.Quantity)
	assert.Equal(t, list, *sd.ListID)
}

func TestCreateInvalidDetailWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Transfers.Create(ctx, model.Item{Name: "Apples", Category: "Fruit"},
		model.InventoryDetail{Quantity: -1})
	require.ErrorIs(t, err, ErrValidation)

	got, err := s.Items.Search(ctx, "apples")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestViewMissingItem(t *testing.T) {
	s := newTestStore(t)

	view, err := s.Transfers.View(context.Background(), 12)
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestTransferMetrics(t *testing.T) {
	m := metrics.New()
	s := New(db.NewTestDB(t), live.NewHub(), Options{Metrics: m})
	ctx := context.Background()
	id := createItem(t, s, "Milk", "Dairy")

	_, err := s.Transfers.ShoppingToInventory(ctx, id, model.InventoryDetail{Quantity: 1})
	require.ErrorIs(t, err, ErrPrecondition)
	require.NoError(t, s.Transfers.SoftDelete(ctx, id, ""))

	count := func(kind, outcome string) float64 {
		mfs, err := m.Registry().Gather()
		require.NoError(t, err)
		for _, mf := range mfs {
			if mf.GetName() != "shramba_transfers_total" {
				continue
			}
			for _, metric := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range metric.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				if labels["kind"] == kind && labels["outcome"] == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
		return 0
	}
	assert.Equal(t, 1.0, count(TransferShoppingToInventory, "precondition"))
	assert.Equal(t, 1.0, count(TransferSoftDelete, "ok"))
}
