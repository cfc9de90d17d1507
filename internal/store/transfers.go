package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
)

// Transfer kinds, used as the metrics label.
const (
	TransferShoppingToInventory = "shopping_to_inventory"
	TransferWishlistToShopping  = "wishlist_to_shopping"
	TransferSoftDelete          = "soft_delete"
	TransferRestore             = "restore"
	TransferCreate              = "create"
)

// Coordinator moves items between stages. Each operation writes the
// target detail and flips the ledger in one transaction: either all of it
// is committed or none of it is.
type Coordinator struct {
	*base
	metrics *metrics.Metrics
}

// ShoppingToInventory moves a bought item into inventory. The item must
// be active in SHOPPING, not deleted, and have a shopping detail; d becomes its inventory detail and d.LocationID
// the context of the new INVENTORY entry.
func (c *Coordinator) ShoppingToInventory(ctx context.Context, itemID int64, d model.InventoryDetail) (TransitionResult, error) {
	d.ItemID = itemID
	if err := normalizeInventory(&d); err != nil {
		return TransitionResult{}, err
	}

	var res TransitionResult
	err := c.run(ctx, TransferShoppingToInventory, itemID, func(tx *txn) error {
		sd, err := getShopping(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if sd == nil {
			return fmt.Errorf("item %d has no shopping detail: %w", itemID, ErrPrecondition)
		}
		if err := requireSource(ctx, tx, itemID, model.StageShopping); err != nil {
			return err
		}
		if err := upsertInventory(ctx, tx, d, c.now()); err != nil {
			return err
		}
		if err := c.failpoint("shopping_to_inventory.detail_written"); err != nil {
			return err
		}
		res, err = c.transition(ctx, tx, itemID, model.StageShopping, model.StageInventory,
			d.LocationID, model.StringPtr("purchased"))
		return err
	})
	return res, err
}

// WishlistToShopping puts a wished-for item on a shopping list. The item
// must be active in WISHLIST, not deleted, and have a wishlist detail; d becomes its shopping detail and d.ListID
// the context of the new SHOPPING entry.
func (c *Coordinator) WishlistToShopping(ctx context.Context, itemID int64, d model.ShoppingDetail) (TransitionResult, error) {
	d.ItemID = itemID
	if err := normalizeShopping(&d); err != nil {
		return TransitionResult{}, err
	}

	var res TransitionResult
	err := c.run(ctx, TransferWishlistToShopping, itemID, func(tx *txn) error {
		wd, err := getWishlist(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if wd == nil {
			return fmt.Errorf("item %d has no wishlist detail: %w", itemID, ErrPrecondition)
		}
		if err := requireSource(ctx, tx, itemID, model.StageWishlist); err != nil {
			return err
		}
		if err := upsertShopping(ctx, tx, d, c.now()); err != nil {
			return err
		}
		if err := c.failpoint("wishlist_to_shopping.detail_written"); err != nil {
			return err
		}
		res, err = c.transition(ctx, tx, itemID, model.StageWishlist, model.StageShopping,
			d.ListID, model.StringPtr("moved to shopping"))
		return err
	})
	return res, err
}

// SoftDelete deactivates every stage of the item and activates DELETED.
// Detail rows are kept so the item can be restored.
func (c *Coordinator) SoftDelete(ctx context.Context, itemID int64, reason string) error {
	r := model.StringPtr(reason)
	return c.run(ctx, TransferSoftDelete, itemID, func(tx *txn) error {
		if err := requireItem(ctx, tx, itemID); err != nil {
			return err
		}
		now := c.now()
		if _, err := deactivateAll(ctx, tx, itemID, r, now); err != nil {
			return err
		}
		if err := c.failpoint("soft_delete.deactivated"); err != nil {
			return err
		}
		return activate(ctx, tx, itemID, model.StageDeleted, nil, r, now)
	})
}

// Restore brings a soft-deleted item back into stage. The item must be
// deleted and still have a detail for stage; the stage's last context is
// reused.
func (c *Coordinator) Restore(ctx context.Context, itemID int64, stage model.StageType) error {
	if !stage.Valid() || stage == model.StageDeleted {
		return invalid("stage", "cannot restore into %q", stage)
	}

	return c.run(ctx, TransferRestore, itemID, func(tx *txn) error {
		if err := requireItem(ctx, tx, itemID); err != nil {
			return err
		}
		deleted, err := isActive(ctx, tx, itemID, model.StageDeleted)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("item %d is not deleted: %w", itemID, ErrPrecondition)
		}
		d, err := getDetail(ctx, tx, itemID, stage)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("item %d has no %s detail: %w", itemID, stage, ErrPrecondition)
		}
		contextID, err := lastContext(ctx, tx, itemID, stage)
		if err != nil {
			return err
		}
		_, err = c.transition(ctx, tx, itemID, model.StageDeleted, stage, contextID, nil)
		return err
	})
}

// Create inserts an item together with an optional initial detail, and
// activates the detail's stage. It returns the new item ID.
func (c *Coordinator) Create(ctx context.Context, item model.Item, detail model.Detail) (int64, error) {
	if err := normalizeItem(&item); err != nil {
		return 0, err
	}
	detail, err := normalizeDetail(detail)
	if err != nil {
		return 0, err
	}

	var id int64
	err = c.run(ctx, TransferCreate, 0, func(tx *txn) error {
		now := c.now()
		var err error
		if id, err = insertItem(ctx, tx, item, now); err != nil {
			return err
		}
		if detail == nil {
			return nil
		}
		var contextID *int64
		switch d := detail.(type) {
		case model.ShoppingDetail:
			d.ItemID = id
			contextID = d.ListID
			err = upsertShopping(ctx, tx, d, now)
		case model.InventoryDetail:
			d.ItemID = id
			contextID = d.LocationID
			err = upsertInventory(ctx, tx, d, now)
		case model.WishlistDetail:
			d.ItemID = id
			err = upsertWishlist(ctx, tx, d, now)
		}
		if err != nil {
			return err
		}
		return activate(ctx, tx, id, detail.Stage(), contextID, nil, now)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// View returns the item with its active stages and the detail of its
// primary stage, or nil when the item does not exist. A deleted item has
// no primary stage.
func (c *Coordinator) View(ctx context.Context, itemID int64) (*model.ItemView, error) {
	item, err := getItem(ctx, c.db, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	stages, err := activeStages(ctx, c.db, itemID)
	if err != nil {
		return nil, err
	}

	view := &model.ItemView{Item: *item, Stages: stages}
	for _, st := range stages {
		if st == model.StageDeleted {
			view.Detail = nil
			break
		}
		if view.Detail != nil {
			continue
		}
		if view.Detail, err = getDetail(ctx, c.db, itemID, st); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// run executes fn as one transaction and records its outcome.
func (c *Coordinator) run(ctx context.Context, kind string, itemID int64, fn func(tx *txn) error) error {
	err := c.withTx(ctx, fn)
	outcome := Outcome(err)
	c.metrics.ObserveTransfer(kind, outcome)
	if err != nil {
		slog.Debug("transfer failed", "kind", kind, "item_id", itemID, "outcome", outcome, "error", err)
	}
	return err
}

// requireSource fails with ErrPrecondition unless the item is active in
// stage and not soft-deleted. Detail rows outlive their stage, so the row
// alone does not prove the item is still there.
func requireSource(ctx context.Context, tx *txn, itemID int64, stage model.StageType) error {
	deleted, err := isActive(ctx, tx, itemID, model.StageDeleted)
	if err != nil {
		return err
	}
	if deleted {
		return fmt.Errorf("item %d is deleted: %w", itemID, ErrPrecondition)
	}
	active, err := isActive(ctx, tx, itemID, stage)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("item %d is not active in %s: %w", itemID, stage, ErrPrecondition)
	}
	return nil
}

func normalizeDetail(detail model.Detail) (model.Detail, error) {
	switch d := detail.(type) {
	case nil:
		return nil, nil
	case model.ShoppingDetail:
		err := normalizeShopping(&d)
		return d, err
	case model.InventoryDetail:
		err := normalizeInventory(&d)
		return d, err
	case model.WishlistDetail:
		err := normalizeWishlist(&d)
		return d, err
	}
	return nil, invalid("detail", "unsupported detail %T", detail)
}

// getDetail loads the detail row of stage, or nil when there is none.
func getDetail(ctx context.Context, q sqlx.QueryerContext, itemID int64, stage model.StageType) (model.Detail, error) {
	switch stage {
	case model.StageShopping:
		d, err := getShopping(ctx, q, itemID)
		if d == nil || err != nil {
			return nil, err
		}
		return *d, nil
	case model.StageInventory:
		d, err := getInventory(ctx, q, itemID)
		if d == nil || err != nil {
			return nil, err
		}
		return *d, nil
	case model.StageWishlist:
		d, err := getWishlist(ctx, q, itemID)
		if d == nil || err != nil {
			return nil, err
		}
		return *d, nil
	}
	return nil, nil
}
