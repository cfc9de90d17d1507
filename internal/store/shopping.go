package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

// ShoppingStore manages shopping details. Stage queries only consider
// items whose SHOPPING entry is active.
type ShoppingStore struct {
	*base
}

// Upsert creates or replaces the item's shopping detail.
func (s *ShoppingStore) Upsert(ctx context.Context, d model.ShoppingDetail) error {
	if err := normalizeShopping(&d); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *txn) error {
		if err := requireItem(ctx, tx, d.ItemID); err != nil {
			return err
		}
		return upsertShopping(ctx, tx, d, s.now())
	})
}

// GetByItem returns the item's shopping detail, or nil.
func (s *ShoppingStore) GetByItem(ctx context.Context, itemID int64) (*model.ShoppingDetail, error) {
	return getShopping(ctx, s.db, itemID)
}

// DeleteByItem removes the item's shopping detail.
func (s *ShoppingStore) DeleteByItem(ctx context.Context, itemID int64) error {
	return s.withTx(ctx, func(tx *txn) error {
		return deleteDetail(ctx, tx, "shopping_details", itemID, model.StageShopping)
	})
}

// PendingByList returns unpurchased items on the list, by priority and
// then earliest deadline.
func (s *ShoppingStore) PendingByList(ctx context.Context, listID int64) ([]model.ShoppingDetail, error) {
	return s.selectActive(ctx, "listing pending items",
		`d.list_id = ? AND d.is_purchased = 0
		 ORDER BY d.priority, d.deadline IS NULL, d.deadline, d.item_id`, listID)
}

// PurchasedByList returns purchased items on the list, most recent
// purchase first. Items already moved to inventory are included.
func (s *ShoppingStore) PurchasedByList(ctx context.Context, listID int64) ([]model.ShoppingDetail, error) {
	var details []model.ShoppingDetail
	err := sqlx.SelectContext(ctx, s.db, &details,
		`SELECT `+columns("", shoppingFields)+` FROM shopping_details
		 WHERE list_id = ? AND is_purchased = 1
		 ORDER BY purchase_date DESC, item_id`, listID,
	)
	if err != nil {
		return nil, storageErr("listing purchased items", err)
	}
	return details, nil
}

// Overdue returns unpurchased items whose deadline is before now.
func (s *ShoppingStore) Overdue(ctx context.Context, now time.Time) ([]model.ShoppingDetail, error) {
	return s.selectActive(ctx, "listing overdue items",
		`d.is_purchased = 0 AND d.deadline IS NOT NULL AND d.deadline < ?
		 ORDER BY d.deadline, d.item_id`, now.UTC())
}

// EstimatedTotal sums estimated price times quantity over the list's
// pending items.
func (s *ShoppingStore) EstimatedTotal(ctx context.Context, listID int64) (float64, error) {
	var total float64
	err := sqlx.GetContext(ctx, s.db, &total,
		`SELECT COALESCE(SUM(COALESCE(d.estimated_price, 0) * d.quantity), 0)
		 FROM shopping_details d `+activeJoin(string(model.StageShopping))+`
		 WHERE d.list_id = ? AND d.is_purchased = 0`, listID,
	)
	if err != nil {
		return 0, storageErr("summing estimated total", err)
	}
	return total, nil
}

// ActualTotal sums actual price times quantity over the list's purchased
// items.
func (s *ShoppingStore) ActualTotal(ctx context.Context, listID int64) (float64, error) {
	var total float64
	err := sqlx.GetContext(ctx, s.db, &total,
		`SELECT COALESCE(SUM(COALESCE(actual_price, 0) * quantity), 0)
		 FROM shopping_details WHERE list_id = ? AND is_purchased = 1`, listID,
	)
	if err != nil {
		return 0, storageErr("summing actual total", err)
	}
	return total, nil
}

// MarkPurchased flags the item as bought at the given time. A nil
// actualPrice keeps the stored one.
func (s *ShoppingStore) MarkPurchased(ctx context.Context, itemID int64, actualPrice *float64, at time.Time) error {
	if err := nonNegative("actual_price", actualPrice); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE shopping_details
			 SET is_purchased = 1, purchase_date = ?, actual_price = COALESCE(?, actual_price), updated_at = ?
			 WHERE item_id = ?`,
			at.UTC(), actualPrice, s.now(), itemID,
		)
		if err != nil {
			return storageErr("marking purchased", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("marking purchased", err)
		}
		if n == 0 {
			return fmt.Errorf("shopping detail for item %d: %w", itemID, ErrNotFound)
		}
		tx.touch(StageTopic(model.StageShopping))
		return nil
	})
}

func (s *ShoppingStore) selectActive(ctx context.Context, op, where string, args ...any) ([]model.ShoppingDetail, error) {
	var details []model.ShoppingDetail
	err := sqlx.SelectContext(ctx, s.db, &details,
		`SELECT `+columns("d", shoppingFields)+` FROM shopping_details d `+
			activeJoin(string(model.StageShopping))+` WHERE `+where, args...,
	)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return details, nil
}

func normalizeShopping(d *model.ShoppingDetail) error {
	if d.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	if err := nonNegative("estimated_price", d.EstimatedPrice); err != nil {
		return err
	}
	if err := nonNegative("actual_price", d.ActualPrice); err != nil {
		return err
	}
	if err := nonNegative("budget_limit", d.BudgetLimit); err != nil {
		return err
	}
	if d.EstimatedPrice != nil && d.BudgetLimit != nil && *d.EstimatedPrice > *d.BudgetLimit {
		return invalid("estimated_price", "exceeds budget limit %.2f", *d.BudgetLimit)
	}

	if d.Priority == 0 {
		d.Priority = model.PriorityNormal
	}
	if err := validPriority(d.Priority); err != nil {
		return err
	}

	d.Urgency = strings.ToUpper(strings.TrimSpace(d.Urgency))
	switch d.Urgency {
	case "":
		d.Urgency = model.UrgencyNormal
	case model.UrgencyLow, model.UrgencyNormal, model.UrgencyHigh, model.UrgencyUrgent:
	default:
		return invalid("urgency", "unknown urgency %q", d.Urgency)
	}

	d.Unit = trimOptional(d.Unit)
	d.StoreName = trimOptional(d.StoreName)
	d.Deadline = utc(d.Deadline)
	d.PurchaseDate = utc(d.PurchaseDate)
	return nil
}

func upsertShopping(ctx context.Context, tx *txn, d model.ShoppingDetail, now time.Time) error {
	d.CreatedAt, d.UpdatedAt = now, now
	if _, err := sqlx.NamedExecContext(ctx, tx, upsertSQL("shopping_details", shoppingFields), d); err != nil {
		return storageErr("saving shopping detail", err)
	}
	tx.touch(StageTopic(model.StageShopping))
	return nil
}

func getShopping(ctx context.Context, q sqlx.QueryerContext, itemID int64) (*model.ShoppingDetail, error) {
	var d model.ShoppingDetail
	ok, err := getOne(ctx, q, &d,
		`SELECT `+columns("", shoppingFields)+` FROM shopping_details WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, storageErr("getting shopping detail", err)
	}
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func deleteDetail(ctx context.Context, tx *txn, table string, itemID int64, stage model.StageType) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE item_id = ?`, itemID)
	if err != nil {
		return storageErr("deleting detail", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("deleting detail", err)
	}
	if n == 0 {
		return fmt.Errorf("%s detail for item %d: %w", strings.ToLower(string(stage)), itemID, ErrNotFound)
	}
	tx.touch(StageTopic(stage))
	return nil
}
