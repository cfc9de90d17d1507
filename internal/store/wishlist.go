package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

// WishlistStore manages wishlist details. Stage queries only consider
// items whose WISHLIST entry is active.
type WishlistStore struct {
	*base
}

// Upsert creates or replaces the item's wishlist detail.
func (s *WishlistStore) Upsert(ctx context.Context, d model.WishlistDetail) error {
	if err := normalizeWishlist(&d); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *txn) error {
		if err := requireItem(ctx, tx, d.ItemID); err != nil {
			return err
		}
		return upsertWishlist(ctx, tx, d, s.now())
	})
}

// GetByItem returns the item's wishlist detail, or nil.
func (s *WishlistStore) GetByItem(ctx context.Context, itemID int64) (*model.WishlistDetail, error) {
	return getWishlist(ctx, s.db, itemID)
}

// DeleteByItem removes the item's wishlist detail.
func (s *WishlistStore) DeleteByItem(ctx context.Context, itemID int64) error {
	return s.withTx(ctx, func(tx *txn) error {
		return deleteDetail(ctx, tx, "wishlist_details", itemID, model.StageWishlist)
	})
}

// ItemsAtOrUnderTargetPrice returns items whose current price has reached
// their target price, cheapest first.
func (s *WishlistStore) ItemsAtOrUnderTargetPrice(ctx context.Context) ([]model.WishlistDetail, error) {
	return s.selectActive(ctx, "listing items at target price",
		`d.current_price IS NOT NULL AND d.target_price IS NOT NULL
		 AND d.current_price <= d.target_price
		 ORDER BY d.current_price, d.item_id`)
}

// NeedingPriceCheck returns items never checked or last checked before
// cutoff, least recently checked first.
func (s *WishlistStore) NeedingPriceCheck(ctx context.Context, cutoff time.Time) ([]model.WishlistDetail, error) {
	return s.selectActive(ctx, "listing items needing price check",
		`(d.last_price_check IS NULL OR d.last_price_check < ?)
		 ORDER BY d.last_price_check IS NOT NULL, d.last_price_check, d.item_id`, cutoff.UTC())
}

// RecordPriceCheck stores an observed price, widening the lowest and
// highest seen prices.
func (s *WishlistStore) RecordPriceCheck(ctx context.Context, itemID int64, price float64, at time.Time) error {
	if price < 0 {
		return invalid("price", "must not be negative")
	}
	return s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wishlist_details
			 SET current_price = ?,
			     lowest_price = MIN(COALESCE(lowest_price, ?), ?),
			     highest_price = MAX(COALESCE(highest_price, ?), ?),
			     last_price_check = ?, updated_at = ?
			 WHERE item_id = ?`,
			price, price, price, price, price, at.UTC(), s.now(), itemID,
		)
		if err != nil {
			return storageErr("recording price check", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("recording price check", err)
		}
		if n == 0 {
			return fmt.Errorf("wishlist detail for item %d: %w", itemID, ErrNotFound)
		}
		tx.touch(StageTopic(model.StageWishlist))
		return nil
	})
}

func (s *WishlistStore) selectActive(ctx context.Context, op, where string, args ...any) ([]model.WishlistDetail, error) {
	var details []model.WishlistDetail
	err := sqlx.SelectContext(ctx, s.db, &details,
		`SELECT `+columns("d", wishlistFields)+` FROM wishlist_details d `+
			activeJoin(string(model.StageWishlist))+` WHERE `+where, args...,
	)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return details, nil
}

func normalizeWishlist(d *model.WishlistDetail) error {
	if err := nonNegative("target_price", d.TargetPrice); err != nil {
		return err
	}
	if err := nonNegative("current_price", d.CurrentPrice); err != nil {
		return err
	}
	if err := nonNegative("lowest_price", d.LowestPrice); err != nil {
		return err
	}
	if err := nonNegative("highest_price", d.HighestPrice); err != nil {
		return err
	}
	if d.LowestPrice != nil && d.HighestPrice != nil && *d.LowestPrice > *d.HighestPrice {
		return invalid("lowest_price", "exceeds highest price")
	}
	if d.Priority == 0 {
		d.Priority = model.PriorityNormal
	}
	if err := validPriority(d.Priority); err != nil {
		return err
	}
	d.SourceURL = trimOptional(d.SourceURL)
	d.LastPriceCheck = utc(d.LastPriceCheck)
	return nil
}

func upsertWishlist(ctx context.Context, tx *txn, d model.WishlistDetail, now time.Time) error {
	d.CreatedAt, d.UpdatedAt = now, now
	if _, err := sqlx.NamedExecContext(ctx, tx, upsertSQL("wishlist_details", wishlistFields), d); err != nil {
		return storageErr("saving wishlist detail", err)
	}
	tx.touch(StageTopic(model.StageWishlist))
	return nil
}

func getWishlist(ctx context.Context, q sqlx.QueryerContext, itemID int64) (*model.WishlistDetail, error) {
	var d model.WishlistDetail
	ok, err := getOne(ctx, q, &d,
		`SELECT `+columns("", wishlistFields)+` FROM wishlist_details WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, storageErr("getting wishlist detail", err)
	}
	if !ok {
		return nil, nil
	}
	return &d, nil
}
