package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

// PriceStore is an append-only log of observed item prices.
type PriceStore struct {
	*base
}

// Add records a price observation and returns its ID. A zero RecordDate
// means now.
func (s *PriceStore) Add(ctx context.Context, rec model.PriceRecord) (int64, error) {
	if rec.Price < 0 {
		return 0, invalid("price", "must not be negative")
	}
	rec.Channel = strings.TrimSpace(rec.Channel)
	if rec.Channel == "" {
		return 0, invalid("channel", "must not be blank")
	}
	rec.Notes = trimOptional(rec.Notes)

	var id int64
	err := s.withTx(ctx, func(tx *txn) error {
		if err := requireItem(ctx, tx, rec.ItemID); err != nil {
			return err
		}
		at := rec.RecordDate.UTC()
		if rec.RecordDate.IsZero() {
			at = s.now()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO price_records (item_id, record_date, price, channel, notes) VALUES (?, ?, ?, ?, ?)`,
			rec.ItemID, at, rec.Price, rec.Channel, rec.Notes,
		)
		if err != nil {
			return storageErr("recording price", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return storageErr("getting price record id", err)
		}
		tx.touch(TopicPrices)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes a price record.
func (s *PriceStore) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM price_records WHERE id = ?`, id)
		if err != nil {
			return storageErr("deleting price record", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("deleting price record", err)
		}
		if n == 0 {
			return fmt.Errorf("price record %d: %w", id, ErrNotFound)
		}
		tx.touch(TopicPrices)
		return nil
	})
}

// ListByItem returns the item's price records, newest first.
func (s *PriceStore) ListByItem(ctx context.Context, itemID int64) ([]model.PriceRecord, error) {
	var recs []model.PriceRecord
	err := sqlx.SelectContext(ctx, s.db, &recs,
		`SELECT id, item_id, record_date, price, channel, notes FROM price_records
		 WHERE item_id = ? ORDER BY record_date DESC, id DESC`, itemID,
	)
	if err != nil {
		return nil, storageErr("listing price records", err)
	}
	return recs, nil
}

// Stats summarises the item's price log.
func (s *PriceStore) Stats(ctx context.Context, itemID int64) (model.PriceStats, error) {
	var row struct {
		Count   int      `db:"n"`
		Min     *float64 `db:"min_price"`
		Max     *float64 `db:"max_price"`
		Average *float64 `db:"avg_price"`
	}
	err := sqlx.GetContext(ctx, s.db, &row,
		`SELECT COUNT(*) AS n, MIN(price) AS min_price, MAX(price) AS max_price, AVG(price) AS avg_price
		 FROM price_records WHERE item_id = ?`, itemID,
	)
	if err != nil {
		return model.PriceStats{}, storageErr("computing price stats", err)
	}

	stats := model.PriceStats{ItemID: itemID, Count: row.Count, Min: row.Min, Max: row.Max, Average: row.Average}
	if row.Count > 0 {
		var latest float64
		if _, err := getOne(ctx, s.db, &latest,
			`SELECT price FROM price_records WHERE item_id = ? ORDER BY record_date DESC, id DESC LIMIT 1`, itemID,
		); err != nil {
			return model.PriceStats{}, storageErr("getting latest price", err)
		}
		stats.Latest = &latest
	}
	return stats, nil
}
