// Package store persists items, their lifecycle state ledger and the
// per-stage detail tables, and coordinates atomic transfers between stages.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/metrics"
	"github.com/erazemk/shramba/internal/model"
)

// Change topics published after every committed write.
const (
	TopicItems     live.Topic = "items"
	TopicLocations live.Topic = "locations"
	TopicLists     live.Topic = "lists"
	TopicPrices    live.Topic = "prices"
)

// StageTopic is published whenever ledger entries or detail rows of stage
// change.
func StageTopic(stage model.StageType) live.Topic {
	return live.Topic("stage:" + string(stage))
}

// DefaultLowStockThreshold is used when Options leaves it unset.
const DefaultLowStockThreshold = 1

// Options tunes a Store.
type Options struct {
	// LowStockThreshold is the quantity at or below which inventory counts
	// as low stock.
	LowStockThreshold float64

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Metrics receives transfer outcomes. May be nil.
	Metrics *metrics.Metrics
}

// Store wires every component around one database handle and one hub.
type Store struct {
	Items     *ItemStore
	Ledger    *Ledger
	Shopping  *ShoppingStore
	Inventory *InventoryStore
	Wishlist  *WishlistStore
	Prices    *PriceStore
	Locations *LocationStore
	Lists     *ListStore
	Transfers *Coordinator
	Accounts  *AccountStore

	base *base
}

// New creates a Store. hub may be nil when no live subscriptions are needed.
func New(db *sqlx.DB, hub *live.Hub, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = DefaultLowStockThreshold
	}

	b := &base{db: db, hub: hub, clock: opts.Now}
	return &Store{
		Items:     &ItemStore{base: b},
		Ledger:    &Ledger{base: b},
		Shopping:  &ShoppingStore{base: b},
		Inventory: &InventoryStore{base: b, lowStock: opts.LowStockThreshold},
		Wishlist:  &WishlistStore{base: b},
		Prices:    &PriceStore{base: b},
		Locations: &LocationStore{base: b},
		Lists:     &ListStore{base: b},
		Transfers: &Coordinator{base: b, metrics: opts.Metrics},
		Accounts:  &AccountStore{base: b},
		base:      b,
	}
}

// Hub returns the hub the store publishes to.
func (s *Store) Hub() *live.Hub { return s.base.hub }

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.base.now() }

// base is shared by all components of one Store.
type base struct {
	db    *sqlx.DB
	hub   *live.Hub
	clock func() time.Time

	// inject, when set, is called at named points inside transactions.
	// A non-nil error aborts and rolls back the transaction.
	inject func(point string) error
}

func (b *base) now() time.Time {
	return b.clock().UTC()
}

func (b *base) failpoint(point string) error {
	if b.inject == nil {
		return nil
	}
	return b.inject(point)
}

// txn is a write transaction that remembers which topics it touched.
type txn struct {
	*sqlx.Tx
	touched []live.Topic
}

func (t *txn) touch(topics ...live.Topic) {
	t.touched = append(t.touched, topics...)
}

// withTx runs fn in a write transaction. The transaction is committed when
// fn returns nil and rolled back otherwise; touched topics are published
// only after a successful commit.
func (b *base) withTx(ctx context.Context, fn func(tx *txn) error) error {
	sqlTx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer sqlTx.Rollback()

	tx := &txn{Tx: sqlTx}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}

	b.hub.Publish(tx.touched...)
	return nil
}

// getOne runs a single-row query into dest. It returns false, nil when
// there is no row.
func getOne(ctx context.Context, q sqlx.QueryerContext, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func requireItem(ctx context.Context, q sqlx.QueryerContext, itemID int64) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM items WHERE id = ?`, itemID); err != nil {
		return storageErr("checking item", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNegative(field string, v *float64) error {
	if v != nil && *v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}
