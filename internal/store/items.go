package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

const itemColumns = `id, name, category, sub_category, brand, specification, note, created_at, updated_at`

// ItemStore manages item identity records.
type ItemStore struct {
	*base
}

// Create validates and inserts item, returning the new ID.
func (s *ItemStore) Create(ctx context.Context, item model.Item) (int64, error) {
	if err := normalizeItem(&item); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *txn) error {
		var err error
		id, err = insertItem(ctx, tx, item, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns an item by ID, or nil when it does not exist.
func (s *ItemStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	return getItem(ctx, s.db, id)
}

// Update overwrites the descriptive fields of an existing item.
func (s *ItemStore) Update(ctx context.Context, item model.Item) error {
	if err := normalizeItem(&item); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET name = ?, category = ?, sub_category = ?, brand = ?,
			        specification = ?, note = ?, updated_at = ?
			 WHERE id = ?`,
			item.Name, item.Category, item.SubCategory, item.Brand,
			item.Specification, item.Note, s.now(), item.ID,
		)
		if err != nil {
			return storageErr("updating item", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("updating item", err)
		}
		if n == 0 {
			return fmt.Errorf("item %d: %w", item.ID, ErrNotFound)
		}
		touchItem(tx)
		return nil
	})
}

// FindSimilar returns items that look like duplicates of the given
// attributes: same name and category, and brand and specification either
// equal or absent on both sides.
func (s *ItemStore) FindSimilar(ctx context.Context, name, category, brand, specification string) ([]model.Item, error) {
	var candidates []model.Item
	err := sqlx.SelectContext(ctx, s.db, &candidates,
		`SELECT `+itemColumns+` FROM items WHERE name = ? AND category = ? ORDER BY id`,
		strings.TrimSpace(name), strings.TrimSpace(category),
	)
	if err != nil {
		return nil, storageErr("finding similar items", err)
	}

	var similar []model.Item
	for _, it := range candidates {
		if sameOptional(it.Brand, brand) && sameOptional(it.Specification, specification) {
			similar = append(similar, it)
		}
	}
	return similar, nil
}

func sameOptional(stored *string, want string) bool {
	return strings.TrimSpace(model.Deref(stored)) == strings.TrimSpace(want)
}

// Search matches keyword case-insensitively against item name, brand,
// specification, note and category. Results are ranked: exact name, name
// prefix, exact brand, brand prefix, then any other match. A blank keyword
// matches nothing.
func (s *ItemStore) Search(ctx context.Context, keyword string) ([]model.Item, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil, nil
	}

	var all []model.Item
	if err := sqlx.SelectContext(ctx, s.db, &all, `SELECT `+itemColumns+` FROM items`); err != nil {
		return nil, storageErr("searching items", err)
	}

	type hit struct {
		item model.Item
		rank int
	}
	var hits []hit
	for _, it := range all {
		if rank, ok := searchRank(it, kw); ok {
			hits = append(hits, hit{item: it, rank: rank})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		an, bn := strings.ToLower(a.item.Name), strings.ToLower(b.item.Name)
		if an != bn {
			return an < bn
		}
		return a.item.ID < b.item.ID
	})

	items := make([]model.Item, len(hits))
	for i, h := range hits {
		items[i] = h.item
	}
	return items, nil
}

func searchRank(it model.Item, kw string) (int, bool) {
	name := strings.ToLower(it.Name)
	brand := strings.ToLower(model.Deref(it.Brand))
	switch {
	case name == kw:
		return 0, true
	case strings.HasPrefix(name, kw):
		return 1, true
	case brand == kw:
		return 2, true
	case strings.HasPrefix(brand, kw):
		return 3, true
	}
	for _, field := range []string{name, brand, it.Category, model.Deref(it.Specification), model.Deref(it.Note)} {
		if strings.Contains(strings.ToLower(field), kw) {
			return 4, true
		}
	}
	return 0, false
}

func normalizeItem(item *model.Item) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if item.Name == "" {
		return invalid("name", "must not be blank")
	}
	if item.Category == "" {
		return invalid("category", "must not be blank")
	}
	item.SubCategory = trimOptional(item.SubCategory)
	item.Brand = trimOptional(item.Brand)
	item.Specification = trimOptional(item.Specification)
	item.Note = trimOptional(item.Note)
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return model.StringPtr(strings.TrimSpace(*s))
}

func insertItem(ctx context.Context, tx *txn, item model.Item, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, category, sub_category, brand, specification, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Category, item.SubCategory, item.Brand,
		item.Specification, item.Note, now, now,
	)
	if err != nil {
		return 0, storageErr("creating item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("getting item id", err)
	}
	touchItem(tx)
	return id, nil
}

func getItem(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Item, error) {
	var item model.Item
	ok, err := getOne(ctx, q, &item, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, storageErr("getting item", err)
	}
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// touchItem marks item-level changes. Every stage view embeds item fields,
// so all stage topics are touched as well.
func touchItem(tx *txn) {
	tx.touch(TopicItems)
	for _, st := range model.Stages {
		tx.touch(StageTopic(st))
	}
}
