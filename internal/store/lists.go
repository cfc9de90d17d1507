package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

// ListStore manages shopping lists.
type ListStore struct {
	*base
}

// Create inserts a shopping list and returns its ID.
func (s *ListStore) Create(ctx context.Context, list model.ShoppingList) (int64, error) {
	list.Name = strings.TrimSpace(list.Name)
	if list.Name == "" {
		return 0, invalid("name", "must not be blank")
	}
	if err := nonNegative("budget", list.Budget); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO shopping_lists (name, budget, created_at) VALUES (?, ?, ?)`,
			list.Name, list.Budget, s.now(),
		)
		if err != nil {
			return storageErr("creating shopping list", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return storageErr("getting shopping list id", err)
		}
		tx.touch(TopicLists)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a shopping list by ID, or nil.
func (s *ListStore) Get(ctx context.Context, id int64) (*model.ShoppingList, error) {
	var list model.ShoppingList
	ok, err := getOne(ctx, s.db, &list,
		`SELECT id, name, budget, created_at FROM shopping_lists WHERE id = ?`, id)
	if err != nil {
		return nil, storageErr("getting shopping list", err)
	}
	if !ok {
		return nil, nil
	}
	return &list, nil
}

// List returns all shopping lists by name.
func (s *ListStore) List(ctx context.Context) ([]model.ShoppingList, error) {
	var lists []model.ShoppingList
	err := sqlx.SelectContext(ctx, s.db, &lists,
		`SELECT id, name, budget, created_at FROM shopping_lists ORDER BY name, id`)
	if err != nil {
		return nil, storageErr("listing shopping lists", err)
	}
	return lists, nil
}
