package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/model"
)

// LocationStore manages storage locations referenced by inventory details.
type LocationStore struct {
	*base
}

// Create inserts a location and returns its ID.
func (s *LocationStore) Create(ctx context.Context, loc model.Location) (int64, error) {
	loc.Area = strings.TrimSpace(loc.Area)
	if loc.Area == "" {
		return 0, invalid("area", "must not be blank")
	}
	loc.Container = trimOptional(loc.Container)
	loc.Sublocation = trimOptional(loc.Sublocation)

	var id int64
	err := s.withTx(ctx, func(tx *txn) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO locations (area, container, sublocation, created_at) VALUES (?, ?, ?, ?)`,
			loc.Area, loc.Container, loc.Sublocation, s.now(),
		)
		if err != nil {
			return storageErr("creating location", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return storageErr("getting location id", err)
		}
		tx.touch(TopicLocations)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a location by ID, or nil.
func (s *LocationStore) Get(ctx context.Context, id int64) (*model.Location, error) {
	var loc model.Location
	ok, err := getOne(ctx, s.db, &loc,
		`SELECT id, area, container, sublocation, created_at FROM locations WHERE id = ?`, id)
	if err != nil {
		return nil, storageErr("getting location", err)
	}
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

// List returns all locations ordered by area, container and sublocation.
func (s *LocationStore) List(ctx context.Context) ([]model.Location, error) {
	var locs []model.Location
	err := sqlx.SelectContext(ctx, s.db, &locs,
		`SELECT id, area, container, sublocation, created_at FROM locations
		 ORDER BY area, container, sublocation, id`,
	)
	if err != nil {
		return nil, storageErr("listing locations", err)
	}
	return locs, nil
}
