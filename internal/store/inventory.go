package store

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/model"
)

// InventoryStore manages in-stock details. Stage queries only consider
// items whose INVENTORY entry is active.
type InventoryStore struct {
	*base
	lowStock float64
}

// Upsert creates or replaces the item's inventory detail.
func (s *InventoryStore) Upsert(ctx context.Context, d model.InventoryDetail) error {
	if err := normalizeInventory(&d); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *txn) error {
		if err := requireItem(ctx, tx, d.ItemID); err != nil {
			return err
		}
		return upsertInventory(ctx, tx, d, s.now())
	})
}

// GetByItem returns the item's inventory detail, or nil.
func (s *InventoryStore) GetByItem(ctx context.Context, itemID int64) (*model.InventoryDetail, error) {
	return getInventory(ctx, s.db, itemID)
}

// DeleteByItem removes the item's inventory detail.
func (s *InventoryStore) DeleteByItem(ctx context.Context, itemID int64) error {
	return s.withTx(ctx, func(tx *txn) error {
		return deleteDetail(ctx, tx, "inventory_details", itemID, model.StageInventory)
	})
}

// ExpiredAsOf returns items whose expiration date is before at, soonest
// expired first.
func (s *InventoryStore) ExpiredAsOf(ctx context.Context, at time.Time) ([]model.InventoryDetail, error) {
	return s.selectActive(ctx, "listing expired items",
		`d.expiration_date IS NOT NULL AND d.expiration_date < ?
		 ORDER BY d.expiration_date, d.item_id`, at.UTC())
}

// NearExpiration returns items that have not expired at now but will by
// warnBefore.
func (s *InventoryStore) NearExpiration(ctx context.Context, now, warnBefore time.Time) ([]model.InventoryDetail, error) {
	return s.selectActive(ctx, "listing items near expiration",
		`d.expiration_date IS NOT NULL AND d.expiration_date >= ? AND d.expiration_date <= ?
		 ORDER BY d.expiration_date, d.item_id`, now.UTC(), warnBefore.UTC())
}

// LowStock returns items whose quantity is at or below the configured
// threshold.
func (s *InventoryStore) LowStock(ctx context.Context) ([]model.InventoryDetail, error) {
	return s.selectActive(ctx, "listing low stock",
		`d.quantity <= ? ORDER BY d.quantity, d.item_id`, s.lowStock)
}

// ByLocation returns the items stored at a location.
func (s *InventoryStore) ByLocation(ctx context.Context, locationID int64) ([]model.InventoryDetail, error) {
	return s.selectActive(ctx, "listing items by location",
		`d.location_id = ? ORDER BY d.item_id`, locationID)
}

// inventoryRow is one row of the records join. Location columns come from
// a left join and are nil when the detail has no location.
type inventoryRow struct {
	model.InventoryDetail
	Item                model.Item `db:"item"`
	LocationArea        *string    `db:"loc_area"`
	LocationContainer   *string    `db:"loc_container"`
	LocationSublocation *string    `db:"loc_sublocation"`
	LocationCreatedAt   *time.Time `db:"loc_created_at"`
}

// Records returns every active inventory item joined with its item and
// location, ordered by item ID.
func (s *InventoryStore) Records(ctx context.Context) ([]model.InventoryRecord, error) {
	itemCols := make([]string, 0, 9)
	for _, f := range strings.Split(itemColumns, ", ") {
		itemCols = append(itemCols, `i.`+f+` AS "item.`+f+`"`)
	}

	var rows []inventoryRow
	err := sqlx.SelectContext(ctx, s.db, &rows,
		`SELECT `+columns("d", inventoryFields)+`, `+strings.Join(itemCols, ", ")+`,
		        l.area AS loc_area, l.container AS loc_container,
		        l.sublocation AS loc_sublocation, l.created_at AS loc_created_at
		 FROM inventory_details d
		 `+activeJoin(string(model.StageInventory))+`
		 JOIN items i ON i.id = d.item_id
		 LEFT JOIN locations l ON l.id = d.location_id
		 ORDER BY d.item_id`,
	)
	if err != nil {
		return nil, storageErr("listing inventory records", err)
	}

	records := make([]model.InventoryRecord, len(rows))
	for i, r := range rows {
		records[i] = model.InventoryRecord{Item: r.Item, Detail: r.InventoryDetail}
		if r.LocationID != nil && r.LocationArea != nil {
			loc := &model.Location{
				ID:          *r.LocationID,
				Area:        *r.LocationArea,
				Container:   r.LocationContainer,
				Sublocation: r.LocationSublocation,
			}
			if r.LocationCreatedAt != nil {
				loc.CreatedAt = *r.LocationCreatedAt
			}
			records[i].Location = loc
		}
	}
	return records, nil
}

// Watch streams Records, re-emitting after any change to inventory
// details, items or locations.
func (s *InventoryStore) Watch(ctx context.Context) *live.Subscription[[]model.InventoryRecord] {
	return live.Watch(ctx, s.hub, s.Records,
		StageTopic(model.StageInventory), TopicItems, TopicLocations)
}

func (s *InventoryStore) selectActive(ctx context.Context, op, where string, args ...any) ([]model.InventoryDetail, error) {
	var details []model.InventoryDetail
	err := sqlx.SelectContext(ctx, s.db, &details,
		`SELECT `+columns("d", inventoryFields)+` FROM inventory_details d `+
			activeJoin(string(model.StageInventory))+` WHERE `+where, args...,
	)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return details, nil
}

func normalizeInventory(d *model.InventoryDetail) error {
	if d.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	if err := nonNegative("price", d.Price); err != nil {
		return err
	}
	if d.Rating != nil && (*d.Rating < 0 || *d.Rating > 5) {
		return invalid("rating", "must be between 0 and 5")
	}

	d.OpenStatus = strings.ToUpper(strings.TrimSpace(d.OpenStatus))
	switch d.OpenStatus {
	case "":
		d.OpenStatus = model.OpenStatusUnopened
	case model.OpenStatusUnopened, model.OpenStatusOpened:
	default:
		return invalid("open_status", "unknown open status %q", d.OpenStatus)
	}

	d.Unit = trimOptional(d.Unit)
	d.Season = trimOptional(d.Season)
	if tags := d.TagList(); len(tags) > 0 {
		d.Tags = model.StringPtr(strings.Join(tags, ","))
	} else {
		d.Tags = nil
	}
	d.ExpirationDate = utc(d.ExpirationDate)
	d.ProductionDate = utc(d.ProductionDate)
	d.PurchaseDate = utc(d.PurchaseDate)
	return nil
}

func upsertInventory(ctx context.Context, tx *txn, d model.InventoryDetail, now time.Time) error {
	d.CreatedAt, d.UpdatedAt = now, now
	if _, err := sqlx.NamedExecContext(ctx, tx, upsertSQL("inventory_details", inventoryFields), d); err != nil {
		return storageErr("saving inventory detail", err)
	}
	tx.touch(StageTopic(model.StageInventory))
	return nil
}

func getInventory(ctx context.Context, q sqlx.QueryerContext, itemID int64) (*model.InventoryDetail, error) {
	var d model.InventoryDetail
	ok, err := getOne(ctx, q, &d,
		`SELECT `+columns("", inventoryFields)+` FROM inventory_details WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, storageErr("getting inventory detail", err)
	}
	if !ok {
		return nil, nil
	}
	return &d, nil
}
