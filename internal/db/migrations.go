package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Versions are
// sequential starting from 1. Append new migrations at the end.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member', 'viewer')),
    created_at    DATETIME NOT NULL,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT NOT NULL,
    category      TEXT NOT NULL,
    sub_category  TEXT,
    brand         TEXT,
    specification TEXT,
    note          TEXT,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
    id          INTEGER PRIMARY KEY,
    area        TEXT NOT NULL,
    container   TEXT,
    sublocation TEXT,
    created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS shopping_lists (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    budget     REAL CHECK (budget IS NULL OR budget >= 0),
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS item_states (
    id             INTEGER PRIMARY KEY,
    item_id        INTEGER NOT NULL REFERENCES items(id),
    stage_type     TEXT NOT NULL CHECK (stage_type IN ('SHOPPING', 'INVENTORY', 'WISHLIST', 'DELETED')),
    is_active      INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
    context_id     INTEGER,
    activated_at   DATETIME NOT NULL,
    deactivated_at DATETIME,
    reason         TEXT
);

CREATE TABLE IF NOT EXISTS shopping_details (
    item_id         INTEGER PRIMARY KEY REFERENCES items(id),
    list_id         INTEGER REFERENCES shopping_lists(id),
    quantity        REAL NOT NULL CHECK (quantity >= 0),
    unit            TEXT,
    estimated_price REAL,
    actual_price    REAL,
    budget_limit    REAL,
    priority        INTEGER NOT NULL DEFAULT 3 CHECK (priority BETWEEN 1 AND 5),
    urgency         TEXT NOT NULL DEFAULT 'NORMAL' CHECK (urgency IN ('LOW', 'NORMAL', 'HIGH', 'URGENT')),
    deadline        DATETIME,
    is_purchased    INTEGER NOT NULL DEFAULT 0 CHECK (is_purchased IN (0, 1)),
    purchase_date   DATETIME,
    store_name      TEXT,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory_details (
    item_id         INTEGER PRIMARY KEY REFERENCES items(id),
    quantity        REAL NOT NULL CHECK (quantity >= 0),
    unit            TEXT,
    location_id     INTEGER REFERENCES locations(id),
    expiration_date DATETIME,
    production_date DATETIME,
    purchase_date   DATETIME,
    price           REAL,
    open_status     TEXT NOT NULL DEFAULT 'UNOPENED' CHECK (open_status IN ('UNOPENED', 'OPENED')),
    rating          REAL,
    season          TEXT,
    tags            TEXT,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS wishlist_details (
    item_id          INTEGER PRIMARY KEY REFERENCES items(id),
    target_price     REAL,
    current_price    REAL,
    lowest_price     REAL,
    highest_price    REAL,
    priority         INTEGER NOT NULL DEFAULT 3 CHECK (priority BETWEEN 1 AND 5),
    price_alert      INTEGER NOT NULL DEFAULT 0 CHECK (price_alert IN (0, 1)),
    last_price_check DATETIME,
    source_url       TEXT,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS price_records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id     INTEGER NOT NULL REFERENCES items(id),
    record_date DATETIME NOT NULL,
    price       REAL NOT NULL CHECK (price >= 0),
    channel     TEXT NOT NULL,
    notes       TEXT
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_item_states_item_stage
    ON item_states(item_id, stage_type, is_active);
CREATE INDEX IF NOT EXISTS idx_item_states_stage_active
    ON item_states(stage_type, is_active);
CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
CREATE INDEX IF NOT EXISTS idx_shopping_details_list ON shopping_details(list_id);
CREATE INDEX IF NOT EXISTS idx_inventory_details_location ON inventory_details(location_id);
CREATE INDEX IF NOT EXISTS idx_inventory_details_expiration ON inventory_details(expiration_date);
CREATE INDEX IF NOT EXISTS idx_price_records_item ON price_records(item_id, record_date);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// Migrate checks the current schema version and applies any outstanding
// migrations in order. It is idempotent.
func Migrate(db *sqlx.DB) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration, or 0 for an empty
// database.
func SchemaVersion(db *sqlx.DB) (int, error) {
	var tableCount int
	err := db.Get(&tableCount,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`)
	if err != nil {
		return 0, fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount == 0 {
		return 0, nil
	}

	var version int
	if err := db.Get(&version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}
