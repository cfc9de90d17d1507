package store

import (
	"strings"
)

var (
	shoppingFields = []string{
		"item_id", "list_id", "quantity", "unit", "estimated_price", "actual_price",
		"budget_limit", "priority", "urgency", "deadline", "is_purchased",
		"purchase_date", "store_name", "created_at", "updated_at",
	}
	inventoryFields = []string{
		"item_id", "quantity", "unit", "location_id", "expiration_date",
		"production_date", "purchase_date", "price", "open_status", "rating",
		"season", "tags", "created_at", "updated_at",
	}
	wishlistFields = []string{
		"item_id", "target_price", "current_price", "lowest_price", "highest_price",
		"priority", "price_alert", "last_price_check", "source_url",
		"created_at", "updated_at",
	}
)

// columns renders fields as a select list, qualified with alias when set.
func columns(alias string, fields []string) string {
	if alias == "" {
		return strings.Join(fields, ", ")
	}
	qualified := make([]string, len(fields))
	for i, f := range fields {
		qualified[i] = alias + "." + f
	}
	return strings.Join(qualified, ", ")
}

// upsertSQL builds an insert that overwrites every field except item_id and
// created_at when the row already exists.
func upsertSQL(table string, fields []string) string {
	named := make([]string, len(fields))
	var updates []string
	for i, f := range fields {
		named[i] = ":" + f
		if f != "item_id" && f != "created_at" {
			updates = append(updates, f+" = excluded."+f)
		}
	}
	return "INSERT INTO " + table + " (" + strings.Join(fields, ", ") + ") VALUES (" +
		strings.Join(named, ", ") + ") ON CONFLICT(item_id) DO UPDATE SET " +
		strings.Join(updates, ", ")
}

// activeJoin restricts a detail table aliased d to items whose stage entry
// is active.
func activeJoin(stage string) string {
	return `JOIN item_states s ON s.item_id = d.item_id AND s.stage_type = '` + stage + `' AND s.is_active = 1`
}

func validPriority(p int) error {
	if p < 1 || p > 5 {
		return invalid("priority", "must be between 1 and 5")
	}
	return nil
}
