package db

import (
	"database/sql"
	"errors"
	"fmt"

	"tradeup/internal/model"
	"tradeup/internal/wear"
)

// UpsertCatalog writes collections and items in one transaction.
func (d *DB) UpsertCatalog(collections []model.Collection, items []model.Item) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("upsert catalog begin tx: %w", err)
	}
	defer tx.Rollback()

	colStmt, err := tx.Prepare(`INSERT INTO collections (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`)
	if err != nil {
		return fmt.Errorf("prepare collections: %w", err)
	}
	defer colStmt.Close()
	for _, c := range collections {
		if _, err := colStmt.Exec(c.ID, c.Name); err != nil {
			return fmt.Errorf("upsert collection %s: %w", c.ID, err)
		}
	}

	itemStmt, err := tx.Prepare(`INSERT INTO items (id, name, collection_id, rarity_name, rarity, min_float, max_float)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			collection_id = excluded.collection_id,
			rarity_name = excluded.rarity_name,
			rarity = excluded.rarity,
			min_float = excluded.min_float,
			max_float = excluded.max_float`)
	if err != nil {
		return fmt.Errorf("prepare items: %w", err)
	}
	defer itemStmt.Close()
	for _, it := range items {
		if _, err := itemStmt.Exec(it.ID, it.Name, it.CollectionID, it.RarityName, it.Rarity, it.Wear.Min, it.Wear.Max); err != nil {
			return fmt.Errorf("upsert item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert catalog commit: %w", err)
	}
	return nil
}

// LoadCollections returns every collection ordered by id.
func (d *DB) LoadCollections() ([]model.Collection, error) {
	rows, err := d.sql.Query("SELECT id, name FROM collections ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	defer rows.Close()

	var out []model.Collection
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadItems returns every item ordered by id.
func (d *DB) LoadItems() ([]model.Item, error) {
	rows, err := d.sql.Query(`SELECT id, name, collection_id, rarity_name, rarity, min_float, max_float
		FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.CollectionID, &it.RarityName, &it.Rarity, &it.Wear.Min, &it.Wear.Max); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ItemByName returns the first item (by id) with the given display name.
func (d *DB) ItemByName(name string) (model.Item, error) {
	var it model.Item
	err := d.sql.QueryRow(`SELECT id, name, collection_id, rarity_name, rarity, min_float, max_float
		FROM items WHERE name = ? ORDER BY id LIMIT 1`, name).
		Scan(&it.ID, &it.Name, &it.CollectionID, &it.RarityName, &it.Rarity, &it.Wear.Min, &it.Wear.Max)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("item %q: %w", name, err)
	}
	return it, nil
}

// ItemIDsByName maps display names to item ids. The lowest id wins on
// duplicate names.
func (d *DB) ItemIDsByName() (map[string]string, error) {
	rows, err := d.sql.Query("SELECT name, id FROM items ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("load item names: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan item name: %w", err)
		}
		out[name] = id
	}
	return out, rows.Err()
}

func parseCondition(s string) (wear.Condition, error) {
	c, err := wear.ParseCondition(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownCondition, s)
	}
	return c, nil
}
