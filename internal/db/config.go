package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeup/internal/model"
)

// Meta keys recorded by the pipeline.
const (
	MetaCatalogImportedAt = "catalog_imported_at"
	MetaPricesUpdatedAt   = "prices_updated_at"
	MetaLastScanRunID     = "last_scan_run_id"
)

// SetMeta stores a key/value pair, replacing any previous value.
func (d *DB) SetMeta(key, value string) error {
	_, err := d.sql.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta returns the value of key or model.ErrNotFound.
func (d *DB) GetMeta(key string) (string, error) {
	var v string
	err := d.sql.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return v, nil
}

// Touch records the current time under key.
func (d *DB) Touch(key string, now time.Time) error {
	return d.SetMeta(key, now.UTC().Format(time.RFC3339))
}

// LastTouched parses a time stored with Touch.
func (d *DB) LastTouched(key string) (time.Time, error) {
	v, err := d.GetMeta(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", key, err)
	}
	return t, nil
}
