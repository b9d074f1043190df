package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"tradeup/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh file leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS meta (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS collections (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS items (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				collection_id TEXT NOT NULL REFERENCES collections(id),
				rarity_name   TEXT NOT NULL DEFAULT '',
				rarity        INTEGER NOT NULL,
				min_float     REAL NOT NULL,
				max_float     REAL NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
			CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection_id, rarity);

			CREATE TABLE IF NOT EXISTS prices (
				item_id         TEXT NOT NULL REFERENCES items(id),
				condition       TEXT NOT NULL,
				is_stattrak     INTEGER NOT NULL,
				price           REAL NOT NULL,
				predicted_price REAL,
				irregular       INTEGER NOT NULL DEFAULT 0,
				sell_num        INTEGER NOT NULL DEFAULT 0,
				goods_id        INTEGER NOT NULL DEFAULT 0,
				updated_at      TEXT NOT NULL,
				PRIMARY KEY (item_id, condition, is_stattrak)
			);

			CREATE TABLE IF NOT EXISTS price_history (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				item_id     TEXT NOT NULL,
				condition   TEXT NOT NULL,
				is_stattrak INTEGER NOT NULL,
				price       REAL NOT NULL,
				sell_num    INTEGER NOT NULL DEFAULT 0,
				recorded_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_price_history_key ON price_history(item_id, condition, is_stattrak, recorded_at);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS scan_history (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id       TEXT NOT NULL,
				timestamp    TEXT NOT NULL,
				count        INTEGER NOT NULL,
				top_profit   REAL NOT NULL,
				total_profit REAL NOT NULL DEFAULT 0,
				duration_ms  INTEGER NOT NULL DEFAULT 0,
				params_json  TEXT NOT NULL DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_scan_history_ts ON scan_history(timestamp);

			CREATE TABLE IF NOT EXISTS contract_results (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				scan_id          INTEGER NOT NULL REFERENCES scan_history(id),
				is_stattrak      INTEGER NOT NULL,
				target_id        TEXT NOT NULL,
				target_condition TEXT NOT NULL,
				filler_id        TEXT NOT NULL,
				filler_condition TEXT NOT NULL,
				total_cost       REAL NOT NULL,
				expected_value   REAL NOT NULL,
				roi              REAL NOT NULL,
				profit           REAL NOT NULL,
				payload_json     TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_contract_scan ON contract_results(scan_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (scan history)")
	}

	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
