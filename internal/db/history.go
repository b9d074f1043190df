package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScanRecord represents a scan history entry.
type ScanRecord struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	Timestamp   string          `json:"timestamp"`
	Count       int             `json:"count"`
	TopProfit   float64         `json:"top_profit"`
	TotalProfit float64         `json:"total_profit"`
	DurationMs  int64           `json:"duration_ms"`
	Params      json.RawMessage `json:"params"`
}

// InsertScanRecord stores a scan history record and returns its ID.
// params is marshalled to JSON.
func (d *DB) InsertScanRecord(runID string, count int, topProfit, totalProfit float64, duration time.Duration, params interface{}) (int64, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("marshal scan params: %w", err)
	}
	result, err := d.sql.Exec(
		`INSERT INTO scan_history (run_id, timestamp, count, top_profit, total_profit, duration_ms, params_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), count, topProfit, totalProfit, duration.Milliseconds(), string(paramsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan record: %w", err)
	}
	return result.LastInsertId()
}

// GetScanHistory returns the last N scan history records (newest first).
func (d *DB) GetScanHistory(limit int) []ScanRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(
		`SELECT id, run_id, timestamp, count, top_profit, total_profit, duration_ms, params_json
		 FROM scan_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return []ScanRecord{}
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var paramsStr string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Timestamp, &r.Count, &r.TopProfit, &r.TotalProfit, &r.DurationMs, &paramsStr); err != nil {
			continue
		}
		r.Params = json.RawMessage(paramsStr)
		records = append(records, r)
	}
	if records == nil {
		return []ScanRecord{}
	}
	return records
}

// DeleteScanRecord removes a scan and its contract rows.
func (d *DB) DeleteScanRecord(id int64) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("delete scan begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM contract_results WHERE scan_id = ?", id); err != nil {
		return fmt.Errorf("delete contract results: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM scan_history WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete scan record: %w", err)
	}
	return tx.Commit()
}
