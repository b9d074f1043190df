package db

import (
	"encoding/json"
	"fmt"

	"tradeup/internal/engine"
)

// InsertContractResults bulk-inserts contracts linked to a scan history record.
func (d *DB) InsertContractResults(scanID int64, results []engine.Contract) error {
	if scanID == 0 || len(results) == 0 {
		return nil
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("insert contract results begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO contract_results (
		scan_id, is_stattrak,
		target_id, target_condition, filler_id, filler_condition,
		total_cost, expected_value, roi, profit, payload_json
	) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("insert contract results prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal contract: %w", err)
		}
		in, fin := r.Inputs, r.Financials
		if _, err := stmt.Exec(
			scanID, boolInt(r.StatTrak),
			in.Target.ID, in.Target.Condition.String(), in.Filler.ID, in.Filler.Condition.String(),
			fin.TotalCost, fin.ExpectedValue, fin.ROI, fin.Profit, string(payload),
		); err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert contract results commit: %w", err)
	}
	return nil
}

// GetContractResults retrieves the contracts of a scan, most profitable first.
func (d *DB) GetContractResults(scanID int64) ([]engine.Contract, error) {
	rows, err := d.sql.Query(`SELECT payload_json FROM contract_results
		WHERE scan_id = ? ORDER BY profit DESC, id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("contract results: %w", err)
	}
	defer rows.Close()

	var results []engine.Contract
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		var c engine.Contract
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decode contract: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
