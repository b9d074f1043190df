package db

import (
	"fmt"
	"time"

	"tradeup/internal/logger"
	"tradeup/internal/model"
)

// GetPriceHistory returns up to limit history points for key, newest first.
func (d *DB) GetPriceHistory(key model.PriceKey, limit int) ([]model.PricePoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(`SELECT price, sell_num, recorded_at FROM price_history
		WHERE item_id = ? AND condition = ? AND is_stattrak = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		key.ItemID, key.Condition.String(), boolInt(key.StatTrak), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		var ts string
		if err := rows.Scan(&p.Price, &p.SellNum, &ts); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		p.RecordedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, p)
	}
	return out, rows.Err()
}

// CleanupPriceHistory removes history rows older than the given number of
// days and returns how many were deleted. Zero or negative days keeps all.
func (d *DB) CleanupPriceHistory(olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)
	res, err := d.sql.Exec("DELETE FROM price_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup price history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.Info("DB", fmt.Sprintf("CleanupPriceHistory: removed %d old rows", n))
	}
	return n, nil
}
