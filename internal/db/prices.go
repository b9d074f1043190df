package db

import (
	"database/sql"
	"fmt"
	"time"

	"tradeup/internal/logger"
	"tradeup/internal/model"
)

// UpsertPrices supersedes the observation of each key and appends a history
// row with the same timestamp, all in one transaction.
func (d *DB) UpsertPrices(obs []model.PriceObservation, at time.Time) error {
	if len(obs) == 0 {
		return nil
	}
	ts := at.UTC().Format(time.RFC3339)

	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("upsert prices begin tx: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(`INSERT INTO prices (item_id, condition, is_stattrak, price, sell_num, goods_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, condition, is_stattrak) DO UPDATE SET
			price = excluded.price,
			sell_num = excluded.sell_num,
			goods_id = excluded.goods_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare price upsert: %w", err)
	}
	defer upsert.Close()

	hist, err := tx.Prepare(`INSERT INTO price_history (item_id, condition, is_stattrak, price, sell_num, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare price history: %w", err)
	}
	defer hist.Close()

	for _, o := range obs {
		k := o.Key
		if _, err := upsert.Exec(k.ItemID, k.Condition.String(), boolInt(k.StatTrak), o.Price, o.SellNum, o.GoodsID, ts); err != nil {
			return fmt.Errorf("upsert price %s/%s: %w", k.ItemID, k.Condition, err)
		}
		if _, err := hist.Exec(k.ItemID, k.Condition.String(), boolInt(k.StatTrak), o.Price, o.SellNum, ts); err != nil {
			return fmt.Errorf("append price history %s/%s: %w", k.ItemID, k.Condition, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert prices commit: %w", err)
	}
	return nil
}

// LoadPrices returns every stored observation. Rows with an unknown
// condition code are logged and skipped.
func (d *DB) LoadPrices() ([]model.PriceObservation, error) {
	rows, err := d.sql.Query(`SELECT item_id, condition, is_stattrak, price, predicted_price, irregular, sell_num, goods_id, updated_at
		FROM prices ORDER BY item_id, is_stattrak, condition`)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var (
			o         model.PriceObservation
			cond      string
			st, irr   int
			predicted sql.NullFloat64
			updatedAt string
		)
		if err := rows.Scan(&o.Key.ItemID, &cond, &st, &o.Price, &predicted, &irr, &o.SellNum, &o.GoodsID, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		c, err := parseCondition(cond)
		if err != nil {
			logger.Warn("DB", fmt.Sprintf("skip price row %s: %v", o.Key.ItemID, err))
			continue
		}
		o.Key.Condition = c
		o.Key.StatTrak = st != 0
		o.Irregular = irr != 0
		if predicted.Valid {
			o.Predicted = predicted.Float64
		}
		o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveSanitized writes sanitizer output back: every prediction is replaced
// and the irregular flag is reset, then set for flagged keys. Predictions
// must already be in source currency.
func (d *DB) SaveSanitized(predicted map[model.PriceKey]float64, irregular map[model.PriceKey]bool) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("save sanitized begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE prices SET predicted_price = NULL, irregular = 0"); err != nil {
		return fmt.Errorf("reset sanitized: %w", err)
	}

	stmt, err := tx.Prepare(`UPDATE prices SET predicted_price = ?, irregular = ?
		WHERE item_id = ? AND condition = ? AND is_stattrak = ?`)
	if err != nil {
		return fmt.Errorf("prepare sanitized: %w", err)
	}
	defer stmt.Close()

	for k, p := range predicted {
		if _, err := stmt.Exec(p, boolInt(irregular[k]), k.ItemID, k.Condition.String(), boolInt(k.StatTrak)); err != nil {
			return fmt.Errorf("save sanitized %s/%s: %w", k.ItemID, k.Condition, err)
		}
	}
	// A flagged key always has a prediction, but keep the flag even if not.
	flag, err := tx.Prepare("UPDATE prices SET irregular = 1 WHERE item_id = ? AND condition = ? AND is_stattrak = ?")
	if err != nil {
		return fmt.Errorf("prepare irregular: %w", err)
	}
	defer flag.Close()
	for k, irr := range irregular {
		if _, ok := predicted[k]; ok || !irr {
			continue
		}
		if _, err := flag.Exec(k.ItemID, k.Condition.String(), boolInt(k.StatTrak)); err != nil {
			return fmt.Errorf("flag irregular %s/%s: %w", k.ItemID, k.Condition, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save sanitized commit: %w", err)
	}
	return nil
}
