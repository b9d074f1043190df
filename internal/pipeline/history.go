package pipeline

import (
	"fmt"

	"tradeup/internal/db"
	"tradeup/internal/engine"
	"tradeup/internal/logger"
	"tradeup/internal/report"
)

// History returns the most recent scan runs, newest first.
func (r *Runner) History(limit int) []db.ScanRecord {
	logger.Section("Scan history")
	records := r.store.GetScanHistory(limit)
	for _, rec := range records {
		logger.Info("HISTORY", fmt.Sprintf("#%d %s %s | %d contracts | top %.2f | total %.2f | %dms",
			rec.ID, rec.Timestamp, rec.RunID, rec.Count, rec.TopProfit, rec.TotalProfit, rec.DurationMs))
	}
	return records
}

// Results returns the stored contracts of one scan run.
func (r *Runner) Results(scanID int64, top int) ([]engine.Contract, error) {
	contracts, err := r.store.GetContractResults(scanID)
	if err != nil {
		return nil, err
	}
	logger.Section(fmt.Sprintf("Scan #%d", scanID))
	for _, line := range report.Summary(contracts, top) {
		logger.Info("HISTORY", line)
	}
	return contracts, nil
}

// Forget deletes a scan run and its stored contracts.
func (r *Runner) Forget(scanID int64) error {
	if err := r.store.DeleteScanRecord(scanID); err != nil {
		return err
	}
	logger.Success("HISTORY", fmt.Sprintf("Deleted scan #%d", scanID))
	return nil
}
