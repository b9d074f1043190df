package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradeup/internal/db"
	"tradeup/internal/engine"
	"tradeup/internal/logger"
	"tradeup/internal/model"
	"tradeup/internal/pricing"
	"tradeup/internal/report"
)

// ScanSummary reports the outcome of a scan run.
type ScanSummary struct {
	RunID      string
	ScanID     int64
	ReportPath string
	ObjectKey  string
	Contracts  []engine.Contract
	Duration   time.Duration
}

// loadInput reads the store into a scan input with prices converted.
func (r *Runner) loadInput() (engine.ScanInput, error) {
	cols, err := r.store.LoadCollections()
	if err != nil {
		return engine.ScanInput{}, err
	}
	items, err := r.store.LoadItems()
	if err != nil {
		return engine.ScanInput{}, err
	}
	obs, err := r.store.LoadPrices()
	if err != nil {
		return engine.ScanInput{}, err
	}
	return engine.ScanInput{
		Items:       items,
		Collections: cols,
		Prices:      model.BuildPriceBook(obs, r.cfg.Market.CurrencyRate),
	}, nil
}

// Scan searches for profitable contracts, writes the report and records the
// run in scan history.
func (r *Runner) Scan(ctx context.Context) (*ScanSummary, error) {
	logger.Section("Scan")
	start := r.now()
	runID := uuid.NewString()

	in, err := r.loadInput()
	if err != nil {
		return nil, err
	}
	logger.Info("SCAN", fmt.Sprintf("%d items, %d collections, %d priced variants", len(in.Items), len(in.Collections), len(in.Prices)))

	scanner := engine.NewScanner(r.cfg, pricing.NewEngine(r.decayModels()), pricing.NewPremium(r.cfg.Premium))
	contracts, err := scanner.Scan(ctx, in, func(msg string) { logger.Info("SCAN", msg) })
	if err != nil {
		return nil, err
	}

	sum := &ScanSummary{RunID: runID, Contracts: contracts}
	path, data, err := report.WriteFile(r.cfg.Paths.ReportDir, r.cfg.Report.FileName, contracts)
	if err != nil {
		return nil, err
	}
	sum.ReportPath = path
	sum.Duration = r.now().Sub(start)
	logger.Success("REPORT", fmt.Sprintf("%d contracts written to %s", len(contracts), path))

	if err := r.record(sum); err != nil {
		return nil, err
	}
	if r.cfg.Report.S3.Enabled {
		r.publish(ctx, sum, data)
	}

	logger.Stats("scan_ms", sum.Duration.Milliseconds())
	for _, line := range report.Summary(contracts, 3) {
		logger.Info("REPORT", line)
	}
	return sum, nil
}

func (r *Runner) record(sum *ScanSummary) error {
	var top, total float64
	for i, c := range sum.Contracts {
		if i == 0 {
			top = c.Financials.Profit
		}
		total += c.Financials.Profit
	}
	id, err := r.store.InsertScanRecord(sum.RunID, len(sum.Contracts), top, total, sum.Duration, r.cfg.Scanner)
	if err != nil {
		return err
	}
	if err := r.store.InsertContractResults(id, sum.Contracts); err != nil {
		return err
	}
	sum.ScanID = id
	if err := r.store.SetMeta(db.MetaLastScanRunID, sum.RunID); err != nil {
		logger.Warn("DB", fmt.Sprintf("Save last run id: %v", err))
	}
	return nil
}

// publish uploads the report. Upload failures are logged, not returned: the
// local report is already written.
func (r *Runner) publish(ctx context.Context, sum *ScanSummary, data []byte) {
	s3cfg := r.cfg.Report.S3
	if r.Publisher == nil {
		pub, err := report.NewS3Publisher(ctx, s3cfg)
		if err != nil {
			logger.Warn("REPORT", fmt.Sprintf("S3 upload disabled: %v", err))
			return
		}
		r.Publisher = pub
	}
	key := report.ObjectKey(s3cfg.Prefix, sum.RunID, r.cfg.Report.FileName, r.now())
	if err := r.Publisher.Publish(ctx, key, data); err != nil {
		logger.Warn("REPORT", fmt.Sprintf("S3 upload failed: %v", err))
		return
	}
	sum.ObjectKey = key
	logger.Success("REPORT", fmt.Sprintf("Uploaded s3://%s/%s", s3cfg.Bucket, key))
}
