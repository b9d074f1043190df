// Package pipeline wires the store, feeds, sanitizer, scanner and reporter
// into the runs exposed by the CLI.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradeup/internal/catalog"
	"tradeup/internal/config"
	"tradeup/internal/db"
	"tradeup/internal/logger"
	"tradeup/internal/market"
	"tradeup/internal/model"
	"tradeup/internal/pricing"
	"tradeup/internal/report"
	"tradeup/internal/sanitizer"
)

// Runner executes pipeline runs against one store.
type Runner struct {
	cfg    *config.Config
	store  *db.DB
	client *market.Client

	// Publisher receives the report when S3 upload is enabled. When nil it
	// is built from the S3 settings on first use.
	Publisher report.Publisher

	now func() time.Time
}

// New creates a Runner. cfg is read-only for the Runner's lifetime.
func New(cfg *config.Config, store *db.DB) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		client: market.NewClient(cfg.Market),
		now:    time.Now,
	}
}

// CatalogSummary reports the outcome of a catalog import.
type CatalogSummary struct {
	Collections int
	Items       int
	Skipped     int
}

// Catalog imports the static item catalog.
func (r *Runner) Catalog(ctx context.Context) (*CatalogSummary, error) {
	logger.Section("Catalog")
	source := r.cfg.Market.CatalogURL
	logger.Info("CATALOG", fmt.Sprintf("Fetching %s", source))

	cat, err := catalog.Fetch(ctx, r.client, source)
	if err != nil {
		return nil, err
	}
	if err := r.store.UpsertCatalog(cat.Collections, cat.Items); err != nil {
		return nil, err
	}
	if err := r.store.Touch(db.MetaCatalogImportedAt, r.now()); err != nil {
		logger.Warn("DB", fmt.Sprintf("Touch catalog timestamp: %v", err))
	}

	sum := &CatalogSummary{Collections: len(cat.Collections), Items: len(cat.Items), Skipped: cat.Skipped}
	logger.Success("CATALOG", fmt.Sprintf("%d items in %d collections imported (%d skipped)", sum.Items, sum.Collections, sum.Skipped))
	return sum, nil
}

// UpdateSummary reports the outcome of a price update.
type UpdateSummary struct {
	Listings      int
	Updated       int
	Skipped       int
	Predicted     int
	HistoryPruned int64
	Anomalies     []sanitizer.Anomaly
}

// Update ingests the market feed and re-runs the sanitizer over the whole
// price table.
func (r *Runner) Update(ctx context.Context) (*UpdateSummary, error) {
	logger.Section("Price update")
	source := r.cfg.Market.FeedURL
	if source == "" {
		source = r.cfg.Paths.PriceFeedPath
	}
	logger.Info("FEED", fmt.Sprintf("Reading %s", source))

	listings, err := r.client.FetchListings(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("price feed: %w", err)
	}
	ids, err := r.store.ItemIDsByName()
	if err != nil {
		return nil, err
	}

	sum := &UpdateSummary{Listings: len(listings)}
	obs := make([]model.PriceObservation, 0, len(listings))
	for _, l := range listings {
		base, cond, statTrak, ok := market.ParseMarketName(l.MarketHashName)
		if !ok {
			sum.Skipped++
			continue
		}
		id, ok := ids[base]
		if !ok {
			sum.Skipped++
			continue
		}
		obs = append(obs, model.PriceObservation{
			Key:     model.PriceKey{ItemID: id, Condition: cond, StatTrak: statTrak},
			Price:   l.Price.InexactFloat64(),
			SellNum: l.SellNum,
			GoodsID: l.GoodsID,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.store.UpsertPrices(obs, r.now()); err != nil {
		return nil, err
	}
	sum.Updated = len(obs)
	logger.Info("FEED", fmt.Sprintf("%d listings, %d prices updated, %d skipped", sum.Listings, sum.Updated, sum.Skipped))

	res, err := r.sanitize()
	if err != nil {
		return nil, err
	}
	sum.Predicted = len(res.Predicted)
	sum.Anomalies = res.Anomalies

	if days := r.cfg.Market.HistoryRetentionDays; days > 0 {
		n, err := r.store.CleanupPriceHistory(days)
		if err != nil {
			logger.Warn("DB", fmt.Sprintf("Price history cleanup: %v", err))
		}
		sum.HistoryPruned = n
	}

	if err := r.store.Touch(db.MetaPricesUpdatedAt, r.now()); err != nil {
		logger.Warn("DB", fmt.Sprintf("Touch price timestamp: %v", err))
	}
	logger.Success("SANITIZER", fmt.Sprintf("%d predictions, %d anomalies", sum.Predicted, len(sum.Anomalies)))
	logger.Stats("anomalies", len(sum.Anomalies))
	for _, a := range sum.Anomalies {
		logger.Debug("SANITIZER", fmt.Sprintf("%s (%s) actual %.2f predicted %.2f ratio %.2f %v",
			a.ItemName, a.Condition, a.Actual, a.Predicted, a.Ratio, a.Reasons))
	}
	return sum, nil
}

// sanitize runs the sanitizer over the stored prices and writes predictions
// back in source currency.
func (r *Runner) sanitize() (*sanitizer.Result, error) {
	items, err := r.store.LoadItems()
	if err != nil {
		return nil, err
	}
	obs, err := r.store.LoadPrices()
	if err != nil {
		return nil, err
	}

	rate := r.cfg.Market.CurrencyRate
	s := sanitizer.New(r.cfg.Sanitizer, r.decayModels(), r.overrides())
	s.Load(items, obs, rate)
	res := s.Run()

	rateDec := decimal.NewFromFloat(rate)
	source := make(map[model.PriceKey]float64, len(res.Predicted))
	for k, p := range res.Predicted {
		source[k] = decimal.NewFromFloat(p).Div(rateDec).Round(2).InexactFloat64()
	}
	if err := r.store.SaveSanitized(source, res.Irregular()); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) decayModels() pricing.DecayModels {
	models, err := pricing.LoadDecayModels(r.cfg.Paths.ModelParamsPath)
	if err != nil {
		logger.Warn("SANITIZER", fmt.Sprintf("Decay models ignored: %v", err))
		return pricing.DecayModels{}
	}
	return models
}

func (r *Runner) overrides() []model.ManualOverride {
	ov, err := sanitizer.LoadOverrides(r.cfg.Paths.OverridesPath)
	if err != nil {
		logger.Warn("SANITIZER", fmt.Sprintf("Manual overrides ignored: %v", err))
		return nil
	}
	if len(ov) > 0 {
		logger.Info("SANITIZER", fmt.Sprintf("%d manual overrides", len(ov)))
	}
	return ov
}
