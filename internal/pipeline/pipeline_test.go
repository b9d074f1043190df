package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tradeup/internal/config"
	"tradeup/internal/db"
	"tradeup/internal/model"
	"tradeup/internal/wear"
)

const catalogJSON = `[
  {"id":"t1","name":"Target | One","rarity":{"name":"Mil-Spec Grade"},"collections":[{"id":"c1","name":"Alpha Collection"}],"min_float":0,"max_float":1},
  {"id":"f1","name":"Filler | One","rarity":{"name":"Mil-Spec Grade"},"collections":[{"id":"c2","name":"Bravo Collection"}],"min_float":0,"max_float":1},
  {"id":"o1","name":"Output | One","rarity":{"name":"Restricted"},"collections":[{"id":"c1","name":"Alpha Collection"}],"min_float":0,"max_float":1},
  {"id":"o2","name":"Output | Two","rarity":{"name":"Restricted"},"collections":[{"id":"c2","name":"Bravo Collection"}],"min_float":0,"max_float":1},
  {"id":"x1","name":"Howl","rarity":{"name":"Contraband"},"collections":[{"id":"c1","name":"Alpha Collection"}],"min_float":0,"max_float":1}
]`

type listing struct {
	GoodsID int64  `json:"goods_id"`
	Name    string `json:"market_hash_name"`
	Price   string `json:"sell_min_price"`
	SellNum int    `json:"sell_num"`
}

func feed(t *testing.T, path string, prices map[string]float64) {
	t.Helper()
	var ls []listing
	id := int64(1)
	for name, p := range prices {
		ls = append(ls, listing{GoodsID: id, Name: name, Price: fmt.Sprintf("%.2f", p), SellNum: 10})
		id++
	}
	data, err := json.Marshal(map[string]interface{}{"goods_list": ls})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixturePrices() map[string]float64 {
	prices := map[string]float64{
		"Target | One (Field-Tested)":          10,
		"Filler | One (Field-Tested)":          0.5,
		"Filler | One (Minimal Wear)":          0.6,
		"Unknown | Skin (Field-Tested)":        5,
		"Souvenir Target | One (Field-Tested)": 50,
	}
	for _, out := range []string{"Output | One", "Output | Two"} {
		prices[out+" (Factory New)"] = 100
		prices[out+" (Minimal Wear)"] = 50
		prices[out+" (Field-Tested)"] = 20
		prices[out+" (Well-Worn)"] = 15
		prices[out+" (Battle-Scarred)"] = 10
	}
	return prices
}

// testRunner builds a Runner on a temp store with the catalog imported.
func testRunner(t *testing.T, rate float64) (*Runner, *db.DB) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Market.CurrencyRate = rate
	cfg.Paths.DBPath = filepath.Join(dir, "data", "skins.db")
	cfg.Paths.PriceFeedPath = filepath.Join(dir, "price.json")
	cfg.Paths.OverridesPath = filepath.Join(dir, "overrides.json")
	cfg.Paths.ModelParamsPath = filepath.Join(dir, "model_params.json")
	cfg.Paths.ReportDir = filepath.Join(dir, "reports")
	cfg.Market.CatalogURL = filepath.Join(dir, "skins.json")
	if err := os.WriteFile(cfg.Market.CatalogURL, []byte(catalogJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := db.Open(cfg.Paths.DBPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r := New(cfg, store)
	sum, err := r.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if sum.Items != 4 || sum.Collections != 2 || sum.Skipped != 1 {
		t.Fatalf("catalog summary = %+v", sum)
	}
	return r, store
}

func TestCatalog_RecordsTimestamp(t *testing.T) {
	_, store := testRunner(t, 1)
	if _, err := store.LastTouched(db.MetaCatalogImportedAt); err != nil {
		t.Errorf("LastTouched: %v", err)
	}
}

func TestUpdate_IngestsFeed(t *testing.T) {
	r, store := testRunner(t, 1)
	feed(t, r.cfg.Paths.PriceFeedPath, fixturePrices())

	sum, err := r.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sum.Listings != 15 || sum.Updated != 13 || sum.Skipped != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Anomalies) != 0 {
		t.Errorf("unexpected anomalies: %+v", sum.Anomalies)
	}

	obs, err := store.LoadPrices()
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 13 {
		t.Fatalf("stored %d prices, want 13", len(obs))
	}
	for _, o := range obs {
		if o.Predicted <= 0 {
			t.Errorf("%+v has no prediction", o.Key)
		}
	}
	hist, err := store.GetPriceHistory(model.PriceKey{ItemID: "t1", Condition: wear.FieldTested}, 10)
	if err != nil || len(hist) != 1 || hist[0].Price != 10 {
		t.Errorf("history = %+v, %v", hist, err)
	}
}

func TestUpdate_FlagsInversionAndConvertsBack(t *testing.T) {
	r, store := testRunner(t, 0.5)
	feed(t, r.cfg.Paths.PriceFeedPath, map[string]float64{
		"Target | One (Factory New)":  2,
		"Target | One (Field-Tested)": 10,
	})

	sum, err := r.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(sum.Anomalies) != 1 || sum.Anomalies[0].Condition != wear.FieldTested {
		t.Fatalf("anomalies = %+v", sum.Anomalies)
	}

	obs, err := store.LoadPrices()
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range obs {
		switch o.Key.Condition {
		case wear.FactoryNew:
			if o.Irregular || o.Predicted != 2 {
				t.Errorf("FN = %+v, want predicted 2 and regular", o)
			}
		case wear.FieldTested:
			if !o.Irregular {
				t.Errorf("FT = %+v, want irregular", o)
			}
		}
	}
}

func TestUpdate_MissingFeed(t *testing.T) {
	r, _ := testRunner(t, 1)
	if _, err := r.Update(context.Background()); err == nil {
		t.Error("expected error for missing feed")
	}
}

func TestUpdate_MalformedOverridesIgnored(t *testing.T) {
	r, _ := testRunner(t, 1)
	feed(t, r.cfg.Paths.PriceFeedPath, fixturePrices())
	if err := os.WriteFile(r.cfg.Paths.OverridesPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Update(context.Background()); err != nil {
		t.Errorf("Update: %v", err)
	}
}

type fakePublisher struct {
	keys []string
	data [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, key string, data []byte) error {
	f.keys = append(f.keys, key)
	f.data = append(f.data, data)
	return nil
}

func TestScan_WritesReportAndHistory(t *testing.T) {
	r, store := testRunner(t, 1)
	feed(t, r.cfg.Paths.PriceFeedPath, fixturePrices())
	if _, err := r.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pub := &fakePublisher{}
	r.cfg.Report.S3.Enabled = true
	r.cfg.Report.S3.Bucket = "tradeups"
	r.Publisher = pub

	sum, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(sum.Contracts) != 1 {
		t.Fatalf("got %d contracts, want 1", len(sum.Contracts))
	}
	c := sum.Contracts[0]
	if c.Inputs.Target.ID != "t1" || c.Inputs.Filler.ID != "f1" {
		t.Errorf("inputs = %+v", c.Inputs)
	}
	if math.Abs(c.Financials.TotalCost-15.4) > 1e-9 {
		t.Errorf("TotalCost = %v, want 15.4", c.Financials.TotalCost)
	}

	data, err := os.ReadFile(sum.ReportPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if filepath.Base(sum.ReportPath) != "mix_results.json" {
		t.Errorf("report path = %s", sum.ReportPath)
	}
	if !strings.Contains(string(data), `"type": "MIX_1_9"`) {
		t.Errorf("report content = %s", data)
	}

	hist := store.GetScanHistory(10)
	if len(hist) != 1 || hist[0].RunID != sum.RunID || hist[0].Count != 1 {
		t.Fatalf("history = %+v", hist)
	}
	if math.Abs(hist[0].TopProfit-c.Financials.Profit) > 1e-9 {
		t.Errorf("top profit = %v, want %v", hist[0].TopProfit, c.Financials.Profit)
	}
	stored, err := store.GetContractResults(sum.ScanID)
	if err != nil || len(stored) != 1 {
		t.Errorf("contract results = %+v, %v", stored, err)
	}
	if last, err := store.GetMeta(db.MetaLastScanRunID); err != nil || last != sum.RunID {
		t.Errorf("last run id = %q, %v", last, err)
	}

	if len(pub.keys) != 1 || !strings.HasPrefix(pub.keys[0], "reports/") || !strings.HasSuffix(pub.keys[0], sum.RunID+"-mix_results.json") {
		t.Errorf("published keys = %v", pub.keys)
	}
	if sum.ObjectKey != pub.keys[0] || string(pub.data[0]) != string(data) {
		t.Error("published report differs from file")
	}
}

func TestScan_EmptyStore(t *testing.T) {
	r, _ := testRunner(t, 1)
	sum, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(sum.Contracts) != 0 {
		t.Errorf("contracts = %+v", sum.Contracts)
	}
	data, err := os.ReadFile(sum.ReportPath)
	if err != nil || strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("report = %q, %v", data, err)
	}
}

func TestQuote(t *testing.T) {
	r, _ := testRunner(t, 1)
	feed(t, r.cfg.Paths.PriceFeedPath, fixturePrices())
	if _, err := r.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	q, err := r.Quote("Output | One", false)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(q.Points) != len(quoteWears) {
		t.Fatalf("points = %d, want %d", len(q.Points), len(quoteWears))
	}
	for _, p := range q.Points {
		if p.Price <= 0 {
			t.Errorf("wear %v priced %v", p.Wear, p.Price)
		}
		if p.Wear == 0.07 && p.Price != 100 {
			t.Errorf("price at FN limit = %v, want 100", p.Price)
		}
		if p.Wear == 0.80 && p.Price != 10 {
			t.Errorf("price at 0.80 = %v, want 10", p.Price)
		}
	}

	if _, err := r.Quote("Output | One", true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("stattrak quote err = %v, want ErrNotFound", err)
	}
	if _, err := r.Quote("No | Such", false); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown quote err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_PrunesPriceHistory(t *testing.T) {
	r, store := testRunner(t, 1)
	feed(t, r.cfg.Paths.PriceFeedPath, map[string]float64{"Target | One (Field-Tested)": 10})

	r.now = func() time.Time { return time.Now().AddDate(0, 0, -40) }
	if _, err := r.Update(context.Background()); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	r.now = time.Now
	r.cfg.Market.HistoryRetentionDays = 30
	sum, err := r.Update(context.Background())
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if sum.HistoryPruned != 1 {
		t.Errorf("HistoryPruned = %d, want 1", sum.HistoryPruned)
	}
	hist, err := store.GetPriceHistory(model.PriceKey{ItemID: "t1", Condition: wear.FieldTested}, 10)
	if err != nil || len(hist) != 1 {
		t.Errorf("history after prune = %+v, %v", hist, err)
	}
}

func TestHistoryResultsForget(t *testing.T) {
	r, _ := testRunner(t, 1)
	feed(t, r.cfg.Paths.PriceFeedPath, fixturePrices())
	if _, err := r.Update(context.Background()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	sum, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	recs := r.History(5)
	if len(recs) != 1 || recs[0].ID != sum.ScanID {
		t.Fatalf("History = %+v", recs)
	}
	contracts, err := r.Results(sum.ScanID, 3)
	if err != nil || len(contracts) != len(sum.Contracts) {
		t.Fatalf("Results = %d, %v", len(contracts), err)
	}

	if err := r.Forget(sum.ScanID); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if recs := r.History(5); len(recs) != 0 {
		t.Errorf("History after Forget = %+v", recs)
	}
	if contracts, err := r.Results(sum.ScanID, 3); err != nil || len(contracts) != 0 {
		t.Errorf("Results after Forget = %d, %v", len(contracts), err)
	}
}

func TestQuote_DegenerateRange(t *testing.T) {
	r, store := testRunner(t, 1)
	flat := model.Item{ID: "d1", Name: "Flat | One", CollectionID: "c1", RarityName: "Restricted", Rarity: 4, Wear: wear.Range{Min: 0.2, Max: 0.2}}
	if err := store.UpsertCatalog(nil, []model.Item{flat}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Quote("Flat | One", false); !errors.Is(err, model.ErrDegenerateRange) {
		t.Errorf("err = %v, want ErrDegenerateRange", err)
	}
}
