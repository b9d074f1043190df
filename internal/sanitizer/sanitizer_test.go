package sanitizer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tradeup/internal/config"
	"tradeup/internal/model"
	"tradeup/internal/pricing"
	"tradeup/internal/wear"
)

func testConfig() config.SanitizerConfig {
	return config.Default().Sanitizer
}

func obs(item string, c wear.Condition, st bool, price float64) model.PriceObservation {
	return model.PriceObservation{Key: model.PriceKey{ItemID: item, Condition: c, StatTrak: st}, Price: price}
}

func key(item string, c wear.Condition) model.PriceKey {
	return model.PriceKey{ItemID: item, Condition: c}
}

func testItems() []model.Item {
	full := wear.Range{Min: 0, Max: 1}
	return []model.Item{
		{ID: "a", Name: "Alpha | One", CollectionID: "c1", Rarity: 3, Wear: full},
		{ID: "b", Name: "Bravo | Two", CollectionID: "c1", Rarity: 3, Wear: full},
		{ID: "c", Name: "Charlie | Three", CollectionID: "c1", Rarity: 3, Wear: full},
	}
}

func TestPredict_CombinesEstimators(t *testing.T) {
	s := New(testConfig(), nil, nil)
	s.Load(testItems(), []model.PriceObservation{
		obs("a", wear.FieldTested, false, 10),
		obs("a", wear.MinimalWear, false, 20),
		obs("b", wear.FieldTested, false, 30),
	}, 1)

	// Median of {10,20,30} = 20. Scarcity for a/MW: base FT(10) share .23,
	// MW share .08, exponent 1 -> 10 * .23/.08.
	p2 := 10 * (0.23 / 0.08)
	want := 0.6*20 + 0.4*p2
	if got := s.Predict(key("a", wear.MinimalWear)); math.Abs(got-want) > 1e-6 {
		t.Errorf("Predict(a,MW) = %v, want %v", got, want)
	}

	// Base condition scarcity equals its own price.
	want = 0.6*20 + 0.4*10
	if got := s.Predict(key("a", wear.FieldTested)); math.Abs(got-want) > 1e-9 {
		t.Errorf("Predict(a,FT) = %v, want %v", got, want)
	}

	st, ok := s.Stats("c1", 3, false)
	if !ok || st.Count != 3 || st.Median != 20 || st.Mean != 20 {
		t.Errorf("Stats = %+v,%v", st, ok)
	}
}

func TestPredict_BelowMinSamplesUsesScarcityOnly(t *testing.T) {
	s := New(testConfig(), nil, nil)
	s.Load(testItems(), []model.PriceObservation{
		obs("a", wear.FieldTested, false, 10),
		obs("a", wear.MinimalWear, false, 20),
	}, 1)
	if _, ok := s.Stats("c1", 3, false); ok {
		t.Fatal("stats should need 3 samples")
	}
	if got := s.Predict(key("a", wear.FieldTested)); got != 10 {
		t.Errorf("Predict(a,FT) = %v, want 10", got)
	}
}

func TestPredict_DecayModelRatio(t *testing.T) {
	models := pricing.DecayModels{"3_0": {Alpha: 1, K: 5}}
	s := New(testConfig(), models, nil)
	s.Load(testItems()[:1], []model.PriceObservation{
		obs("a", wear.FieldTested, false, 10),
	}, 1)
	params := models["3_0"]
	want := 10 * params.Factor(0.08) / params.Factor(0.23)
	if got := s.Predict(key("a", wear.MinimalWear)); math.Abs(got-want) > 1e-9 {
		t.Errorf("Predict(a,MW) = %v, want %v", got, want)
	}
}

func TestPredict_OverrideWins(t *testing.T) {
	overrides := []model.ManualOverride{{ItemName: "Alpha | One", Condition: wear.FieldTested, Price: 42}}
	s := New(testConfig(), nil, overrides)
	s.Load(testItems(), []model.PriceObservation{obs("a", wear.FieldTested, false, 10)}, 1)
	if got := s.Predict(key("a", wear.FieldTested)); got != 42 {
		t.Errorf("Predict with override = %v, want 42", got)
	}
}

func TestDetectAnomalies_InversionRegardlessOfRatio(t *testing.T) {
	cfg := testConfig()
	cfg.AnomalyThreshold = 1000
	s := New(cfg, nil, nil)
	s.Load(testItems(), []model.PriceObservation{
		obs("a", wear.FactoryNew, false, 10),
		obs("a", wear.FieldTested, false, 16),
		obs("b", wear.FieldTested, false, 12),
	}, 1)
	got := s.DetectAnomalies()
	if len(got) != 1 {
		t.Fatalf("anomalies = %+v, want 1", got)
	}
	a := got[0]
	if a.Key != key("a", wear.FieldTested) || !reflect.DeepEqual(a.Reasons, []string{ReasonInversion}) {
		t.Errorf("anomaly = %+v", a)
	}
}

func TestDetectAnomalies_RatioRule(t *testing.T) {
	cfg := testConfig()
	cfg.InversionRule = false
	s := New(cfg, nil, nil)
	s.Load(testItems(), []model.PriceObservation{
		obs("a", wear.FieldTested, false, 1000),
		obs("b", wear.FieldTested, false, 10),
		obs("c", wear.FieldTested, false, 12),
		obs("b", wear.MinimalWear, false, 11),
	}, 1)
	// Group median of {10,11,12,1000} = 11.5; a/FT predicted = .6*11.5 + .4*1000.
	// Ratio stays below 5, so nothing fires.
	if got := s.DetectAnomalies(); len(got) != 0 {
		t.Errorf("unexpected anomalies %+v", got)
	}

	override := []model.ManualOverride{{ItemName: "Alpha | One", Condition: wear.FieldTested, Price: 100}}
	s = New(cfg, nil, override)
	s.Load(testItems(), []model.PriceObservation{obs("a", wear.FieldTested, false, 1000)}, 1)
	got := s.DetectAnomalies()
	if len(got) != 1 || got[0].Ratio != 10 || got[0].Reasons[0] != ReasonRatio {
		t.Errorf("anomalies = %+v, want one RATIO at 10x", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	observations := []model.PriceObservation{
		obs("a", wear.FactoryNew, false, 10),
		obs("a", wear.FieldTested, false, 16),
		obs("b", wear.FieldTested, false, 12),
		obs("c", wear.WellWorn, true, 3),
	}
	run := func() *Result {
		s := New(testConfig(), nil, nil)
		s.Load(testItems(), observations, 0.5)
		return s.Run()
	}
	r1, r2 := run(), run()
	if !reflect.DeepEqual(r1.Predicted, r2.Predicted) {
		t.Error("predicted prices differ between runs")
	}
	if !reflect.DeepEqual(r1.Anomalies, r2.Anomalies) {
		t.Error("anomalies differ between runs")
	}
	if !r1.Irregular()[key("a", wear.FieldTested)] {
		t.Error("a/FT should be irregular")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	got, err := LoadOverrides(filepath.Join(dir, "none.json"))
	if err != nil || got != nil {
		t.Errorf("missing file = %v, %v", got, err)
	}

	path := filepath.Join(dir, "overrides.json")
	body := `[{"skin":"AK-47 | Redline","condition":"FT","is_stattrak":true,"price":12.5}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	want := []model.ManualOverride{{ItemName: "AK-47 | Redline", Condition: wear.FieldTested, StatTrak: true, Price: 12.5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	os.WriteFile(path, []byte("{"), 0o644)
	if _, err := LoadOverrides(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOverrides_NumericStatTrakFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	body := `[
		{"skin":"Alpha | One","condition":"FT","is_stattrak":0,"price":42},
		{"skin":"Alpha | One","condition":"Minimal Wear","is_stattrak":1,"price":50},
		{"skin":"Bravo | Two","condition":"BS","is_stattrak":"1","price":3}
	]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	want := []model.ManualOverride{
		{ItemName: "Alpha | One", Condition: wear.FieldTested, StatTrak: false, Price: 42},
		{ItemName: "Alpha | One", Condition: wear.MinimalWear, StatTrak: true, Price: 50},
		{ItemName: "Bravo | Two", Condition: wear.BattleScarred, StatTrak: true, Price: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	s := New(testConfig(), nil, got)
	s.Load(testItems(), []model.PriceObservation{obs("a", wear.FieldTested, false, 10)}, 1)
	if p := s.Predict(key("a", wear.FieldTested)); p != 42 {
		t.Errorf("Predict with numeric-flag override = %v, want 42", p)
	}
}

func TestLoadOverrides_BadFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	os.WriteFile(path, []byte(`[{"skin":"A","condition":"FT","is_stattrak":"maybe","price":1}]`), 0o644)
	if _, err := LoadOverrides(path); err == nil {
		t.Error("expected error for unparsable flag")
	}
}

func tenItems() []model.Item {
	full := wear.Range{Min: 0, Max: 1}
	items := make([]model.Item, 10)
	for i := range items {
		items[i] = model.Item{ID: fmt.Sprintf("i%02d", i), Name: fmt.Sprintf("Item | %d", i), CollectionID: "c1", Rarity: 3, Wear: full}
	}
	return items
}

func TestCollectionStats_OutlierGuard(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10, 12, 12, 12, 12, 1000}
	items := tenItems()
	observations := make([]model.PriceObservation, len(items))
	for i, it := range items {
		observations[i] = obs(it.ID, wear.FieldTested, false, prices[i])
	}

	tests := []struct {
		name        string
		sigma       float64
		wantMedian  float64
		wantTrimmed int
	}{
		{"guard on", 2.5, 10, 1},
		{"guard off", 0, 11, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.OutlierSigma = tt.sigma
			s := New(cfg, nil, nil)
			s.Load(items, observations, 1)
			st, ok := s.Stats("c1", 3, false)
			if !ok {
				t.Fatal("no stats")
			}
			if st.Median != tt.wantMedian || st.Trimmed != tt.wantTrimmed || st.Count != 10 {
				t.Errorf("stats = %+v, want median %v trimmed %d", st, tt.wantMedian, tt.wantTrimmed)
			}
			if math.Abs(st.Mean-109.8) > 1e-9 || st.StdDev <= 0 {
				t.Errorf("mean/std = %v/%v", st.Mean, st.StdDev)
			}
		})
	}
}

func TestCollectionStats_GuardKeepsMinSamples(t *testing.T) {
	cfg := testConfig()
	cfg.OutlierSigma = 0.1
	cfg.MinSamplesForStats = 3
	s := New(cfg, nil, nil)
	s.Load(testItems(), []model.PriceObservation{
		obs("a", wear.FieldTested, false, 10),
		obs("b", wear.FieldTested, false, 20),
		obs("c", wear.FieldTested, false, 60),
	}, 1)
	st, ok := s.Stats("c1", 3, false)
	if !ok || st.Trimmed != 0 || st.Median != 20 {
		t.Errorf("stats = %+v, %v; a guard leaving too few samples must be ignored", st, ok)
	}
}

func TestDetectAnomalies_InversionWithoutEstimate(t *testing.T) {
	items := []model.Item{{ID: "n", Name: "Narrow | One", CollectionID: "c9", Rarity: 3, Wear: wear.Range{Min: 0, Max: 0.06}}}
	s := New(testConfig(), nil, nil)
	s.Load(items, []model.PriceObservation{
		obs("n", wear.FactoryNew, false, 2),
		obs("n", wear.FieldTested, false, 10),
	}, 1)
	if p := s.Predict(key("n", wear.FieldTested)); p != 0 {
		t.Fatalf("Predict(n,FT) = %v, want 0 for a band outside the range", p)
	}
	got := s.DetectAnomalies()
	if len(got) != 1 {
		t.Fatalf("anomalies = %+v, want 1", got)
	}
	a := got[0]
	if a.Key != key("n", wear.FieldTested) || a.Predicted != 0 || a.Ratio != 0 ||
		!reflect.DeepEqual(a.Reasons, []string{ReasonInversion}) {
		t.Errorf("anomaly = %+v", a)
	}
	if !s.Run().Irregular()[key("n", wear.FieldTested)] {
		t.Error("Run should mark the inverted key irregular")
	}
}
