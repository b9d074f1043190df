// Package sanitizer cross-checks observed prices against two fair-value
// estimators and flags the ones that look manipulated.
package sanitizer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"tradeup/internal/config"
	"tradeup/internal/model"
	"tradeup/internal/pricing"
	"tradeup/internal/wear"
)

// Anomaly reasons.
const (
	ReasonRatio     = "RATIO"
	ReasonInversion = "INVERSION"
)

// Anomaly describes one flagged observation. Prices are in converted currency.
type Anomaly struct {
	Key       model.PriceKey `json:"-"`
	ItemName  string         `json:"skin"`
	Condition wear.Condition `json:"condition"`
	StatTrak  bool           `json:"is_stattrak"`
	Actual    float64        `json:"actual"`
	Predicted float64        `json:"predicted"`
	Ratio     float64        `json:"ratio"`
	Reasons   []string       `json:"reasons"`
}

// Result is the output of one sanitizer pass.
type Result struct {
	Predicted map[model.PriceKey]float64
	Anomalies []Anomaly
}

// Irregular reports whether key was flagged.
func (r *Result) Irregular() map[model.PriceKey]bool {
	out := make(map[model.PriceKey]bool, len(r.Anomalies))
	for _, a := range r.Anomalies {
		out[a.Key] = true
	}
	return out
}

type groupKey struct {
	collectionID string
	rarity       int
	statTrak     bool
}

// CollectionStats summarizes the prices of one (collection, rarity, stattrak)
// group.
// Trimmed counts prices left out of the median by the outlier guard.
type CollectionStats struct {
	Count   int
	Trimmed int
	Median  float64
	Mean    float64
	StdDev  float64
}

// curve is the cheapest observed point of one item variant.
type curve struct {
	cond  wear.Condition
	share float64
	price float64
}

// Sanitizer holds the loaded inputs of one pass. It is not safe for
// concurrent use while Load runs.
type Sanitizer struct {
	cfg       config.SanitizerConfig
	models    pricing.DecayModels
	overrides map[model.OverrideKey]float64

	items  map[string]model.Item
	prices map[model.PriceKey]float64
	stats  map[groupKey]CollectionStats
	curves map[model.Variant]curve
}

// New creates a Sanitizer. models and overrides may be empty.
func New(cfg config.SanitizerConfig, models pricing.DecayModels, overrides []model.ManualOverride) *Sanitizer {
	s := &Sanitizer{
		cfg:       cfg,
		models:    models,
		overrides: make(map[model.OverrideKey]float64, len(overrides)),
	}
	if s.models == nil {
		s.models = pricing.DecayModels{}
	}
	for _, o := range overrides {
		s.overrides[model.OverrideKey{ItemName: o.ItemName, Condition: o.Condition, StatTrak: o.StatTrak}] = o.Price
	}
	return s
}

// Load indexes items and converts observed prices by rate, then builds both
// estimators. Observations of unknown items are ignored.
func (s *Sanitizer) Load(items []model.Item, obs []model.PriceObservation, rate float64) {
	s.items = make(map[string]model.Item, len(items))
	for _, it := range items {
		s.items[it.ID] = it
	}
	s.prices = make(map[model.PriceKey]float64, len(obs))
	for _, o := range obs {
		if _, ok := s.items[o.Key.ItemID]; !ok || o.Price <= 0 {
			continue
		}
		s.prices[o.Key] = o.Price * rate
	}
	s.buildCollectionStats()
	s.buildCurves()
}

func (s *Sanitizer) buildCollectionStats() {
	groups := make(map[groupKey][]float64)
	for _, k := range s.sortedKeys() {
		it := s.items[k.ItemID]
		gk := groupKey{it.CollectionID, it.Rarity, k.StatTrak}
		groups[gk] = append(groups[gk], s.prices[k])
	}
	s.stats = make(map[groupKey]CollectionStats, len(groups))
	for gk, xs := range groups {
		if len(xs) < s.cfg.MinSamplesForStats {
			continue
		}
		sort.Float64s(xs)
		mean, std := stat.MeanStdDev(xs, nil)
		kept := trimOutliers(xs, mean, std, s.cfg.OutlierSigma)
		if len(kept) < s.cfg.MinSamplesForStats {
			kept = xs
		}
		s.stats[gk] = CollectionStats{
			Count:   len(xs),
			Trimmed: len(xs) - len(kept),
			Median:  median(kept),
			Mean:    mean,
			StdDev:  std,
		}
	}
}

// trimOutliers drops prices more than sigma standard deviations from the
// mean. Order is preserved. sigma <= 0 disables the guard.
func trimOutliers(xs []float64, mean, std, sigma float64) []float64 {
	if sigma <= 0 || std == 0 {
		return xs
	}
	kept := make([]float64, 0, len(xs))
	for _, x := range xs {
		if math.Abs(x-mean) <= sigma*std {
			kept = append(kept, x)
		}
	}
	return kept
}

// median of an ascending slice; even counts average the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func (s *Sanitizer) buildCurves() {
	s.curves = make(map[model.Variant]curve)
	for _, k := range s.sortedKeys() {
		it := s.items[k.ItemID]
		share, _, _ := wear.BandShare(it.Wear, k.Condition)
		if share <= 0 {
			continue
		}
		price := s.prices[k]
		v := k.Variant()
		cur, ok := s.curves[v]
		if !ok || price < cur.price {
			s.curves[v] = curve{cond: k.Condition, share: share, price: price}
		}
	}
}

// Stats returns the collection statistics of a group, if enough samples exist.
func (s *Sanitizer) Stats(collectionID string, rarity int, statTrak bool) (CollectionStats, bool) {
	st, ok := s.stats[groupKey{collectionID, rarity, statTrak}]
	return st, ok
}

// Predict returns the fair price of key in converted currency, or 0 when no
// estimator applies. Manual overrides win unconditionally.
func (s *Sanitizer) Predict(key model.PriceKey) float64 {
	it, ok := s.items[key.ItemID]
	if !ok {
		return 0
	}
	if p, ok := s.overrides[model.OverrideKey{ItemName: it.Name, Condition: key.Condition, StatTrak: key.StatTrak}]; ok {
		return p
	}

	var p1, p2 float64
	if st, ok := s.stats[groupKey{it.CollectionID, it.Rarity, key.StatTrak}]; ok {
		p1 = st.Median
	}
	p2 = s.scarcityEstimate(it, key)

	switch {
	case p1 > 0 && p2 > 0:
		w := s.cfg.CollectionWeight
		return w*p1 + (1-w)*p2
	case p1 > 0:
		return p1
	default:
		return p2
	}
}

func (s *Sanitizer) scarcityEstimate(it model.Item, key model.PriceKey) float64 {
	c, ok := s.curves[key.Variant()]
	if !ok {
		return 0
	}
	target, _, _ := wear.BandShare(it.Wear, key.Condition)
	if target <= 0 {
		return 0
	}
	if params, ok := s.models.Lookup(it.Rarity, key.StatTrak); ok {
		return c.price * params.Factor(target) / params.Factor(c.share)
	}
	if key.Condition == c.cond {
		return c.price
	}
	return c.price * math.Pow(c.share/target, s.cfg.ScarcityExponent)
}

// DetectAnomalies evaluates every loaded observation in key order. The
// inversion rule also applies to keys without a fair-price estimate.
func (s *Sanitizer) DetectAnomalies() []Anomaly {
	var out []Anomaly
	for _, k := range s.sortedKeys() {
		predicted := s.Predict(k)
		actual := s.prices[k]
		var ratio float64
		if predicted > 0 {
			ratio = actual / predicted
		}

		var reasons []string
		if s.cfg.RatioRule && predicted > 0 && ratio > s.cfg.AnomalyThreshold {
			reasons = append(reasons, ReasonRatio)
		}
		if s.cfg.InversionRule && s.inverted(k, actual) {
			reasons = append(reasons, ReasonInversion)
		}
		if len(reasons) == 0 {
			continue
		}
		out = append(out, Anomaly{
			Key:       k,
			ItemName:  s.items[k.ItemID].Name,
			Condition: k.Condition,
			StatTrak:  k.StatTrak,
			Actual:    round2(actual),
			Predicted: round2(predicted),
			Ratio:     round2(ratio),
			Reasons:   reasons,
		})
	}
	return out
}

// inverted reports whether any strictly better condition of the same variant
// is cheaper by more than the inversion ratio.
func (s *Sanitizer) inverted(k model.PriceKey, actual float64) bool {
	for c := k.Condition - 1; c >= wear.FactoryNew; c-- {
		better, ok := s.prices[model.PriceKey{ItemID: k.ItemID, Condition: c, StatTrak: k.StatTrak}]
		if ok && better > 0 && actual > s.cfg.InversionRatio*better {
			return true
		}
	}
	return false
}

// Run predicts every loaded key and detects anomalies.
func (s *Sanitizer) Run() *Result {
	res := &Result{Predicted: make(map[model.PriceKey]float64, len(s.prices))}
	for _, k := range s.sortedKeys() {
		if p := s.Predict(k); p > 0 {
			res.Predicted[k] = p
		}
	}
	res.Anomalies = s.DetectAnomalies()
	return res
}

func (s *Sanitizer) sortedKeys() []model.PriceKey {
	keys := make([]model.PriceKey, 0, len(s.prices))
	for k := range s.prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.StatTrak != b.StatTrak {
			return !a.StatTrak
		}
		return a.Condition < b.Condition
	})
	return keys
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
