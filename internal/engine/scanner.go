package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"tradeup/internal/config"
	"tradeup/internal/logger"
	"tradeup/internal/model"
	"tradeup/internal/pricing"
	"tradeup/internal/wear"
)

const (
	// mixSize is the number of inputs in a trade-up contract.
	mixSize = 10
	// fillerCopies is how many of the ten inputs are the filler.
	fillerCopies = 9

	targetShare = 0.10
	fillerShare = 0.90

	// minPremium is the smallest overpay that counts as incurred.
	minPremium = 0.0001
)

// ScanInput is everything a scan reads. It is not modified.
type ScanInput struct {
	Items       []model.Item
	Collections []model.Collection
	Prices      model.PriceBook
}

// Scanner enumerates 1+9 trade-up mixes and keeps the profitable ones.
type Scanner struct {
	cfg        config.ScannerConfig
	fee        float64
	Engine     *pricing.Engine
	Premium    *pricing.Premium
	Thresholds *ThresholdSolver
}

// NewScanner creates a Scanner from the scanner and market settings.
func NewScanner(cfg *config.Config, engine *pricing.Engine, premium *pricing.Premium) *Scanner {
	return &Scanner{
		cfg:        cfg.Scanner,
		fee:        cfg.Market.NetFeeFactor,
		Engine:     engine,
		Premium:    premium,
		Thresholds: NewThresholdSolver(cfg.Scanner),
	}
}

// candidate is one buyable (item, condition, stattrak) at its standard wear.
type candidate struct {
	item      model.Item
	statTrak  bool
	cond      wear.Condition
	price     float64
	realWear  float64
	adj       float64
	irregular bool
	prices    *model.PriceSet
}

type poolKey struct {
	rarity   int
	statTrak bool
}

type outputKey struct {
	collectionID string
	rarity       int
}

// scanGroup is the unit of parallel work: all targets sharing a collection,
// rarity and stattrak flag.
type scanGroup struct {
	collectionID string
	rarity       int
	statTrak     bool
}

// scanState is the read-only index shared by all workers.
type scanState struct {
	book        model.PriceBook
	collections map[string]string
	fillers     map[poolKey][]candidate
	outputs     map[outputKey][]model.Item
}

// Scan finds every profitable mix and returns them sorted by profit, best
// first. Identical inputs always produce the same order.
func (s *Scanner) Scan(ctx context.Context, in ScanInput, progress func(string)) ([]Contract, error) {
	if progress == nil {
		progress = func(string) {}
	}

	progress("Building candidate lists...")
	st := &scanState{
		book:        in.Prices,
		collections: make(map[string]string, len(in.Collections)),
		outputs:     make(map[outputKey][]model.Item),
	}
	for _, c := range in.Collections {
		st.collections[c.ID] = c.Name
	}

	items := append([]model.Item(nil), in.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	for _, it := range items {
		k := outputKey{it.CollectionID, it.Rarity}
		st.outputs[k] = append(st.outputs[k], it)
	}

	targets := s.buildCandidates(items, st)
	st.fillers = s.buildFillerPools(targets)

	groups := make(map[scanGroup][]candidate)
	for _, t := range targets {
		g := scanGroup{t.item.CollectionID, t.item.Rarity, t.statTrak}
		groups[g] = append(groups[g], t)
	}
	keys := make([]scanGroup, 0, len(groups))
	for g := range groups {
		keys = append(keys, g)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.collectionID != b.collectionID {
			return a.collectionID < b.collectionID
		}
		if a.rarity != b.rarity {
			return a.rarity < b.rarity
		}
		return !a.statTrak && b.statTrak
	})

	progress(fmt.Sprintf("Scanning %d targets in %d groups...", len(targets), len(keys)))

	perGroup := make([][]Contract, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, s.cfg.Workers))
	for i, g := range keys {
		i, g := i, g
		eg.Go(func() error {
			res, err := s.scanGroup(egCtx, st, g, groups[g])
			if err != nil {
				return err
			}
			perGroup[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	var results []Contract
	for _, res := range perGroup {
		results = append(results, res...)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Financials.Profit > results[j].Financials.Profit
	})
	if s.cfg.MaxResults > 0 && len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}

	progress(fmt.Sprintf("Found %d profitable contracts", len(results)))
	return results, nil
}

func (s *Scanner) excluded(collectionName string) bool {
	for _, ex := range s.cfg.ExcludedCollections {
		if ex != "" && strings.Contains(collectionName, ex) {
			return true
		}
	}
	return false
}

// buildCandidates lists every priced (item, condition, stattrak) that can
// enter a contract. Degenerate ranges are skipped.
func (s *Scanner) buildCandidates(items []model.Item, st *scanState) []candidate {
	flags := []bool{false}
	if s.cfg.EnableStatTrak {
		flags = append(flags, true)
	}

	var out []candidate
	for _, it := range items {
		if it.Rarity > s.cfg.MaxInputRarity || it.Rarity >= model.MaxRarity {
			continue
		}
		if s.excluded(st.collections[it.CollectionID]) || it.Wear.Degenerate() {
			continue
		}
		for _, stattrak := range flags {
			set := st.book.Lookup(it.ID, stattrak)
			if set == nil {
				continue
			}
			for _, c := range wear.All {
				price, ok := set.Actual.Get(c)
				if !ok {
					continue
				}
				stdWear := it.Wear.Clamp(c.StandardWear())
				adj, _ := it.Wear.Normalize(stdWear)
				out = append(out, candidate{
					item:      it,
					statTrak:  stattrak,
					cond:      c,
					price:     price,
					realWear:  stdWear,
					adj:       adj,
					irregular: set.Irregular[c],
					prices:    set,
				})
			}
		}
	}
	return out
}

// buildFillerPools keeps the cheapest candidates per (rarity, stattrak).
func (s *Scanner) buildFillerPools(cands []candidate) map[poolKey][]candidate {
	pools := make(map[poolKey][]candidate)
	for _, c := range cands {
		k := poolKey{c.item.Rarity, c.statTrak}
		pools[k] = append(pools[k], c)
	}
	for k, pool := range pools {
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].price < pool[j].price })
		if len(pool) > s.cfg.FillerPoolSize {
			pool = pool[:s.cfg.FillerPoolSize]
		}
		pools[k] = pool
	}
	return pools
}

func (s *Scanner) scanGroup(ctx context.Context, st *scanState, g scanGroup, targets []candidate) ([]Contract, error) {
	tOutputs := st.outputs[outputKey{g.collectionID, g.rarity + 1}]
	if len(tOutputs) == 0 {
		return nil, nil
	}
	thresholds, ok := s.Thresholds.Solve(tOutputs, st.book, g.statTrak)
	if !ok {
		return nil, nil
	}
	fillers := st.fillers[poolKey{g.rarity, g.statTrak}]

	var results []Contract
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, required := range thresholds {
			maxFillerAdj := (mixSize*required - t.adj) / fillerCopies
			if maxFillerAdj < 0 {
				continue
			}
			needed := math.Min(maxFillerAdj, 1)
			if needed < s.cfg.MinNeededAdj {
				continue
			}
			if c, ok := s.pickFiller(st, t, tOutputs, fillers, needed); ok {
				results = append(results, c)
			}
		}
	}
	if len(results) > 0 {
		logger.Debug("SCAN", fmt.Sprintf("%s r%d st=%v: %d contracts", g.collectionID, g.rarity, g.statTrak, len(results)))
	}
	return results, nil
}

// pickFiller takes the first eligible filler from the price-sorted pool and
// evaluates the mix. Later, possibly better fillers are not considered.
func (s *Scanner) pickFiller(st *scanState, t candidate, tOutputs []model.Item, fillers []candidate, needed float64) (Contract, bool) {
	for _, f := range fillers {
		if f.item.CollectionID == t.item.CollectionID {
			continue
		}
		realWear := f.item.Wear.Denormalize(needed)
		if wear.Classify(realWear) != f.cond {
			continue
		}
		buyPrice := s.Premium.Apply(realWear, f.price, f.prices.Actual)
		premium := buyPrice - f.price
		if needed < s.cfg.MinInputAdjFloat && premium <= minPremium {
			continue
		}
		fOutputs := st.outputs[outputKey{f.item.CollectionID, f.item.Rarity + 1}]
		if len(fOutputs) == 0 {
			continue
		}
		return s.evaluate(st, t, f, needed, realWear, buyPrice, tOutputs, fOutputs)
	}
	return Contract{}, false
}

// evaluate prices one (target, filler, wear) mix and reports whether it
// clears the ROI and profit floors.
func (s *Scanner) evaluate(st *scanState, t, f candidate, fillerAdj, fillerWear, fillerPrice float64, tOutputs, fOutputs []model.Item) (Contract, bool) {
	cost := t.price + fillerCopies*fillerPrice
	mixAdj := (t.adj + fillerCopies*fillerAdj) / mixSize

	var ev float64
	outcomes := make([]Outcome, 0, len(tOutputs)+len(fOutputs))
	legs := []struct {
		outputs  []model.Item
		prob     float64
		source   string
		statTrak bool
	}{
		{tOutputs, targetShare / float64(len(tOutputs)), SourceTarget, t.statTrak},
		{fOutputs, fillerShare / float64(len(fOutputs)), SourceFiller, f.statTrak},
	}
	for _, leg := range legs {
		for _, o := range leg.outputs {
			if o.Wear.Degenerate() {
				continue
			}
			resWear := o.Wear.Denormalize(mixAdj)
			resCond := wear.Classify(resWear)
			set := st.book.Lookup(o.ID, leg.statTrak)
			price, irregular := set.Sanitized(resCond)
			net := price * s.fee
			ev += net * leg.prob

			var modelValue float64
			if set != nil {
				modelValue = s.Engine.Predict(resWear, o.Wear, set.Actual, o.Rarity, leg.statTrak) * s.fee
			}
			outcomes = append(outcomes, Outcome{
				Name:         o.Name,
				Condition:    resCond,
				RealWear:     sanitizeFloat(resWear),
				Probability:  sanitizeFloat(leg.prob * 100),
				ValueNet:     sanitizeFloat(net),
				Profit:       sanitizeFloat(net - cost),
				Source:       leg.source,
				WasIrregular: irregular,
				ModelValue:   sanitizeFloat(modelValue),
			})
		}
	}

	profit := ev - cost
	var roi float64
	if cost > 0 {
		roi = profit / cost * 100
	}
	if roi < s.cfg.MinROI || profit <= s.cfg.MinProfit {
		return Contract{}, false
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].ValueNet > outcomes[j].ValueNet })

	return Contract{
		Type:             ContractTypeMix,
		StatTrak:         t.statTrak,
		TargetCollection: st.collections[t.item.CollectionID],
		FillerCollection: st.collections[f.item.CollectionID],
		Inputs: ContractInputs{
			Target: InputLeg{
				ID:        t.item.ID,
				Name:      t.item.Name,
				Condition: t.cond,
				Price:     sanitizeFloat(t.price),
				AdjWear:   t.adj,
				RealWear:  t.realWear,
				Irregular: t.irregular,
			},
			Filler: InputLeg{
				ID:        f.item.ID,
				Name:      f.item.Name,
				Condition: f.cond,
				Price:     sanitizeFloat(fillerPrice),
				AdjWear:   fillerAdj,
				RealWear:  fillerWear,
				Irregular: f.irregular,
				BasePrice: sanitizeFloat(f.price),
				Premium:   sanitizeFloat(fillerPrice - f.price),
			},
		},
		Financials: Financials{
			TotalCost:     sanitizeFloat(cost),
			ExpectedValue: sanitizeFloat(ev),
			ROI:           sanitizeFloat(roi),
			Profit:        sanitizeFloat(profit),
		},
		Outcomes: outcomes,
	}, true
}

// sanitizeFloat replaces NaN/Inf with 0 to prevent JSON marshal errors.
func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
