package pricing

import (
	"tradeup/internal/model"
	"tradeup/internal/wear"
)

// bestPossibleEpsilon is how close to an item's minimum wear a float must be
// to count as the best copy in existence.
const bestPossibleEpsilon = 0.0005

// Engine predicts the price of one copy of an item from its per-condition
// base prices. It is stateless apart from the read-only decay models.
type Engine struct {
	models DecayModels
}

// NewEngine returns an Engine over the given decay models (nil is allowed).
func NewEngine(models DecayModels) *Engine {
	if models == nil {
		models = DecayModels{}
	}
	return &Engine{models: models}
}

// filled is a complete per-condition price table.
type filled struct {
	p         [wear.NumConditions]float64
	wwIgnored bool
}

// fillGaps completes a sparse price table: each gap copies the nearest better
// price, or the nearest worse one when nothing better exists.
func fillGaps(base model.ConditionPrices) (filled, bool) {
	var out filled
	var have [wear.NumConditions]bool
	found := false
	for _, c := range wear.All {
		if v, ok := base.Get(c); ok {
			out.p[c], have[c] = v, true
			found = true
		}
	}
	if !found {
		return out, false
	}
	for i := wear.NumConditions - 1; i >= 0; i-- {
		if have[i] {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if have[j] {
				out.p[i] = out.p[j]
				break
			}
		}
	}
	// Anything still empty has no better neighbour at all.
	for i := 0; i < wear.NumConditions; i++ {
		if have[i] || out.p[i] > 0 {
			continue
		}
		for j := i + 1; j < wear.NumConditions; j++ {
			if have[j] {
				out.p[i] = out.p[j]
				break
			}
		}
	}
	out.wwIgnored = out.p[wear.WellWorn] >= out.p[wear.FieldTested]
	return out, true
}

// Predict returns the expected market price of a copy at real wear f for an
// item with range rng. Zone edges are jumps: a float sitting exactly on a band
// limit is priced at the better band's base. Returns 0 when base is empty.
func (e *Engine) Predict(f float64, rng wear.Range, base model.ConditionPrices, rarity int, statTrak bool) float64 {
	bp, ok := fillGaps(base)
	if !ok {
		return 0
	}
	adj, _ := rng.Normalize(f)

	fn := bp.p[wear.FactoryNew]
	mw := bp.p[wear.MinimalWear]
	ft := bp.p[wear.FieldTested]
	ww := bp.p[wear.WellWorn]
	bs := bp.p[wear.BattleScarred]

	bestPossible := f <= rng.Min+bestPossibleEpsilon

	switch {
	case f < wear.LimitFN || bestPossible:
		anchor := fn
		if f >= wear.LimitFN {
			anchor = bp.p[wear.Classify(rng.Min)]
		}
		params, _ := e.models.Lookup(rarity, statTrak)
		return anchor * params.Factor(adj)
	case f == wear.LimitFN:
		return fn
	case f <= wear.LimitMW:
		return lerp(wear.LimitMW, wear.LimitFN, mw, 0.9*fn, f)
	case f <= wear.LimitFT:
		if f >= 0.30 {
			return ft
		}
		return lerp(0.30, wear.LimitMW, ft, 0.9*mw, f)
	case f <= wear.BarrierBS:
		switch {
		case bp.wwIgnored:
			return lerp(wear.BarrierBS, wear.LimitFT, bs, ft, f)
		case f > wear.LimitWW:
			return lerp(wear.BarrierBS, wear.LimitWW, bs, ww, f)
		default:
			return lerp(wear.LimitWW, wear.LimitFT, ww, ft, f)
		}
	default:
		return bs
	}
}

// lerp interpolates linearly between (x1,y1) and (x2,y2).
func lerp(x1, x2, y1, y2, x float64) float64 {
	if x2 == x1 {
		return y1
	}
	return y1 + (y2-y1)*(x-x1)/(x2-x1)
}
