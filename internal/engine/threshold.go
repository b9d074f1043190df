package engine

import (
	"math"
	"sort"

	"tradeup/internal/config"
	"tradeup/internal/model"
	"tradeup/internal/wear"
)

// thresholdShift moves a crossing point just inside the cheaper band.
const thresholdShift = 0.0001

// Condition limits an output's wear can cross.
var borders = [...]float64{wear.LimitFN, wear.LimitMW, wear.LimitFT, wear.LimitWW}

// Crossing points of a full-range item, always evaluated.
var baselineThresholds = [...]float64{0.0699, 0.1499, 0.3799, 0.4499}

// ThresholdSolver finds the mix wear values at which any output of a
// trade-up changes condition.
type ThresholdSolver struct {
	minPrice float64
	maxPrice float64
}

// NewThresholdSolver builds a solver using the output price band of cfg.
func NewThresholdSolver(cfg config.ScannerConfig) *ThresholdSolver {
	return &ThresholdSolver{minPrice: cfg.MinOutputPrice, maxPrice: cfg.MaxOutputPrice}
}

// Solve returns the sorted normalized-wear thresholds for outputs. ok is false
// when an output's best price falls outside the configured band; outputs
// without any price are not checked. Degenerate ranges add no crossings.
func (ts *ThresholdSolver) Solve(outputs []model.Item, book model.PriceBook, statTrak bool) (thresholds []float64, ok bool) {
	set := make(map[float64]struct{}, len(baselineThresholds)+len(outputs)*len(borders))
	for _, v := range baselineThresholds {
		set[v] = struct{}{}
	}

	for _, o := range outputs {
		if best, priced := book.Lookup(o.ID, statTrak).Best(); priced {
			if best < ts.minPrice || best > ts.maxPrice {
				return nil, false
			}
		}
		if o.Wear.Degenerate() {
			continue
		}
		for _, b := range borders {
			if b <= o.Wear.Min || b >= o.Wear.Max {
				continue
			}
			adj := (b-o.Wear.Min)/o.Wear.Width() - thresholdShift
			if adj <= 0 || adj >= 1 {
				continue
			}
			set[round5(adj)] = struct{}{}
		}
	}

	thresholds = make([]float64, 0, len(set))
	for v := range set {
		if v > 0 && v < 1 {
			thresholds = append(thresholds, v)
		}
	}
	sort.Float64s(thresholds)
	return thresholds, true
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
