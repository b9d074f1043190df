package pipeline

import (
	"fmt"

	"tradeup/internal/logger"
	"tradeup/internal/model"
	"tradeup/internal/pricing"
	"tradeup/internal/wear"
)

// quoteWears are the sample points priced by Quote.
var quoteWears = []float64{0.01, 0.05, 0.07, 0.10, 0.15, 0.25, 0.38, 0.42, 0.80}

// QuotePoint is the predicted price of an item at one wear value.
type QuotePoint struct {
	Wear      float64
	Adj       float64
	Condition wear.Condition
	Price     float64
}

// Quote is the wear/price table of one item variant.
type Quote struct {
	Item     model.Item
	StatTrak bool
	Observed model.ConditionPrices
	Points   []QuotePoint
}

// Quote predicts the price of the named item at the sample wears inside its
// range. Prices are in converted currency.
func (r *Runner) Quote(name string, statTrak bool) (*Quote, error) {
	it, err := r.store.ItemByName(name)
	if err != nil {
		return nil, fmt.Errorf("quote %q: %w", name, err)
	}
	if it.Wear.Degenerate() {
		return nil, fmt.Errorf("quote %q: %w", name, model.ErrDegenerateRange)
	}
	obs, err := r.store.LoadPrices()
	if err != nil {
		return nil, err
	}
	own := make([]model.PriceObservation, 0, wear.NumConditions)
	for _, o := range obs {
		if o.Key.ItemID == it.ID && o.Key.StatTrak == statTrak {
			own = append(own, o)
		}
	}
	set := model.BuildPriceBook(own, r.cfg.Market.CurrencyRate).Lookup(it.ID, statTrak)
	if set == nil {
		return nil, fmt.Errorf("quote %q: no prices: %w", name, model.ErrNotFound)
	}

	eng := pricing.NewEngine(r.decayModels())
	q := &Quote{Item: it, StatTrak: statTrak, Observed: set.Actual}
	for _, f := range quoteWears {
		if !it.Wear.Contains(f) {
			continue
		}
		adj, _ := it.Wear.Normalize(f)
		q.Points = append(q.Points, QuotePoint{
			Wear:      f,
			Adj:       adj,
			Condition: wear.Classify(f),
			Price:     eng.Predict(f, it.Wear, set.Actual, it.Rarity, statTrak),
		})
	}

	logger.Section(it.Name)
	for _, p := range q.Points {
		logger.Info("QUOTE", fmt.Sprintf("wear %.2f (adj %.3f, %s) -> %.2f", p.Wear, p.Adj, p.Condition, p.Price))
	}
	return q, nil
}
