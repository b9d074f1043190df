package model

import "tradeup/internal/wear"

// PriceSet holds every known price of one Variant in converted currency.
type PriceSet struct {
	Actual    ConditionPrices
	Predicted ConditionPrices
	Irregular map[wear.Condition]bool
	SellNum   map[wear.Condition]int
}

func newPriceSet() *PriceSet {
	return &PriceSet{
		Actual:    ConditionPrices{},
		Predicted: ConditionPrices{},
		Irregular: map[wear.Condition]bool{},
		SellNum:   map[wear.Condition]int{},
	}
}

// Sanitized returns the price downstream consumers should trust for c:
// the prediction when the observation was flagged irregular, else the
// actual price. A zero price means none is known.
func (s *PriceSet) Sanitized(c wear.Condition) (price float64, irregular bool) {
	if s == nil {
		return 0, false
	}
	if s.Irregular[c] {
		return s.Predicted[c], true
	}
	return s.Actual[c], false
}

// Best returns the highest actual price across conditions.
func (s *PriceSet) Best() (float64, bool) {
	if s == nil {
		return 0, false
	}
	best, ok := 0.0, false
	for _, p := range s.Actual {
		if p > 0 && p > best {
			best, ok = p, true
		}
	}
	return best, ok
}

// PriceBook is the in-memory price map used by the scanner.
type PriceBook map[Variant]*PriceSet

// BuildPriceBook converts observations by rate. Missing predictions fall back
// to the actual price.
func BuildPriceBook(obs []PriceObservation, rate float64) PriceBook {
	book := make(PriceBook)
	for _, o := range obs {
		v := o.Key.Variant()
		set := book[v]
		if set == nil {
			set = newPriceSet()
			book[v] = set
		}
		c := o.Key.Condition
		price := o.Price * rate
		set.Actual[c] = price
		if o.Predicted > 0 {
			set.Predicted[c] = o.Predicted * rate
		} else {
			set.Predicted[c] = price
		}
		set.Irregular[c] = o.Irregular
		set.SellNum[c] = o.SellNum
	}
	return book
}

// Lookup returns the set for an item variant, or nil.
func (b PriceBook) Lookup(itemID string, statTrak bool) *PriceSet {
	return b[Variant{ItemID: itemID, StatTrak: statTrak}]
}
