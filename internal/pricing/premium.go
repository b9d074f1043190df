package pricing

import (
	"tradeup/internal/config"
	"tradeup/internal/model"
	"tradeup/internal/wear"
)

// Premium estimates what buyers overpay for a copy that sits just inside a
// worse band but close to a better one.
type Premium struct {
	deadzone   float64
	bsDeadzone float64
	ratio      float64
}

// NewPremium builds a Premium from the premium section of the config.
func NewPremium(cfg config.PremiumConfig) *Premium {
	return &Premium{
		deadzone:   cfg.Deadzone,
		bsDeadzone: cfg.BSDeadzone,
		ratio:      cfg.PenaltyRatio,
	}
}

// premiumWindow is the stretch of a worse band where buyers start pricing a
// copy off the better band. Start is the far edge, End the shared limit.
type premiumWindow struct {
	better     wear.Condition
	start, end float64
	deadzone   float64
}

func (p *Premium) window(f float64) (premiumWindow, bool) {
	switch c := wear.Classify(f); {
	case c == wear.FieldTested && f < wear.LimitFT:
		return premiumWindow{wear.MinimalWear, wear.LimitFT, wear.LimitMW, p.deadzone}, true
	case c == wear.MinimalWear && f < wear.LimitMW:
		return premiumWindow{wear.FactoryNew, wear.LimitMW, wear.LimitFN, p.deadzone}, true
	case c == wear.BattleScarred && f < 0.60:
		return premiumWindow{wear.WellWorn, 0.60, wear.LimitWW, p.bsDeadzone}, true
	}
	return premiumWindow{}, false
}

// Factor returns the 0..1 proximity of f to the better band after the
// deadzone is removed.
func (p *Premium) Factor(f float64) float64 {
	w, ok := p.window(f)
	if !ok {
		return 0
	}
	raw := clamp01((w.start - f) / (w.start - w.end))
	if w.deadzone <= 0 {
		return raw
	}
	if raw <= w.deadzone {
		return 0
	}
	return (raw - w.deadzone) / (1 - w.deadzone)
}

// Apply returns base plus the overpay for a copy at real wear f. prices are
// the item's actual per-condition prices. The premium is added only when the
// better band is dearer than base.
func (p *Premium) Apply(f, base float64, prices model.ConditionPrices) float64 {
	w, ok := p.window(f)
	if !ok {
		return base
	}
	better, ok := prices.Get(w.better)
	if !ok || better <= base {
		return base
	}
	return base + (better-base)*p.Factor(f)*p.ratio
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
