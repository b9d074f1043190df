// Package wear classifies wear values into conditions and maps them onto an
// item's own wear range.
package wear

import (
	"fmt"
	"strings"
)

// Condition is one of the five ordered wear bands. Lower is better.
type Condition int

const (
	FactoryNew Condition = iota
	MinimalWear
	FieldTested
	WellWorn
	BattleScarred
)

// NumConditions is the number of wear bands.
const NumConditions = 5

// Band limits in real wear. Each band is closed on the left.
const (
	LimitFN = 0.07
	LimitMW = 0.15
	LimitFT = 0.38
	LimitWW = 0.45

	// BarrierBS is where the market stops pricing BS items off WW.
	BarrierBS = 0.75
)

// All lists every condition from best to worst.
var All = [NumConditions]Condition{FactoryNew, MinimalWear, FieldTested, WellWorn, BattleScarred}

var codes = [NumConditions]string{"FN", "MW", "FT", "WW", "BS"}

var longNames = [NumConditions]string{"Factory New", "Minimal Wear", "Field-Tested", "Well-Worn", "Battle-Scarred"}

var bounds = [NumConditions][2]float64{
	{0, LimitFN},
	{LimitFN, LimitMW},
	{LimitMW, LimitFT},
	{LimitFT, LimitWW},
	{LimitWW, 1},
}

// Representative wear used when a listing has no concrete float.
var standard = [NumConditions]float64{0.035, 0.10, 0.25, 0.42, 0.60}

// Valid reports whether c is one of the five bands.
func (c Condition) Valid() bool { return c >= FactoryNew && c <= BattleScarred }

// String returns the short code ("FN", "MW", ...).
func (c Condition) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Condition(%d)", int(c))
	}
	return codes[c]
}

// LongName returns the market spelling ("Factory New", ...).
func (c Condition) LongName() string {
	if !c.Valid() {
		return c.String()
	}
	return longNames[c]
}

// Bounds returns the [lo, hi) real-wear band of c.
func (c Condition) Bounds() (lo, hi float64) {
	b := bounds[c]
	return b[0], b[1]
}

// StandardWear returns the representative wear of c.
func (c Condition) StandardWear() float64 { return standard[c] }

// MarshalText implements encoding.TextMarshaler so conditions serialize as codes.
func (c Condition) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid condition %d", int(c))
	}
	return []byte(codes[c]), nil
}

// UnmarshalText accepts either the short code or the market spelling.
func (c *Condition) UnmarshalText(b []byte) error {
	parsed, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCondition accepts "FN" style codes and "Factory New" style names.
func ParseCondition(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	for i := range codes {
		if strings.EqualFold(s, codes[i]) || strings.EqualFold(s, longNames[i]) {
			return Condition(i), nil
		}
	}
	return 0, fmt.Errorf("unknown condition %q", s)
}

// Classify maps a real wear value onto its band.
func Classify(f float64) Condition {
	switch {
	case f < LimitFN:
		return FactoryNew
	case f < LimitMW:
		return MinimalWear
	case f < LimitFT:
		return FieldTested
	case f < LimitWW:
		return WellWorn
	default:
		return BattleScarred
	}
}

// Range is an item's [Min, Max] wear interval.
type Range struct {
	Min float64 `json:"min_float"`
	Max float64 `json:"max_float"`
}

// Width returns Max-Min.
func (r Range) Width() float64 { return r.Max - r.Min }

// Degenerate reports whether the range has no positive width.
func (r Range) Degenerate() bool { return r.Max <= r.Min }

// Normalize returns the position of f inside r clamped to [0,1].
// ok is false when r is degenerate.
func (r Range) Normalize(f float64) (adj float64, ok bool) {
	if r.Degenerate() {
		return 0, false
	}
	return clamp01((f - r.Min) / r.Width()), true
}

// Denormalize maps a normalized position back to real wear.
func (r Range) Denormalize(adj float64) float64 {
	return r.Min + adj*r.Width()
}

// Clamp limits f to r.
func (r Range) Clamp(f float64) float64 {
	if f < r.Min {
		return r.Min
	}
	if f > r.Max {
		return r.Max
	}
	return f
}

// Contains reports whether f lies in the closed interval r.
func (r Range) Contains(f float64) bool { return f >= r.Min && f <= r.Max }

// BandShare returns the fraction of r covered by the band of c, together
// with the overlapping real-wear interval. The share is 0 when the band
// falls outside r or r is degenerate.
func BandShare(r Range, c Condition) (share, lo, hi float64) {
	bl, bh := c.Bounds()
	lo = max(r.Min, bl)
	hi = min(r.Max, bh)
	if r.Degenerate() || hi <= lo {
		return 0, lo, hi
	}
	return (hi - lo) / r.Width(), lo, hi
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
