// Package model holds the catalog and price types shared by the pricing,
// sanitizing and scanning stages.
package model

import (
	"time"

	"tradeup/internal/wear"
)

// MaxRarity is the top trade-up tier. Items of this tier are outputs only.
const MaxRarity = 6

// Collection groups items that trade up into each other.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is one skin in the catalog. Rarity runs 1..6; Rarity+1 is the
// trade-up output tier.
type Item struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CollectionID string     `json:"collection_id"`
	RarityName   string     `json:"rarity_name"`
	Rarity       int        `json:"rarity"`
	Wear         wear.Range `json:"wear"`
}

// PriceKey identifies one price observation.
type PriceKey struct {
	ItemID    string
	Condition wear.Condition
	StatTrak  bool
}

// Variant returns the (item, stattrak) half of the key.
func (k PriceKey) Variant() Variant {
	return Variant{ItemID: k.ItemID, StatTrak: k.StatTrak}
}

// Variant identifies an item with or without StatTrak.
type Variant struct {
	ItemID   string
	StatTrak bool
}

// Key builds the PriceKey of v at condition c.
func (v Variant) Key(c wear.Condition) PriceKey {
	return PriceKey{ItemID: v.ItemID, Condition: c, StatTrak: v.StatTrak}
}

// PriceObservation is the latest market price for a key, in source currency.
// Predicted is 0 when the sanitizer has no estimate.
type PriceObservation struct {
	Key       PriceKey
	Price     float64
	Predicted float64
	Irregular bool
	SellNum   int
	GoodsID   int64
	UpdatedAt time.Time
}

// PricePoint is one row of the append-only price history.
type PricePoint struct {
	Price      float64   `json:"price"`
	SellNum    int       `json:"sell_num"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ManualOverride forces the fair price of one key, in converted currency.
type ManualOverride struct {
	ItemName  string         `json:"skin"`
	Condition wear.Condition `json:"condition"`
	StatTrak  bool           `json:"is_stattrak"`
	Price     float64        `json:"price"`
}

// OverrideKey is the lookup key for manual overrides.
type OverrideKey struct {
	ItemName  string
	Condition wear.Condition
	StatTrak  bool
}

// ConditionPrices maps conditions to prices. A missing key means no price.
type ConditionPrices map[wear.Condition]float64

// Get returns the price of c and whether a positive price is present.
func (p ConditionPrices) Get(c wear.Condition) (float64, bool) {
	v, ok := p[c]
	return v, ok && v > 0
}
