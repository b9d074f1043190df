// Package catalog imports the public skin catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"tradeup/internal/market"
	"tradeup/internal/model"
	"tradeup/internal/wear"
)

// Rarity tiers by catalog name. Contraband items never trade up.
var rarityTiers = map[string]int{
	"Consumer Grade":   1,
	"Industrial Grade": 2,
	"Mil-Spec Grade":   3,
	"Restricted":       4,
	"Classified":       5,
	"Covert":           6,
}

// Catalog is the parsed, de-duplicated catalog.
type Catalog struct {
	Collections []model.Collection
	Items       []model.Item
	Skipped     int
}

type rawEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity *struct {
		Name string `json:"name"`
	} `json:"rarity"`
	Collections []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"collections"`
	MinFloat *float64 `json:"min_float"`
	MaxFloat *float64 `json:"max_float"`
}

// Parse decodes the catalog JSON array. Entries without a collection, without
// a float range, with an unknown rarity or with an invalid range are counted
// as skipped. An item in several collections belongs to the first one.
func Parse(data []byte) (*Catalog, error) {
	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{}
	seenCol := make(map[string]bool)
	seenItem := make(map[string]bool)
	for _, e := range raw {
		if e.ID == "" || e.Name == "" || len(e.Collections) == 0 || e.Rarity == nil ||
			e.MinFloat == nil || e.MaxFloat == nil {
			cat.Skipped++
			continue
		}
		tier, ok := rarityTiers[e.Rarity.Name]
		if !ok {
			cat.Skipped++
			continue
		}
		rng := wear.Range{Min: *e.MinFloat, Max: *e.MaxFloat}
		if rng.Min < 0 || rng.Max > 1 || rng.Degenerate() {
			cat.Skipped++
			continue
		}
		if seenItem[e.ID] {
			continue
		}
		seenItem[e.ID] = true

		col := e.Collections[0]
		if !seenCol[col.ID] {
			seenCol[col.ID] = true
			cat.Collections = append(cat.Collections, model.Collection{ID: col.ID, Name: col.Name})
		}
		cat.Items = append(cat.Items, model.Item{
			ID:           e.ID,
			Name:         e.Name,
			CollectionID: col.ID,
			RarityName:   e.Rarity.Name,
			Rarity:       tier,
			Wear:         rng,
		})
	}

	sort.Slice(cat.Collections, func(i, j int) bool { return cat.Collections[i].ID < cat.Collections[j].ID })
	sort.Slice(cat.Items, func(i, j int) bool { return cat.Items[i].ID < cat.Items[j].ID })
	return cat, nil
}

// Fetch downloads (or reads) and parses the catalog at source.
func Fetch(ctx context.Context, c *market.Client, source string) (*Catalog, error) {
	data, err := c.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return Parse(data)
}
