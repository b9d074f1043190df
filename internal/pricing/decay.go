// Package pricing predicts skin prices at arbitrary wear values.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
)

// DecayParams describes the low-wear overpay curve of one (rarity, stattrak)
// group: price ratio = 1 + Alpha * exp(-K * adj).
type DecayParams struct {
	Alpha float64 `json:"alpha"`
	K     float64 `json:"k"`
}

// Factor evaluates the curve at normalized wear adj.
func (p DecayParams) Factor(adj float64) float64 {
	return 1 + p.Alpha*math.Exp(-p.K*adj)
}

// DecayModels maps "{rarity}_{0|1}" to fitted parameters.
type DecayModels map[string]DecayParams

// ModelKey builds the lookup key for a (rarity, stattrak) group.
func ModelKey(rarity int, statTrak bool) string {
	st := "0"
	if statTrak {
		st = "1"
	}
	return strconv.Itoa(rarity) + "_" + st
}

// Lookup returns the parameters for the group and whether they were fitted.
// Unfitted groups get the flat model.
func (m DecayModels) Lookup(rarity int, statTrak bool) (DecayParams, bool) {
	p, ok := m[ModelKey(rarity, statTrak)]
	return p, ok
}

// LoadDecayModels reads the fitted parameter blob. A missing file yields an
// empty set.
func LoadDecayModels(path string) (DecayModels, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DecayModels{}, nil
	}
	if err != nil {
		return DecayModels{}, fmt.Errorf("read model params: %w", err)
	}
	var m DecayModels
	if err := json.Unmarshal(data, &m); err != nil {
		return DecayModels{}, fmt.Errorf("parse model params %s: %w", path, err)
	}
	if m == nil {
		m = DecayModels{}
	}
	return m, nil
}
