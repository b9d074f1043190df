// Package report writes ranked contracts as JSON and optionally archives them
// in an S3-compatible bucket.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tradeup/internal/engine"
)

// Marshal encodes contracts as indented JSON without HTML escaping. A nil
// slice encodes as an empty list.
func Marshal(contracts []engine.Contract) ([]byte, error) {
	if contracts == nil {
		contracts = []engine.Contract{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(contracts); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes the report to dir/name, creating dir, and returns the
// path together with the encoded bytes.
func WriteFile(dir, name string, contracts []engine.Contract) (string, []byte, error) {
	data, err := Marshal(contracts)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", nil, fmt.Errorf("write report: %w", err)
	}
	return path, data, nil
}

// Summary renders one line per contract for the first n contracts.
func Summary(contracts []engine.Contract, n int) []string {
	if n > len(contracts) {
		n = len(contracts)
	}
	lines := make([]string, 0, n)
	for i, c := range contracts[:n] {
		st := ""
		if c.StatTrak {
			st = "ST "
		}
		lines = append(lines, fmt.Sprintf("#%d %s%s (%s) + 9x %s (%s) | cost %.2f | EV %.2f | profit %.2f | ROI %.1f%%",
			i+1, st,
			c.Inputs.Target.Name, c.Inputs.Target.Condition,
			c.Inputs.Filler.Name, c.Inputs.Filler.Condition,
			c.Financials.TotalCost, c.Financials.ExpectedValue, c.Financials.Profit, c.Financials.ROI,
		))
	}
	return lines
}
