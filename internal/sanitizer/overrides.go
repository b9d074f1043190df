package sanitizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"tradeup/internal/model"
	"tradeup/internal/wear"
)

// flexBool accepts JSON booleans, numbers (non-zero is true), numeric or
// boolean strings and null.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	switch s {
	case "null", `""`:
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}
	s = strings.Trim(s, `"`)
	if v, err := strconv.ParseBool(s); err == nil {
		*f = flexBool(v)
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("boolean flag %q: %w", s, err)
	}
	*f = n != 0
	return nil
}

type rawOverride struct {
	ItemName  string         `json:"skin"`
	Condition wear.Condition `json:"condition"`
	StatTrak  flexBool       `json:"is_stattrak"`
	Price     float64        `json:"price"`
}

// LoadOverrides reads the manual override list. A missing file yields no
// overrides; a malformed one is an error the caller may downgrade.
func LoadOverrides(path string) ([]model.ManualOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	var raw []rawOverride
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	out := make([]model.ManualOverride, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.ManualOverride{
			ItemName:  r.ItemName,
			Condition: r.Condition,
			StatTrak:  bool(r.StatTrak),
			Price:     r.Price,
		})
	}
	return out, nil
}
