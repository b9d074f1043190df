package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Listing is one marketplace entry. Price is in the feed's currency.
type Listing struct {
	GoodsID        int64
	MarketHashName string
	Price          decimal.Decimal
	SellNum        int
}

// flexDecimal accepts numbers, numeric strings, empty strings and null.
type flexDecimal struct {
	decimal.Decimal
	Set bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("price %q: %w", s, err)
	}
	f.Decimal, f.Set = d, true
	return nil
}

// flexInt accepts integers encoded as numbers or strings.
type flexInt struct {
	V   int64
	Set bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "null" || s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some feeds send counts as floats.
		fv, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("integer %q: %w", s, err)
		}
		n = int64(fv)
	}
	f.V, f.Set = n, true
	return nil
}

type rawSale struct {
	MinPrice flexDecimal `json:"min_price"`
	SellNum  flexInt     `json:"sell_num"`
}

type rawListing struct {
	GoodsID        flexInt     `json:"goods_id"`
	ID             flexInt     `json:"id"`
	MarketHashName string      `json:"market_hash_name"`
	SellMinPrice   flexDecimal `json:"sell_min_price"`
	SellNum        flexInt     `json:"sell_num"`
	Sales          []rawSale   `json:"sales"`
}

// ParseListings decodes a feed document. The document is either a list of
// listings or an object holding one under goods_list, info or data.items.
// Entries without a name or a positive price are dropped.
func ParseListings(data []byte) ([]Listing, error) {
	raws, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(raws))
	for _, r := range raws {
		l := Listing{MarketHashName: strings.TrimSpace(r.MarketHashName)}
		switch {
		case r.GoodsID.Set:
			l.GoodsID = r.GoodsID.V
		case r.ID.Set:
			l.GoodsID = r.ID.V
		}

		price, sellNum := r.SellMinPrice, r.SellNum
		if len(r.Sales) > 0 {
			if r.Sales[0].MinPrice.Set {
				price = r.Sales[0].MinPrice
			}
			if r.Sales[0].SellNum.Set {
				sellNum = r.Sales[0].SellNum
			}
		}
		if l.MarketHashName == "" || !price.Set || !price.IsPositive() {
			continue
		}
		l.Price = price.Decimal
		l.SellNum = int(sellNum.V)
		out = append(out, l)
	}
	return out, nil
}

func unwrap(data []byte) ([]rawListing, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty price feed")
	}
	if trimmed[0] == '[' {
		var list []rawListing
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("parse price feed: %w", err)
		}
		return list, nil
	}

	var doc struct {
		GoodsList []rawListing `json:"goods_list"`
		Info      []rawListing `json:"info"`
		Data      *struct {
			Items []rawListing `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse price feed: %w", err)
	}
	switch {
	case doc.GoodsList != nil:
		return doc.GoodsList, nil
	case doc.Info != nil:
		return doc.Info, nil
	case doc.Data != nil:
		return doc.Data.Items, nil
	}
	return nil, fmt.Errorf("parse price feed: no listing array found")
}
