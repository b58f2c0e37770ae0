package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BookLevel represents a single price level in the orderbook.
type BookLevel struct {
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	NumOrders int64   `json:"num_orders"`
}

// UnmarshalJSON decodes a Coinbase level-2 book entry of the form
// ["price", "size", num_orders]. The third element is optional and may be
// either an order count or an order id depending on the book level.
func (l *BookLevel) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode book level: %w", err)
	}
	if len(raw) < 2 {
		return fmt.Errorf("book level has %d elements, want at least 2", len(raw))
	}

	price, err := parseBookNumber(raw[0])
	if err != nil {
		return fmt.Errorf("parse book level price: %w", err)
	}
	size, err := parseBookNumber(raw[1])
	if err != nil {
		return fmt.Errorf("parse book level size: %w", err)
	}

	l.Price = price
	l.Size = size
	l.NumOrders = 0
	if len(raw) > 2 {
		var n int64
		if err := json.Unmarshal(raw[2], &n); err == nil {
			l.NumOrders = n
		}
	}
	return nil
}

// parseBookNumber accepts both quoted and bare numbers since Coinbase quotes
// prices and sizes but some gateways return them unquoted.
func parseBookNumber(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// OrderBook represents a level-2 orderbook snapshot for a single product.
// Bids are ordered best (highest) first and asks best (lowest) first, as
// returned by the exchange. Crossed books are passed through unmodified.
type OrderBook struct {
	Sequence int64       `json:"sequence"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
}
