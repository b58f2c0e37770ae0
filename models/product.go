package models

import "strings"

// Product mirrors the product metadata returned by the Coinbase Exchange
// products endpoint. Only the fields the scanner consumes are mapped.
type Product struct {
	ID              string `json:"id"`
	BaseCurrency    string `json:"base_currency"`
	QuoteCurrency   string `json:"quote_currency"`
	QuoteIncrement  string `json:"quote_increment"`
	Status          string `json:"status"`
	TradingDisabled bool   `json:"trading_disabled"`
}

// Decimals derives the display precision from the quote increment: the
// number of digits after the decimal point, or 0 when the increment has no
// fractional part. defaultPrecision is returned when no increment is set.
func (p Product) Decimals(defaultPrecision int) int {
	if p.QuoteIncrement == "" {
		return defaultPrecision
	}
	if i := strings.Index(p.QuoteIncrement, "."); i >= 0 {
		return len(p.QuoteIncrement) - i - 1
	}
	return 0
}

// ProductIndex provides pair id lookup over a product list.
type ProductIndex map[string]Product

// NewProductIndex builds an index keyed by product id.
func NewProductIndex(products []Product) ProductIndex {
	idx := make(ProductIndex, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}

// Lookup returns the product for the given pair id.
func (idx ProductIndex) Lookup(productID string) (Product, bool) {
	p, ok := idx[productID]
	return p, ok
}
