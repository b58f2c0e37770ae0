package models

import "time"

// PriceImpactResult holds the three price points produced by walking the
// orderbook against a target notional value.
type PriceImpactResult struct {
	BuyImpactPrice  float64 `json:"buy_impact_price"`
	SellImpactPrice float64 `json:"sell_impact_price"`
	MidPrice        float64 `json:"mid_price"`
}

// SpreadRecord is the persisted unit of the active working set: the latest
// spread evaluation for a pair that has recently shown an alert-worthy
// spread. JSON keys match the snapshot file layout written by earlier
// versions of the scanner so existing snapshots remain loadable.
type SpreadRecord struct {
	ID           string    `json:"id"`
	CurrentPrice float64   `json:"current_price"`
	BuyPrice     float64   `json:"buy_price"`
	SellPrice    float64   `json:"sell_price"`
	BuyPricePct  float64   `json:"buy_price_pct"`
	SellPricePct float64   `json:"sell_price_pct"`
	SpreadPct    float64   `json:"spread_pct"`
	USDVolume    float64   `json:"usd_volume"`
	Timestamp    time.Time `json:"timestamp"`
}

// BaseSymbol returns the base asset portion of the pair id, e.g. "BTC" for
// "BTC-USD".
func (r SpreadRecord) BaseSymbol() string {
	for i := 0; i < len(r.ID); i++ {
		if r.ID[i] == '-' {
			return r.ID[:i]
		}
	}
	return r.ID
}
