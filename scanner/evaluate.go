package scanner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appconfig "spreadscan/config"
	"spreadscan/models"
)

// Evaluator derives spread percentages and alert decisions from price-impact
// results and formats the human-readable scan output.
type Evaluator struct {
	scan     appconfig.ScanConfig
	products models.ProductIndex
}

// NewEvaluator creates an Evaluator. products may be nil when no product
// metadata is available; display precision then falls back to the configured
// default.
func NewEvaluator(scan appconfig.ScanConfig, products models.ProductIndex) *Evaluator {
	return &Evaluator{scan: scan, products: products}
}

// BuildRecord combines a price-impact result with the USD volume into a
// SpreadRecord for the given pair. Both percentage legs are measured from
// the mid price and summed into the spread percentage.
func (e *Evaluator) BuildRecord(pairID string, impact models.PriceImpactResult, usdVolume float64, now time.Time) models.SpreadRecord {
	buyPct := (impact.MidPrice - impact.BuyImpactPrice) / impact.MidPrice * 100
	sellPct := (impact.SellImpactPrice - impact.MidPrice) / impact.MidPrice * 100

	return models.SpreadRecord{
		ID:           pairID,
		CurrentPrice: impact.MidPrice,
		BuyPrice:     impact.BuyImpactPrice,
		SellPrice:    impact.SellImpactPrice,
		BuyPricePct:  buyPct,
		SellPricePct: sellPct,
		SpreadPct:    buyPct + sellPct,
		USDVolume:    usdVolume,
		Timestamp:    now,
	}
}

// AlertWorthy reports whether a record qualifies for the active working set
// under full-scan semantics: spread above the alert threshold and volume at
// or above the minimum.
func (e *Evaluator) AlertWorthy(rec models.SpreadRecord) bool {
	return rec.SpreadPct > e.scan.SpreadAlert && rec.USDVolume >= e.scan.MinVolume24h
}

// AboveSpreadThreshold reports whether only the spread leg of the alert
// decision holds; active-only rescans relax the volume gate.
func (e *Evaluator) AboveSpreadThreshold(rec models.SpreadRecord) bool {
	return rec.SpreadPct > e.scan.SpreadAlert
}

// BelowMinVolume reports whether the record fails the volume gate.
func (e *Evaluator) BelowMinVolume(rec models.SpreadRecord) bool {
	return rec.USDVolume < e.scan.MinVolume24h
}

// Decimals resolves the display precision for a pair from its quote
// increment, falling back to the configured default.
func (e *Evaluator) Decimals(pairID string) int {
	if e.products != nil {
		if p, ok := e.products.Lookup(pairID); ok {
			return p.Decimals(e.scan.DefaultPrecision)
		}
	}
	return e.scan.DefaultPrecision
}

// FormatResultLine renders the fixed-width scan result line:
//
//	ATOM     -1.23%    [12.3456]  +2.34%    24Hr Vol: $1,234,567
func (e *Evaluator) FormatResultLine(rec models.SpreadRecord, decimals int) string {
	line := fmt.Sprintf("%-7s  %-8s  [%s]  %-8s  %s",
		rec.BaseSymbol(),
		buyPctString(rec.BuyPricePct),
		formatWithPrecision(rec.CurrentPrice, decimals),
		sellPctString(rec.SellPricePct),
		volumeString(rec.USDVolume),
	)
	if e.BelowMinVolume(rec) {
		line += " (below threshold)"
	}
	return line
}

// FormatAlertLine renders the alert line with the price column centered.
func (e *Evaluator) FormatAlertLine(rec models.SpreadRecord, decimals int) string {
	price := "[" + formatWithPrecision(rec.CurrentPrice, decimals) + "]"
	line := fmt.Sprintf("%-7s  %8s  %s  %-8s  %s",
		rec.BaseSymbol(),
		buyPctString(rec.BuyPricePct),
		center(price, 15),
		sellPctString(rec.SellPricePct),
		volumeString(rec.USDVolume),
	)
	if e.BelowMinVolume(rec) {
		line += " (below threshold)"
	}
	return line
}

func buyPctString(pct float64) string {
	return "-" + formatNumber(pct) + "%"
}

func sellPctString(pct float64) string {
	if pct > 0 {
		return "+" + formatNumber(pct) + "%"
	}
	return formatNumber(pct) + "%"
}

func volumeString(usdVolume float64) string {
	return "24Hr Vol: $" + groupThousands(strconv.FormatInt(int64(usdVolume), 10))
}

// formatWithPrecision renders a price with the given number of decimals.
func formatWithPrecision(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// formatNumber renders a number with two decimals and thousands separators.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.Index(s, ".")
	out := groupThousands(s[:dot]) + s[dot:]
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
