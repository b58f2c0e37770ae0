package scanner

import (
	"math"

	"spreadscan/models"
)

// CalcPriceImpact computes how far price moves on each side of the book when
// absorbing targetValue USD of resting orders. It walks bids from the best
// price downward accumulating price*size until the cumulative value reaches
// the target; the last price visited is the buy impact price. Asks are
// mirrored for the sell side.
//
// One-sided books are tolerated: a missing bid side yields bestBid 0 and a
// missing ask side yields bestAsk +Inf, producing an extreme mid price
// rather than a failure. A book with neither side is rejected. Pure function
// of its inputs.
func CalcPriceImpact(book *models.OrderBook, targetValue float64) (models.PriceImpactResult, error) {
	if book == nil || (len(book.Bids) == 0 && len(book.Asks) == 0) {
		return models.PriceImpactResult{}, ErrInvalidOrderBook
	}

	bestBid := 0.0
	if len(book.Bids) > 0 {
		bestBid = book.Bids[0].Price
	}
	bestAsk := math.Inf(1)
	if len(book.Asks) > 0 {
		bestAsk = book.Asks[0].Price
	}
	midPrice := (bestBid + bestAsk) / 2

	buyImpact := bestBid
	buyValueSum := 0.0
	for _, level := range book.Bids {
		buyValueSum += level.Price * level.Size
		buyImpact = level.Price
		if buyValueSum >= targetValue {
			break
		}
	}

	sellImpact := bestAsk
	sellValueSum := 0.0
	for _, level := range book.Asks {
		sellValueSum += level.Price * level.Size
		sellImpact = level.Price
		if sellValueSum >= targetValue {
			break
		}
	}

	return models.PriceImpactResult{
		BuyImpactPrice:  buyImpact,
		SellImpactPrice: sellImpact,
		MidPrice:        midPrice,
	}, nil
}
