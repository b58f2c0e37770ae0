package scanner

import "errors"

var (
	// ErrInvalidOrderBook reports an orderbook that cannot be priced: the
	// payload is missing or both sides are empty.
	ErrInvalidOrderBook = errors.New("invalid orderbook")

	// ErrMissingVolumeField reports a stats payload without any recognized
	// 24h volume field.
	ErrMissingVolumeField = errors.New("no volume field in stats payload")

	// ErrDataUnavailable reports that market data required to evaluate a
	// pair could not be obtained in this cycle.
	ErrDataUnavailable = errors.New("market data unavailable")
)
