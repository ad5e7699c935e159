package port

import (
	"context"
	"time"
)

// PriceFeedClient is the raw CoinGecko-style price API.
type PriceFeedClient interface {
	// SimplePrices returns USD prices keyed by feed id.
	SimplePrices(ctx context.Context, feedIDs []string) (map[string]float64, error)
	// HistoricalPrice returns the USD price for the calendar day of at.
	// Throttling is reported as an error wrapping entity.ErrRateLimited.
	HistoricalPrice(ctx context.Context, feedID string, at time.Time) (float64, error)
}

// TokenPriceService resolves USD prices by symbol or address. Unmapped identifiers price at 1.0;
// a failed feed call for a mapped identifier prices at 0.
type TokenPriceService interface {
	GetCurrentPrice(ctx context.Context, symbolOrAddress string) float64
	GetCurrentPrices(ctx context.Context, symbolsOrAddresses []string) map[string]float64
	GetHistoricalPrice(ctx context.Context, symbolOrAddress string, unixTimestamp int64) float64
}
