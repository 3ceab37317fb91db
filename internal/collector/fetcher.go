package collector

import (
	"context"
	"errors"
	"time"

	"BoostIQ/internal/model"
)

// ErrUpstreamUnavailable wraps every network, timeout or status failure talking
// to the market-data API.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) ([]model.TickerSnapshot, error)
	FetchCandles(ctx context.Context, symbol, interval string, limit int, startTime *time.Time) (model.CandleSeries, error)
	FetchExchangeInfo(ctx context.Context) ([]model.ListingInfo, error)
	Name() string
}
