package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BoostIQ/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Candles are keyed by CandleKey(symbol, interval). When a series is missing
// and Price is set, a gently rising synthetic series is generated instead.
type MockFetcher struct {
	Price       float64
	Snapshot    []model.TickerSnapshot
	SnapshotErr error
	Candles     map[string][]model.Candle
	CandleErrs  map[string]error
	Listings    []model.ListingInfo
	ListingsErr error

	mu    sync.Mutex
	calls map[string]int
}

// CandleKey builds the MockFetcher candle map key.
func CandleKey(symbol, interval string) string { return symbol + "/" + interval }

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSnapshot(_ context.Context) ([]model.TickerSnapshot, error) {
	m.count("snapshot")
	if m.SnapshotErr != nil {
		return nil, fmt.Errorf("fetch snapshot: %w: %w", ErrUpstreamUnavailable, m.SnapshotErr)
	}
	out := make([]model.TickerSnapshot, len(m.Snapshot))
	copy(out, m.Snapshot)
	return out, nil
}

func (m *MockFetcher) FetchCandles(_ context.Context, symbol, interval string, limit int, _ *time.Time) (model.CandleSeries, error) {
	key := CandleKey(symbol, interval)
	m.count("candles:" + key)
	if err, ok := m.CandleErrs[key]; ok && err != nil {
		return model.CandleSeries{}, fmt.Errorf("fetch %s candles: %w: %w", key, ErrUpstreamUnavailable, err)
	}
	bars, ok := m.Candles[key]
	if !ok {
		if m.Price <= 0 {
			return model.CandleSeries{}, fmt.Errorf("fetch %s candles: %w: no data", key, ErrUpstreamUnavailable)
		}
		bars = generateMockBars(m.Price, limit)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]model.Candle, len(bars))
	copy(out, bars)
	return model.CandleSeries{Symbol: symbol, Interval: interval, Bars: out}, nil
}

func (m *MockFetcher) FetchExchangeInfo(_ context.Context) ([]model.ListingInfo, error) {
	m.count("exchangeInfo")
	if m.ListingsErr != nil {
		return nil, fmt.Errorf("fetch exchange info: %w: %w", ErrUpstreamUnavailable, m.ListingsErr)
	}
	out := make([]model.ListingInfo, len(m.Listings))
	copy(out, m.Listings)
	return out, nil
}

// Calls returns how many times the named call ("snapshot", "exchangeInfo",
// or "candles:"+CandleKey) was made.
func (m *MockFetcher) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockFetcher) count(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func generateMockBars(basePrice float64, count int) []model.Candle {
	bars := make([]model.Candle, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			Volume:   1000000,
		}
	}
	return bars
}
