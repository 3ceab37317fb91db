package model

import "time"

// TickerSnapshot is one trading pair's 24h statistics as of a single fetch.
type TickerSnapshot struct {
	Symbol                string    `json:"symbol"`
	LastPrice             float64   `json:"lastPrice"`
	PriceChangePercent24h float64   `json:"priceChangePercent"`
	QuoteVolume24h        float64   `json:"quoteVolume"`
	Volume24h             float64   `json:"volume"` // base asset
	TradeCount            int64     `json:"count"`
	Timestamp             time.Time `json:"timestamp"`
}

// Candle represents a single OHLCV bar.
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// CandleSeries holds bars for one symbol and interval, oldest first.
type CandleSeries struct {
	Symbol   string
	Interval string
	Bars     []Candle
}

// ListingInfo is the exchange metadata used to classify new listings.
type ListingInfo struct {
	Symbol      string    `json:"symbol"`
	OnboardDate time.Time `json:"onboardDate"`
}
