package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"BoostIQ/internal/model"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultBaseURL     = "https://api.binance.com/api/v3"
	DefaultTimeout     = 8 * time.Second
	DefaultMaxInFlight = 20
)

// BinanceFetcher implements Fetcher using the Binance spot REST API.
// Every call carries its own timeout and holds one slot of a shared semaphore
// for its whole duration, so a ranking run can never have more than
// maxInFlight requests outstanding.
type BinanceFetcher struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Client  *http.Client

	sem *semaphore.Weighted
}

// NewBinanceFetcher creates a new fetcher with optional proxy support.
func NewBinanceFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration, maxInFlight int64) *BinanceFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: int(maxInFlight),
		IdleConnTimeout:     90 * time.Second,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BinanceFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: timeout,
		Client:  &http.Client{Transport: transport},
		sem:     semaphore.NewWeighted(maxInFlight),
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// binanceTicker is the /ticker/24hr element; Binance encodes decimals as strings.
type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
	Volume             string `json:"volume"`
	Count              int64  `json:"count"`
	CloseTime          int64  `json:"closeTime"`
}

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol      string `json:"symbol"`
		OnboardDate int64  `json:"onboardDate"`
	} `json:"symbols"`
}

func (f *BinanceFetcher) FetchSnapshot(ctx context.Context) ([]model.TickerSnapshot, error) {
	var tickers []binanceTicker
	if err := f.getJSON(ctx, "/ticker/24hr", nil, &tickers); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	fetchedAt := time.Now()
	out := make([]model.TickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		ts := fetchedAt
		if t.CloseTime > 0 {
			ts = time.UnixMilli(t.CloseTime)
		}
		out = append(out, model.TickerSnapshot{
			Symbol:                t.Symbol,
			LastPrice:             parseFloat(t.LastPrice),
			PriceChangePercent24h: parseFloat(t.PriceChangePercent),
			QuoteVolume24h:        parseFloat(t.QuoteVolume),
			Volume24h:             parseFloat(t.Volume),
			TradeCount:            t.Count,
			Timestamp:             ts,
		})
	}
	return out, nil
}

func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int, startTime *time.Time) (model.CandleSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if startTime != nil {
		params.Set("startTime", strconv.FormatInt(startTime.UnixMilli(), 10))
	}

	var rows [][]json.RawMessage
	if err := f.getJSON(ctx, "/klines", params, &rows); err != nil {
		return model.CandleSeries{}, fmt.Errorf("fetch %s %s candles: %w", symbol, interval, err)
	}

	bars := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		bar, err := decodeKline(row)
		if err != nil {
			return model.CandleSeries{}, fmt.Errorf("fetch %s %s candles: %w: %w", symbol, interval, ErrUpstreamUnavailable, err)
		}
		bars = append(bars, bar)
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].OpenTime.Before(bars[j].OpenTime) })
	return model.CandleSeries{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func (f *BinanceFetcher) FetchExchangeInfo(ctx context.Context) ([]model.ListingInfo, error) {
	var info binanceExchangeInfo
	if err := f.getJSON(ctx, "/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	out := make([]model.ListingInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		li := model.ListingInfo{Symbol: s.Symbol}
		if s.OnboardDate > 0 {
			li.OnboardDate = time.UnixMilli(s.OnboardDate)
		}
		out = append(out, li)
	}
	return out, nil
}

func (f *BinanceFetcher) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer f.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	endpoint := f.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if f.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d, body: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

// decodeKline reads [openTime, open, high, low, close, volume, ...].
func decodeKline(row []json.RawMessage) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, fmt.Errorf("kline has %d fields, want >= 6", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return model.Candle{}, fmt.Errorf("kline open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, err := rawToFloat(row[i+1])
		if err != nil {
			return model.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return model.Candle{
		OpenTime: time.UnixMilli(openTime),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

// rawToFloat accepts both "1.23" and 1.23.
func rawToFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
