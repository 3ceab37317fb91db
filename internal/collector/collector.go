package collector

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"BoostIQ/internal/calculator"
	"BoostIQ/internal/model"

	"golang.org/x/sync/errgroup"
)

// Fallback values used when an indicator cannot be computed.
const (
	DefaultVolumeRatio = 1.0
	DefaultVolatility  = 10.0
)

// Settings controls candle windows for the indicators.
type Settings struct {
	RSIPeriod            int
	RSIInterval          string
	VolumeLookbackDays   int
	VolatilityWindow     int
	VolatilityInterval   string
	CompressionThreshold float64
	NewListingWindow     time.Duration
}

// DefaultSettings returns the standard indicator windows.
func DefaultSettings() Settings {
	return Settings{
		RSIPeriod:            14,
		RSIInterval:          "5m",
		VolumeLookbackDays:   7,
		VolatilityWindow:     20,
		VolatilityInterval:   "5m",
		CompressionThreshold: calculator.DefaultCompressionThreshold,
		NewListingWindow:     30 * 24 * time.Hour,
	}
}

// Collector orchestrates candle fetching and indicator computation for one symbol.
type Collector struct {
	Fetcher  Fetcher
	Settings Settings
	Now      func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, settings Settings) *Collector {
	return &Collector{Fetcher: fetcher, Settings: settings, Now: time.Now}
}

// Collect computes the IndicatorSet for snap under the profile's timeframes.
// The five candle fetches run concurrently; each indicator that fails falls
// back to its default and is listed in IndicatorSet.Degraded.
func (c *Collector) Collect(ctx context.Context, snap model.TickerSnapshot, p model.Profile, listings map[string]time.Time) model.IndicatorSet {
	ind := model.IndicatorSet{
		Symbol:       snap.Symbol,
		Change:       make(map[string]float64, 2),
		IsNewListing: c.isNewListing(snap.Symbol, listings),
	}

	var (
		mu       sync.Mutex
		degraded []string
		g        errgroup.Group
	)
	markDegraded := func(name string) {
		mu.Lock()
		degraded = append(degraded, name)
		mu.Unlock()
	}

	var shortChange, longChange float64
	g.Go(func() error {
		v, ok := c.percentChange(ctx, snap.Symbol, p.ShortInterval)
		if !ok {
			markDegraded("change_" + p.ShortInterval)
		}
		shortChange = v
		return nil
	})
	g.Go(func() error {
		v, ok := c.percentChange(ctx, snap.Symbol, p.LongInterval)
		if !ok {
			markDegraded("change_" + p.LongInterval)
		}
		longChange = v
		return nil
	})
	g.Go(func() error {
		v, ok := c.rsi(ctx, snap.Symbol)
		if !ok {
			markDegraded("rsi")
		}
		ind.RSI = v
		return nil
	})
	g.Go(func() error {
		v, ok := c.volumeRatio(ctx, snap.Symbol, snap.Volume24h)
		if !ok {
			markDegraded("volume_ratio")
		}
		ind.VolumeRatio = v
		return nil
	})
	g.Go(func() error {
		v, compressed, ok := c.volatility(ctx, snap.Symbol)
		if !ok {
			markDegraded("volatility")
		}
		ind.VolatilityStdDev = v
		ind.IsCompressed = compressed
		return nil
	})
	_ = g.Wait()

	ind.Change[p.ShortInterval] = shortChange
	ind.Change[p.LongInterval] = longChange
	ind.Degraded = sortedNames(degraded)
	return ind
}

// PercentChange returns the percent move over the last two candles of interval, or 0.
func (c *Collector) PercentChange(ctx context.Context, symbol, interval string) float64 {
	v, _ := c.percentChange(ctx, symbol, interval)
	return v
}

// RSI returns the rounded RSI over the configured period, or 50.
func (c *Collector) RSI(ctx context.Context, symbol string) float64 {
	v, _ := c.rsi(ctx, symbol)
	return v
}

// VolumeRatio returns currentVolume against the daily average over the lookback, or 1.
func (c *Collector) VolumeRatio(ctx context.Context, symbol string, currentVolume float64) float64 {
	v, _ := c.volumeRatio(ctx, symbol, currentVolume)
	return v
}

// Volatility returns the std-dev of recent percent changes, or 10.
func (c *Collector) Volatility(ctx context.Context, symbol string) float64 {
	v, _, _ := c.volatility(ctx, symbol)
	return v
}

// CompressionDetected reports whether recent volatility is under the threshold; false on failure.
func (c *Collector) CompressionDetected(ctx context.Context, symbol string) bool {
	_, compressed, _ := c.volatility(ctx, symbol)
	return compressed
}

func (c *Collector) percentChange(ctx context.Context, symbol, interval string) (float64, bool) {
	series, err := c.Fetcher.FetchCandles(ctx, symbol, interval, 2, nil)
	if err != nil {
		log.Printf("[WARN] %s change_%s fetch failed: %v, defaulting to 0", symbol, interval, err)
		return 0, false
	}
	v, err := calculator.CalculatePercentChange(series.Bars)
	if err != nil {
		log.Printf("[WARN] %s change_%s calculation failed: %v, defaulting to 0", symbol, interval, err)
		return 0, false
	}
	return v, true
}

func (c *Collector) rsi(ctx context.Context, symbol string) (float64, bool) {
	period := c.Settings.RSIPeriod
	series, err := c.Fetcher.FetchCandles(ctx, symbol, c.Settings.RSIInterval, period+1, nil)
	if err != nil {
		log.Printf("[WARN] %s RSI fetch failed: %v, defaulting to 50", symbol, err)
		return calculator.DefaultRSI, false
	}
	v, err := calculator.CalculateRSI(series.Bars, period)
	if err != nil {
		log.Printf("[WARN] %s RSI calculation failed: %v, defaulting to 50", symbol, err)
		return calculator.DefaultRSI, false
	}
	return v, len(series.Bars) >= period+1
}

func (c *Collector) volumeRatio(ctx context.Context, symbol string, currentVolume float64) (float64, bool) {
	days := c.Settings.VolumeLookbackDays
	start := c.Now().AddDate(0, 0, -days)
	series, err := c.Fetcher.FetchCandles(ctx, symbol, "1d", days, &start)
	if err != nil {
		log.Printf("[WARN] %s volume ratio fetch failed: %v, defaulting to 1", symbol, err)
		return DefaultVolumeRatio, false
	}
	v, err := calculator.CalculateVolumeRatio(currentVolume, series.Bars)
	if err != nil {
		log.Printf("[WARN] %s volume ratio calculation failed: %v, defaulting to 1", symbol, err)
		return DefaultVolumeRatio, false
	}
	return v, true
}

func (c *Collector) volatility(ctx context.Context, symbol string) (stdDev float64, compressed, ok bool) {
	series, err := c.Fetcher.FetchCandles(ctx, symbol, c.Settings.VolatilityInterval, c.Settings.VolatilityWindow, nil)
	if err != nil {
		log.Printf("[WARN] %s volatility fetch failed: %v, defaulting to 10", symbol, err)
		return DefaultVolatility, false, false
	}
	v, err := calculator.CalculateVolatility(series.Bars)
	if err != nil {
		log.Printf("[WARN] %s volatility calculation failed: %v, defaulting to 10", symbol, err)
		return DefaultVolatility, false, false
	}
	return v, calculator.IsCompressed(v, c.Settings.CompressionThreshold), true
}

func (c *Collector) isNewListing(symbol string, listings map[string]time.Time) bool {
	onboard, ok := listings[symbol]
	if !ok || onboard.IsZero() {
		return false
	}
	return c.Now().Sub(onboard) <= c.Settings.NewListingWindow
}

func sortedNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
