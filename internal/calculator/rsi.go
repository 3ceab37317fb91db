package calculator

import (
	"errors"
	"math"

	"BoostIQ/internal/model"
)

// DefaultRSI is returned when there are not enough bars to compute RSI.
const DefaultRSI = 50.0

// CalculateRSI computes a simple-average RSI over the last `period` close-to-close
// changes, rounded to the nearest integer.
// Requires at least period+1 bars. Returns 50.0 if data is insufficient.
func CalculateRSI(bars []model.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return DefaultRSI, nil
	}

	closes := extractCloses(bars)
	start := len(closes) - period

	var avgGain, avgLoss float64
	for i := start; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		if avgGain > 0 {
			return 100.0, nil
		}
		return DefaultRSI, nil
	}
	rs := avgGain / avgLoss
	rsi := math.Round(100.0 - 100.0/(1.0+rs))
	return math.Max(0, math.Min(100, rsi)), nil
}
