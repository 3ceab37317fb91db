package calculator

import (
	"math"

	"BoostIQ/internal/model"
)

// DefaultCompressionThreshold is the std-dev (in percent) below which a series
// counts as compressed.
const DefaultCompressionThreshold = 0.5

// CalculateVolatility returns the population standard deviation of consecutive
// close-to-close percent changes.
func CalculateVolatility(bars []model.Candle) (float64, error) {
	closes := extractCloses(bars)
	changes := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		changes = append(changes, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	if len(changes) < 2 {
		return 0, ErrInsufficientData
	}
	return PopulationStdDev(changes), nil
}

// PopulationStdDev computes sqrt(mean((x-mean)^2)).
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// IsCompressed reports whether stdDev is under threshold.
func IsCompressed(stdDev, threshold float64) bool {
	return stdDev < threshold
}
