package calculator

import "BoostIQ/internal/model"

// CalculatePercentChange returns the percent move between the last two closes.
func CalculatePercentChange(bars []model.Candle) (float64, error) {
	if len(bars) < 2 {
		return 0, ErrInsufficientData
	}
	prev := bars[len(bars)-2].Close
	last := bars[len(bars)-1].Close
	if prev == 0 {
		return 0, ErrInsufficientData
	}
	return (last - prev) / prev * 100, nil
}
