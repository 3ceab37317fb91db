package calculator

import "BoostIQ/internal/model"

// AverageVolume returns the mean bar volume. A zero or empty baseline yields 1
// so that ratios never divide by zero.
func AverageVolume(bars []model.Candle) float64 {
	if len(bars) == 0 {
		return 1
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	avg := sum / float64(len(bars))
	if avg <= 0 {
		return 1
	}
	return avg
}

// CalculateVolumeRatio compares current volume with the historical bar average.
func CalculateVolumeRatio(current float64, history []model.Candle) (float64, error) {
	if len(history) == 0 {
		return 0, ErrInsufficientData
	}
	return VolumeRatio(current, AverageVolume(history)), nil
}

// VolumeRatio returns current/avg, guarding avg=0 to 1 and clamping below at 0.
func VolumeRatio(current, avg float64) float64 {
	if avg <= 0 {
		avg = 1
	}
	ratio := current / avg
	if ratio < 0 {
		return 0
	}
	return ratio
}
