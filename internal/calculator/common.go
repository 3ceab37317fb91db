package calculator

import (
	"errors"

	"BoostIQ/internal/model"
)

// ErrInsufficientData is returned when there are fewer bars than an indicator needs.
var ErrInsufficientData = errors.New("insufficient data")

func extractCloses(bars []model.Candle) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
