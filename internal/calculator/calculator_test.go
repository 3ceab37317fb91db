package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"BoostIQ/internal/model"
)

func barsFromCloses(closes ...float64) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Candle, len(closes))
	for i, c := range closes {
		bars[i] = model.Candle{OpenTime: base.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return bars
}

func barsFromVolumes(volumes ...float64) []model.Candle {
	bars := make([]model.Candle, len(volumes))
	for i, v := range volumes {
		bars[i] = model.Candle{Close: 1, Volume: v}
	}
	return bars
}

func TestCalculateRSI_StrictlyIncreasing(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi, err := CalculateRSI(barsFromCloses(closes...), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rsi != 100 {
		t.Errorf("expected RSI 100, got %.2f", rsi)
	}
}

func TestCalculateRSI_InsufficientData(t *testing.T) {
	for n := 0; n <= 14; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		rsi, err := CalculateRSI(barsFromCloses(closes...), 14)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if rsi != 50 {
			t.Errorf("n=%d: expected 50, got %.2f", n, rsi)
		}
	}
}

func TestCalculateRSI_FlatSeries(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 42
	}
	rsi, _ := CalculateRSI(barsFromCloses(closes...), 14)
	if rsi != 50 {
		t.Errorf("flat series: expected 50, got %.2f", rsi)
	}
}

func TestCalculateRSI_StrictlyDecreasing(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	rsi, _ := CalculateRSI(barsFromCloses(closes...), 14)
	if rsi != 0 {
		t.Errorf("expected RSI 0, got %.2f", rsi)
	}
}

func TestCalculateRSI_Mixed(t *testing.T) {
	// 7 gains of 2 and 7 losses of 1 -> RS = 2 -> RSI = 66.67 -> 67
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+2)
		closes = append(closes, closes[len(closes)-1]-1)
	}
	rsi, _ := CalculateRSI(barsFromCloses(closes...), 14)
	if rsi != 67 {
		t.Errorf("expected 67, got %.2f", rsi)
	}
}

func TestCalculateRSI_UsesOnlyLastPeriod(t *testing.T) {
	// A long decline followed by 14 gains must still read 100.
	closes := []float64{}
	for i := 0; i < 20; i++ {
		closes = append(closes, 300-float64(i*5))
	}
	for i := 1; i <= 14; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
	}
	rsi, _ := CalculateRSI(barsFromCloses(closes...), 14)
	if rsi != 100 {
		t.Errorf("expected 100, got %.2f", rsi)
	}
}

func TestCalculateRSI_AlwaysInRange(t *testing.T) {
	series := [][]float64{
		{1, 5, 2, 8, 3, 9, 1, 7, 2, 6, 3, 5, 4, 4, 10},
		{10, 9, 11, 8, 12, 7, 13, 6, 14, 5, 15, 4, 16, 3, 17},
		{0.0001, 0.0002, 0.00015, 0.0003, 0.0001, 0.0005, 0.0002, 0.0001, 0.0004, 0.0003, 0.0002, 0.0006, 0.0001, 0.0002, 0.0003},
	}
	for i, closes := range series {
		rsi, err := CalculateRSI(barsFromCloses(closes...), 14)
		if err != nil {
			t.Fatalf("series %d: %v", i, err)
		}
		if rsi < 0 || rsi > 100 {
			t.Errorf("series %d: RSI %.2f out of range", i, rsi)
		}
	}
}

func TestCalculateRSI_InvalidPeriod(t *testing.T) {
	if _, err := CalculateRSI(barsFromCloses(1, 2, 3), 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestCalculatePercentChange(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		want    float64
		wantErr bool
	}{
		{"rise", []float64{100, 105}, 5, false},
		{"fall", []float64{200, 150}, -25, false},
		{"uses last two", []float64{1, 100, 108}, 8, false},
		{"single bar", []float64{100}, 0, true},
		{"empty", nil, 0, true},
		{"zero base", []float64{0, 10}, 0, true},
	}
	for _, tt := range tests {
		got, err := CalculatePercentChange(barsFromCloses(tt.closes...))
		if tt.wantErr {
			if !errors.Is(err, ErrInsufficientData) {
				t.Errorf("%s: expected ErrInsufficientData, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected %.4f, got %.4f", tt.name, tt.want, got)
		}
	}
}

func TestVolumeRatio(t *testing.T) {
	tests := []struct {
		current, avg, want float64
	}{
		{300, 100, 3},
		{50, 200, 0.25},
		{500, 0, 500}, // zero baseline falls back to 1
		{0, 100, 0},
		{-10, 100, 0},
	}
	for _, tt := range tests {
		got := VolumeRatio(tt.current, tt.avg)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("VolumeRatio(%v, %v): expected %v, got %v", tt.current, tt.avg, tt.want, got)
		}
	}
}

func TestCalculateVolumeRatio(t *testing.T) {
	ratio, err := CalculateVolumeRatio(3000, barsFromVolumes(1000, 1000, 1000, 1000, 1000, 1000, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ratio-3) > 1e-9 {
		t.Errorf("expected 3, got %v", ratio)
	}

	ratio, err = CalculateVolumeRatio(40, barsFromVolumes(0, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ratio != 40 {
		t.Errorf("zero-volume history: expected 40, got %v", ratio)
	}

	if _, err := CalculateVolumeRatio(10, nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCalculateVolatility(t *testing.T) {
	// changes: +10%, -10% -> mean 0 -> stddev 10 (approximately, second change is from 110)
	vol, err := CalculateVolatility(barsFromCloses(100, 110, 99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(vol-10) > 1e-9 {
		t.Errorf("expected 10, got %v", vol)
	}

	flat, err := CalculateVolatility(barsFromCloses(5, 5, 5, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flat != 0 {
		t.Errorf("flat series: expected 0, got %v", flat)
	}
	if !IsCompressed(flat, DefaultCompressionThreshold) {
		t.Error("flat series should be compressed")
	}

	if _, err := CalculateVolatility(barsFromCloses(1, 2)); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestPopulationStdDev(t *testing.T) {
	got := PopulationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("expected 2, got %v", got)
	}
	if PopulationStdDev(nil) != 0 {
		t.Error("empty input should yield 0")
	}
}

func TestIsCompressed(t *testing.T) {
	if IsCompressed(0.5, 0.5) {
		t.Error("stdDev equal to threshold is not compressed")
	}
	if !IsCompressed(0.49, 0.5) {
		t.Error("stdDev below threshold should be compressed")
	}
}
