package strategy

import (
	"math"

	"BoostIQ/internal/model"
)

// scoreCapped normalizes min(value, cap)/cap against 100 and applies the weight.
// Only the upper side is capped, so negative inputs lower the score.
func scoreCapped(name string, value, cap, weight float64) model.FactorScore {
	normalized := 0.0
	if cap > 0 {
		normalized = math.Min(value, cap) / cap * 100
	}
	return model.FactorScore{
		Name:       name,
		Input:      value,
		Normalized: normalized,
		Weight:     weight,
		Weighted:   normalized * weight,
	}
}

// scoreShortChange scores the short-timeframe percent change.
func scoreShortChange(ind model.IndicatorSet, p model.Profile) model.FactorScore {
	return scoreCapped("change_"+p.ShortInterval, ind.ChangeFor(p.ShortInterval), p.ShortCap, p.ShortWeight)
}

// scoreLongChange scores the long-timeframe percent change.
func scoreLongChange(ind model.IndicatorSet, p model.Profile) model.FactorScore {
	return scoreCapped("change_"+p.LongInterval, ind.ChangeFor(p.LongInterval), p.LongCap, p.LongWeight)
}

// scoreVolumeRatio scores volume against its historical baseline.
func scoreVolumeRatio(ind model.IndicatorSet, p model.Profile) model.FactorScore {
	return scoreCapped("volume_ratio", ind.VolumeRatio, p.VolumeCap, p.VolumeWeight)
}

// scoreRSI gives full marks inside the profile's band and half outside it.
func scoreRSI(ind model.IndicatorSet, p model.Profile) model.FactorScore {
	normalized := 50.0
	if InRSIBand(ind.RSI, p) {
		normalized = 100
	}
	return model.FactorScore{
		Name:       "rsi",
		Input:      ind.RSI,
		Normalized: normalized,
		Weight:     p.RSIWeight,
		Weighted:   normalized * p.RSIWeight,
	}
}

func bonus(name string, active bool, amount float64) model.FactorScore {
	f := model.FactorScore{Name: name, Normalized: amount, Weight: 1}
	if active {
		f.Input = 1
		f.Weighted = amount
	}
	return f
}

// InRSIBand reports whether rsi lies within [RSIMin, RSIMax].
func InRSIBand(rsi float64, p model.Profile) bool {
	return rsi >= p.RSIMin && rsi <= p.RSIMax
}
