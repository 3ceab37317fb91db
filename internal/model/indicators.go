package model

// IndicatorSet holds the per-symbol technical readings for one pipeline run.
type IndicatorSet struct {
	Symbol           string             `json:"symbol"`
	RSI              float64            `json:"rsi"`
	Change           map[string]float64 `json:"change"` // interval -> percent
	VolumeRatio      float64            `json:"volumeRatio"`
	VolatilityStdDev float64            `json:"volatility"`
	IsCompressed     bool               `json:"isCompressed"`
	IsNewListing     bool               `json:"isNewListing"`
	Degraded         []string           `json:"degraded,omitempty"`
}

// ChangeFor returns the percent change recorded for interval, or 0.
func (s IndicatorSet) ChangeFor(interval string) float64 {
	if s.Change == nil {
		return 0
	}
	return s.Change[interval]
}
