package model

// FactorScore is one term of a composite score.
type FactorScore struct {
	Name       string  `json:"name"`
	Input      float64 `json:"input"`
	Normalized float64 `json:"normalized"` // 0~100 before weighting, or the flat bonus
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
}

// CompositeScore is the result of scoring an IndicatorSet under a profile.
type CompositeScore struct {
	Symbol   string        `json:"symbol"`
	Profile  string        `json:"profile"`
	RawScore float64       `json:"rawScore"`
	Score    float64       `json:"score"` // RawScore rounded to the nearest integer
	Factors  []FactorScore `json:"factors,omitempty"`
}

// Recommendation is the suggested trade plan for a candidate.
type Recommendation struct {
	Action     string  `json:"action"`
	BuyPrice   float64 `json:"buyPrice"`
	SellTarget float64 `json:"sellTarget"`
	StopLoss   float64 `json:"stopLoss"`
	Confidence string  `json:"confidence"`
}

// Candidate is a ranked symbol with everything that went into its ranking.
type Candidate struct {
	Symbol                string         `json:"symbol"`
	Price                 float64        `json:"price"`
	PriceChangePercent24h float64        `json:"priceChangePercent"`
	QuoteVolume24h        float64        `json:"volume24h"`
	Indicators            IndicatorSet   `json:"technicals"`
	Score                 CompositeScore `json:"explosionScore"`
	Recommendation        Recommendation `json:"recommendation"`
}

// Listing is a recently onboarded pair as returned by the new-listings query.
type Listing struct {
	Symbol      string `json:"symbol"`
	OnboardDate int64  `json:"onboardDate"` // unix ms, 0 when unknown
}

// Gainer is a top-gainers row; it needs no candle history.
type Gainer struct {
	Symbol             string  `json:"symbol"`
	Price              float64 `json:"price"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	QuoteVolume24h     float64 `json:"volume24h"`
}
