package strategy

import (
	"math"

	"BoostIQ/internal/model"

	"github.com/shopspring/decimal"
)

// pricePlaces is the precision of recommendation prices.
const pricePlaces = 8

// Score computes the composite score of ind under profile p.
// RawScore is the unclamped weighted sum plus bonuses; it can exceed 100.
func Score(ind model.IndicatorSet, p model.Profile) model.CompositeScore {
	factors := []model.FactorScore{
		scoreShortChange(ind, p),
		scoreLongChange(ind, p),
		scoreVolumeRatio(ind, p),
		scoreRSI(ind, p),
		bonus("new_listing", ind.IsNewListing, p.NewListingBonus),
		bonus("compression", ind.IsCompressed, p.CompressionBonus),
	}

	raw := 0.0
	for _, f := range factors {
		raw += f.Weighted
	}

	return model.CompositeScore{
		Symbol:   ind.Symbol,
		Profile:  p.Name,
		RawScore: raw,
		Score:    math.Round(raw),
		Factors:  factors,
	}
}

// mapTier returns the first tier whose MinScore the score reaches.
// Tiers are expected in descending MinScore order (Normalize sorts them).
func mapTier(score float64, p model.Profile) model.RecommendationTier {
	for _, t := range p.Tiers {
		if score >= t.MinScore {
			return t
		}
	}
	return p.DefaultTier
}

// Recommend builds the trade plan for price at the given score.
func Recommend(price float64, score model.CompositeScore, p model.Profile) model.Recommendation {
	tier := mapTier(score.Score, p)
	return model.Recommendation{
		Action:     tier.Action,
		BuyPrice:   roundPrice(decimal.NewFromFloat(price)),
		SellTarget: scalePrice(price, tier.TargetMultiplier),
		StopLoss:   scalePrice(price, tier.StopMultiplier),
		Confidence: tier.Confidence,
	}
}

func scalePrice(price, multiplier float64) float64 {
	if multiplier == 0 {
		multiplier = 1
	}
	return roundPrice(decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(multiplier)))
}

func roundPrice(d decimal.Decimal) float64 {
	f, _ := d.Round(pricePlaces).Float64()
	return f
}
