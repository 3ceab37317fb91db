package screener

import (
	"strings"

	"BoostIQ/internal/model"
	"BoostIQ/internal/strategy"
)

// Gate names, in evaluation order. They double as exclusion reasons.
const (
	GateSuffix      = "quote_suffix"
	GateDenylist    = "denylist"
	GateVolume      = "min_quote_volume"
	GateShortChange = "min_change_short"
	GateLongChange  = "min_change_long"
	GateVolumeRatio = "min_volume_ratio"
	GateRSIBand     = "rsi_band"
	GateScore       = "min_score"
)

// DefaultDenylist holds high-cap pairs that never "explode" in the sense
// this screener looks for.
var DefaultDenylist = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "XRPUSDT",
	"SOLUSDT", "DOGEUSDT", "MATICUSDT", "TRXUSDT", "DOTUSDT",
	"LTCUSDT", "AVAXUSDT", "SHIBUSDT", "LINKUSDT", "ATOMUSDT",
	"BCHUSDT", "XLMUSDT", "ETCUSDT", "FILUSDT", "APTUSDT",
}

// preGate runs the snapshot-only gates. It returns the failing gate, or "".
func (s *Screener) preGate(t model.TickerSnapshot, p model.Profile) string {
	if !strings.HasSuffix(t.Symbol, s.cfg.QuoteSuffix) {
		return GateSuffix
	}
	if _, denied := s.deny[t.Symbol]; denied {
		return GateDenylist
	}
	if t.QuoteVolume24h < p.MinQuoteVolume {
		return GateVolume
	}
	return ""
}

// postGate runs the indicator gates and the score threshold.
func postGate(ind model.IndicatorSet, score model.CompositeScore, p model.Profile) string {
	switch {
	case ind.ChangeFor(p.ShortInterval) < p.MinChangeShort:
		return GateShortChange
	case ind.ChangeFor(p.LongInterval) < p.MinChangeLong:
		return GateLongChange
	case ind.VolumeRatio < p.MinVolumeRatio:
		return GateVolumeRatio
	case !strategy.InRSIBand(ind.RSI, p):
		return GateRSIBand
	case score.Score < p.MinScore:
		return GateScore
	}
	return ""
}

// listable reports whether a symbol passes the suffix and denylist gates.
func (s *Screener) listable(symbol string) bool {
	if !strings.HasSuffix(symbol, s.cfg.QuoteSuffix) {
		return false
	}
	_, denied := s.deny[symbol]
	return !denied
}
