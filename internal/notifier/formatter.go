package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"BoostIQ/internal/model"
)

// FormatCandidates formats a ranked list into a Telegram message.
func FormatCandidates(title string, candidates []model.Candidate) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🚀 <b>%s</b> | %s\n\n", html.EscapeString(title), time.Now().UTC().Format("2006-01-02 15:04 UTC")))
	if len(candidates) == 0 {
		b.WriteString("No symbols passed the filters.\n")
		return b.String()
	}
	for i, c := range candidates {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> score %.0f  %s (%s)\n",
			i+1, c.Symbol, c.Score.Score, c.Recommendation.Action, c.Recommendation.Confidence))
		b.WriteString(fmt.Sprintf("   price %s | 24h %+.2f%% | RSI %.0f | vol x%.1f\n",
			formatPrice(c.Price), c.PriceChangePercent24h, c.Indicators.RSI, c.Indicators.VolumeRatio))
		b.WriteString(fmt.Sprintf("   target %s | stop %s\n",
			formatPrice(c.Recommendation.SellTarget), formatPrice(c.Recommendation.StopLoss)))
	}
	return b.String()
}

// FormatAnalysis formats a single-symbol analysis with its factor breakdown.
func FormatAnalysis(c model.Candidate) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🔎 <b>%s</b> | profile %s\n\n", c.Symbol, html.EscapeString(c.Score.Profile)))
	b.WriteString(fmt.Sprintf("Price: %s (24h %+.2f%%)\n", formatPrice(c.Price), c.PriceChangePercent24h))
	b.WriteString(fmt.Sprintf("RSI: %.0f | Volume ratio: %.2f | Volatility: %.2f\n",
		c.Indicators.RSI, c.Indicators.VolumeRatio, c.Indicators.VolatilityStdDev))
	if c.Indicators.IsCompressed {
		b.WriteString("Volatility compressed\n")
	}
	if c.Indicators.IsNewListing {
		b.WriteString("New listing\n")
	}

	b.WriteString("\n📈 <b>Factors:</b>\n")
	for _, f := range c.Score.Factors {
		if f.Weighted == 0 && f.Weight == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %.2f → %.0f (×%.2f) = %.2f\n", f.Name, f.Input, f.Normalized, f.Weight, f.Weighted))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Score: %.0f\n\n", c.Score.Score))

	r := c.Recommendation
	b.WriteString(fmt.Sprintf("💰 <b>%s</b> (%s)\n", r.Action, r.Confidence))
	b.WriteString(fmt.Sprintf("   buy %s | target %s | stop %s\n", formatPrice(r.BuyPrice), formatPrice(r.SellTarget), formatPrice(r.StopLoss)))
	if len(c.Indicators.Degraded) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ defaulted: %s\n", strings.Join(c.Indicators.Degraded, ", ")))
	}
	return b.String()
}

// FormatGainers formats the top-gainers list.
func FormatGainers(gainers []model.Gainer) string {
	var b strings.Builder
	b.WriteString("📊 <b>Top gainers (24h)</b>\n\n")
	if len(gainers) == 0 {
		b.WriteString("No data.\n")
	}
	for i, g := range gainers {
		b.WriteString(fmt.Sprintf("%d. %s %+.2f%% @ %s\n", i+1, g.Symbol, g.PriceChangePercent, formatPrice(g.Price)))
	}
	return b.String()
}

// FormatListings formats the new-listings list.
func FormatListings(listings []model.Listing) string {
	var b strings.Builder
	b.WriteString("🆕 <b>New listings</b>\n\n")
	if len(listings) == 0 {
		b.WriteString("No data.\n")
	}
	for i, l := range listings {
		date := "unknown"
		if l.OnboardDate > 0 {
			date = time.UnixMilli(l.OnboardDate).UTC().Format("2006-01-02")
		}
		b.WriteString(fmt.Sprintf("%d. %s (listed %s)\n", i+1, l.Symbol, date))
	}
	return b.String()
}

// formatPrice trims trailing zeros; low-priced tokens need up to 8 decimals.
func formatPrice(p float64) string {
	s := fmt.Sprintf("%.8f", p)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
