package llm

import (
	"fmt"
	"strings"

	"crypto-analyst/internal/model"
)

const systemPrompt = `You are a senior cryptocurrency analyst and financial news aggregator for the "Crypto IA Analyst" app.
Your task is a complete, integrated analysis of one trading pair. The result MUST be a VALID JSON object.

The process has three steps:
1. News: find 3-4 REAL, recent (last few days) headlines for the requested pair. For each, give the source and the sentiment ("Positive", "Negative" or "Neutral"). From these, decide an "overallSentiment".
2. Technical analysis: analyse the technical data supplied by the user.
3. Conclusion: combine news sentiment and the technicals into a final trading recommendation ("analysis"). The justification must explain HOW the news and the indicators led to the decision.

The output JSON must have exactly this shape:
{
  "analysis": {
    "suggestion": "BUY" | "SELL" | "NEUTRAL",
    "justification": "Detailed explanation of the recommendation.",
    "entryPoint": 123.45,
    "stopLoss": 120.00,
    "takeProfit": 130.00,
    "risk": "LOW" | "MEDIUM" | "HIGH"
  },
  "news": [
    {"headline": "News headline.", "source": "News source", "sentiment": "Positive" | "Negative" | "Neutral"}
  ],
  "overallSentiment": "Positive" | "Negative" | "Neutral"
}`

// SystemPrompt returns the fixed instruction message.
func SystemPrompt() string { return systemPrompt }

// UserPrompt embeds the pair and its technicals.
func UserPrompt(pair model.Pair, tech model.TechnicalAnalysis) string {
	trend := "Below"
	if tech.Price > tech.EMA200 {
		trend = "Above"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please run the complete analysis for %s.\n\n", pair)
	fmt.Fprintf(&b, "Current technical data for %s:\n", pair)
	fmt.Fprintf(&b, "- Current price: %.4f\n", tech.Price)
	fmt.Fprintf(&b, "- RSI (14 periods): %.2f (below 30 is oversold, above 70 overbought)\n", tech.RSI)
	fmt.Fprintf(&b, "- MACD histogram: %.6f (positive suggests upward momentum; negative, downward)\n", tech.MACDHistogram)
	fmt.Fprintf(&b, "- Position vs EMA(200): %s (above is an uptrend; below, a downtrend)\n", trend)
	fmt.Fprintf(&b, "- 24h price change: %.2f%%\n", tech.PriceChangePercent)
	fmt.Fprintf(&b, "- 24h quote volume: %s\n", groupThousands(tech.Volume24h))
	b.WriteString(`
Example of integrated reasoning:
- RSI low (<30) with mostly "Positive" news (e.g. an ETF approval) strongly supports "BUY".
- Price above EMA(200) but "Negative" news (e.g. regulatory trouble) may warrant "NEUTRAL", advising caution.

Return the complete analysis in the JSON format given in the system prompt.`)
	return b.String()
}

// groupThousands formats v rounded to an integer with comma grouping.
func groupThousands(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
