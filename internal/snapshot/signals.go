package snapshot

import "crypto-analyst/internal/model"

// RSI zone thresholds.
const (
	Overbought = 70.0
	Oversold   = 30.0
)

// Classify derives the coarse signal labels from an analysis.
func Classify(ta model.TechnicalAnalysis) model.Signals {
	s := model.Signals{
		RSIZone:  "neutral",
		MACDBias: "bearish",
		Trend:    "below",
	}
	switch {
	case ta.RSI > Overbought:
		s.RSIZone = "overbought"
	case ta.RSI < Oversold:
		s.RSIZone = "oversold"
	}
	if ta.MACDHistogram > 0 {
		s.MACDBias = "bullish"
	}
	if ta.Price > ta.EMA200 {
		s.Trend = "above"
	}
	return s
}
