package indicator

// MACDResult holds the final MACD and signal line values.
type MACDResult struct {
	MACD   float64 `json:"macd"`
	Signal float64 `json:"signal"`
}

// Histogram returns MACD minus signal.
func (m MACDResult) Histogram() float64 { return m.MACD - m.Signal }

// MACD computes moving average convergence/divergence.
//
// Both EMAs run over the full series. The short EMA starts long-short
// elements earlier, so it is trimmed from the left to line up with the
// long EMA before subtracting. Series shorter than long return {0, 0}.
func MACD(prices []float64, short, long, signal int) MACDResult {
	if short <= 0 || long <= short || signal <= 0 || len(prices) < long {
		return MACDResult{}
	}

	emaLong := EMA(prices, long)
	emaShort := EMA(prices, short)[long-short:]

	line := make([]float64, len(emaLong))
	for i := range emaLong {
		line[i] = emaShort[i] - emaLong[i]
	}

	return MACDResult{
		MACD:   line[len(line)-1],
		Signal: LastEMA(line, signal),
	}
}
