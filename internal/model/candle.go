package model

// Candle is one OHLCV bar as returned by the exchange klines endpoint.
// Prices are parsed from the exchange's decimal strings at the client boundary.
type Candle struct {
	OpenTime int64   `json:"time"` // open time, unix ms
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Ticker is the 24h rolling window snapshot for a symbol.
type Ticker struct {
	LastPrice          float64 `json:"lastPrice"`
	QuoteVolume        float64 `json:"quoteVolume"`
	PriceChangePercent float64 `json:"priceChangePercent"`
}

// Closes extracts the close price series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// Lows extracts the low price series.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Low
	}
	return out
}

// Highs extracts the high price series.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].High
	}
	return out
}
