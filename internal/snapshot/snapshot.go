// Package snapshot turns a fetched candle window and a 24h ticker into the
// technical analysis record shown on the dashboard.
package snapshot

import (
	"errors"
	"fmt"
	"math"

	"crypto-analyst/internal/indicator"
	"crypto-analyst/internal/model"
)

// MinCandles is the shortest window that can seed EMA(200).
const MinCandles = indicator.DefaultEMAPeriod

var (
	// ErrInsufficientHistory is returned for windows shorter than MinCandles.
	ErrInsufficientHistory = errors.New("not enough candle history for a 200-period EMA")

	// ErrNonFinite is returned when a computed field is NaN or ±Inf.
	ErrNonFinite = errors.New("non-finite value in technical analysis")
)

// Build computes the technical analysis. It is pure: identical inputs give
// bit-identical output.
func Build(candles []model.Candle, ticker model.Ticker) (model.TechnicalAnalysis, error) {
	if len(candles) < MinCandles {
		return model.TechnicalAnalysis{}, fmt.Errorf("%w: have %d candles, need %d",
			ErrInsufficientHistory, len(candles), MinCandles)
	}

	closes := model.Closes(candles)
	macd := indicator.MACD(closes, indicator.DefaultMACDShort, indicator.DefaultMACDLong, indicator.DefaultMACDSignal)

	// Support/resistance span the whole fetched window, same as the chart.
	levels := indicator.SupportResistance(model.Lows(candles), model.Highs(candles))

	ta := model.TechnicalAnalysis{
		Price:              ticker.LastPrice,
		RSI:                indicator.RSI(closes, indicator.DefaultRSIPeriod),
		MACDHistogram:      macd.Histogram(),
		EMA200:             indicator.LastEMA(closes, indicator.DefaultEMAPeriod),
		Volume24h:          ticker.QuoteVolume,
		PriceChangePercent: ticker.PriceChangePercent,
		Support:            levels.Support,
		Resistance:         levels.Resistance,
	}

	if field, ok := firstNonFinite(ta); ok {
		return model.TechnicalAnalysis{}, fmt.Errorf("%w: %s", ErrNonFinite, field)
	}
	return ta, nil
}

// BuildView wraps Build and attaches the chart series and signal labels.
func BuildView(pair model.Pair, candles []model.Candle, ticker model.Ticker) (model.MarketView, error) {
	ta, err := Build(candles, ticker)
	if err != nil {
		return model.MarketView{}, err
	}

	chart := make([]model.Candle, len(candles))
	copy(chart, candles)

	return model.MarketView{
		Pair:       pair,
		Technical:  ta,
		Signals:    Classify(ta),
		Candles:    chart,
		EMA200Line: indicator.EMA(model.Closes(candles), indicator.DefaultEMAPeriod),
	}, nil
}

func firstNonFinite(ta model.TechnicalAnalysis) (string, bool) {
	fields := []struct {
		name string
		v    float64
	}{
		{"price", ta.Price},
		{"rsi", ta.RSI},
		{"macdHistogram", ta.MACDHistogram},
		{"ema200", ta.EMA200},
		{"volume24h", ta.Volume24h},
		{"priceChangePercent", ta.PriceChangePercent},
		{"support", ta.Support},
		{"resistance", ta.Resistance},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return f.name, true
		}
	}
	return "", false
}
