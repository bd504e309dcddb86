package snapshot

import (
	"errors"
	"math"
	"testing"

	"crypto-analyst/internal/model"
)

func makeCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		x := float64(i)
		c := 100 + 8*math.Sin(x/7) + 0.05*x
		out[i] = model.Candle{
			OpenTime: int64(i) * 4 * 3600 * 1000,
			Open:     c - 0.5,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			Volume:   1000,
		}
	}
	return out
}

func flatCandles(n int, price float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{Open: price, High: price, Low: price, Close: price}
	}
	return out
}

func TestBuild_InsufficientHistory(t *testing.T) {
	_, err := Build(makeCandles(199), model.Ticker{LastPrice: 100})
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("199 candles: got %v, want ErrInsufficientHistory", err)
	}
}

func TestBuild_ExactlyMinCandles(t *testing.T) {
	ta, err := Build(makeCandles(200), model.Ticker{LastPrice: 101, QuoteVolume: 5e6, PriceChangePercent: -1.2})
	if err != nil {
		t.Fatalf("200 candles: %v", err)
	}
	if _, bad := firstNonFinite(ta); bad {
		t.Fatalf("non-finite field in %+v", ta)
	}
	if ta.EMA200 == 0 {
		t.Error("EMA200 not populated")
	}
	if ta.RSI < 0 || ta.RSI > 100 {
		t.Errorf("RSI out of range: %v", ta.RSI)
	}
}

func TestBuild_TickerFieldsPassThrough(t *testing.T) {
	tk := model.Ticker{LastPrice: 43210.5, QuoteVolume: 1.5e9, PriceChangePercent: 2.75}
	ta, err := Build(makeCandles(250), tk)
	if err != nil {
		t.Fatal(err)
	}
	if ta.Price != tk.LastPrice || ta.Volume24h != tk.QuoteVolume || ta.PriceChangePercent != tk.PriceChangePercent {
		t.Errorf("ticker fields not copied: %+v", ta)
	}
}

func TestBuild_LevelsSpanWindow(t *testing.T) {
	candles := flatCandles(220, 50)
	candles[10].Low = 42
	candles[200].High = 61
	ta, err := Build(candles, model.Ticker{LastPrice: 50})
	if err != nil {
		t.Fatal(err)
	}
	if ta.Support != 42 || ta.Resistance != 61 {
		t.Errorf("levels: got support=%v resistance=%v, want 42/61", ta.Support, ta.Resistance)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	candles := makeCandles(250)
	tk := model.Ticker{LastPrice: 105, QuoteVolume: 1e6, PriceChangePercent: 0.4}
	a, err := Build(candles, tk)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(candles, tk)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("results differ:\n%+v\n%+v", a, b)
	}
}

func TestBuild_FlatSeries(t *testing.T) {
	// No gains or losses: RSI avgLoss is 0, so RSI is 100. MACD is 0.
	ta, err := Build(flatCandles(250, 90), model.Ticker{LastPrice: 100})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ta.EMA200-90) > 1e-9 {
		t.Errorf("EMA200: got %v, want 90", ta.EMA200)
	}
	if math.Abs(ta.MACDHistogram) > 1e-9 {
		t.Errorf("MACD histogram: got %v, want 0", ta.MACDHistogram)
	}
	if ta.RSI != 100 {
		t.Errorf("RSI: got %v, want 100", ta.RSI)
	}
	if s := Classify(ta); s.Trend != "above" {
		t.Errorf("trend: got %q, want above", s.Trend)
	}
}

func TestBuild_NonFiniteTicker(t *testing.T) {
	_, err := Build(makeCandles(250), model.Ticker{LastPrice: math.NaN()})
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("got %v, want ErrNonFinite", err)
	}
}

func TestBuildView(t *testing.T) {
	candles := makeCandles(250)
	v, err := BuildView("BTC/USDT", candles, model.Ticker{LastPrice: 100})
	if err != nil {
		t.Fatal(err)
	}
	if v.Pair != "BTC/USDT" {
		t.Errorf("pair: %q", v.Pair)
	}
	if len(v.Candles) != 250 {
		t.Errorf("candles: got %d, want 250", len(v.Candles))
	}
	if len(v.EMA200Line) != 51 {
		t.Errorf("ema line: got %d points, want 51", len(v.EMA200Line))
	}
	if v.EMA200Line[len(v.EMA200Line)-1] != v.Technical.EMA200 {
		t.Errorf("last EMA point %v != snapshot EMA200 %v", v.EMA200Line[len(v.EMA200Line)-1], v.Technical.EMA200)
	}

	candles[0].Close = -1
	if v.Candles[0].Close == -1 {
		t.Error("view aliases caller's candle slice")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		ta   model.TechnicalAnalysis
		want model.Signals
	}{
		{model.TechnicalAnalysis{RSI: 75, MACDHistogram: 0.3, Price: 110, EMA200: 100},
			model.Signals{RSIZone: "overbought", MACDBias: "bullish", Trend: "above"}},
		{model.TechnicalAnalysis{RSI: 25, MACDHistogram: -0.3, Price: 90, EMA200: 100},
			model.Signals{RSIZone: "oversold", MACDBias: "bearish", Trend: "below"}},
		{model.TechnicalAnalysis{RSI: 70, MACDHistogram: 0, Price: 100, EMA200: 100},
			model.Signals{RSIZone: "neutral", MACDBias: "bearish", Trend: "below"}},
	}
	for _, c := range cases {
		if got := Classify(c.ta); got != c.want {
			t.Errorf("Classify(%+v) = %+v, want %+v", c.ta, got, c.want)
		}
	}
}
