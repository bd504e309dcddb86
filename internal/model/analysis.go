package model

// TechnicalAnalysis is the indicator snapshot for one pair. It is rebuilt
// from scratch on every refresh and never partially updated.
type TechnicalAnalysis struct {
	Price              float64 `json:"price"`
	RSI                float64 `json:"rsi"`
	MACDHistogram      float64 `json:"macdHistogram"` // MACD line - signal line
	EMA200             float64 `json:"ema200"`
	Volume24h          float64 `json:"volume24h"` // quote volume
	PriceChangePercent float64 `json:"priceChangePercent"`
	Support            float64 `json:"support"`
	Resistance         float64 `json:"resistance"`
}

// Signals are coarse labels derived from a TechnicalAnalysis.
type Signals struct {
	RSIZone  string `json:"rsiZone"`  // "overbought", "oversold", "neutral"
	MACDBias string `json:"macdBias"` // "bullish", "bearish"
	Trend    string `json:"trend"`    // "above" or "below" EMA200
}

// MarketView is everything the dashboard needs to render the market side
// of a pair: the snapshot, the derived signals and the chart series.
type MarketView struct {
	Pair       Pair              `json:"pair"`
	Technical  TechnicalAnalysis `json:"technical"`
	Signals    Signals           `json:"signals"`
	Candles    []Candle          `json:"candles"`
	EMA200Line []float64         `json:"ema200Line"`
}

// Suggestion is the trading recommendation direction.
type Suggestion string

const (
	SuggestionBuy     Suggestion = "BUY"
	SuggestionSell    Suggestion = "SELL"
	SuggestionNeutral Suggestion = "NEUTRAL"
)

// RiskLevel grades the recommendation risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Sentiment is the news sentiment classification.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// AnalysisResult is the LLM trading recommendation after validation.
type AnalysisResult struct {
	Suggestion    Suggestion `json:"suggestion"`
	Justification string     `json:"justification"`
	EntryPoint    float64    `json:"entryPoint"`
	StopLoss      float64    `json:"stopLoss"`
	TakeProfit    float64    `json:"takeProfit"`
	Risk          RiskLevel  `json:"risk"`
}

// NewsItem is one headline; list order is relevance order from the source.
type NewsItem struct {
	Headline  string    `json:"headline"`
	Source    string    `json:"source"`
	Sentiment Sentiment `json:"sentiment"`
}

// FullAnalysis is the complete normalized LLM response.
type FullAnalysis struct {
	Analysis         AnalysisResult `json:"analysis"`
	News             []NewsItem     `json:"news"`
	OverallSentiment Sentiment      `json:"overallSentiment"`
}
