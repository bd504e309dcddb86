package recommendation

import (
	"errors"
	"strings"
	"testing"

	"crypto-analyst/internal/model"
)

const complete = `{
  "analysis": {
    "suggestion": "BUY",
    "justification": "RSI recovering from oversold, price above EMA200.",
    "entryPoint": 43100.5,
    "stopLoss": "41800",
    "takeProfit": 46250,
    "risk": "MEDIUM"
  },
  "news": [
    {"headline": "ETF inflows hit record", "source": "CoinDesk", "sentiment": "Positive"},
    {"headline": "Exchange outage", "source": "The Block", "sentiment": "Negative"}
  ],
  "overallSentiment": "Positive"
}`

func TestNormalize_Complete(t *testing.T) {
	got, err := Normalize(complete)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := model.AnalysisResult{
		Suggestion:    model.SuggestionBuy,
		Justification: "RSI recovering from oversold, price above EMA200.",
		EntryPoint:    43100.5,
		StopLoss:      41800,
		TakeProfit:    46250,
		Risk:          model.RiskMedium,
	}
	if got.Analysis != want {
		t.Errorf("analysis:\n got %+v\nwant %+v", got.Analysis, want)
	}
	if len(got.News) != 2 || got.News[0].Headline != "ETF inflows hit record" || got.News[1].Sentiment != model.SentimentNegative {
		t.Errorf("news order or content wrong: %+v", got.News)
	}
	if got.OverallSentiment != model.SentimentPositive {
		t.Errorf("overall: got %q", got.OverallSentiment)
	}
}

func TestNormalize_MissingKeys(t *testing.T) {
	_, err := Normalize(`{"analysis": {"suggestion": "BUY"}}`)
	if !errors.Is(err, ErrIncompleteResponse) {
		t.Fatalf("got %v, want ErrIncompleteResponse", err)
	}
	for _, k := range []string{"news", "overallSentiment"} {
		if !strings.Contains(err.Error(), k) {
			t.Errorf("error %q does not name %q", err, k)
		}
	}
	if strings.Contains(err.Error(), "analysis,") {
		t.Errorf("error names a key that is present: %q", err)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"Sorry, I cannot help with that.",
		`{"analysis": `,
		`[1, 2, 3]`,
		`"just a string"`,
		`{"analysis": "BUY", "news": [], "overallSentiment": "Neutral"}`,
		`{"analysis": {}, "news": {}, "overallSentiment": "Neutral"}`,
	} {
		if _, err := Normalize(raw); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("Normalize(%q): got %v, want ErrMalformedResponse", raw, err)
		}
	}
}

func TestNormalize_CodeFence(t *testing.T) {
	for _, raw := range []string{
		"```json\n" + complete + "\n```",
		"```\n" + complete + "\n```",
		"\n\n  " + complete + "  \n",
	} {
		got, err := Normalize(raw)
		if err != nil {
			t.Errorf("Normalize(fenced): %v", err)
			continue
		}
		if got.Analysis.Suggestion != model.SuggestionBuy {
			t.Errorf("suggestion: got %q", got.Analysis.Suggestion)
		}
	}
}

func TestParse_PortugueseAliases(t *testing.T) {
	raw := `{
	  "analysis": {"suggestion": "compra", "risk": "Médio", "entryPoint": 1, "stopLoss": 1, "takeProfit": 1},
	  "news": [{"headline": "h", "source": "s", "sentiment": "Negativo"}],
	  "overallSentiment": "neutro"
	}`
	n, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if n.Analysis.Suggestion != model.SuggestionBuy {
		t.Errorf("suggestion: got %q, want BUY", n.Analysis.Suggestion)
	}
	if n.Analysis.Risk != model.RiskMedium {
		t.Errorf("risk: got %q, want MEDIUM", n.Analysis.Risk)
	}
	if n.News[0].Sentiment != model.SentimentNegative {
		t.Errorf("news sentiment: got %q, want Negative", n.News[0].Sentiment)
	}
	if n.OverallSentiment != model.SentimentNeutral {
		t.Errorf("overall: got %q, want Neutral", n.OverallSentiment)
	}
	if len(n.Coerced) != 0 {
		t.Errorf("aliases must not be reported as coercions: %+v", n.Coerced)
	}
}

func TestParse_UnknownEnumsFallBackToNeutral(t *testing.T) {
	raw := `{
	  "analysis": {"suggestion": "STRONG BUY", "risk": 3, "entryPoint": 1, "stopLoss": 1, "takeProfit": 1},
	  "news": [{"headline": "h", "source": "s", "sentiment": "Bullish"}],
	  "overallSentiment": "Mixed"
	}`
	n, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if n.Analysis.Suggestion != model.SuggestionNeutral || n.Analysis.Risk != model.RiskMedium {
		t.Errorf("analysis enums: %+v", n.Analysis)
	}
	if n.News[0].Sentiment != model.SentimentNeutral || n.OverallSentiment != model.SentimentNeutral {
		t.Errorf("sentiments not neutral: %+v / %q", n.News, n.OverallSentiment)
	}

	fields := map[string]string{}
	for _, c := range n.Coerced {
		fields[c.Field] = c.Raw
	}
	for field, raw := range map[string]string{
		"analysis.suggestion": `"STRONG BUY"`,
		"analysis.risk":       `3`,
		"news.0.sentiment":    `"Bullish"`,
		"overallSentiment":    `"Mixed"`,
	} {
		if fields[field] != raw {
			t.Errorf("coercion for %s: got raw %q, want %q", field, fields[field], raw)
		}
	}
}

func TestParse_Numbers(t *testing.T) {
	raw := `{
	  "analysis": {"suggestion": "SELL", "risk": "HIGH",
	    "entryPoint": " 42,000.25 ", "stopLoss": "n/a", "takeProfit": null},
	  "news": [],
	  "overallSentiment": "Negative"
	}`
	n, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if n.Analysis.EntryPoint != 42000.25 {
		t.Errorf("entryPoint: got %v, want 42000.25", n.Analysis.EntryPoint)
	}
	if n.Analysis.StopLoss != 0 || n.Analysis.TakeProfit != 0 {
		t.Errorf("unparseable numbers should read 0: %+v", n.Analysis)
	}
	if len(n.Coerced) != 2 {
		t.Errorf("coerced: got %d entries, want 2: %+v", len(n.Coerced), n.Coerced)
	}
	if n.News == nil || len(n.News) != 0 {
		t.Errorf("empty news should be an empty, non-nil list: %#v", n.News)
	}
}

func TestParse_OverflowingNumbersCoerced(t *testing.T) {
	raw := `{
	  "analysis": {"suggestion": "BUY", "risk": "LOW",
	    "entryPoint": 1e400, "stopLoss": -1e400, "takeProfit": "1e400"},
	  "news": [],
	  "overallSentiment": "Neutral"
	}`
	n, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	a := n.Analysis
	if a.EntryPoint != 0 || a.StopLoss != 0 || a.TakeProfit != 0 {
		t.Errorf("out-of-range numbers should read 0: %+v", a)
	}
	if len(n.Coerced) != 3 {
		t.Fatalf("coerced: got %d entries, want 3: %+v", len(n.Coerced), n.Coerced)
	}
	if n.Coerced[0].Field != "analysis.entryPoint" || n.Coerced[0].Raw != "1e400" {
		t.Errorf("first coercion: %+v", n.Coerced[0])
	}
}

func TestParse_NonObjectNewsItemsDropped(t *testing.T) {
	raw := `{
	  "analysis": {"suggestion": "BUY", "risk": "LOW", "entryPoint": 1, "stopLoss": 1, "takeProfit": 1},
	  "news": ["plain string", {"headline": "kept", "source": "s", "sentiment": "Positive"}],
	  "overallSentiment": "Positive"
	}`
	n, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.News) != 1 || n.News[0].Headline != "kept" {
		t.Errorf("news: %+v", n.News)
	}
	if len(n.Coerced) != 1 || n.Coerced[0].Field != "news.0" || n.Coerced[0].Value != "dropped" {
		t.Errorf("coerced: %+v", n.Coerced)
	}
}

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		"{}":                 "{}",
		"  {}\n":             "{}",
		"```json\n{}\n```":   "{}",
		"```JSON\n{}\n```\n": "{}",
		"```{}```":           "{}",
	}
	for in, want := range cases {
		if got := stripFence(in); got != want {
			t.Errorf("stripFence(%q) = %q, want %q", in, got, want)
		}
	}
}
