// Package recommendation validates the LLM's JSON answer and reshapes it
// into the strict FullAnalysis used by the dashboard.
package recommendation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"crypto-analyst/internal/model"
)

var (
	// ErrMalformedResponse is returned when the text is not a JSON object.
	ErrMalformedResponse = errors.New("malformed LLM response")

	// ErrIncompleteResponse is returned when a required top-level key is missing.
	ErrIncompleteResponse = errors.New("incomplete LLM response")
)

// RequiredKeys are the top-level keys every response must carry.
var RequiredKeys = []string{"analysis", "news", "overallSentiment"}

// Coercion records a field whose value was replaced during normalization.
type Coercion struct {
	Field string `json:"field"` // gjson path, e.g. "news.2.sentiment"
	Raw   string `json:"raw"`
	Value string `json:"value"`
}

// Normalized is a FullAnalysis plus the list of values that had to be
// coerced to fit it.
type Normalized struct {
	model.FullAnalysis
	Coerced []Coercion `json:"coerced,omitempty"`
}

// Normalize parses raw and returns the validated analysis.
func Normalize(raw string) (model.FullAnalysis, error) {
	n, err := Parse(raw)
	if err != nil {
		return model.FullAnalysis{}, err
	}
	return n.FullAnalysis, nil
}

// Parse is Normalize with the coercion report attached.
//
// Enumeration values outside the closed sets fall back to the neutral member
// (NEUTRAL, MEDIUM, Neutral). Numeric fields accept numbers or numeric
// strings; anything else reads as 0.
func Parse(raw string) (Normalized, error) {
	text := stripFence(raw)
	if text == "" || !gjson.Valid(text) {
		return Normalized{}, fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return Normalized{}, fmt.Errorf("%w: top level is %s, want object", ErrMalformedResponse, doc.Type)
	}

	var missing []string
	for _, k := range RequiredKeys {
		if !doc.Get(k).Exists() {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Normalized{}, fmt.Errorf("%w: missing %s", ErrIncompleteResponse, strings.Join(missing, ", "))
	}

	analysis := doc.Get("analysis")
	if !analysis.IsObject() {
		return Normalized{}, fmt.Errorf("%w: analysis is not an object", ErrMalformedResponse)
	}
	news := doc.Get("news")
	if !news.IsArray() {
		return Normalized{}, fmt.Errorf("%w: news is not an array", ErrMalformedResponse)
	}

	var n Normalized
	n.Analysis = model.AnalysisResult{
		Suggestion:    n.suggestion("analysis.suggestion", analysis.Get("suggestion")),
		Justification: analysis.Get("justification").String(),
		EntryPoint:    n.number("analysis.entryPoint", analysis.Get("entryPoint")),
		StopLoss:      n.number("analysis.stopLoss", analysis.Get("stopLoss")),
		TakeProfit:    n.number("analysis.takeProfit", analysis.Get("takeProfit")),
		Risk:          n.risk("analysis.risk", analysis.Get("risk")),
	}

	n.News = make([]model.NewsItem, 0, len(news.Array()))
	for i, item := range news.Array() {
		path := fmt.Sprintf("news.%d", i)
		if !item.IsObject() {
			n.coerce(path, item.Raw, "dropped")
			continue
		}
		n.News = append(n.News, model.NewsItem{
			Headline:  item.Get("headline").String(),
			Source:    item.Get("source").String(),
			Sentiment: n.sentiment(path+".sentiment", item.Get("sentiment")),
		})
	}

	n.OverallSentiment = n.sentiment("overallSentiment", doc.Get("overallSentiment"))
	return n, nil
}

func (n *Normalized) coerce(field, raw, value string) {
	n.Coerced = append(n.Coerced, Coercion{Field: field, Raw: raw, Value: value})
}

func (n *Normalized) number(field string, r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
			n.coerce(field, r.Raw, "0")
			return 0
		}
		return r.Num
	case gjson.String:
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(r.Str), ",", ""), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			n.coerce(field, r.Raw, "0")
			return 0
		}
		return v
	default:
		n.coerce(field, r.Raw, "0")
		return 0
	}
}
