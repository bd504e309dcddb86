package recommendation

import (
	"strings"

	"github.com/tidwall/gjson"

	"crypto-analyst/internal/model"
)

// Alias tables are keyed by the upper-cased, trimmed value. The Portuguese
// spellings come from the prompt the dashboard historically used.
var (
	suggestionAliases = map[string]model.Suggestion{
		"BUY":     model.SuggestionBuy,
		"COMPRA":  model.SuggestionBuy,
		"SELL":    model.SuggestionSell,
		"VENDA":   model.SuggestionSell,
		"NEUTRAL": model.SuggestionNeutral,
		"NEUTRO":  model.SuggestionNeutral,
	}

	riskAliases = map[string]model.RiskLevel{
		"LOW":    model.RiskLow,
		"BAIXO":  model.RiskLow,
		"MEDIUM": model.RiskMedium,
		"MÉDIO":  model.RiskMedium,
		"MEDIO":  model.RiskMedium,
		"HIGH":   model.RiskHigh,
		"ALTO":   model.RiskHigh,
	}

	sentimentAliases = map[string]model.Sentiment{
		"POSITIVE": model.SentimentPositive,
		"POSITIVO": model.SentimentPositive,
		"NEGATIVE": model.SentimentNegative,
		"NEGATIVO": model.SentimentNegative,
		"NEUTRAL":  model.SentimentNeutral,
		"NEUTRO":   model.SentimentNeutral,
	}
)

func enumKey(r gjson.Result) (string, bool) {
	if r.Type != gjson.String {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(r.Str)), true
}

func (n *Normalized) suggestion(field string, r gjson.Result) model.Suggestion {
	if k, ok := enumKey(r); ok {
		if v, ok := suggestionAliases[k]; ok {
			return v
		}
	}
	n.coerce(field, r.Raw, string(model.SuggestionNeutral))
	return model.SuggestionNeutral
}

func (n *Normalized) risk(field string, r gjson.Result) model.RiskLevel {
	if k, ok := enumKey(r); ok {
		if v, ok := riskAliases[k]; ok {
			return v
		}
	}
	n.coerce(field, r.Raw, string(model.RiskMedium))
	return model.RiskMedium
}

func (n *Normalized) sentiment(field string, r gjson.Result) model.Sentiment {
	if k, ok := enumKey(r); ok {
		if v, ok := sentimentAliases[k]; ok {
			return v
		}
	}
	n.coerce(field, r.Raw, string(model.SentimentNeutral))
	return model.SentimentNeutral
}
