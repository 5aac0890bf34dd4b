package enrichment

import (
	"encoding/json"
	"fmt"

	"github.com/ateesdalejr/podlistener/internal/models"
)

// Record is the validated enrichment produced by the LLM for one mention.
type Record struct {
	Sentiment        string   `json:"sentiment"`
	SentimentScore   float64  `json:"sentiment_score"`
	ContextSummary   string   `json:"context_summary"`
	Topics           []string `json:"topics"`
	IsBuyingSignal   bool     `json:"is_buying_signal"`
	IsPainPoint      bool     `json:"is_pain_point"`
	IsRecommendation bool     `json:"is_recommendation"`
	// Raw is the parsed provider response, stored alongside the mention for
	// debugging.
	Raw models.JSONMap `json:"-"`
}

// DefaultRecord is the sentinel returned in non-strict mode when enrichment
// fails after all retries.
func DefaultRecord() Record {
	return Record{
		Sentiment:      models.SentimentNeutral,
		SentimentScore: 0.5,
		ContextSummary: "Enrichment unavailable",
		Topics:         []string{},
	}
}

// parseRecord validates an untrusted LLM payload field by field, coercing
// each to the expected type with the sentinel's value as fallback.
func parseRecord(content string) (Record, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Record{}, fmt.Errorf("parsing enrichment response: %w", err)
	}

	record := Record{
		Sentiment:        coerceString(raw["sentiment"], models.SentimentNeutral),
		SentimentScore:   coerceFloat(raw["sentiment_score"], 0.5),
		ContextSummary:   coerceString(raw["context_summary"], ""),
		Topics:           coerceStringList(raw["topics"]),
		IsBuyingSignal:   coerceBool(raw["is_buying_signal"]),
		IsPainPoint:      coerceBool(raw["is_pain_point"]),
		IsRecommendation: coerceBool(raw["is_recommendation"]),
		Raw:              models.JSONMap(raw),
	}
	return record, nil
}

func coerceString(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func coerceFloat(v interface{}, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

func coerceBool(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func coerceStringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
