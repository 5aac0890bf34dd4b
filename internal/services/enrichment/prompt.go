package enrichment

import "fmt"

const promptTemplate = `Analyze this podcast transcript segment where the keyword "%s" was mentioned.

Transcript segment:
---
%s
---

Respond with ONLY valid JSON (no markdown, no explanation):
{
  "sentiment": "positive" | "negative" | "neutral" | "mixed",
  "sentiment_score": 0.0 to 1.0 (0=very negative, 1=very positive),
  "context_summary": "1-2 sentence summary of how the keyword is discussed",
  "topics": ["topic1", "topic2"],
  "is_buying_signal": true/false (speaker expresses intent to purchase/adopt),
  "is_pain_point": true/false (speaker describes a problem or frustration),
  "is_recommendation": true/false (speaker recommends or endorses)
}`

// BuildPrompt renders the enrichment prompt for one keyword mention.
func BuildPrompt(keyword, segment string) string {
	return fmt.Sprintf(promptTemplate, keyword, segment)
}
