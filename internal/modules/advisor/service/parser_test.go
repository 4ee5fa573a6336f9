package service

import (
	"testing"

	"quant_trader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanJSON(t *testing.T) {
	raw := `{"score": 72, "recommendation": "buy", "confidence": 0.8, "reasons": ["momentum", "oversold"], "predicted_change": 1.5}`

	got := ParseOpinion(raw)

	require.Equal(t, Parsed, got.Status)
	assert.Equal(t, 72.0, got.Opinion.Score)
	assert.Equal(t, "buy", got.Opinion.Recommendation)
	assert.Equal(t, 0.8, got.Opinion.Confidence)
	assert.Equal(t, 1.5, got.Opinion.PredictedChange)
	assert.Equal(t, []string{"momentum", "oversold"}, got.Opinion.Reasons)
}

func TestParseFencedJSON(t *testing.T) {
	raw := "Here is my analysis:\n```json\n{\"score\": 65, \"recommendation\": \"hold\", \"confidence\": 0.6}\n```\nHope this helps."

	got := ParseOpinion(raw)

	require.Equal(t, Parsed, got.Status)
	assert.Equal(t, 65.0, got.Opinion.Score)
	assert.Equal(t, "hold", got.Opinion.Recommendation)
}

func TestParseStripsThinkBlock(t *testing.T) {
	raw := "<think>\nscore should probably be around 90 because...\n</think>\n{\"score\": 40, \"recommendation\": \"sell\", \"confidence\": 0.9}"

	got := ParseOpinion(raw)

	require.Equal(t, Parsed, got.Status)
	// числа из chain-of-thought не должны просочиться
	assert.Equal(t, 40.0, got.Opinion.Score)
	assert.Equal(t, "sell", got.Opinion.Recommendation)
}

func TestParseEmbeddedJSON(t *testing.T) {
	raw := `Based on the data I conclude {"score": 55, "recommendation": "hold", "confidence": 0.5} as stated.`

	got := ParseOpinion(raw)

	require.Equal(t, Parsed, got.Status)
	assert.Equal(t, 55.0, got.Opinion.Score)
}

func TestParseRegexFallback(t *testing.T) {
	raw := "The score: 68 overall. My recommendation: buy with confidence: 0.75 and predicted_change: 2.1."

	got := ParseOpinion(raw)

	require.Equal(t, PartiallyParsed, got.Status)
	assert.Equal(t, 68.0, got.Opinion.Score)
	assert.Equal(t, "buy", got.Opinion.Recommendation)
	assert.Equal(t, 0.75, got.Opinion.Confidence)
	assert.Equal(t, 2.1, got.Opinion.PredictedChange)
}

func TestParseUnparseable(t *testing.T) {
	got := ParseOpinion("I cannot provide financial advice.")

	require.Equal(t, Unparseable, got.Status)
	assert.Equal(t, models.NeutralOpinion(), got.Opinion)
}

func TestParseEmptyAfterThinkStrip(t *testing.T) {
	got := ParseOpinion("<think>hmm</think>   ")

	require.Equal(t, Unparseable, got.Status)
	assert.Equal(t, models.NeutralOpinion(), got.Opinion)
}

func TestParseNormalizesOutOfRange(t *testing.T) {
	raw := `{"score": 150, "recommendation": "BUY", "confidence": 1.7}`

	got := ParseOpinion(raw)

	require.Equal(t, Parsed, got.Status)
	assert.Equal(t, 100.0, got.Opinion.Score)
	assert.Equal(t, "buy", got.Opinion.Recommendation)
	assert.Equal(t, 1.0, got.Opinion.Confidence)
}

func TestParseUnknownRecommendationBecomesHold(t *testing.T) {
	raw := `{"score": 50, "recommendation": "accumulate", "confidence": 0.4}`

	got := ParseOpinion(raw)

	require.Equal(t, Parsed, got.Status)
	assert.Equal(t, "hold", got.Opinion.Recommendation)
}
