package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_StrictObjects(t *testing.T) {
	t.Parallel()

	s := GenerateSchema[sentimentBatchResponse]()
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	assert.NotContains(t, s, "$schema")

	items := s["properties"].(map[string]any)["results"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.Equal(t, []string{"confidence", "index", "label"}, items["required"])

	label := items["properties"].(map[string]any)["label"].(map[string]any)
	assert.ElementsMatch(t, []any{"POS", "NEG", "NEU"}, label["enum"])
}

func TestCloseObjects_ClosesOpenMaps(t *testing.T) {
	t.Parallel()

	node := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"counts": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":       "object",
					"properties": map[string]any{"n": map[string]any{"type": "integer"}, "a": map[string]any{"type": "string"}},
				},
			},
		},
	}
	closeObjects(node)

	assert.Equal(t, []string{"counts"}, node["required"])
	counts := node["properties"].(map[string]any)["counts"].(map[string]any)
	assert.Equal(t, false, counts["additionalProperties"])
	assert.NotContains(t, counts, "required")
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	ok := map[string]any{"results": []any{map[string]any{"index": 0, "label": "POS", "confidence": 0.5}}}
	require.NoError(t, ValidateDocument(sentimentBatchSchema, ok))

	extra := map[string]any{"results": []any{}, "note": "hi"}
	require.Error(t, ValidateDocument(sentimentBatchSchema, extra))

	missing := map[string]any{"results": []any{map[string]any{"index": 0, "label": "POS"}}}
	err := ValidateDocument(sentimentBatchSchema, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, isRateLimitError(&openai.Error{StatusCode: 429}))
	assert.True(t, isRateLimitError(errors.New("Rate limit reached")))
	assert.False(t, isRateLimitError(nil))
	assert.True(t, isServerError(&openai.Error{StatusCode: 503}))
	assert.True(t, isServerError(errors.New("internal server error")))
	assert.False(t, isServerError(&openai.Error{StatusCode: 400}))
}

func TestPickAndWait(t *testing.T) {
	t.Parallel()

	waits := []time.Duration{time.Second, 2 * time.Second}
	assert.Equal(t, time.Second, pick(waits, 0))
	assert.Equal(t, 2*time.Second, pick(waits, 5))
	assert.Zero(t, pick(nil, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	assert.NoError(t, wait(context.Background(), time.Millisecond))
}

func TestRuneTokenizer(t *testing.T) {
	t.Parallel()

	tok := RuneTokenizer{RunesPerToken: 2}
	assert.Equal(t, "hola", tok.Truncate("hola", 2))
	assert.Equal(t, "ñañ", RuneTokenizer{RunesPerToken: 3}.Truncate("ñañaña", 1))
	assert.Equal(t, "abcd", tok.Truncate("abcdefgh", 2))
	assert.Equal(t, "sin límite", tok.Truncate("sin límite", 0))
}
