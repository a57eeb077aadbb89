package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		topic  Topic
		params Params
		want   string
	}{
		{
			name:   "very unequal participation",
			topic:  UnequalMessages,
			params: Params{KeySeverity: SeverityVery, KeyFirst: "Ana", KeyFirstPct: 80, KeySecond: "Luis", KeySecondPct: 20},
			want:   "Message participation very unequal: Ana (80%) vs Luis (20%) differs more than 25% from 50/50.",
		},
		{
			name:   "moderate participation",
			topic:  UnequalMessages,
			params: Params{KeySeverity: SeverityModerate, KeyFirst: "Ana", KeyFirstPct: 62, KeySecond: "Luis", KeySecondPct: 38},
			want:   "Message participation moderately unequal (Ana: 62%, Luis: 38%).",
		},
		{
			name:   "length",
			topic:  UnequalLength,
			params: Params{KeyFirst: "Ana", KeyFirstAvg: 12.25, KeySecond: "Luis", KeySecondAvg: 3.0},
			want:   "Avg. message length unequal: Ana (12.2 words) vs Luis (3.0 words), ratio > 1.8.",
		},
		{
			name:   "balanced starts",
			topic:  BalancedStarts,
			params: Params{KeyFirst: "Ana", KeyFirstN: 4, KeySecond: "Luis", KeySecondN: 5},
			want:   "Conversation starting relatively balanced (Ana: 4 starts, Luis: 5 starts).",
		},
		{
			name:   "slow response",
			topic:  SlowResponse,
			params: Params{KeyAuthor: "Luis", KeyMinutes: 120},
			want:   "Median response time for Luis is long (~120 min), exceeding 90 min.",
		},
		{
			name:   "delayed very frequent",
			topic:  DelayedResponse,
			params: Params{KeySeverity: SeverityVery, KeyCount: 9, KeyAuthor: "Ana"},
			want:   "VERY frequent episodes (9) where Ana sent 3+ messages and the reply took >2h.",
		},
		{
			name:   "neutral with notes",
			topic:  ToneNeutral,
			params: Params{KeyNeutral: 55, KeyWithNotes: true},
			want:   "Overall tone (AI): Mostly neutral (~55% Neu) with some positive notes.",
		},
		{
			name:   "affection keywords",
			topic:  AffectionKeywords,
			params: Params{KeyCount: 12},
			want:   "Frequent use (12 instances) of words/emojis for explicit affection.",
		},
		{
			name:  "unknown topic",
			topic: Topic("nope"),
			want:  "nope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Render(tt.topic, tt.params))
		})
	}
}

func TestFlags_RecordKeepsOrder(t *testing.T) {
	t.Parallel()

	var f Flags
	f.Record(Attention, AILoadFailed, nil)
	f.Note(Positive, "first note")
	f.Record(Positive, PoliteKeywords, Params{KeyCount: 7})
	f.Add(Finding{Category: "bogus", Text: "goes to attention"})

	require.Len(t, f.Positive, 2)
	require.Len(t, f.Attention, 2)
	assert.Equal(t, "first note", f.Positive[0].Text)
	assert.True(t, f.Has(Positive, PoliteKeywords))
	assert.False(t, f.Has(Attention, PoliteKeywords))
	assert.Equal(t, Attention, f.Attention[1].Category)

	s := f.Strings()
	assert.Equal(t, []string{
		"AI sentiment analysis could not be performed: model loading error.",
		"goes to attention",
	}, s.Attention)
}

func TestClean_DedupesByTopic(t *testing.T) {
	t.Parallel()

	var f Flags
	f.Record(Attention, UnequalMessages, Params{KeySeverity: SeverityVery, KeyFirst: "A", KeyFirstPct: 90, KeySecond: "B", KeySecondPct: 10})
	f.Note(Attention, "Metric-based: message participation moderately unequal (A: 60%, B: 40%)")
	f.Record(Attention, ToneVeryNegative, Params{KeyNegative: 45, KeyPositive: 20})
	f.Note(Attention, "something custom")
	f.Note(Attention, "something custom")

	c := Clean(&f)
	assert.Equal(t, []string{
		"Message participation very unequal: A (90%) vs B (10%) differs more than 25% from 50/50.",
		"Notable negative presence (~45% Neg vs ~20% Pos), suggests reflection.",
		"Something custom.",
	}, c.AttentionPoints)
	assert.Empty(t, c.PositivePoints)
	assert.True(t, c.Keys.Has(UnequalMessages))
	assert.True(t, c.Keys.HasIn(Attention, ToneVeryNegative))
	assert.False(t, c.Keys.HasIn(Positive, ToneVeryNegative))
	assert.True(t, c.Keys.Any(BalancedMessages, ToneVeryNegative))
}

func TestClean_SameTopicAcrossCategories(t *testing.T) {
	t.Parallel()

	var f Flags
	f.Note(Positive, "message participation relatively balanced (A: 50%, B: 50%)")
	f.Note(Attention, "Obs: message participation relatively balanced")

	c := Clean(&f)
	assert.Len(t, c.PositivePoints, 1)
	assert.Len(t, c.AttentionPoints, 1)
	assert.True(t, c.Keys.HasIn(Positive, BalancedMessages))
	assert.True(t, c.Keys.HasIn(Attention, BalancedMessages))
}

func TestCleanNil(t *testing.T) {
	t.Parallel()

	c := Clean(nil)
	assert.NotNil(t, c.PositivePoints)
	assert.NotNil(t, c.AttentionPoints)
	assert.Empty(t, c.Keys)
}

func TestCanonicalKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want Topic
	}{
		{"Conversation starting relatively balanced (A: 3 starts)", BalancedStarts},
		{"Message participation relatively balanced", BalancedMessages},
		{"Avg. message length unequal: A vs B", UnequalLength},
		{"participation moderately unequal", UnequalMessages},
		{"Median response time for A is long (~100 min)", SlowResponse},
		{"Median response time for A is fast (~3 min)", FastResponse},
		{"Frequent use (8 instances) of words/emojis for explicit affection.", AffectionKeywords},
		{"Frequent use (8 instances) of words/emojis for general positivity or politeness.", PoliteKeywords},
		{"nothing to see", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalKey(Finding{Text: tt.text}), tt.text)
	}
	assert.Equal(t, Reciprocal, CanonicalKey(Finding{Topic: Reciprocal, Text: "balanced"}))
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mostly neutral (~70% Neu).", CleanText("Overall tone (AI): Mostly neutral (~70% Neu)."))
	assert.Equal(t, "Ésta es una nota.", CleanText("  nota: ésta es una nota"))
	assert.Equal(t, "", CleanText("Obs:   "))
}

func TestKeySet_Topics(t *testing.T) {
	t.Parallel()

	var f Flags
	f.Record(Positive, BalancedMessages, nil)
	f.Record(Attention, AISkipped, nil)
	f.Record(Attention, UnequalLength, nil)
	assert.Equal(t, []string{"ai_skipped", "bal_msg", "imbal_len"}, Clean(&f).Keys.Topics())
}
