package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

func build(names []string, ps ...metrics.Participant) *metrics.Metrics {
	m := &metrics.Metrics{
		Global:       metrics.Global{Participants: names},
		Participants: map[string]*metrics.Participant{},
	}
	for i, name := range names {
		p := ps[i]
		m.Participants[name] = &p
		m.Global.TotalMessageCount += p.MessageCount
	}
	return m
}

func pair(a, b metrics.Participant) *metrics.Metrics {
	return build([]string{"Ana", "Luis"}, a, b)
}

func topics(list []flags.Finding) []flags.Topic {
	out := make([]flags.Topic, 0, len(list))
	for _, fd := range list {
		out = append(out, fd.Topic)
	}
	return out
}

func TestMetricFlags_Balanced(t *testing.T) {
	t.Parallel()

	m := pair(
		metrics.Participant{MessageCount: 50, AvgWordsPerMessage: 5, ConversationStarters: 3},
		metrics.Participant{MessageCount: 50, AvgWordsPerMessage: 6, ConversationStarters: 3},
	)
	var rec flags.Flags
	MetricFlags(m, &rec)

	assert.Equal(t, []flags.Topic{flags.BalancedMessages, flags.BalancedLength, flags.BalancedStarts, flags.Reciprocal}, topics(rec.Positive))
	assert.Empty(t, rec.Attention)
	assert.Equal(t, "Message participation relatively balanced (Ana: 50%, Luis: 50%).", rec.Positive[0].Text)
	assert.Equal(t, "Avg. message length similar between Ana (5.0 words) and Luis (6.0 words).", rec.Positive[1].Text)
	assert.Equal(t, "Conversation starting relatively balanced (Ana: 3 starts, Luis: 3 starts).", rec.Positive[2].Text)
}

func TestMetricFlags_Imbalanced(t *testing.T) {
	t.Parallel()

	m := pair(
		metrics.Participant{MessageCount: 90, AvgWordsPerMessage: 2, ConversationStarters: 1},
		metrics.Participant{MessageCount: 10, AvgWordsPerMessage: 10, ConversationStarters: 8},
	)
	var rec flags.Flags
	MetricFlags(m, &rec)

	require.Equal(t, []flags.Topic{flags.UnequalMessages, flags.UnequalLength, flags.UnequalStarts}, topics(rec.Attention))
	assert.Equal(t, "Message participation very unequal: Ana (90%) vs Luis (10%) differs more than 25% from 50/50.", rec.Attention[0].Text)
	assert.Equal(t, "Avg. message length unequal: Luis (10.0 words) vs Ana (2.0 words), ratio > 1.8.", rec.Attention[1].Text)
	assert.Equal(t, "Luis initiates most (89%) of conversations (vs Ana: 11%), differs > 15% from 50/50.", rec.Attention[2].Text)
	assert.Equal(t, []flags.Topic{flags.Reciprocal}, topics(rec.Positive))
}

func TestMetricFlags_Thresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		a, b      metrics.Participant
		positive  []flags.Topic
		attention []flags.Topic
	}{
		{
			name:      "moderate participation",
			a:         metrics.Participant{MessageCount: 62},
			b:         metrics.Participant{MessageCount: 38},
			positive:  []flags.Topic{flags.Reciprocal},
			attention: []flags.Topic{flags.UnequalMessages},
		},
		{
			name:      "exactly twenty five points off",
			a:         metrics.Participant{MessageCount: 15},
			b:         metrics.Participant{MessageCount: 5},
			positive:  []flags.Topic{flags.Reciprocal},
			attention: []flags.Topic{flags.UnequalMessages},
		},
		{
			name:     "exactly ten points off",
			a:        metrics.Participant{MessageCount: 6},
			b:        metrics.Participant{MessageCount: 4},
			positive: []flags.Topic{flags.BalancedMessages},
		},
		{
			name:     "length ratio exactly 1.8",
			a:        metrics.Participant{MessageCount: 5, AvgWordsPerMessage: 9},
			b:        metrics.Participant{MessageCount: 5, AvgWordsPerMessage: 5},
			positive: []flags.Topic{flags.BalancedMessages, flags.BalancedLength},
		},
		{
			name:     "five starts is not enough",
			a:        metrics.Participant{MessageCount: 5, ConversationStarters: 5},
			b:        metrics.Participant{MessageCount: 5},
			positive: []flags.Topic{flags.BalancedMessages},
		},
		{
			name:     "starter split exactly fifteen off",
			a:        metrics.Participant{MessageCount: 5, ConversationStarters: 13},
			b:        metrics.Participant{MessageCount: 5, ConversationStarters: 7},
			positive: []flags.Topic{flags.BalancedMessages, flags.BalancedStarts},
		},
		{
			name:      "unilateral blocks reciprocity",
			a:         metrics.Participant{MessageCount: 12, UnilateralSegments: 1},
			b:         metrics.Participant{MessageCount: 12},
			positive:  []flags.Topic{flags.BalancedMessages},
			attention: []flags.Topic{flags.DelayedResponse},
		},
		{
			name:     "nineteen messages is too few for reciprocity",
			a:        metrics.Participant{MessageCount: 10},
			b:        metrics.Participant{MessageCount: 9},
			positive: []flags.Topic{flags.BalancedMessages},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var rec flags.Flags
			MetricFlags(pair(tt.a, tt.b), &rec)
			assert.ElementsMatch(t, tt.positive, topics(rec.Positive))
			assert.ElementsMatch(t, tt.attention, topics(rec.Attention))
		})
	}
}

func TestMetricFlags_ResponseTimes(t *testing.T) {
	t.Parallel()

	m := build([]string{"Ana", "Luis", "Marta", "Pepe"},
		metrics.Participant{MessageCount: 10, AvgResponseTime: metrics.ResponseTime{Count: 6, AverageMinutes: 95.4}},
		metrics.Participant{MessageCount: 10, AvgResponseTime: metrics.ResponseTime{Count: 6, AverageMinutes: 4.6}},
		metrics.Participant{MessageCount: 10, AvgResponseTime: metrics.ResponseTime{Count: 5, AverageMinutes: 300}},
		metrics.Participant{MessageCount: 10, AvgResponseTime: metrics.ResponseTime{Count: 9, AverageMinutes: 90}},
	)
	var rec flags.Flags
	MetricFlags(m, &rec)

	require.Len(t, rec.Attention, 1)
	assert.Equal(t, "Median response time for Ana is long (~95 min), exceeding 90 min.", rec.Attention[0].Text)
	require.Len(t, rec.Positive, 1)
	assert.Equal(t, "Median response time for Luis is fast (~5 min), below 10 min.", rec.Positive[0].Text)
}

func TestMetricFlags_UnilateralSeverity(t *testing.T) {
	t.Parallel()

	m := build([]string{"A", "B", "C"},
		metrics.Participant{MessageCount: 10, UnilateralSegments: 3},
		metrics.Participant{MessageCount: 10, UnilateralSegments: 4},
		metrics.Participant{MessageCount: 10, UnilateralSegments: 8},
	)
	var rec flags.Flags
	MetricFlags(m, &rec)

	require.Len(t, rec.Attention, 3)
	assert.Equal(t, "occasional episodes (3) where A sent 3+ messages and the reply took >2h.", rec.Attention[0].Text)
	assert.Equal(t, "frequent episodes (4) where B sent 3+ messages and the reply took >2h.", rec.Attention[1].Text)
	assert.Equal(t, "VERY frequent episodes (8) where C sent 3+ messages and the reply took >2h.", rec.Attention[2].Text)
	assert.Empty(t, rec.Positive)
}

func TestMetricFlags_NoPairRulesOutsideTwoPeople(t *testing.T) {
	t.Parallel()

	var rec flags.Flags
	MetricFlags(build([]string{"Ana"}, metrics.Participant{MessageCount: 40}), &rec)
	assert.Empty(t, rec.Positive)
	assert.Empty(t, rec.Attention)

	MetricFlags(nil, &rec)
	MetricFlags(build(nil), &rec)
	assert.Empty(t, rec.Positive)
}
