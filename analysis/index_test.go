package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

func TestBuildIndexRecord_DedupesTopics(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rec flags.Flags
	rec.Record(flags.Positive, flags.FastResponse, nil)
	rec.Record(flags.Positive, flags.FastResponse, nil)
	rec.Note(flags.Positive, "free text")
	rec.Record(flags.Attention, flags.AISkipped, nil)

	res := &Result{
		RunID:             "r1",
		CalculatedMetrics: &metrics.Metrics{Global: metrics.Global{Participants: []string{"Ana"}, DateRange: metrics.DateRange{Start: &start, End: &start}}},
		Findings:          rec,
	}
	res.ParsedChatData.Stats.ValidMessages = 4

	got := BuildIndexRecord(res, "in/chat.txt", "out/chat.report.json")
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, 4, got.Messages)
	assert.Equal(t, []string{"Ana"}, got.Participants)
	assert.Equal(t, &start, got.Start)
	assert.Equal(t, []string{"resp_fast"}, got.PositiveTopics)
	assert.Equal(t, []string{"ai_skipped"}, got.AttentionTopics)
}

func TestDedupeStrings(t *testing.T) {
	t.Parallel()

	assert.Nil(t, dedupeStrings(nil))
	assert.Equal(t, []string{"Foo", "Bar"}, dedupeStrings([]string{"Foo", "foo", "  ", "Bar"}))
}
