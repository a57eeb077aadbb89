package affection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/chatlens/analysis/chatlog"
	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func msg(author string, i int, content string) chatlog.Message {
	return chatlog.Message{Author: author, Content: content, Timestamp: t0.Add(time.Duration(i) * time.Minute)}
}

// fakeClassifier labels by keyword: "bien" is positive, "mal" negative, anything else neutral.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	failOn  map[int]bool
	dropOne bool
}

func (f *fakeClassifier) Classify(_ context.Context, texts []string) ([]Classification, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.failOn[call] {
		return nil, errors.New("boom")
	}
	out := make([]Classification, 0, len(texts))
	for _, t := range texts {
		label := LabelNeutral
		switch {
		case strings.Contains(t, "bien"):
			label = LabelPositive
		case strings.Contains(t, "mal"):
			label = LabelNegative
		}
		out = append(out, Classification{Label: label, Confidence: 0.9})
	}
	if f.dropOne && len(out) > 0 {
		out = out[1:]
	}
	return out, nil
}

func analyze(t *testing.T, e *Engine, msgs []chatlog.Message) (Result, *flags.Flags) {
	t.Helper()
	rec := &flags.Flags{}
	m := metrics.Calculate(msgs)
	return e.Analyze(context.Background(), msgs, m, rec), rec
}

func repeat(author string, n, offset int, content string) []chatlog.Message {
	out := make([]chatlog.Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, msg(author, offset+i, content))
	}
	return out
}

func TestAnalyze_Empty(t *testing.T) {
	t.Parallel()

	rec := &flags.Flags{}
	res := NewEngine().Analyze(context.Background(), nil, metrics.Calculate(nil), rec)
	assert.Empty(t, res.Index)
	assert.False(t, res.AIPerformed)
	assert.Empty(t, rec.Attention)
	assert.Empty(t, rec.Positive)
}

func TestAnalyze_LexicalScoring(t *testing.T) {
	t.Parallel()

	msgs := []chatlog.Message{
		msg("Ana", 0, "te quiero"),
		msg("Luis", 1, "hola"),
		msg("Ana", 2, "jaja 😊"),
		msg("Ana", 3, "ok"),
		msg("Ana", 4, "vale"),
	}
	res, rec := analyze(t, NewEngine(), msgs)

	ana := res.Index.Get("Ana")
	assert.Equal(t, 1, ana.KeywordCount)
	assert.InDelta(t, 2.5, ana.Score, 1e-9)
	assert.InDelta(t, 6.25, ana.Normalized, 1e-9)
	assert.Zero(t, ana.AnalyzedCountIA)

	luis := res.Index.Get("Luis")
	assert.Zero(t, luis.Score)
	assert.Zero(t, luis.Normalized)

	// "te quiero" and "jaja 😊" are long enough for the classifier but none is configured.
	assert.Equal(t, 2, res.Sentiment.Eligible)
	require.Len(t, rec.Attention, 1)
	assert.Equal(t, flags.AISkipped, rec.Attention[0].Topic)
}

func TestAnalyze_DistinctKeywordsPerMessage(t *testing.T) {
	t.Parallel()

	msgs := []chatlog.Message{
		msg("Ana", 0, "Te quiero mucho ❤️ te quiero"),
		msg("Luis", 1, "tqm"),
		msg("Luis", 2, "ok tq!"),
	}
	res, _ := analyze(t, NewEngine(), msgs)
	assert.Equal(t, 3, res.Index.Get("Ana").KeywordCount)
	assert.InDelta(t, 6.0, res.Index.Get("Ana").Score, 1e-9)
	assert.Equal(t, 1, res.Index.Get("Luis").KeywordCount)
}

func TestAnalyze_NormalizedIsCapped(t *testing.T) {
	t.Parallel()

	msgs := []chatlog.Message{msg("Ana", 0, "te quiero mi amor, mi vida, cariño")}
	res, _ := analyze(t, NewEngine(), msgs)
	assert.InDelta(t, NormalizedCap, res.Index.Get("Ana").Normalized, 1e-9)
}

func TestAnalyze_LoadFailure(t *testing.T) {
	t.Parallel()

	loader := LoaderFunc(func(context.Context, ProgressFunc) (Classifier, error) {
		return nil, errors.New("no model")
	})
	e := NewEngine(WithClassifier(NewClassifierHandle("fake", loader)))
	_, rec := analyze(t, e, []chatlog.Message{msg("Ana", 0, "hola que tal")})

	require.Len(t, rec.Attention, 2)
	assert.Equal(t, flags.AILoadFailed, rec.Attention[0].Topic)
	assert.Equal(t, "AI sentiment analysis could not be performed: model loading error.", rec.Attention[0].Text)
	assert.Equal(t, flags.AISkipped, rec.Attention[1].Topic)
}

func TestAnalyze_NoEligibleMessagesSkipsLoad(t *testing.T) {
	t.Parallel()

	called := false
	loader := LoaderFunc(func(context.Context, ProgressFunc) (Classifier, error) {
		called = true
		return &fakeClassifier{}, nil
	})
	e := NewEngine(WithClassifier(NewClassifierHandle("fake", loader)))
	_, rec := analyze(t, e, []chatlog.Message{msg("Ana", 0, "ok"), msg("Luis", 1, "<Media omitted>")})
	assert.False(t, called)
	assert.Empty(t, rec.Attention)
}

func TestAnalyze_PositiveTone(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{}
	msgs := append(repeat("Ana", 8, 0, "todo bien"), repeat("Luis", 6, 10, "muy bien hoy")...)
	e := NewEngine(WithClassifier(ReadyHandle("fake", clf)), WithBatchDelay(0))
	res, rec := analyze(t, e, msgs)

	assert.True(t, res.AIPerformed)
	assert.Equal(t, 14, res.Sentiment.Analyzed)
	assert.InDelta(t, 100.0, res.Sentiment.PositivePct, 1e-9)
	ana := res.Index.Get("Ana")
	assert.Equal(t, 8, ana.AnalyzedCountIA)
	assert.Equal(t, 8, ana.PositiveLabelCount)
	assert.InDelta(t, 8.0, ana.Score, 1e-9)
	assert.InDelta(t, 10.0, ana.Normalized, 1e-9)

	require.NotEmpty(t, rec.Positive)
	assert.Equal(t, flags.ToneVeryPositive, rec.Positive[0].Topic)
	assert.False(t, rec.Has(flags.Positive, flags.MorePositiveAuthor))
	assert.Empty(t, rec.Attention)
}

func TestAnalyze_FewResultsNoTone(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{}
	e := NewEngine(WithClassifier(ReadyHandle("fake", clf)))
	res, rec := analyze(t, e, repeat("Ana", 10, 0, "todo bien"))
	assert.True(t, res.AIPerformed)
	assert.Empty(t, rec.Positive)
}

func TestAnalyze_NegativeDivergence(t *testing.T) {
	t.Parallel()

	var msgs []chatlog.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg("Ana", 2*i, "todo mal"), msg("Luis", 2*i+1, "todo bien"))
	}
	e := NewEngine(WithClassifier(ReadyHandle("fake", &fakeClassifier{})), WithBatchDelay(0))
	_, rec := analyze(t, e, msgs)

	require.Len(t, rec.Attention, 2)
	assert.Equal(t, flags.ToneMostlyNegative, rec.Attention[0].Topic)
	assert.Equal(t, "Ana tends to more negativity (AI) than Luis (~100% vs ~0%).", rec.Attention[1].Text)
	assert.False(t, rec.Has(flags.Positive, flags.MorePositiveAuthor))
}

func TestAnalyze_PositiveDivergence(t *testing.T) {
	t.Parallel()

	var msgs []chatlog.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg("Ana", 2*i, "todo bien"), msg("Luis", 2*i+1, "ya veremos"))
	}
	e := NewEngine(WithClassifier(ReadyHandle("fake", &fakeClassifier{})), WithBatchDelay(0))
	_, rec := analyze(t, e, msgs)

	assert.True(t, rec.Has(flags.Positive, flags.MorePositiveAuthor))
	assert.True(t, rec.Has(flags.Positive, flags.ToneMostlyPositive))
}

func TestAnalyze_BatchFailureAndProgress(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{failOn: map[int]bool{2: true}}
	var progress [][2]int
	e := NewEngine(
		WithClassifier(ReadyHandle("fake", clf)),
		WithBatchSize(2),
		WithBatchDelay(0),
		WithBatchProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) }),
	)
	res, _ := analyze(t, e, repeat("Ana", 5, 0, "todo bien"))

	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
	assert.Equal(t, 3, clf.calls)
	assert.Equal(t, 3, res.Sentiment.Analyzed)
	assert.Equal(t, 3, res.Index.Get("Ana").AnalyzedCountIA)
}

func TestAnalyze_LengthMismatchIsBatchFailure(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{dropOne: true}
	e := NewEngine(WithClassifier(ReadyHandle("fake", clf)), WithBatchDelay(0))
	res, _ := analyze(t, e, repeat("Ana", 3, 0, "todo bien"))
	assert.False(t, res.AIPerformed)
	assert.Zero(t, res.Index.Get("Ana").AnalyzedCountIA)
}

func TestAnalyze_CancelledContextStopsClassification(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{}
	e := NewEngine(WithClassifier(ReadyHandle("fake", clf)))
	msgs := repeat("Ana", 30, 0, "todo bien")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Analyze(ctx, msgs, metrics.Calculate(msgs), &flags.Flags{})
	assert.Zero(t, clf.calls)
	assert.False(t, res.AIPerformed)
}

func TestAnalyze_KeywordFindings(t *testing.T) {
	t.Parallel()

	var msgs []chatlog.Message
	msgs = append(msgs, repeat("Ana", 6, 0, "gracias")...)
	msgs = append(msgs, repeat("Luis", 6, 10, "odio esto")...)
	msgs = append(msgs, repeat("Ana", 6, 20, "te quiero")...)
	_, rec := analyze(t, NewEngine(), msgs)

	assert.True(t, rec.Has(flags.Positive, flags.PoliteKeywords))
	assert.True(t, rec.Has(flags.Attention, flags.ConflictKeywords))
	assert.True(t, rec.Has(flags.Positive, flags.AffectionKeywords))

	var polite flags.Finding
	for _, fd := range rec.Positive {
		if fd.Topic == flags.PoliteKeywords {
			polite = fd
		}
	}
	// "te quiero" is also an affection keyword and is not counted as politeness.
	assert.Equal(t, "Frequent use (6 instances) of words/emojis for general positivity or politeness.", polite.Text)
}

func TestAnalyze_KeywordThresholdIsStrict(t *testing.T) {
	t.Parallel()

	_, rec := analyze(t, NewEngine(), repeat("Ana", 5, 0, "gracias"))
	assert.False(t, rec.Has(flags.Positive, flags.PoliteKeywords))
}

func TestKeywordThreshold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, KeywordThreshold(0))
	assert.Equal(t, 5, KeywordThreshold(450))
	assert.Equal(t, 10, KeywordThreshold(1000))
	assert.Equal(t, 16, KeywordThreshold(1550))
}

func TestDisplayPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, DisplayPercent(2), 1e-9)
	assert.InDelta(t, 100.0, DisplayPercent(4), 1e-9)
	assert.InDelta(t, 100.0, DisplayPercent(12), 1e-9)
	assert.Zero(t, DisplayPercent(-1))
}

func TestAIEligible(t *testing.T) {
	t.Parallel()

	assert.True(t, aiEligible("  hola amigo "))
	assert.False(t, aiEligible("hoy"))
	assert.False(t, aiEligible("<Media omitted>"))
	assert.False(t, aiEligible("<Multimedia omitido>"))
	assert.False(t, aiEligible("imagen omitido"))
	assert.True(t, aiEligible("ñañañ"))
	assert.True(t, aiEligible("😂😂😂"))
	assert.False(t, aiEligible("😂😂"))
	assert.False(t, aiEligible("❤️❤️"))
	assert.True(t, aiEligible("❤️❤️❤"))
	assert.Equal(t, 6, utf16Len("a😂ñ❤️"))
}
