// Package affection scores per-participant affection from keywords, emojis and an optional
// sentiment classifier, and records the sentiment and keyword findings of a chat.
package affection

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/chatlens/analysis/chatlog"
	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

const (
	KeywordWeight           = 2.0
	PositiveEmojiWeight     = 0.5
	PositiveSentimentWeight = 1.0
	BatchSize               = 25
	MinMessageLengthForAI   = 5
	NormalizedCap           = 15.0
	MaxForFullDisplay       = 4.0

	DefaultBatchDelay = 5 * time.Millisecond

	minResultsForTone     = 10
	minAnalyzedPerAuthor  = 5
	negativeDivergence    = 1.8
	minNegativeDivergence = 15.0
	positiveDivergence    = 1.5
	minPositiveDivergence = 30.0
	minKeywordThreshold   = 5
)

// Entry is one participant's affection record.
type Entry struct {
	Score              float64 `json:"score"`
	AnalyzedCountIA    int     `json:"analyzedCountIA"`
	KeywordCount       int     `json:"keywordCount"`
	PositiveLabelCount int     `json:"positiveLabelCount"`
	Normalized         float64 `json:"normalized"`
}

// Index maps participant names to their affection entry.
type Index map[string]*Entry

// Get returns the entry for author, or a zero entry.
func (idx Index) Get(author string) Entry {
	if e, ok := idx[author]; ok && e != nil {
		return *e
	}
	return Entry{}
}

// LabelCounts tallies classifier labels.
type LabelCounts struct {
	Positive int `json:"pos"`
	Negative int `json:"neg"`
	Neutral  int `json:"neu"`
}

func (c *LabelCounts) add(l Label) {
	switch l {
	case LabelPositive:
		c.Positive++
	case LabelNegative:
		c.Negative++
	case LabelNeutral:
		c.Neutral++
	}
}

func (c LabelCounts) Total() int { return c.Positive + c.Negative + c.Neutral }

// SentimentSummary is the classifier outcome over the whole chat.
type SentimentSummary struct {
	Eligible    int                    `json:"eligible"`
	Analyzed    int                    `json:"analyzed"`
	Overall     LabelCounts            `json:"overall"`
	ByAuthor    map[string]LabelCounts `json:"byAuthor"`
	PositivePct float64                `json:"positivePct"`
	NegativePct float64                `json:"negativePct"`
	NeutralPct  float64                `json:"neutralPct"`
}

// Result is the outcome of Engine.Analyze.
type Result struct {
	Index       Index            `json:"index"`
	Sentiment   SentimentSummary `json:"sentiment"`
	AIPerformed bool             `json:"aiPerformed"`
}

// DisplayPercent maps a normalized score to a 0-100 bar width.
func DisplayPercent(normalized float64) float64 {
	if normalized <= 0 {
		return 0
	}
	return math.Min(normalized/MaxForFullDisplay, 1) * 100
}

// Engine runs lexical scoring and optional classification over parsed messages.
type Engine struct {
	lexicon       *Lexicon
	match         *matcher
	handle        *ClassifierHandle
	logger        zerolog.Logger
	batchSize     int
	batchDelay    time.Duration
	modelProgress ProgressFunc
	batchProgress BatchProgressFunc
}

type Option func(*Engine)

// WithLexicon replaces the embedded lexicon.
func WithLexicon(l *Lexicon) Option {
	return func(e *Engine) {
		if l != nil {
			e.lexicon = l
		}
	}
}

// WithClassifier sets the classifier handle. Without one, analysis is lexical only.
func WithClassifier(h *ClassifierHandle) Option {
	return func(e *Engine) { e.handle = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithBatchDelay sets the pause after each full batch. Zero disables it.
func WithBatchDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.batchDelay = d
		}
	}
}

// WithBatchSize overrides BatchSize. Values outside 1..BatchSize are ignored.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= BatchSize {
			e.batchSize = n
		}
	}
}

func WithModelProgress(f ProgressFunc) Option {
	return func(e *Engine) { e.modelProgress = f }
}

func WithBatchProgress(f BatchProgressFunc) Option {
	return func(e *Engine) { e.batchProgress = f }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:     zerolog.Nop(),
		batchSize:  BatchSize,
		batchDelay: DefaultBatchDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lexicon == nil {
		e.lexicon = DefaultLexicon()
	}
	e.match = compile(e.lexicon)
	e.logger = e.logger.With().Str("component", "affection").Logger()
	return e
}

// Lexicon returns the vocabulary the engine scores with.
func (e *Engine) Lexicon() *Lexicon { return e.lexicon }

type labeled struct {
	author string
	label  Label
}

// Analyze scores every participant of m and appends sentiment and keyword findings to rec.
// Classifier failures degrade to lexical scoring and never surface as errors.
func (e *Engine) Analyze(ctx context.Context, msgs []chatlog.Message, m *metrics.Metrics, rec *flags.Flags) Result {
	res := Result{Index: Index{}, Sentiment: SentimentSummary{ByAuthor: map[string]LabelCounts{}}}
	if m == nil || len(msgs) == 0 || len(m.Global.Participants) == 0 {
		return res
	}
	if rec == nil {
		rec = &flags.Flags{}
	}
	for _, p := range m.Global.Participants {
		res.Index[p] = &Entry{}
	}

	eligible, affectionTotal := e.scoreLexical(msgs, res.Index)
	res.Sentiment.Eligible = len(eligible)

	results := e.classify(ctx, eligible, rec)
	for _, r := range results {
		entry := res.Index[r.author]
		entry.AnalyzedCountIA++
		if r.label == LabelPositive {
			entry.PositiveLabelCount++
		}
		counts := res.Sentiment.ByAuthor[r.author]
		counts.add(r.label)
		res.Sentiment.ByAuthor[r.author] = counts
		res.Sentiment.Overall.add(r.label)
	}
	res.Sentiment.Analyzed = len(results)
	res.AIPerformed = len(results) > 0
	if res.AIPerformed {
		total := float64(len(results))
		res.Sentiment.PositivePct = float64(res.Sentiment.Overall.Positive) / total * 100
		res.Sentiment.NegativePct = float64(res.Sentiment.Overall.Negative) / total * 100
		res.Sentiment.NeutralPct = 100 - res.Sentiment.PositivePct - res.Sentiment.NegativePct
	}

	if res.AIPerformed && len(results) > minResultsForTone {
		recordTone(res.Sentiment, rec)
		recordDivergence(m.Global.Participants, res, rec)
	}

	for _, p := range m.Global.Participants {
		entry := res.Index[p]
		entry.Score += float64(entry.PositiveLabelCount) * PositiveSentimentWeight
		n := m.Participant(p).MessageCount
		if n > 0 {
			entry.Normalized = round2(math.Min(entry.Score/float64(n)*10, NormalizedCap))
		} else {
			entry.Normalized = 0
		}
	}

	e.recordKeywords(msgs, affectionTotal, rec)
	return res
}

// scoreLexical applies keyword and emoji weights and returns the messages eligible for
// classification together with the total affection keyword matches.
func (e *Engine) scoreLexical(msgs []chatlog.Message, idx Index) ([]chatlog.Message, int) {
	var eligible []chatlog.Message
	total := 0
	for _, msg := range msgs {
		entry, ok := idx[msg.Author]
		if !ok || msg.Content == "" {
			continue
		}
		kw := e.match.affectionMatches(strings.ToLower(msg.Content))
		entry.KeywordCount += kw
		entry.Score += float64(kw)*KeywordWeight + float64(e.match.positiveEmojis(msg.Content))*PositiveEmojiWeight
		total += kw

		if aiEligible(msg.Content) {
			eligible = append(eligible, msg)
		}
	}
	return eligible, total
}

// aiEligible measures length in UTF-16 code units, so an emoji outside the BMP counts twice.
func aiEligible(content string) bool {
	trimmed := strings.TrimSpace(content)
	if utf16Len(trimmed) < MinMessageLengthForAI {
		return false
	}
	return !strings.HasPrefix(trimmed, "<Media omitted>") &&
		!strings.HasPrefix(trimmed, "<Multimedia omitido>") &&
		!strings.Contains(trimmed, " omitido") &&
		!strings.Contains(trimmed, " omitted>")
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if utf16.RuneLen(r) == 2 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// classify obtains the classifier and labels eligible messages batch by batch.
func (e *Engine) classify(ctx context.Context, eligible []chatlog.Message, rec *flags.Flags) []labeled {
	if len(eligible) == 0 {
		return nil
	}
	var clf Classifier
	if e.handle != nil {
		c, err := e.handle.Get(ctx, e.modelProgress)
		switch {
		case err == nil:
			clf = c
		case ctx.Err() != nil:
			e.logger.Debug().Err(err).Msg("classifier wait cancelled")
		default:
			e.logger.Warn().Err(err).Msg("classifier load failed, continuing with lexical analysis")
			rec.Record(flags.Attention, flags.AILoadFailed, nil)
		}
	}
	if clf == nil {
		rec.Record(flags.Attention, flags.AISkipped, nil)
		return nil
	}

	results := make([]labeled, 0, len(eligible))
	total := len(eligible)
	for start := 0; start < total; start += e.batchSize {
		if ctx.Err() != nil {
			e.logger.Debug().Int("processed", start).Int("total", total).Msg("classification cancelled")
			break
		}
		end := min(start+e.batchSize, total)
		batch := eligible[start:end]
		texts := make([]string, len(batch))
		for i, msg := range batch {
			texts[i] = msg.Content
		}

		out, err := clf.Classify(ctx, texts)
		if err == nil && len(out) != len(batch) {
			err = fmt.Errorf("classifier returned %d results for %d texts", len(out), len(batch))
		}
		if err != nil {
			e.logger.Warn().Err(err).Int("batch", start/e.batchSize+1).Msg("classification batch failed")
		} else {
			for i, c := range out {
				if !c.Label.Valid() {
					e.logger.Debug().Str("label", string(c.Label)).Msg("unknown label dropped")
					continue
				}
				results = append(results, labeled{author: batch[i].Author, label: c.Label})
			}
		}

		if e.batchProgress != nil {
			e.batchProgress(end, total)
		}
		if len(batch) == e.batchSize && e.batchDelay > 0 {
			if err := sleep(ctx, e.batchDelay); err != nil {
				break
			}
		}
	}
	return results
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func recordTone(s SentimentSummary, rec *flags.Flags) {
	pos, neg, neu := s.PositivePct, s.NegativePct, s.NeutralPct
	params := flags.Params{
		flags.KeyPositive: roundInt(pos),
		flags.KeyNegative: roundInt(neg),
		flags.KeyNeutral:  roundInt(neu),
	}
	switch {
	case pos > 60:
		rec.Record(flags.Positive, flags.ToneVeryPositive, params)
	case pos > neg && pos > 40:
		rec.Record(flags.Positive, flags.ToneMostlyPositive, params)
	case neg > pos && neg > 40:
		rec.Record(flags.Attention, flags.ToneVeryNegative, params)
	case neg > 25:
		rec.Record(flags.Attention, flags.ToneMostlyNegative, params)
	case neu > 50 && pos >= 10:
		params[flags.KeyWithNotes] = true
		rec.Record(flags.Positive, flags.ToneNeutral, params)
	case neu > 60:
		rec.Record(flags.Positive, flags.ToneNeutral, params)
	}
}

func recordDivergence(participants []string, res Result, rec *flags.Flags) {
	if len(participants) != 2 {
		return
	}
	p1, p2 := participants[0], participants[1]
	n1, n2 := res.Index.Get(p1).AnalyzedCountIA, res.Index.Get(p2).AnalyzedCountIA
	if n1 <= minAnalyzedPerAuthor || n2 <= minAnalyzedPerAuthor {
		return
	}
	c1, c2 := res.Sentiment.ByAuthor[p1], res.Sentiment.ByAuthor[p2]
	neg1 := float64(c1.Negative) / float64(n1) * 100
	neg2 := float64(c2.Negative) / float64(n2) * 100
	pos1 := float64(c1.Positive) / float64(n1) * 100
	pos2 := float64(c2.Positive) / float64(n2) * 100

	divergence := func(topic flags.Topic, cat flags.Category, a, b string, va, vb float64) {
		rec.Record(cat, topic, flags.Params{
			flags.KeyFirst:     a,
			flags.KeySecond:    b,
			flags.KeyFirstPct:  roundInt(va),
			flags.KeySecondPct: roundInt(vb),
		})
	}

	switch {
	case neg1 > neg2*negativeDivergence && neg1 > minNegativeDivergence:
		divergence(flags.MoreNegativeAuthor, flags.Attention, p1, p2, neg1, neg2)
	case neg2 > neg1*negativeDivergence && neg2 > minNegativeDivergence:
		divergence(flags.MoreNegativeAuthor, flags.Attention, p2, p1, neg2, neg1)
	}
	if rec.Has(flags.Attention, flags.MoreNegativeAuthor) {
		return
	}
	switch {
	case pos1 > pos2*positiveDivergence && pos1 > minPositiveDivergence:
		divergence(flags.MorePositiveAuthor, flags.Positive, p1, p2, pos1, pos2)
	case pos2 > pos1*positiveDivergence && pos2 > minPositiveDivergence:
		divergence(flags.MorePositiveAuthor, flags.Positive, p2, p1, pos2, pos1)
	}
}

func (e *Engine) recordKeywords(msgs []chatlog.Message, affectionTotal int, rec *flags.Flags) {
	green, red := 0, 0
	for _, msg := range msgs {
		lower := strings.ToLower(msg.Content)
		green += countPresent(lower, e.match.green)
		red += countPresent(lower, e.match.red)
	}
	threshold := KeywordThreshold(len(msgs))
	if green > threshold {
		rec.Record(flags.Positive, flags.PoliteKeywords, flags.Params{flags.KeyCount: green})
	}
	if red > threshold {
		rec.Record(flags.Attention, flags.ConflictKeywords, flags.Params{flags.KeyCount: red})
	}
	if affectionTotal > threshold && !rec.Has(flags.Positive, flags.AffectionKeywords) {
		rec.Record(flags.Positive, flags.AffectionKeywords, flags.Params{flags.KeyCount: affectionTotal})
	}
}

// KeywordThreshold is the count a keyword family must exceed to be reported.
func KeywordThreshold(totalMessages int) int {
	return max(minKeywordThreshold, roundInt(float64(totalMessages)*0.01))
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
