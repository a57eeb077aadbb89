// Package flags holds the structured observations produced by the analysis rules and the
// canonical cleanup that turns them into report points.
package flags

type Category string

const (
	Positive  Category = "positive"
	Attention Category = "attention"
)

// Topic is the canonical key of a finding. Findings that share a topic within a category
// are equivalent for reporting purposes.
type Topic string

const (
	BalancedMessages   Topic = "bal_msg"
	UnequalMessages    Topic = "imbal_msg"
	BalancedLength     Topic = "bal_len"
	UnequalLength      Topic = "imbal_len"
	BalancedStarts     Topic = "bal_start"
	UnequalStarts      Topic = "imbal_start"
	FastResponse       Topic = "resp_fast"
	SlowResponse       Topic = "resp_slow"
	Reciprocal         Topic = "reciprocal"
	DelayedResponse    Topic = "delayed_response"
	ToneVeryPositive   Topic = "tone_v_pos"
	ToneMostlyPositive Topic = "tone_m_pos"
	ToneNeutral        Topic = "tone_neu"
	ToneVeryNegative   Topic = "tone_v_neg"
	ToneMostlyNegative Topic = "tone_m_neg"
	MorePositiveAuthor Topic = "tone_p_more"
	MoreNegativeAuthor Topic = "tone_n_more"
	PoliteKeywords     Topic = "kw_pos"
	ConflictKeywords   Topic = "kw_neg"
	AffectionKeywords  Topic = "kw_aff"
	AILoadFailed       Topic = "ai_load_failed"
	AISkipped          Topic = "ai_skipped"
)

// Params carries the values a finding's sentence is rendered from.
type Params map[string]any

func (p Params) stringOf(k string) string {
	s, _ := p[k].(string)
	return s
}

func (p Params) intOf(k string) int {
	switch v := p[k].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (p Params) floatOf(k string) float64 {
	switch v := p[k].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (p Params) boolOf(k string) bool {
	b, _ := p[k].(bool)
	return b
}

// Finding is one observation. Topic is empty for free-text notes.
type Finding struct {
	Category Category `json:"category"`
	Topic    Topic    `json:"topic,omitempty"`
	Params   Params   `json:"params,omitempty"`
	Text     string   `json:"text"`
}

// Flags accumulates findings in insertion order. It is append-only.
type Flags struct {
	Positive  []Finding `json:"positive"`
	Attention []Finding `json:"attention"`
}

// Record appends a topic finding and renders its text.
func (f *Flags) Record(cat Category, topic Topic, params Params) {
	f.Add(Finding{Category: cat, Topic: topic, Params: params, Text: Render(topic, params)})
}

// Note appends a free-text finding.
func (f *Flags) Note(cat Category, text string) {
	f.Add(Finding{Category: cat, Text: text})
}

func (f *Flags) Add(fd Finding) {
	if fd.Text == "" && fd.Topic != "" {
		fd.Text = Render(fd.Topic, fd.Params)
	}
	switch fd.Category {
	case Positive:
		f.Positive = append(f.Positive, fd)
	default:
		fd.Category = Attention
		f.Attention = append(f.Attention, fd)
	}
}

// Has reports whether any finding in cat carries topic.
func (f *Flags) Has(cat Category, topic Topic) bool {
	list := f.Attention
	if cat == Positive {
		list = f.Positive
	}
	for _, fd := range list {
		if fd.Topic == topic {
			return true
		}
	}
	return false
}

// Strings is the plain-text view of the accumulator.
type Strings struct {
	Positive  []string `json:"positive"`
	Attention []string `json:"attention"`
}

func (f *Flags) Strings() Strings {
	out := Strings{
		Positive:  make([]string, 0, len(f.Positive)),
		Attention: make([]string, 0, len(f.Attention)),
	}
	for _, fd := range f.Positive {
		out.Positive = append(out.Positive, fd.Text)
	}
	for _, fd := range f.Attention {
		out.Attention = append(out.Attention, fd.Text)
	}
	return out
}
