package interpret

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

const (
	summaryTitle = "<strong>Detailed Interpretation:</strong>"

	groupParagraph = "<p><strong>Balance & Affection:</strong> Detailed balance and affection comparison " +
		"primarily applies to 2-person chats. For groups, consider individual participation and overall tone.</p>"

	noParticipantsParagraph = "<p><strong>Balance & Affection:</strong> No participant data found for detailed comparison.</p>"

	notEnoughPatterns = "<p>Not enough specific patterns were detected to generate a detailed interpretation " +
		"summary. Please review the general metrics.</p>"

	reviewPoints = "<p>Review the observed positive patterns and points for reflection for insights.</p>"

	lowAffection = 0.5
)

// Details is the display-ready interpretation of an analysis.
type Details struct {
	PositivePoints  []string `json:"positivePoints"`
	AttentionPoints []string `json:"attentionPoints"`
	Summary         string   `json:"summary"`
	Keys            []string `json:"keys"`
}

// Interpret cleans the recorded findings and composes the narrative summary.
func Interpret(m *metrics.Metrics, idx affection.Index, rec *flags.Flags) Details {
	cleaned := flags.Clean(rec)
	keys := cleaned.Keys

	var participants []string
	if m != nil {
		participants = m.Global.Participants
	}

	var sections []string
	switch n := len(participants); {
	case n == 0:
		sections = append(sections, noParticipantsParagraph)
	case n <= 2:
		if s := balanceProfile(keys); s != "" {
			sections = append(sections, s)
		}
		if s := affectionProfile(idx, participants, keys); s != "" {
			sections = append(sections, s)
		}
	default:
		sections = append(sections, groupParagraph)
	}
	if s := toneProfile(keys, aiRan(idx)); s != "" {
		sections = append(sections, s)
	}
	if s := flowProfile(m, keys); s != "" {
		sections = append(sections, s)
	}

	d := Details{
		PositivePoints:  cleaned.PositivePoints,
		AttentionPoints: cleaned.AttentionPoints,
		Keys:            keys.Topics(),
	}
	switch {
	case len(sections) == 0 && len(d.PositivePoints) == 0 && len(d.AttentionPoints) == 0:
		d.Summary = notEnoughPatterns
	case len(sections) == 0:
		d.Summary = reviewPoints
	default:
		var b strings.Builder
		b.WriteString(summaryTitle)
		b.WriteString("<br>")
		for _, s := range sections {
			if strings.HasPrefix(s, "<p>") {
				b.WriteString(s)
			} else {
				b.WriteString("<p>" + s + "</p>")
			}
		}
		d.Summary = b.String()
	}
	return d
}

func balanceProfile(keys flags.KeySet) string {
	var findings []string
	switch {
	case keys.Has(flags.BalancedMessages):
		findings = append(findings, "message quantity appears balanced")
	case keys.Has(flags.UnequalMessages):
		findings = append(findings, "imbalance in message quantity is observed")
	}
	switch {
	case keys.Has(flags.BalancedLength):
		findings = append(findings, "average message length is similar")
	case keys.Has(flags.UnequalLength):
		findings = append(findings, "difference in average message length exists")
	}
	switch {
	case keys.Has(flags.BalancedStarts):
		findings = append(findings, "conversation starting is shared")
	case keys.Has(flags.UnequalStarts):
		findings = append(findings, "one participant initiates more conversations")
	}
	if len(findings) == 0 {
		return ""
	}
	return "<strong>Balance & Participation:</strong> " + joinSentence(findings, ", ")
}

func affectionProfile(idx affection.Index, participants []string, keys flags.KeySet) string {
	var findings []string
	if len(participants) == 2 {
		p1, p2 := participants[0], participants[1]
		a1, a2 := idx.Get(p1).Normalized, idx.Get(p2).Normalized
		total := a1 + a2
		diff := math.Abs(a1 - a2)
		switch {
		case total > 1 && diff > total*0.4 && diff > 1:
			higher := p1
			if a2 > a1 {
				higher = p2
			}
			findings = append(findings, fmt.Sprintf("a notable difference is observed (%s shows index %.1f vs %.1f)",
				higher, math.Max(a1, a2), math.Min(a1, a2)))
		case total >= 1:
			findings = append(findings, fmt.Sprintf("levels appear relatively similar (%s: %.1f, %s: %.1f)", p1, a1, p2, a2))
		}
	}
	if keys.Has(flags.AffectionKeywords) {
		findings = append(findings, "frequent use of explicit affectionate language detected")
	} else if allBelow(idx, lowAffection) {
		findings = append(findings, "explicit affection expression appears low or infrequent")
	}
	if len(findings) == 0 {
		return ""
	}
	return "<strong>Estimated Affection:</strong> " + joinSentence(findings, ". ")
}

// toneKeys is ordered by precedence.
var toneKeys = []flags.Topic{
	flags.ToneVeryPositive, flags.ToneMostlyPositive, flags.ToneVeryNegative,
	flags.ToneMostlyNegative, flags.ToneNeutral,
}

var toneOrKeywordKeys = append(append([]flags.Topic{}, toneKeys...), flags.PoliteKeywords, flags.ConflictKeywords)

var tonePhrases = map[flags.Topic]string{
	flags.ToneVeryPositive:   "predominantly positive",
	flags.ToneMostlyPositive: "mostly positive",
	flags.ToneVeryNegative:   "notable negative presence",
	flags.ToneMostlyNegative: "significant presence of negativity",
	flags.ToneNeutral:        "mostly neutral",
}

func toneProfile(keys flags.KeySet, aiPerformed bool) string {
	if !aiPerformed && !keys.Any(toneOrKeywordKeys...) {
		return ""
	}
	phrase := "no clear dominant tone detected by AI"
	for _, k := range toneKeys {
		if keys.Has(k) {
			phrase = tonePhrases[k]
			break
		}
	}
	text := capitalize(phrase)

	polite, conflict := keys.Has(flags.PoliteKeywords), keys.Has(flags.ConflictKeywords)
	switch {
	case polite && conflict:
		text += ". " + capitalize("frequent use of both positive/polite and negative/conflict words was noted")
	case polite:
		text += ". " + capitalize("frequent use of language associated with positivity/politeness was noted")
	case conflict:
		text += ". " + capitalize("frequent use of language associated with negativity/conflict was noted")
	}
	text += "."

	positiveTone := keys.Any(flags.ToneVeryPositive, flags.ToneMostlyPositive)
	negativeTone := keys.Any(flags.ToneVeryNegative, flags.ToneMostlyNegative)
	switch {
	case positiveTone && conflict:
		text += " (Note: Conflict-associated words observed despite a generally positive AI tone)."
	case negativeTone && polite:
		text += " (Note: Positive/polite words observed despite a generally negative AI tone)."
	}
	return "<strong>Overall Tone (AI-based):</strong> " + text
}

func flowProfile(m *metrics.Metrics, keys flags.KeySet) string {
	if m == nil {
		return ""
	}
	participants := m.Global.Participants
	sampled, slow, fast := false, 0, 0
	for _, p := range participants {
		rt := m.Participant(p).AvgResponseTime
		if rt.Count > 0 {
			sampled = true
		}
		if rt.AverageMinutes > flags.SlowResponseMinutes {
			slow++
		}
		if rt.AverageMinutes < flags.FastResponseMinutes && rt.Count > minResponseSamples {
			fast++
		}
	}
	if !sampled && !keys.Any(flags.Reciprocal, flags.DelayedResponse, flags.FastResponse, flags.SlowResponse) {
		return ""
	}

	var findings []string
	switch {
	case keys.Has(flags.Reciprocal):
		findings = append(findings, "communication appears quite reciprocal")
	case keys.Has(flags.DelayedResponse):
		findings = append(findings, "episodes of message bursts followed by delayed replies (>2h) were detected")
	}

	hasFast, hasSlow := keys.Has(flags.FastResponse), keys.Has(flags.SlowResponse)
	n := len(participants)
	switch {
	case hasFast && !hasSlow && n > 0 && fast == n:
		findings = append(findings, "response times tend to be fast for all")
	case hasSlow && !hasFast && n > 0 && slow == n:
		findings = append(findings, "median response times tend to be long for all")
	case hasFast || hasSlow:
		findings = append(findings, "response times vary among participants or situations")
	default:
		findings = append(findings, "response times are variable")
	}
	return "<strong>Communication Flow & Responsiveness:</strong> " + joinSentence(findings, " and ")
}

func aiRan(idx affection.Index) bool {
	for _, e := range idx {
		if e != nil && e.AnalyzedCountIA > 0 {
			return true
		}
	}
	return false
}

func allBelow(idx affection.Index, limit float64) bool {
	for _, e := range idx {
		if e != nil && e.Normalized >= limit {
			return false
		}
	}
	return true
}

// joinSentence joins parts, capitalizes the first and ends with a period.
func joinSentence(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := append([]string{capitalize(parts[0])}, parts[1:]...)
	return strings.Join(out, sep) + "."
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
