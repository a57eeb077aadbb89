package flags

import "fmt"

// Param keys shared by the rules and the renderer.
const (
	KeyFirst     = "first"
	KeySecond    = "second"
	KeyFirstPct  = "firstPct"
	KeySecondPct = "secondPct"
	KeyFirstAvg  = "firstAvg"
	KeySecondAvg = "secondAvg"
	KeyFirstN    = "firstCount"
	KeySecondN   = "secondCount"
	KeyAuthor    = "author"
	KeyMinutes   = "minutes"
	KeyCount     = "count"
	KeySeverity  = "severity"
	KeyPositive  = "pos"
	KeyNegative  = "neg"
	KeyNeutral   = "neu"
	KeyWithNotes = "withPositiveNotes"
)

// Severity values for participation and unilateral findings.
const (
	SeverityVery       = "very"
	SeverityModerate   = "moderate"
	SeverityOccasional = "occasional"
	SeverityFrequent   = "frequent"
)

// Thresholds quoted in rendered sentences.
const (
	ParticipationVeryThreshold = 25
	LengthRatioThreshold       = 1.8
	StarterThreshold           = 15
	SlowResponseMinutes        = 90
	FastResponseMinutes        = 10
	UnilateralMinRun           = 3
	UnilateralReplyHours       = 2
)

var renderers = map[Topic]func(Params) string{
	UnequalMessages: func(p Params) string {
		if p.stringOf(KeySeverity) == SeverityVery {
			return fmt.Sprintf("Message participation very unequal: %s (%d%%) vs %s (%d%%) differs more than %d%% from 50/50.",
				p.stringOf(KeyFirst), p.intOf(KeyFirstPct), p.stringOf(KeySecond), p.intOf(KeySecondPct), ParticipationVeryThreshold)
		}
		return fmt.Sprintf("Message participation moderately unequal (%s: %d%%, %s: %d%%).",
			p.stringOf(KeyFirst), p.intOf(KeyFirstPct), p.stringOf(KeySecond), p.intOf(KeySecondPct))
	},
	BalancedMessages: func(p Params) string {
		return fmt.Sprintf("Message participation relatively balanced (%s: %d%%, %s: %d%%).",
			p.stringOf(KeyFirst), p.intOf(KeyFirstPct), p.stringOf(KeySecond), p.intOf(KeySecondPct))
	},
	UnequalLength: func(p Params) string {
		return fmt.Sprintf("Avg. message length unequal: %s (%.1f words) vs %s (%.1f words), ratio > %.1f.",
			p.stringOf(KeyFirst), p.floatOf(KeyFirstAvg), p.stringOf(KeySecond), p.floatOf(KeySecondAvg), LengthRatioThreshold)
	},
	BalancedLength: func(p Params) string {
		return fmt.Sprintf("Avg. message length similar between %s (%.1f words) and %s (%.1f words).",
			p.stringOf(KeyFirst), p.floatOf(KeyFirstAvg), p.stringOf(KeySecond), p.floatOf(KeySecondAvg))
	},
	UnequalStarts: func(p Params) string {
		return fmt.Sprintf("%s initiates most (%d%%) of conversations (vs %s: %d%%), differs > %d%% from 50/50.",
			p.stringOf(KeyFirst), p.intOf(KeyFirstPct), p.stringOf(KeySecond), p.intOf(KeySecondPct), StarterThreshold)
	},
	BalancedStarts: func(p Params) string {
		return fmt.Sprintf("Conversation starting relatively balanced (%s: %d starts, %s: %d starts).",
			p.stringOf(KeyFirst), p.intOf(KeyFirstN), p.stringOf(KeySecond), p.intOf(KeySecondN))
	},
	SlowResponse: func(p Params) string {
		return fmt.Sprintf("Median response time for %s is long (~%d min), exceeding %d min.",
			p.stringOf(KeyAuthor), p.intOf(KeyMinutes), SlowResponseMinutes)
	},
	FastResponse: func(p Params) string {
		return fmt.Sprintf("Median response time for %s is fast (~%d min), below %d min.",
			p.stringOf(KeyAuthor), p.intOf(KeyMinutes), FastResponseMinutes)
	},
	DelayedResponse: func(p Params) string {
		freq := "occasional"
		switch p.stringOf(KeySeverity) {
		case SeverityVery:
			freq = "VERY frequent"
		case SeverityFrequent:
			freq = "frequent"
		}
		return fmt.Sprintf("%s episodes (%d) where %s sent %d+ messages and the reply took >%dh.",
			freq, p.intOf(KeyCount), p.stringOf(KeyAuthor), UnilateralMinRun, UnilateralReplyHours)
	},
	Reciprocal: func(p Params) string {
		return fmt.Sprintf("Communication appears reciprocal: neither %s nor %s left bursts of messages unanswered for >%dh.",
			p.stringOf(KeyFirst), p.stringOf(KeySecond), UnilateralReplyHours)
	},
	ToneVeryPositive: func(p Params) string {
		return fmt.Sprintf("Overall tone (AI): Predominantly positive (~%d%% Pos vs ~%d%% Neg), a favorable sign.",
			p.intOf(KeyPositive), p.intOf(KeyNegative))
	},
	ToneMostlyPositive: func(p Params) string {
		return fmt.Sprintf("Overall tone (AI): Mostly positive (~%d%% Pos vs ~%d%% Neg).", p.intOf(KeyPositive), p.intOf(KeyNegative))
	},
	ToneVeryNegative: func(p Params) string {
		return fmt.Sprintf("Overall tone (AI): Notable negative presence (~%d%% Neg vs ~%d%% Pos), suggests reflection.",
			p.intOf(KeyNegative), p.intOf(KeyPositive))
	},
	ToneMostlyNegative: func(p Params) string {
		return fmt.Sprintf("Overall tone (AI): Significant presence of negativity (~%d%% Neg vs ~%d%% Pos).",
			p.intOf(KeyNegative), p.intOf(KeyPositive))
	},
	ToneNeutral: func(p Params) string {
		if p.boolOf(KeyWithNotes) {
			return fmt.Sprintf("Overall tone (AI): Mostly neutral (~%d%% Neu) with some positive notes.", p.intOf(KeyNeutral))
		}
		return fmt.Sprintf("Overall tone (AI): Mostly neutral (~%d%% Neu).", p.intOf(KeyNeutral))
	},
	MoreNegativeAuthor: func(p Params) string {
		return fmt.Sprintf("%s tends to more negativity (AI) than %s (~%d%% vs ~%d%%).",
			p.stringOf(KeyFirst), p.stringOf(KeySecond), p.intOf(KeyFirstPct), p.intOf(KeySecondPct))
	},
	MorePositiveAuthor: func(p Params) string {
		return fmt.Sprintf("%s tends to more positivity (AI) than %s (~%d%% vs ~%d%%).",
			p.stringOf(KeyFirst), p.stringOf(KeySecond), p.intOf(KeyFirstPct), p.intOf(KeySecondPct))
	},
	PoliteKeywords: func(p Params) string {
		return fmt.Sprintf("Frequent use (%d instances) of words/emojis for general positivity or politeness.", p.intOf(KeyCount))
	},
	ConflictKeywords: func(p Params) string {
		return fmt.Sprintf("Frequent use (%d instances) of words/emojis for negativity or conflict.", p.intOf(KeyCount))
	},
	AffectionKeywords: func(p Params) string {
		return fmt.Sprintf("Frequent use (%d instances) of words/emojis for explicit affection.", p.intOf(KeyCount))
	},
	AILoadFailed: func(Params) string {
		return "AI sentiment analysis could not be performed: model loading error."
	},
	AISkipped: func(Params) string {
		return "AI sentiment analysis skipped: AI model not loaded."
	},
}

// Render produces the sentence for a topic. Unknown topics render as the topic name.
func Render(topic Topic, params Params) string {
	if r, ok := renderers[topic]; ok {
		return r(params)
	}
	return string(topic)
}
