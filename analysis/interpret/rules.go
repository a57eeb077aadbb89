// Package interpret turns metrics and findings into report points and a narrative summary.
package interpret

import (
	"math"

	"github.com/theimaginaryfoundation/chatlens/analysis/flags"
	"github.com/theimaginaryfoundation/chatlens/analysis/metrics"
)

const (
	moderateParticipationThreshold = 10
	minStartsForBalance            = 5
	minResponseSamples             = 5
	minMessagesForReciprocity      = 20
	frequentUnilateral             = 4
	veryFrequentUnilateral         = 8
)

// MetricFlags records the participation, length, starter, reciprocity, response-time and
// unilateral-burst findings derived from m.
func MetricFlags(m *metrics.Metrics, rec *flags.Flags) {
	if m == nil || rec == nil || len(m.Global.Participants) == 0 {
		return
	}
	if len(m.Global.Participants) == 2 {
		pairFlags(m, rec)
	}
	for _, author := range m.Global.Participants {
		p := m.Participant(author)
		rt := p.AvgResponseTime
		if rt.Count > minResponseSamples {
			params := flags.Params{flags.KeyAuthor: author, flags.KeyMinutes: roundInt(rt.AverageMinutes)}
			switch {
			case rt.AverageMinutes > flags.SlowResponseMinutes:
				rec.Record(flags.Attention, flags.SlowResponse, params)
			case rt.AverageMinutes < flags.FastResponseMinutes:
				rec.Record(flags.Positive, flags.FastResponse, params)
			}
		}
		if n := p.UnilateralSegments; n > 0 {
			rec.Record(flags.Attention, flags.DelayedResponse, flags.Params{
				flags.KeySeverity: unilateralSeverity(n),
				flags.KeyCount:    n,
				flags.KeyAuthor:   author,
			})
		}
	}
}

func pairFlags(m *metrics.Metrics, rec *flags.Flags) {
	p1, p2 := m.Global.Participants[0], m.Global.Participants[1]
	a, b := m.Participant(p1), m.Participant(p2)

	if total := m.Global.TotalMessageCount; total > 0 {
		pct1 := float64(a.MessageCount) / float64(total) * 100
		pct2 := float64(b.MessageCount) / float64(total) * 100
		params := flags.Params{
			flags.KeyFirst:     p1,
			flags.KeySecond:    p2,
			flags.KeyFirstPct:  roundInt(pct1),
			flags.KeySecondPct: roundInt(pct2),
		}
		switch diff := math.Abs(pct1 - 50); {
		case diff > flags.ParticipationVeryThreshold:
			params[flags.KeySeverity] = flags.SeverityVery
			rec.Record(flags.Attention, flags.UnequalMessages, params)
		case diff > moderateParticipationThreshold:
			params[flags.KeySeverity] = flags.SeverityModerate
			rec.Record(flags.Attention, flags.UnequalMessages, params)
		default:
			rec.Record(flags.Positive, flags.BalancedMessages, params)
		}
	}

	if avg1, avg2 := a.AvgWordsPerMessage, b.AvgWordsPerMessage; avg1 > 0 && avg2 > 0 {
		ratio := math.Max(avg1/avg2, avg2/avg1)
		if ratio > flags.LengthRatioThreshold {
			longer, shorter := p1, p2
			if avg2 > avg1 {
				longer, shorter = p2, p1
			}
			rec.Record(flags.Attention, flags.UnequalLength, flags.Params{
				flags.KeyFirst:     longer,
				flags.KeySecond:    shorter,
				flags.KeyFirstAvg:  math.Max(avg1, avg2),
				flags.KeySecondAvg: math.Min(avg1, avg2),
			})
		} else {
			rec.Record(flags.Positive, flags.BalancedLength, flags.Params{
				flags.KeyFirst:     p1,
				flags.KeySecond:    p2,
				flags.KeyFirstAvg:  avg1,
				flags.KeySecondAvg: avg2,
			})
		}
	}

	s1, s2 := a.ConversationStarters, b.ConversationStarters
	if total := s1 + s2; total > minStartsForBalance {
		pct1 := float64(s1) / float64(total) * 100
		if math.Abs(pct1-50) > flags.StarterThreshold {
			initiator, other := p1, p2
			if pct1 <= 50 {
				initiator, other = p2, p1
			}
			higher := roundInt(math.Max(pct1, 100-pct1))
			rec.Record(flags.Attention, flags.UnequalStarts, flags.Params{
				flags.KeyFirst:     initiator,
				flags.KeySecond:    other,
				flags.KeyFirstPct:  higher,
				flags.KeySecondPct: 100 - higher,
			})
		} else {
			rec.Record(flags.Positive, flags.BalancedStarts, flags.Params{
				flags.KeyFirst:   p1,
				flags.KeySecond:  p2,
				flags.KeyFirstN:  s1,
				flags.KeySecondN: s2,
			})
		}
	}

	if m.Global.TotalMessageCount >= minMessagesForReciprocity &&
		a.MessageCount > 0 && b.MessageCount > 0 &&
		a.UnilateralSegments == 0 && b.UnilateralSegments == 0 {
		rec.Record(flags.Positive, flags.Reciprocal, flags.Params{flags.KeyFirst: p1, flags.KeySecond: p2})
	}
}

func unilateralSeverity(n int) string {
	switch {
	case n >= veryFrequentUnilateral:
		return flags.SeverityVery
	case n >= frequentUnilateral:
		return flags.SeverityFrequent
	}
	return flags.SeverityOccasional
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
