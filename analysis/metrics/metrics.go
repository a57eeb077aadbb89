package metrics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/chatlens/analysis/chatlog"
)

const (
	ConversationGap    = 90 * time.Minute
	MinResponseGap     = time.Second
	MaxResponseGap     = 6 * time.Hour
	UnilateralMinRun   = 3
	UnilateralReplyGap = 2 * time.Hour
)

type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// TimeSeries holds per-day counts. Labels and Data are parallel and ascending by date.
type TimeSeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

type Global struct {
	Participants       []string   `json:"participants"`
	TotalMessageCount  int        `json:"totalMessageCount"`
	DateRange          DateRange  `json:"dateRange"`
	TimeSeries         TimeSeries `json:"timeSeries"`
	MediaMessagesCount int        `json:"mediaMessagesCount"`
}

// ResponseTime reports the median reply delay. The JSON name is kept for consumers
// of the report format; the value has always been a median.
type ResponseTime struct {
	Count          int     `json:"count"`
	AverageMinutes float64 `json:"averageMinutes"`
}

type Participant struct {
	MessageCount         int            `json:"messageCount"`
	WordCount            int            `json:"wordCount"`
	AvgWordsPerMessage   float64        `json:"avgWordsPerMessage"`
	ConversationStarters int            `json:"conversationStarters"`
	AvgResponseTime      ResponseTime   `json:"avgResponseTime"`
	UnilateralSegments   int            `json:"unilateralSegments"`
	EmojiCounts          map[string]int `json:"emojiCounts"`
}

type Metrics struct {
	Global       Global                  `json:"global"`
	Participants map[string]*Participant `json:"participants"`
	Activity     Activity                `json:"activity"`
	Sessions     []Session               `json:"sessions"`
}

// Participant returns the metrics for author, or a zero value when unknown.
func (m *Metrics) Participant(author string) Participant {
	if m == nil {
		return Participant{}
	}
	if p, ok := m.Participants[author]; ok && p != nil {
		return *p
	}
	return Participant{}
}

// IsMedia reports whether content is a media placeholder.
func IsMedia(content string) bool {
	return strings.HasPrefix(content, "<Media omitted>") ||
		strings.HasPrefix(content, "<Multimedia omitido>") ||
		strings.Contains(content, "omitido") ||
		strings.Contains(content, "omitted>")
}

type segment struct {
	author string
	count  int
	end    time.Time
}

// Calculate computes global and per-participant statistics. msgs must be in chronological
// order. An empty slice yields a zero-valued result, not an error.
func Calculate(msgs []chatlog.Message) *Metrics {
	m := &Metrics{
		Global: Global{
			Participants: []string{},
			TimeSeries:   TimeSeries{Labels: []string{}, Data: []int{}},
		},
		Participants: map[string]*Participant{},
		Activity:     newActivity(),
		Sessions:     []Session{},
	}
	if len(msgs) == 0 {
		return m
	}

	samples := map[string][]time.Duration{}
	perDay := map[string]int{}
	sessions := newSessionBuilder()
	var cur segment

	for i, msg := range msgs {
		p, ok := m.Participants[msg.Author]
		if !ok {
			p = &Participant{EmojiCounts: map[string]int{}}
			m.Participants[msg.Author] = p
			m.Global.Participants = append(m.Global.Participants, msg.Author)
		}
		ts := msg.Timestamp

		m.Global.TotalMessageCount++
		if m.Global.DateRange.Start == nil || ts.Before(*m.Global.DateRange.Start) {
			start := ts
			m.Global.DateRange.Start = &start
		}
		if m.Global.DateRange.End == nil || ts.After(*m.Global.DateRange.End) {
			end := ts
			m.Global.DateRange.End = &end
		}

		p.MessageCount++
		if IsMedia(msg.Content) {
			m.Global.MediaMessagesCount++
		} else {
			p.WordCount += len(strings.Fields(msg.Content))
			for _, e := range Emojis(msg.Content) {
				p.EmojiCounts[e]++
			}
		}

		perDay[ts.UTC().Format(time.DateOnly)]++
		m.Activity.add(ts)

		var prev *chatlog.Message
		if i > 0 {
			prev = &msgs[i-1]
		}

		newConversation := prev == nil || ts.Sub(prev.Timestamp) > ConversationGap
		if newConversation {
			p.ConversationStarters++
		}
		sessions.add(msg, newConversation)

		if prev != nil && prev.Author != msg.Author {
			gap := ts.Sub(prev.Timestamp)
			if gap > MinResponseGap && gap < MaxResponseGap {
				samples[msg.Author] = append(samples[msg.Author], gap)
			}
		}

		if prev == nil || prev.Author != msg.Author {
			if cur.author != "" && cur.count >= UnilateralMinRun && ts.Sub(cur.end) >= UnilateralReplyGap {
				m.Participants[cur.author].UnilateralSegments++
			}
			cur = segment{author: msg.Author, count: 1, end: ts}
		} else {
			cur.count++
			cur.end = ts
		}
	}

	for _, name := range m.Global.Participants {
		p := m.Participants[name]
		if p.MessageCount > 0 && p.WordCount > 0 {
			p.AvgWordsPerMessage = round2(float64(p.WordCount) / float64(p.MessageCount))
		}
		if s := samples[name]; len(s) > 0 {
			p.AvgResponseTime = ResponseTime{
				Count:          len(s),
				AverageMinutes: round2(median(s).Minutes()),
			}
		}
	}

	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		m.Global.TimeSeries.Labels = append(m.Global.TimeSeries.Labels, d)
		m.Global.TimeSeries.Data = append(m.Global.TimeSeries.Data, perDay[d])
	}

	m.Activity.finish()
	m.Sessions = sessions.finish()
	return m
}

func median(samples []time.Duration) time.Duration {
	s := append([]time.Duration(nil), samples...)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	mid := len(s) / 2
	if len(s)%2 != 0 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
