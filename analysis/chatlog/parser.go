package chatlog

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is one participant message recovered from an export.
type Message struct {
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SourceLine int       `json:"line,omitempty"`
}

// ParseStats are diagnostic counters. FailedLines is approximate by nature.
type ParseStats struct {
	TotalLines    int `json:"totalLines"`
	ValidMessages int `json:"validMessages"`
	FailedLines   int `json:"failedLines"`
}

type ParsedChat struct {
	Messages []Message  `json:"messages"`
	Stats    ParseStats `json:"parseStats"`
}

type Parser struct {
	grammars []Grammar
	system   *SystemMatcher
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Parser)

// WithGrammars replaces the grammar list. Order is significant: first match wins.
func WithGrammars(g ...Grammar) Option {
	return func(p *Parser) { p.grammars = append([]Grammar(nil), g...) }
}

func WithSystemIndicators(indicators []string) Option {
	return func(p *Parser) { p.system = NewSystemMatcher(indicators) }
}

// WithClock sets the clock used for the upper bound on plausible years.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(p *Parser) { p.log = log }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		grammars: DefaultGrammars(),
		system:   defaultMatcher,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("component", "chatlog").Logger()
	return p
}

// Parse converts export text into messages. It never fails; unusable lines are counted.
func (p *Parser) Parse(text string) ParsedChat {
	lines := strings.Split(text, "\n")
	now := p.now()

	var (
		msgs   []Message
		failed int
	)
	for i, raw := range lines {
		line := stripBidiMark(trimSpace(raw))
		if line == "" {
			continue
		}

		msg, matched, system := p.classify(line, now)
		switch {
		case matched && !system:
			msg.SourceLine = i + 1
			msgs = append(msgs, msg)
		case matched:
			// platform event, dropped
		case len(msgs) > 0:
			if p.system.Contains(line) {
				failed++
				continue
			}
			last := &msgs[len(msgs)-1]
			last.Content += "\n" + line
		default:
			if !p.system.Contains(line) {
				failed++
			}
		}
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if trimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}

	stats := ParseStats{
		TotalLines:    len(lines),
		ValidMessages: len(out),
		FailedLines:   failed,
	}
	p.log.Debug().
		Int("total_lines", stats.TotalLines).
		Int("valid_messages", stats.ValidMessages).
		Int("failed_lines", stats.FailedLines).
		Msg("parsed chat export")

	return ParsedChat{Messages: out, Stats: stats}
}

// classify runs the grammars over one line. matched is true when a grammar captured a non-blank author
// and its timestamp resolved; system is true when that line is a platform event.
func (p *Parser) classify(line string, now time.Time) (msg Message, matched, system bool) {
	for _, g := range p.grammars {
		c, ok := g.Match(line)
		if !ok {
			continue
		}
		author := trimSpace(c.Author)
		if author == "" {
			continue
		}
		ts, ok := parseTimestampAt(c.Date, c.Clock, c.AMPM, now)
		if !ok {
			continue
		}
		if p.system.IsSystemLine(author, c.Body) {
			return Message{}, true, true
		}
		return Message{
			Author:    author,
			Content:   trimSpace(c.Body),
			Timestamp: ts,
		}, true, false
	}
	return Message{}, false, false
}

// Parse uses a parser with the built-in grammars and indicators.
func Parse(text string) ParsedChat {
	return NewParser().Parse(text)
}
