package chatlog

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Candidate is the raw capture of a message-starting line before timestamp resolution.
type Candidate struct {
	Date   string
	Clock  string
	AMPM   string
	Author string
	Body   string
}

// Grammar recognizes one export line format.
type Grammar interface {
	Name() string
	Match(line string) (Candidate, bool)
}

// RegexpGrammar matches lines with a pattern exposing the named groups
// date, time, author and message, plus an optional ampm group.
type RegexpGrammar struct {
	name string
	re   *regexp.Regexp

	date, clock, ampm, author, message int
}

// NewRegexpGrammar compiles pattern. Patterns are matched case-insensitively.
func NewRegexpGrammar(name, pattern string) (*RegexpGrammar, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("NewRegexpGrammar %s: %w", name, err)
	}
	g := &RegexpGrammar{
		name:    name,
		re:      re,
		date:    re.SubexpIndex("date"),
		clock:   re.SubexpIndex("time"),
		ampm:    re.SubexpIndex("ampm"),
		author:  re.SubexpIndex("author"),
		message: re.SubexpIndex("message"),
	}
	if g.date < 0 || g.clock < 0 || g.author < 0 || g.message < 0 {
		return nil, fmt.Errorf("NewRegexpGrammar %s: pattern needs date, time, author and message groups", name)
	}
	return g, nil
}

// MustRegexpGrammar is NewRegexpGrammar for patterns known at compile time.
func MustRegexpGrammar(name, pattern string) *RegexpGrammar {
	g, err := NewRegexpGrammar(name, pattern)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *RegexpGrammar) Name() string { return g.name }

func (g *RegexpGrammar) Match(line string) (Candidate, bool) {
	m := g.re.FindStringSubmatch(line)
	if m == nil {
		return Candidate{}, false
	}
	c := Candidate{
		Date:   m[g.date],
		Clock:  m[g.clock],
		Author: m[g.author],
		Body:   m[g.message],
	}
	if g.ampm >= 0 {
		c.AMPM = m[g.ampm]
	}
	return c, true
}

// Building blocks. ws also covers the no-break spaces mobile exports put around am/pm.
const (
	ws          = `[\s\p{Zs}]`
	slashDate   = `(?P<date>\d{1,2}/\d{1,2}/\d{2,4})`
	dotDate     = `(?P<date>\d{1,2}\.\d{1,2}\.\d{2,4})`
	hm          = `(?P<time>\d{1,2}:\d{2})`
	hms         = `(?P<time>\d{1,2}:\d{2}:\d{2})`
	dottedAM    = `(?P<ampm>[ap]\.` + ws + `?m\.)`
	authorGroup = `(?P<author>[^:]+)`
	bodyGroup   = `(?P<message>.*)`
)

var defaultGrammars = []Grammar{
	MustRegexpGrammar("bracketed-12h-seconds",
		`^\[`+slashDate+`,`+ws+`+`+hms+ws+`+`+dottedAM+`\]`+ws+`+`+authorGroup+`:`+ws+`+`+bodyGroup+`$`),
	MustRegexpGrammar("dash-24h",
		`^`+slashDate+`,?`+ws+`+`+hm+ws+`*-`+ws+`*`+authorGroup+`:`+ws+`*`+bodyGroup+`$`),
	MustRegexpGrammar("ios-narrow-nbsp",
		`^`+slashDate+`,`+ws+`+`+hm+"\u202f"+`(?P<ampm>[ap]m)`+ws+`+-`+ws+`+`+authorGroup+`:`+ws+`+`+bodyGroup+`$`),
	MustRegexpGrammar("dash-12h-dotted",
		`^`+slashDate+ws+`+`+hm+ws+`+`+dottedAM+ws+`+-`+ws+`+`+authorGroup+`:`+ws+`+`+bodyGroup+`$`),
	MustRegexpGrammar("bracketed-24h-seconds",
		`^\[(?P<date>\d{1,2}/\d{1,2}/\d{4}),`+ws+`+`+hms+`\]`+ws+`+`+authorGroup+`:`+ws+`+`+bodyGroup+`$`),
	MustRegexpGrammar("dotted-date-24h",
		`^`+dotDate+`,?`+ws+`+`+hm+ws+`*-`+ws+`*`+authorGroup+`:`+ws+`*`+bodyGroup+`$`),
}

// DefaultGrammars returns the built-in grammars, most specific first.
func DefaultGrammars() []Grammar {
	out := make([]Grammar, len(defaultGrammars))
	copy(out, defaultGrammars)
	return out
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Zs, r)
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}
