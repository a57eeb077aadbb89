package affection

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon_es.yaml
var defaultLexiconYAML []byte

// Lexicon is the keyword and emoji vocabulary the lexical scoring runs on.
type Lexicon struct {
	AffectionKeywords []string `yaml:"affection_keywords" json:"affectionKeywords"`
	PositiveEmojis    []string `yaml:"positive_emojis"    json:"positiveEmojis"`
	GreenKeywords     []string `yaml:"green_keywords"     json:"greenKeywords"`
	RedKeywords       []string `yaml:"red_keywords"       json:"redKeywords"`
}

// DefaultLexicon returns a fresh copy of the embedded Spanish lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("affection: embedded lexicon: %v", err))
	}
	return lex
}

// DefaultLexiconYAML returns the embedded lexicon source.
func DefaultLexiconYAML() []byte {
	return append([]byte(nil), defaultLexiconYAML...)
}

// LoadLexicon reads a YAML lexicon from path.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadLexicon: %w", err)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return nil, fmt.Errorf("LoadLexicon: %s: %w", path, err)
	}
	return lex, nil
}

// ParseLexicon decodes a YAML lexicon. Entries are kept verbatim; blank ones are dropped.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("ParseLexicon: %w", err)
	}
	lex.AffectionKeywords = dropBlank(lex.AffectionKeywords)
	lex.PositiveEmojis = dropBlank(lex.PositiveEmojis)
	lex.GreenKeywords = dropBlank(lex.GreenKeywords)
	lex.RedKeywords = dropBlank(lex.RedKeywords)
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

func (l *Lexicon) Validate() error {
	if l == nil {
		return errors.New("lexicon is nil")
	}
	if len(l.AffectionKeywords)+len(l.PositiveEmojis)+len(l.GreenKeywords)+len(l.RedKeywords) == 0 {
		return errors.New("lexicon is empty")
	}
	return nil
}

func dropBlank(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// keyword is an affection keyword compiled for matching against lower-cased content.
type keyword struct {
	text    string
	bounded bool
}

type matcher struct {
	affection []keyword
	affectSet map[string]bool
	emojis    []string
	green     []string
	red       []string
}

func compile(l *Lexicon) *matcher {
	m := &matcher{affectSet: map[string]bool{}}
	for _, k := range l.AffectionKeywords {
		m.affectSet[k] = true
		m.affectSet[strings.TrimSpace(k)] = true
		lower := strings.ToLower(k)
		kw := keyword{text: lower}
		if utf8.RuneCountInString(lower) <= 3 || !hasAlnum(lower) {
			kw = keyword{text: strings.TrimSpace(lower), bounded: true}
		}
		m.affection = append(m.affection, kw)
	}
	for _, e := range l.PositiveEmojis {
		if !m.affectSet[strings.TrimSpace(e)] {
			m.emojis = append(m.emojis, e)
		}
	}
	for _, g := range l.GreenKeywords {
		if !m.affectSet[g] {
			m.green = append(m.green, strings.ToLower(g))
		}
	}
	for _, r := range l.RedKeywords {
		m.red = append(m.red, strings.ToLower(r))
	}
	return m
}

// affectionMatches counts the distinct affection keywords present in lower.
func (m *matcher) affectionMatches(lower string) int {
	n := 0
	for _, kw := range m.affection {
		if kw.bounded {
			if containsBounded(lower, kw.text) {
				n++
			}
		} else if strings.Contains(lower, kw.text) {
			n++
		}
	}
	return n
}

func (m *matcher) positiveEmojis(content string) int {
	n := 0
	for _, e := range m.emojis {
		if strings.Contains(content, e) {
			n++
		}
	}
	return n
}

func countPresent(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// containsBounded reports whether kw occurs in s with no letter or digit directly on either side.
func containsBounded(s, kw string) bool {
	if kw == "" {
		return false
	}
	for off := 0; off <= len(s)-len(kw); {
		i := strings.Index(s[off:], kw)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(kw)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWord(before)) && (end == len(s) || !isWord(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		off = start + size
	}
	return false
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
