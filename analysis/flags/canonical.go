package flags

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// fallbackKeys maps text fragments to canonical keys for findings recorded without a topic.
// More specific fragments come first.
var fallbackKeys = []struct {
	fragment string
	key      Topic
}{
	{"conversation starting relatively balanced", BalancedStarts},
	{"inicio de conversaciones equilibrado", BalancedStarts},
	{"initiates most", UnequalStarts},
	{"inicia la mayoría", UnequalStarts},
	{"avg. message length unequal", UnequalLength},
	{"longitud media desigual", UnequalLength},
	{"avg. message length similar", BalancedLength},
	{"longitud media similar", BalancedLength},
	{"participation very unequal", UnequalMessages},
	{"participation moderately unequal", UnequalMessages},
	{"participación muy desigual", UnequalMessages},
	{"unequal", UnequalMessages},
	{"balanced", BalancedMessages},
	{"equilibrad", BalancedMessages},
	{"response time for", FastResponse},
	{"reply took >2h", DelayedResponse},
	{"sin respuesta", DelayedResponse},
	{"appears reciprocal", Reciprocal},
	{"predominantly positive", ToneVeryPositive},
	{"mostly positive", ToneMostlyPositive},
	{"notable negative presence", ToneVeryNegative},
	{"presence of negativity", ToneMostlyNegative},
	{"mostly neutral", ToneNeutral},
	{"tends to more negativity", MoreNegativeAuthor},
	{"tends to more positivity", MorePositiveAuthor},
	{"positivity or politeness", PoliteKeywords},
	{"negativity or conflict", ConflictKeywords},
	{"explicit affection", AffectionKeywords},
	{"model loading error", AILoadFailed},
	{"model not loaded", AISkipped},
}

var prefixRe = regexp.MustCompile(`(?i)^(Obs:|Patrón:|Observación:|Nota:|Overall tone \(AI\):|Metric-based:)\s*`)

// KeySet records the canonical keys that survived cleanup, both bare and qualified by category.
type KeySet map[string]struct{}

func (k KeySet) add(cat Category, key Topic) {
	k[string(key)] = struct{}{}
	k[qualified(cat, key)] = struct{}{}
}

// Has reports whether key survived in any category.
func (k KeySet) Has(key Topic) bool {
	_, ok := k[string(key)]
	return ok
}

// HasIn reports whether key survived in cat.
func (k KeySet) HasIn(cat Category, key Topic) bool {
	_, ok := k[qualified(cat, key)]
	return ok
}

// Any reports whether at least one of keys survived.
func (k KeySet) Any(keys ...Topic) bool {
	for _, key := range keys {
		if k.Has(key) {
			return true
		}
	}
	return false
}

// Topics lists the bare keys in sorted order.
func (k KeySet) Topics() []string {
	out := make([]string, 0, len(k)/2)
	for key := range k {
		if strings.HasSuffix(key, "_"+string(Positive)) || strings.HasSuffix(key, "_"+string(Attention)) {
			continue
		}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func qualified(cat Category, key Topic) string {
	return string(key) + "_" + string(cat)
}

// Cleaned is the deduplicated, display-ready view of a Flags accumulator.
type Cleaned struct {
	PositivePoints  []string
	AttentionPoints []string
	Keys            KeySet
}

// Clean deduplicates findings by canonical key within each category, keeping the first, and
// normalizes their text.
func Clean(f *Flags) Cleaned {
	out := Cleaned{
		PositivePoints:  []string{},
		AttentionPoints: []string{},
		Keys:            KeySet{},
	}
	if f == nil {
		return out
	}
	out.PositivePoints = cleanList(Positive, f.Positive, out.Keys)
	out.AttentionPoints = cleanList(Attention, f.Attention, out.Keys)
	return out
}

func cleanList(cat Category, list []Finding, keys KeySet) []string {
	points := make([]string, 0, len(list))
	seenKey := map[Topic]bool{}
	seenText := map[string]bool{}
	for _, fd := range list {
		text := CleanText(fd.Text)
		if text == "" {
			continue
		}
		key := CanonicalKey(fd)
		if key == "" {
			if seenText[text] {
				continue
			}
			seenText[text] = true
			points = append(points, text)
			continue
		}
		if seenKey[key] {
			continue
		}
		seenKey[key] = true
		keys.add(cat, key)
		points = append(points, text)
	}
	return points
}

// CanonicalKey returns the finding's topic, or the first fallback fragment found in its text.
func CanonicalKey(fd Finding) Topic {
	if fd.Topic != "" {
		return fd.Topic
	}
	lower := strings.ToLower(fd.Text)
	for _, fk := range fallbackKeys {
		if strings.Contains(lower, fk.fragment) {
			if fk.key == FastResponse && strings.Contains(lower, "is long") {
				return SlowResponse
			}
			return fk.key
		}
	}
	return ""
}

// CleanText strips known prefixes, upper-cases the first letter and ensures a trailing period.
func CleanText(s string) string {
	s = strings.TrimSpace(prefixRe.ReplaceAllString(strings.TrimSpace(s), ""))
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
