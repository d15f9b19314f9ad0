// Package countparse converts free-text play/view counts into integers.
// Platforms render counts with localized magnitude suffixes ("3.2만"),
// Latin suffixes ("1.5M"), thousands separators, or surrounding unit words.
package countparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// unit words removed before numeric parsing, in this order.
var stripWords = []string{"조회수", "회", "views", "view", "재생"}

var latinUnits = map[string]int64{
	"k": 1_000,
	"m": 1_000_000,
	"b": 1_000_000_000,
}

var (
	latinPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?) *([kmb])$`)
	plainPattern = regexp.MustCompile(`^\d+$`)
)

// DefaultUnits returns the native magnitude suffix table matching the
// source platforms' display units: 천=1e3, 만=1e4, 억=1e8.
func DefaultUnits() map[string]int64 {
	return map[string]int64{
		"천": 1_000,
		"만": 10_000,
		"억": 100_000_000,
	}
}

// Parser parses count strings using a configurable native unit table.
type Parser struct {
	units         map[string]int64
	nativePattern *regexp.Regexp
}

// New creates a Parser. A nil or empty unit table falls back to
// DefaultUnits.
func New(units map[string]int64) *Parser {
	if len(units) == 0 {
		units = DefaultUnits()
	}
	keys := make([]string, 0, len(units))
	for k := range units {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	sort.Strings(keys)
	return &Parser{
		units:         units,
		nativePattern: regexp.MustCompile(`^(\d+(?:\.\d+)?) *(` + strings.Join(keys, "|") + `)$`),
	}
}

// Parse converts a raw count string to an integer. The second return value
// is false when nothing numeric could be recovered; the caller decides how
// to encode that (the recorder maps it to the failure sentinel).
//
// Decimal multipliers truncate toward zero after multiplication, so
// "1.2만" parses to 12000 and "1.5m" to 1500000.
func (p *Parser) Parse(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, ",", "")
	for _, w := range stripWords {
		s = strings.ReplaceAll(s, w, "")
	}
	s = strings.TrimSpace(s)

	if m := p.nativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int64(n * float64(p.units[m[2]])), true
		}
	}

	if m := latinPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return int64(n * float64(latinUnits[m[2]])), true
		}
	}

	if plainPattern.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return n, true
		}
	}

	// Last resort: a recognized unit embedded with stray punctuation.
	// Strip it and retry the float conversion.
	for _, su := range p.suffixesByMagnitude() {
		if strings.Contains(s, su.suffix) {
			rest := strings.TrimSpace(strings.ReplaceAll(s, su.suffix, ""))
			n, err := strconv.ParseFloat(rest, 64)
			if err == nil {
				return int64(n * float64(su.mul)), true
			}
		}
	}

	return 0, false
}

type suffixUnit struct {
	suffix string
	mul    int64
}

// suffixesByMagnitude lists native then latin suffixes, each group
// largest-first, so "억" is tried before "만" and "b" before "m".
func (p *Parser) suffixesByMagnitude() []suffixUnit {
	var out []suffixUnit
	for s, m := range p.units {
		out = append(out, suffixUnit{s, m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].mul > out[j].mul })
	latin := []suffixUnit{{"b", 1_000_000_000}, {"m", 1_000_000}, {"k", 1_000}}
	return append(out, latin...)
}
