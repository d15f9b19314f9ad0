// Package match decides whether a candidate found on a platform is the
// catalog song we are looking for. Titles and artists are indexed under
// different script conventions per platform (Korean vs romanized), so the
// engine tries every non-empty (title-script, artist-script) combination
// and, per combination, a tiered fallback of exact/substring, bracket-aware,
// keyword-Jaccard, and edit-similarity comparisons.
package match

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/minhokang/streamwatch/internal/textnorm"
)

const (
	DefaultKeywordThreshold = 0.3
	DefaultRatioThreshold   = 0.8
)

// Target is the catalog side of a comparison. Any field may be empty;
// combinations involving empty fields are skipped.
type Target struct {
	TitleKo  string
	TitleEn  string
	ArtistKo string
	ArtistEn string
}

// MatchType names the tier combination that produced a result.
type MatchType string

const (
	MatchNone    MatchType = "none"
	MatchExact   MatchType = "exact_partial"
	MatchKeyword MatchType = "keyword_similarity"
	MatchRatio   MatchType = "ratio"
	MatchMixed   MatchType = "mixed"
)

// Result reports the outcome of one Match call. BothMatch is the only field
// consumed for pass/fail decisions; the rest exists for logging and tests.
type Result struct {
	TitleMatch  bool
	ArtistMatch bool
	BothMatch   bool
	Type        MatchType

	// MatchedCombo is the script combination that matched ("ko/ko",
	// "en/en", "ko/en", "en/ko"), or empty when no combination did.
	MatchedCombo string

	// Diagnostic scores from the combination that produced the result.
	TitleKeywordScore  float64
	ArtistKeywordScore float64
	TitleRatio         float64
	ArtistRatio        float64
}

// Engine compares found (title, artist) pairs against catalog targets.
type Engine struct {
	keywordThreshold float64
	ratioThreshold   float64
	aliases          [][2]string // normalized no-space pairs, bidirectional
}

// DefaultAliases returns the known stage-name abbreviation pairs that
// bypass the tiers on exact match.
func DefaultAliases() [][2]string {
	return [][2]string{
		{"악뮤", "악동뮤지션"},
		{"akmu", "악동뮤지션"},
	}
}

// NewEngine creates an Engine. Non-positive thresholds fall back to the
// defaults; alias pairs are normalized before use.
func NewEngine(keywordThreshold, ratioThreshold float64, aliases [][2]string) *Engine {
	if keywordThreshold <= 0 {
		keywordThreshold = DefaultKeywordThreshold
	}
	if ratioThreshold <= 0 {
		ratioThreshold = DefaultRatioThreshold
	}
	e := &Engine{keywordThreshold: keywordThreshold, ratioThreshold: ratioThreshold}
	for _, p := range aliases {
		e.aliases = append(e.aliases, [2]string{
			textnorm.NormalizeNoSpace(p[0]),
			textnorm.NormalizeNoSpace(p[1]),
		})
	}
	return e
}

// Match compares a found (title, artist) pair against every non-empty
// script combination of the target, in the order ko/ko, en/en, ko/en,
// en/ko. The first combination where both title and artist match wins;
// if none fully matches, the last combination's result is returned with
// MatchedCombo cleared.
func (e *Engine) Match(foundTitle, foundArtist string, t Target) Result {
	type combo struct {
		title, artist, label string
	}
	var combos []combo
	if t.TitleKo != "" && t.ArtistKo != "" {
		combos = append(combos, combo{t.TitleKo, t.ArtistKo, "ko/ko"})
	}
	if t.TitleEn != "" && t.ArtistEn != "" {
		combos = append(combos, combo{t.TitleEn, t.ArtistEn, "en/en"})
	}
	if t.TitleKo != "" && t.ArtistEn != "" {
		combos = append(combos, combo{t.TitleKo, t.ArtistEn, "ko/en"})
	}
	if t.TitleEn != "" && t.ArtistKo != "" {
		combos = append(combos, combo{t.TitleEn, t.ArtistKo, "en/ko"})
	}

	if len(combos) == 0 {
		return Result{Type: MatchNone}
	}

	var last Result
	for _, c := range combos {
		r := e.compare(foundTitle, foundArtist, c.title, c.artist)
		if r.BothMatch {
			r.MatchedCombo = c.label
			return r
		}
		last = r
	}
	last.MatchedCombo = ""
	return last
}

// compare runs the three tiers for a single (target title, target artist)
// combination. Tier order is fixed; the keyword tier is only attempted for
// whichever field failed tier one, while edit ratios are always computed
// for diagnostics.
func (e *Engine) compare(foundTitle, foundArtist, targetTitle, targetArtist string) Result {
	ft := textnorm.Normalize(foundTitle)
	fa := textnorm.Normalize(foundArtist)
	ftNS := textnorm.NormalizeNoSpace(foundTitle)
	faNS := textnorm.NormalizeNoSpace(foundArtist)
	tt := textnorm.Normalize(targetTitle)
	ta := textnorm.Normalize(targetArtist)
	ttNS := textnorm.NormalizeNoSpace(targetTitle)
	taNS := textnorm.NormalizeNoSpace(targetArtist)

	// Tier 1: exact/substring on no-space forms. The title additionally
	// gets the bracket-aware sub-rule on the raw text, since brackets are
	// stripped by normalization.
	titleExact := exactOrContains(ftNS, ttNS) || bracketTitleMatch(foundTitle, ttNS)
	artistExact := e.aliasMatch(faNS, taNS) || exactOrContains(faNS, taNS)

	r := Result{
		TitleKeywordScore:  jaccard(keywords(ft), keywords(tt)),
		ArtistKeywordScore: jaccard(keywords(fa), keywords(ta)),
		TitleRatio:         editRatio(ft, tt),
		ArtistRatio:        editRatio(fa, ta),
	}

	// Tier 2: keyword Jaccard, only for fields tier one rejected.
	titleKeyword := !titleExact && r.TitleKeywordScore >= e.keywordThreshold
	artistKeyword := !artistExact && r.ArtistKeywordScore >= e.keywordThreshold

	// Tier 3: edit similarity.
	titleRatio := r.TitleRatio > e.ratioThreshold
	artistRatio := r.ArtistRatio > e.ratioThreshold

	r.TitleMatch = titleExact || titleKeyword || titleRatio
	r.ArtistMatch = artistExact || artistKeyword || artistRatio
	r.BothMatch = r.TitleMatch && r.ArtistMatch

	switch {
	case titleExact && artistExact:
		r.Type = MatchExact
	case titleKeyword && artistKeyword:
		r.Type = MatchKeyword
	case titleRatio && artistRatio:
		r.Type = MatchRatio
	case r.BothMatch:
		r.Type = MatchMixed
	default:
		r.Type = MatchNone
	}
	return r
}

func (e *Engine) aliasMatch(a, b string) bool {
	for _, p := range e.aliases {
		if (a == p[0] && b == p[1]) || (a == p[1] && b == p[0]) {
			return true
		}
	}
	return false
}

// exactOrContains matches equal strings, or substring containment when the
// contained string is at least 3 runes long.
func exactOrContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) >= 3 && strings.Contains(b, a) {
		return true
	}
	if utf8.RuneCountInString(b) >= 3 && strings.Contains(a, b) {
		return true
	}
	return false
}

var bracketGroup = regexp.MustCompile(`\(([^)]*)\)`)

// bracketTitleMatch handles results titled "A (English B)" matching a
// target titled either "A" or "B". rawFound is the unnormalized found
// title; targetNS is the target in no-space normalized form.
func bracketTitleMatch(rawFound, targetNS string) bool {
	if !strings.Contains(rawFound, "(") || targetNS == "" {
		return false
	}

	// Found title with every parenthetical group stripped.
	stripped := textnorm.NormalizeNoSpace(bracketGroup.ReplaceAllString(rawFound, " "))
	if exactOrContains(stripped, targetNS) {
		return true
	}

	// Each individual group's content, and the target appearing verbatim
	// inside the bracketed portion.
	for _, m := range bracketGroup.FindAllStringSubmatch(rawFound, -1) {
		content := textnorm.NormalizeNoSpace(m[1])
		if content == "" {
			continue
		}
		if exactOrContains(content, targetNS) || strings.Contains(content, targetNS) {
			return true
		}
	}
	return false
}

// keywords splits normalized text into tokens of at least 2 runes.
func keywords(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) >= 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

// jaccard computes |a∩b| / |a∪b|; empty sets score zero.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

// editRatio is a character-level similarity ratio in [0, 1], computed as
// 2*LCS / (len(a)+len(b)) over runes.
func editRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
