// Package normalize implements deterministic part-number canonicalization,
// tokenization, and similarity scoring shared by the schema, search backend,
// and search engine packages.
package normalize

import (
	"strings"
	"unicode"
)

// Level selects how aggressively normalize strips a string.
type Level int

const (
	// LevelTrim collapses surrounding and internal whitespace.
	LevelTrim Level = 1
	// LevelNoSeparators additionally strips the configured separator set.
	LevelNoSeparators Level = 2
	// LevelAlphanumeric keeps only [A-Za-z0-9].
	LevelAlphanumeric Level = 3
)

// DefaultSeparators is the closed separator set from the canonical schema.
var DefaultSeparators = map[rune]struct{}{
	'-': {}, '/': {}, ',': {}, '*': {}, '&': {}, '~': {}, '.': {}, '%': {},
}

// DefaultMinSimilarity is the similarity floor used by the confidence scorer
// and relational backend fuzzy strategies when no override is configured.
const DefaultMinSimilarity = 0.6

var whitespaceCollapse = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// Normalize applies the given level's transformation to s. It is idempotent:
// Normalize(Normalize(s, l), l) == Normalize(s, l) for every level.
func Normalize(s string, level Level) string {
	switch level {
	case LevelTrim:
		return collapseWhitespace(s)
	case LevelNoSeparators:
		return stripSeparators(collapseWhitespace(s))
	case LevelAlphanumeric:
		return stripNonAlphanumeric(s)
	default:
		return s
	}
}

func collapseWhitespace(s string) string {
	s = whitespaceCollapse.Replace(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, isSep := DefaultSeparators[r]; isSep {
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripNonAlphanumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SeparatorTokenize splits s on the separator set and whitespace, then
// further splits each fragment at alpha<->digit boundaries. The result is a
// finite ordered sequence of non-empty alphanumeric chunks.
//
// Returns an empty (non-nil) slice for an all-separator or empty input.
func SeparatorTokenize(s string) []string {
	fragments := splitOnSeparatorsAndSpace(s)

	tokens := make([]string, 0, len(fragments))
	for _, f := range fragments {
		tokens = append(tokens, splitAlphaDigitBoundary(f)...)
	}
	return tokens
}

func splitOnSeparatorsAndSpace(s string) []string {
	isBreak := func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		_, isSep := DefaultSeparators[r]
		return isSep
	}
	return strings.FieldsFunc(s, isBreak)
}

func splitAlphaDigitBoundary(fragment string) []string {
	if fragment == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder
	var prevClass rune // 'L' letter, 'D' digit, 0 unset

	classOf := func(r rune) rune {
		switch {
		case unicode.IsDigit(r):
			return 'D'
		case unicode.IsLetter(r):
			return 'L'
		default:
			return 'O'
		}
	}

	for _, r := range fragment {
		c := classOf(r)
		if prevClass != 0 && c != prevClass && c != 'O' && prevClass != 'O' {
			result = append(result, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		prevClass = c
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	if result == nil {
		return []string{}
	}
	return result
}

// Levenshtein computes unit-cost edit distance between a and b. If bound is
// non-negative, the computation exits early once the running minimum of a
// row exceeds bound, returning bound+1 as a sentinel "too far" value.
func Levenshtein(a, b string, bound int) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if bound >= 0 && rowMin > bound {
			return bound + 1
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// Similarity returns 1 - levenshtein(a,b)/max(|a|,|b|), in [0,1].
// Two empty strings are maximally similar; an empty vs non-empty pair is not.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := Levenshtein(a, b, -1)
	return 1 - float64(dist)/float64(maxLen)
}

// TokenOverlap returns the Jaccard index |A∩B|/|A∪B| over the case-folded
// token sets a and b. Either side being empty overlaps with nothing (0.0);
// there is no evidence to compare.
func TokenOverlap(a, b []string) float64 {
	setA := foldedSet(a)
	setB := foldedSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	union := make(map[string]struct{}, len(setA)+len(setB))
	for t := range setA {
		union[t] = struct{}{}
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	for t := range setB {
		union[t] = struct{}{}
	}
	return float64(intersection) / float64(len(union))
}

func foldedSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

// Variant pairs a normalized string with the level that produced it.
type Variant struct {
	Value string
	Level Level
}

// FormatVariants yields the three normalization levels of s in level order,
// deduplicated by the pair (lowercased value, level): every level that
// produces a non-empty string is kept, even when its value equals that of an
// earlier level.
func FormatVariants(s string) []Variant {
	type variantKey struct {
		value string
		level Level
	}
	levels := []Level{LevelTrim, LevelNoSeparators, LevelAlphanumeric}
	seen := make(map[variantKey]struct{}, len(levels))
	variants := make([]Variant, 0, len(levels))

	for _, lvl := range levels {
		v := Normalize(s, lvl)
		if v == "" {
			continue
		}
		key := variantKey{value: strings.ToLower(v), level: lvl}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, Variant{Value: v, Level: lvl})
	}
	return variants
}
