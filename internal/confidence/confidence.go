// Package confidence scores how well a candidate database record matches a
// search query across part number, description, and manufacturer evidence.
package confidence

import (
	"strings"

	"github.com/partforge/partsearch/internal/normalize"
)

// Fixed weights applied to each sub-score before summing.
const (
	PartWeight         = 0.6
	DescriptionWeight  = 0.4
	ManufacturerWeight = 0.2
)

// MaxLengthPenalty is the ceiling subtracted from the weighted sum when the
// search and record part numbers differ sharply in length.
const MaxLengthPenalty = 20.0

// Match type tiers, in descending strength. The overall MatchType on a
// Breakdown is the tier of whichever sub-score (part, description, or
// manufacturer) contributed the highest raw value.
const (
	TierExact        = "exact"
	TierNormalizedL2 = "normalized_l2"
	TierNormalizedL3 = "normalized_l3"
	TierSubstring    = "substring"
	TierSimilarity   = "similarity"
	TierLevenshtein  = "levenshtein"
	TierTokenOverlap = "token_overlap"
	TierNone         = "none"
)

// Match status, derived from the final score.
const (
	StatusFound    = "found"
	StatusPartial  = "partial"
	StatusNotFound = "not_found"
)

// Input is the evidence compared by Score.
type Input struct {
	SearchPart         string
	SearchName         string
	SearchManufacturer string

	RecordPart         string
	RecordDescription  string
	RecordManufacturer string
}

// Breakdown is the structured explanation of a match's score, returned
// alongside the final numeric confidence.
type Breakdown struct {
	PartScore         float64
	PartTier          string
	DescriptionScore  float64
	DescriptionTier   string
	ManufacturerScore float64
	ManufacturerTier  string
	LengthPenalty     float64
	Final             float64
	MatchType         string
	MatchStatus       string
}

// Score computes the confidence breakdown for in, using minSimilarity as the
// floor below which similarity/overlap-based tiers do not apply.
//
// Only dimensions with evidence on both sides (search and record both
// non-empty) contribute to the final score; a dimension the caller never
// supplied (e.g. a part-number-only query carrying no search_name or
// search_manufacturer) is excluded from the weighted average rather than
// scored as a non-match, so a single-dimension exact match can still reach
// a final score of 100.
func Score(in Input, minSimilarity float64) Breakdown {
	partScore, partTier := scorePart(in.SearchPart, in.RecordPart, minSimilarity)
	descScore, descTier := scoreDescription(in.SearchName, in.RecordDescription, minSimilarity)
	mfrScore, mfrTier := scoreManufacturer(in.SearchManufacturer, in.RecordManufacturer, minSimilarity)

	penalty := lengthPenalty(in.SearchPart, in.RecordPart)

	var weighted, activeWeight float64
	if in.SearchPart != "" && in.RecordPart != "" {
		weighted += partScore * PartWeight
		activeWeight += PartWeight
	}
	if in.SearchName != "" && in.RecordDescription != "" {
		weighted += descScore * DescriptionWeight
		activeWeight += DescriptionWeight
	}
	if in.SearchManufacturer != "" && in.RecordManufacturer != "" {
		weighted += mfrScore * ManufacturerWeight
		activeWeight += ManufacturerWeight
	}

	var final float64
	if activeWeight > 0 {
		final = clamp(weighted/activeWeight-penalty, 0, 100)
	}

	b := Breakdown{
		PartScore:         partScore,
		PartTier:          partTier,
		DescriptionScore:  descScore,
		DescriptionTier:   descTier,
		ManufacturerScore: mfrScore,
		ManufacturerTier:  mfrTier,
		LengthPenalty:     penalty,
		Final:             final,
	}
	b.MatchType = dominantTier(b)
	b.MatchStatus = matchStatus(final)
	return b
}

func dominantTier(b Breakdown) string {
	// Ties favor part, then description, then manufacturer, matching their
	// weight precedence.
	tier, best := b.PartTier, b.PartScore
	if b.DescriptionScore > best {
		tier, best = b.DescriptionTier, b.DescriptionScore
	}
	if b.ManufacturerScore > best {
		tier, best = b.ManufacturerTier, b.ManufacturerScore
	}
	if best == 0 {
		return TierNone
	}
	return tier
}

func matchStatus(final float64) string {
	switch {
	case final >= 70:
		return StatusFound
	case final > 0:
		return StatusPartial
	default:
		return StatusNotFound
	}
}

func scorePart(search, record string, minSimilarity float64) (float64, string) {
	if search == "" && record == "" {
		return 0, TierNone
	}
	if strings.EqualFold(search, record) {
		return 100, TierExact
	}

	l2Search := normalize.Normalize(search, normalize.LevelNoSeparators)
	l2Record := normalize.Normalize(record, normalize.LevelNoSeparators)
	if strings.EqualFold(l2Search, l2Record) {
		return 95, TierNormalizedL2
	}

	l3Search := normalize.Normalize(search, normalize.LevelAlphanumeric)
	l3Record := normalize.Normalize(record, normalize.LevelAlphanumeric)
	if strings.EqualFold(l3Search, l3Record) {
		return 90, TierNormalizedL3
	}

	bestSim := maxSimilarityOverLevels(search, record)
	if bestSim >= minSimilarity {
		return bestSim * 100, TierSimilarity
	}

	rawSim := normalize.Similarity(search, record)
	if rawSim >= minSimilarity {
		return rawSim * 100, TierLevenshtein
	}

	overlap := normalize.TokenOverlap(normalize.SeparatorTokenize(search), normalize.SeparatorTokenize(record))
	if overlap >= minSimilarity {
		return overlap * 100, TierTokenOverlap
	}

	return 0, TierNone
}

// maxSimilarityOverLevels compares search and record at each normalization
// level and returns the best similarity observed.
func maxSimilarityOverLevels(search, record string) float64 {
	best := 0.0
	for _, lvl := range []normalize.Level{normalize.LevelTrim, normalize.LevelNoSeparators, normalize.LevelAlphanumeric} {
		sim := normalize.Similarity(normalize.Normalize(search, lvl), normalize.Normalize(record, lvl))
		if sim > best {
			best = sim
		}
	}
	return best
}

func scoreDescription(search, record string, minSimilarity float64) (float64, string) {
	if search == "" && record == "" {
		return 0, TierNone
	}

	ls, lr := strings.ToLower(search), strings.ToLower(record)
	if ls == lr {
		return 80, TierExact
	}
	if ls != "" && lr != "" && (strings.Contains(lr, ls) || strings.Contains(ls, lr)) {
		return 70, TierSubstring
	}

	const descriptionThreshold = 0.3
	jaccard := normalize.TokenOverlap(strings.Fields(ls), strings.Fields(lr))
	if jaccard >= descriptionThreshold {
		return jaccard * 60, TierTokenOverlap
	}

	sim := normalize.Similarity(ls, lr)
	if sim >= descriptionThreshold {
		return sim * 60, TierSimilarity
	}

	return 0, TierNone
}

func scoreManufacturer(search, record string, minSimilarity float64) (float64, string) {
	if search == "" && record == "" {
		return 0, TierNone
	}

	ls, lr := strings.ToLower(search), strings.ToLower(record)
	if ls == lr {
		return 50, TierExact
	}
	if ls != "" && lr != "" && (strings.Contains(lr, ls) || strings.Contains(ls, lr)) {
		return 40, TierSubstring
	}

	const manufacturerThreshold = 0.5
	sim := normalize.Similarity(ls, lr)
	if sim >= manufacturerThreshold {
		return sim * 50, TierSimilarity
	}

	return 0, TierNone
}

// lengthPenalty scales from 0 at ratio 0.5 up to MaxLengthPenalty at ratio
// 1.0, where ratio = |len(a)-len(b)| / max(len(a),len(b)).
func lengthPenalty(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	ratio := float64(diff) / float64(maxLen)
	if ratio <= 0.5 {
		return 0
	}
	return clamp((ratio-0.5)/0.5*MaxLengthPenalty, 0, MaxLengthPenalty)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
