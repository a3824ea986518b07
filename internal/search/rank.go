package search

import (
	"sort"
	"strings"

	"github.com/partforge/partsearch/internal/normalize"
	"github.com/partforge/partsearch/internal/store"
)

// dedupKey implements the §4.8 identity of a match: (part_number,
// company_name, unit_price). "company_name" is the canonical schema's
// primary_buyer column.
type dedupKey struct {
	partNumber string
	buyer      string
	unitPrice  float64
}

func keyOf(m store.Match) dedupKey {
	return dedupKey{partNumber: m.PartNumber, buyer: m.PrimaryBuyer, unitPrice: m.UnitPrice}
}

// relevanceScore implements the §4.8 post-union ranking formula against the
// part number actually searched for.
func relevanceScore(queryPart string, m store.Match) float64 {
	if strings.EqualFold(queryPart, m.PartNumber) {
		return relevanceExact
	}
	if normalize.Normalize(queryPart, normalize.LevelNoSeparators) == normalize.Normalize(m.PartNumber, normalize.LevelNoSeparators) {
		return relevanceNormalizedL2
	}
	if normalize.Normalize(queryPart, normalize.LevelAlphanumeric) == normalize.Normalize(m.PartNumber, normalize.LevelAlphanumeric) {
		return relevanceNormalizedL3
	}

	simPart := normalize.Similarity(queryPart, m.PartNumber) * 100
	simDesc := normalize.Similarity(queryPart, m.ItemDescription) * 80
	if simPart > simDesc {
		return simPart
	}
	return simDesc
}

// dedupeAndRank collapses duplicate matches (keeping the highest-ranked
// occurrence) and orders the remainder by relevance desc, unit_price asc.
func dedupeAndRank(queryPart string, matches []store.Match) []store.Match {
	type scored struct {
		match store.Match
		score float64
	}

	best := make(map[dedupKey]scored, len(matches))
	for _, m := range matches {
		s := relevanceScore(queryPart, m)
		k := keyOf(m)
		if cur, ok := best[k]; !ok || s > cur.score {
			best[k] = scored{match: m, score: s}
		}
	}

	out := make([]scored, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].match.UnitPrice < out[j].match.UnitPrice
	})

	result := make([]store.Match, len(out))
	for i, s := range out {
		result[i] = s.match
	}
	return result
}

// paginate applies page/pageSize last, over the fully-ranked list;
// showAll defeats pagination.
func paginate(matches []store.Match, page, pageSize int, showAll bool) []store.Match {
	if showAll || pageSize <= 0 {
		return matches
	}
	start := page * pageSize
	if start > len(matches) {
		start = len(matches)
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end]
}
