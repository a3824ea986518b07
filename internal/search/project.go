package search

import (
	"time"

	"github.com/partforge/partsearch/internal/confidence"
	"github.com/partforge/partsearch/internal/normalize"
	"github.com/partforge/partsearch/internal/store"
)

// project runs the scorer (B) over a ranked, paginated match set and builds
// the §3 client-facing result: every company carries its own confidence
// breakdown, and the result as a whole carries the price summary and
// pagination metadata. queryPart is scored against each match's part number
// and description; the query carries no separate name/manufacturer field in
// this API, so those dimensions only contribute when a record happens to
// supply both sides (see confidence.Score).
func project(queryPart, backendName string, matches []store.Match, totalMatches, page, pageSize int, elapsed time.Duration) Result {
	companies := make([]Company, len(matches))
	for i, m := range matches {
		b := confidence.Score(confidence.Input{
			SearchPart:        queryPart,
			RecordPart:        m.PartNumber,
			RecordDescription: m.ItemDescription,
		}, normalize.DefaultMinSimilarity)

		companies[i] = Company{
			RowID:               m.RowID,
			PartNumber:          m.PartNumber,
			ItemDescription:     m.ItemDescription,
			UnitPrice:           m.UnitPrice,
			Quantity:            m.Quantity,
			CompanyName:         m.PrimaryBuyer,
			Confidence:          b.Final,
			MatchStatus:         b.MatchStatus,
			MatchType:           b.MatchType,
			ConfidenceBreakdown: b,
		}
	}

	matchType := confidence.TierNone
	message := ""
	if len(companies) > 0 {
		matchType = companies[0].MatchType
	} else {
		message = "no matches found"
	}

	return Result{
		TotalMatches: totalMatches,
		Companies:    companies,
		PriceSummary: priceSummary(companies),
		MatchType:    matchType,
		SearchEngine: backendName,
		LatencyMS:    elapsed.Milliseconds(),
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages(totalMatches, pageSize),
		Message:      message,
	}
}

// emptyResult is returned when no backend produced a match, per §3: zero
// matches still carries engine metadata and an explanatory message.
func emptyResult(page, pageSize int, elapsed time.Duration) Result {
	return Result{
		Page:         page,
		PageSize:     pageSize,
		MatchType:    confidence.TierNone,
		SearchEngine: "none",
		Message:      "no matches found",
		LatencyMS:    elapsed.Milliseconds(),
	}
}

func priceSummary(companies []Company) *PriceSummary {
	if len(companies) == 0 {
		return nil
	}
	s := PriceSummary{Min: companies[0].UnitPrice, Max: companies[0].UnitPrice}
	for _, c := range companies {
		if c.UnitPrice < s.Min {
			s.Min = c.UnitPrice
		}
		if c.UnitPrice > s.Max {
			s.Max = c.UnitPrice
		}
		s.TotalQuantity += c.Quantity
	}
	return &s
}

func totalPages(totalMatches, pageSize int) int {
	if pageSize <= 0 {
		if totalMatches > 0 {
			return 1
		}
		return 0
	}
	return (totalMatches + pageSize - 1) / pageSize
}
