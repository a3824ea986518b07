package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/partforge/partsearch/internal/normalize"
)

// relationalDriverName is a custom-registered sqlite3 driver carrying the
// scalar functions the fuzzy strategies below depend on. The primary
// dataset store keeps using the pure-Go modernc.org/sqlite driver; this
// backend opens its own connection to the same file through go-sqlite3
// (cgo) purely to get RegisterFunc, since modernc's driver has no
// equivalent extension point.
const relationalDriverName = "sqlite3_partsearch"

func init() {
	sql.Register(relationalDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("simhash_similarity", simhashSimilarity, true); err != nil {
				return err
			}
			if err := conn.RegisterFunc("normalize_l2", normalizeL2, true); err != nil {
				return err
			}
			if err := conn.RegisterFunc("normalize_l3", normalizeL3, true); err != nil {
				return err
			}
			return nil
		},
	})
}

// simhashSimilarity resolves Open Question (iii): a trigram-like fuzzy
// comparator for backends (like SQLite) with no native one, built on the
// same edit-distance similarity the confidence scorer uses.
func simhashSimilarity(a, b string) float64 {
	return normalize.Similarity(a, b)
}

func normalizeL2(s string) string { return normalize.Normalize(s, normalize.LevelNoSeparators) }
func normalizeL3(s string) string { return normalize.Normalize(s, normalize.LevelAlphanumeric) }

// bulkRowBudget bounds the total rows a bulk search materializes across
// all of its strategy queries (§4.7 G2).
const bulkRowBudget = 10_000

// RelationalBackend is the G2 fallback search backend, running directly
// against a dataset's physical table with a multi-strategy union query.
type RelationalBackend struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenRelationalBackend opens (creating if absent) the relational
// backend's connection to the same SQLite file the metadata store uses.
func OpenRelationalBackend(path string) (*RelationalBackend, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open(relationalDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open relational backend: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	return &RelationalBackend{db: db, timeout: defaultRequestTimeout}, nil
}

func (r *RelationalBackend) Name() string { return "relational_fallback" }

func (r *RelationalBackend) Available(ctx context.Context) bool {
	return r.db.PingContext(ctx) == nil
}

func (r *RelationalBackend) Close() error { return r.db.Close() }

func tableFor(fileID int64) string { return fmt.Sprintf("ds_%d", fileID) }

func isNoSuchTable(err error) bool {
	return err != nil && containsNoSuchTable(err.Error())
}

func containsNoSuchTable(msg string) bool {
	for i := 0; i+13 <= len(msg); i++ {
		if msg[i:i+13] == "no such table" {
			return true
		}
	}
	return false
}

const rowColumns = `id, primary_buyer, item_description, quantity, unit_of_measure, unit_price,
	secondary_buyer, primary_buyer_contact, primary_buyer_email, part_number`

// singleSearchUnion builds the §4.7 G2 multi-strategy union for one part
// number: exact, level-2/level-3 normalized equality, trigram similarity
// on part_number, substring/similarity on item_description, and a
// first-three-tokens fallback.
func singleSearchUnion(table, part string) (string, []any) {
	tokens := normalize.SeparatorTokenize(part)
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	tokenConds := make([]string, 0, len(tokens))
	tokenArgs := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		tokenConds = append(tokenConds, "LOWER(item_description) LIKE ?")
		tokenArgs = append(tokenArgs, "%"+strings.ToLower(tok)+"%")
	}
	tokenWhere := "0"
	if len(tokenConds) > 0 {
		tokenWhere = strings.Join(tokenConds, " OR ")
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, 100.0 AS score, 'exact' AS match_type FROM %[2]s WHERE part_number = ?
		UNION ALL
		SELECT %[1]s, 95.0 AS score, 'normalized' AS match_type FROM %[2]s WHERE normalize_l2(part_number) = normalize_l2(?)
		UNION ALL
		SELECT %[1]s, 90.0 AS score, 'normalized' AS match_type FROM %[2]s WHERE normalize_l3(part_number) = normalize_l3(?)
		UNION ALL
		SELECT %[1]s, simhash_similarity(part_number, ?) * 100.0 AS score, 'fuzzy' AS match_type FROM %[2]s WHERE simhash_similarity(part_number, ?) >= 0.6
		UNION ALL
		SELECT %[1]s,
			CASE WHEN INSTR(LOWER(item_description), LOWER(?)) > 0 THEN 70.0 ELSE simhash_similarity(item_description, ?) * 60.0 END AS score,
			'substring' AS match_type
		FROM %[2]s WHERE INSTR(LOWER(item_description), LOWER(?)) > 0 OR simhash_similarity(item_description, ?) >= 0.3
		UNION ALL
		SELECT %[1]s, 40.0 AS score, 'token' AS match_type FROM %[2]s WHERE %[3]s
	`, rowColumns, table, tokenWhere)

	args := []any{
		part,       // exact
		part,       // normalize_l2 compare arg
		part,       // normalize_l3 compare arg
		part, part, // fuzzy select + filter
		part, part, part, part, // substring select (x2) + filter (x2)
	}
	args = append(args, tokenArgs...)
	return query, args
}

func scanMatches(rows *sql.Rows) ([]Match, error) {
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		var unitOfMeasure, secondaryBuyer, contact, email, matchType string
		if err := rows.Scan(&m.RowID, &m.PrimaryBuyer, &m.ItemDescription, &m.Quantity, &unitOfMeasure,
			&m.UnitPrice, &secondaryBuyer, &contact, &email, &m.PartNumber, &m.BackendScore, &matchType); err != nil {
			return nil, err
		}
		m.MatchType = matchType
		out = append(out, m)
	}
	return out, rows.Err()
}

// dedupeByID keeps the highest-scoring occurrence of each row id across
// strategy branches, matching the §4.7 union contract of "distinct
// results" before §4.8 relevance ranking takes over.
func dedupeByID(matches []Match) []Match {
	best := make(map[int64]Match, len(matches))
	for _, m := range matches {
		if cur, ok := best[m.RowID]; !ok || m.BackendScore > cur.BackendScore {
			best[m.RowID] = m
		}
	}
	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BackendScore != out[j].BackendScore {
			return out[i].BackendScore > out[j].BackendScore
		}
		return out[i].UnitPrice < out[j].UnitPrice
	})
	return out
}

// SearchSingle implements the G2 single-part contract.
func (r *RelationalBackend) SearchSingle(ctx context.Context, fileID int64, part string, mode Mode, page, pageSize int, showAll bool) (SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query, args := singleSearchUnion(tableFor(fileID), part)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isNoSuchTable(err) {
			return SearchResult{}, nil
		}
		return SearchResult{}, fmt.Errorf("relational search: %w", err)
	}
	matches, err := scanMatches(rows)
	if err != nil {
		return SearchResult{}, fmt.Errorf("scan relational results: %w", err)
	}
	matches = dedupeByID(matches)

	total := len(matches)
	if !showAll {
		start := page * pageSize
		if start > len(matches) {
			start = len(matches)
		}
		end := start + pageSize
		if pageSize <= 0 || end > len(matches) {
			end = len(matches)
		}
		matches = matches[start:end]
	}

	return SearchResult{Matches: matches, TotalMatches: total, Page: page, PageSize: pageSize}, nil
}

// SearchBulk implements the G2 bulk contract: an exact-match pass across
// all parts first, then per-part fallback passes only for parts the
// exact pass missed, bounded to bulkRowBudget total rows.
func (r *RelationalBackend) SearchBulk(ctx context.Context, fileID int64, parts []string, mode Mode, perPartLimit int) (map[string]SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	table := tableFor(fileID)
	out := make(map[string]SearchResult, len(parts))
	remaining := bulkRowBudget

	if remaining > 0 && len(parts) > 0 {
		placeholders := make([]string, len(parts))
		args := make([]any, len(parts))
		for i, p := range parts {
			placeholders[i] = "?"
			args[i] = p
		}
		query := fmt.Sprintf(`SELECT %s, 100.0, 'exact' FROM %s WHERE part_number IN (%s) LIMIT ?`,
			rowColumns, table, strings.Join(placeholders, ","))
		args = append(args, remaining)

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil && !isNoSuchTable(err) {
			return nil, fmt.Errorf("bulk exact search: %w", err)
		}
		if rows != nil {
			matches, err := scanExactMatches(rows)
			if err != nil {
				return nil, fmt.Errorf("scan bulk exact results: %w", err)
			}
			for _, m := range matches {
				r := out[m.PartNumber]
				r.Matches = append(r.Matches, m)
				out[m.PartNumber] = r
				remaining--
			}
		}
	}

	for _, p := range parts {
		if remaining <= 0 {
			break
		}
		if r2, ok := out[p]; ok && len(r2.Matches) > 0 {
			continue
		}
		single, err := r.SearchSingle(ctx, fileID, p, mode, 0, perPartLimit, false)
		if err != nil {
			out[p] = SearchResult{Error: err}
			continue
		}
		if len(single.Matches) > remaining {
			single.Matches = single.Matches[:remaining]
		}
		remaining -= len(single.Matches)
		out[p] = single
	}

	for p, res := range out {
		limit := perPartLimit
		if limit > 0 && len(res.Matches) > limit {
			res.Matches = res.Matches[:limit]
		}
		res.TotalMatches = len(res.Matches)
		out[p] = res
	}
	for _, p := range parts {
		if _, ok := out[p]; !ok {
			out[p] = SearchResult{}
		}
	}
	return out, nil
}

// scanExactMatches scans rows from the bulk exact-match query, which
// carries its own literal score/match_type columns rather than the
// per-row computed ones singleSearchUnion produces.
func scanExactMatches(rows *sql.Rows) ([]Match, error) {
	return scanMatches(rows)
}
