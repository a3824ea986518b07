// Package parser streams canonical-schema rows out of uploaded CSV and XLSX
// files without loading an entire sheet into memory, producing batches the
// batch ingester can commit incrementally.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/partforge/partsearch/internal/schema"
)

// DefaultBatchSize is the standard row-batch cap for files below the
// "massive file" threshold.
const DefaultBatchSize = 1000

// MaxBatchSize is the cap a caller may request for files at or beyond the
// massive-file threshold.
const MaxBatchSize = 100_000

// HeaderScanWindow bounds how many leading rows of an XLSX sheet are
// inspected to locate the header row.
const HeaderScanWindow = 20

// Batch is an ordered sequence of raw rows (keyed by the header cell text
// as found in the file, before canonical projection).
type Batch struct {
	Rows      []map[string]string
	Sheet     string
	StartData int // zero-based data-row offset within the sheet this batch starts at
}

// RowIterator yields successive batches of raw rows. The caller controls
// pace: at most one batch is held in memory beyond the decoder's own buffer.
type RowIterator interface {
	// NextBatch returns up to max rows, or done=true once exhausted.
	NextBatch(max int) (batch Batch, done bool, err error)
	Close() error
}

// Open detects the file format from filename's extension and returns a
// streaming iterator positioned after skipRows data rows have been skipped
// (counted across all sheets in arrival order).
func Open(path, filename string, skipRows int) (RowIterator, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return openCSV(path, skipRows)
	case ".xlsx", ".xls":
		return openXLSX(path, skipRows)
	default:
		return nil, fmt.Errorf("unsupported file extension %q", ext)
	}
}

// skipCounter tracks how many data rows remain to be skipped across sheets,
// shared by both iterator implementations.
type skipCounter struct {
	remaining int
}

func (s *skipCounter) consume(rows [][]string) [][]string {
	if s.remaining <= 0 {
		return rows
	}
	if s.remaining >= len(rows) {
		s.remaining -= len(rows)
		return nil
	}
	rows = rows[s.remaining:]
	s.remaining = 0
	return rows
}

func rowsToMaps(headers []string, rows [][]string) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		m := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(r) {
				m[h] = r[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

// validHeaderRow reports whether headers contains every canonical column
// (schema.ValidateHeaders), used to decide whether an XLSX sheet should be skipped entirely.
func validHeaderRow(headers []string) bool {
	return schema.ValidateHeaders(headers) == nil
}
