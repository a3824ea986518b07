package upload

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// headerLikeWords lets ParsePartListFile skip a leading header cell such as
// "part_number" or "Part Number" rather than treating it as a query.
var headerLikeWords = regexp.MustCompile(`(?i)^part[\s_-]*number$|^part[\s_-]*no\.?$`)

var floatArtifact = regexp.MustCompile(`^(\d+)\.0$`)

// ParsePartListFile reads a single-column list of part numbers out of an
// uploaded CSV or XLSX file, feeding the bulk-search-by-upload entry points
// (search-part-bulk-upload, bulk-excel-search). It reuses the streaming
// parser's format dispatch but, unlike D's canonical-schema path, makes no
// header assumptions beyond skipping one leading header-like cell.
func ParsePartListFile(path, filename string) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return parsePartListCSV(path)
	case ".xlsx", ".xls":
		return parsePartListXLSX(path)
	default:
		return nil, &unsupportedExtensionError{ext: ext}
	}
}

type unsupportedExtensionError struct{ ext string }

func (e *unsupportedExtensionError) Error() string {
	return "unsupported file extension \"" + e.ext + "\""
}

func parsePartListCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	peek, _ := br.Peek(4096)

	var src io.Reader = br
	if !utf8.Valid(peek) {
		src = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var parts []string
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		if first {
			first = false
			if headerLikeWords.MatchString(strings.TrimSpace(rec[0])) {
				continue
			}
		}
		parts = append(parts, cleanPartCell(rec[0]))
	}
	return parts, nil
}

func parsePartListXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []string
	first := true
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		if first {
			first = false
			if headerLikeWords.MatchString(strings.TrimSpace(cols[0])) {
				continue
			}
		}
		parts = append(parts, cleanPartCell(cols[0]))
	}
	return parts, nil
}

// cleanPartCell trims whitespace and strips the "<digits>.0" artifact a
// part number picks up when a spreadsheet stores it in a numeric column.
func cleanPartCell(s string) string {
	s = strings.TrimSpace(s)
	if m := floatArtifact.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
