package parser

import (
	"github.com/xuri/excelize/v2"

	"github.com/partforge/partsearch/internal/schema"
)

// xlsxIterator streams rows sheet by sheet out of a workbook, never loading
// a full sheet into memory: each sheet is read through excelize's row
// cursor, which decodes one row of the underlying XML stream at a time.
type xlsxIterator struct {
	file    *excelize.File
	sheets  []string
	sheetAt int

	headers    []string
	sheetName  string
	rows       *excelize.Rows
	buffered   [][]string // header-scan leftovers not yet consumed as data
	sheetReady bool

	skip    *skipCounter
	dataRow int
}

func openXLSX(path string, skipRows int) (RowIterator, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}

	it := &xlsxIterator{
		file:   f,
		sheets: f.GetSheetList(),
		skip:   &skipCounter{remaining: skipRows},
	}
	if err := it.advanceToNextSheet(); err != nil {
		f.Close()
		return nil, err
	}
	return it, nil
}

// advanceToNextSheet closes the current sheet's row cursor (if any) and
// locates the next sheet whose header row matches the canonical set,
// skipping sheets that don't. Leaves sheetReady false once sheets are
// exhausted.
func (it *xlsxIterator) advanceToNextSheet() error {
	if it.rows != nil {
		it.rows.Close()
		it.rows = nil
	}
	it.sheetReady = false

	for it.sheetAt < len(it.sheets) {
		name := it.sheets[it.sheetAt]
		it.sheetAt++

		rows, err := it.file.Rows(name)
		if err != nil {
			continue
		}

		window, headerIdx, ok := scanHeaderWindow(rows)
		if !ok {
			rows.Close()
			continue
		}

		it.headers = window[headerIdx]
		it.sheetName = name
		it.rows = rows
		it.buffered = window[headerIdx+1:]
		it.sheetReady = true
		return nil
	}
	return nil
}

// scanHeaderWindow reads up to HeaderScanWindow rows from rows, looking for
// the row that best matches the canonical header set.
func scanHeaderWindow(rows *excelize.Rows) (window [][]string, headerIdx int, ok bool) {
	for len(window) < HeaderScanWindow && rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			break
		}
		window = append(window, cols)
	}
	idx, found := schema.LocateHeaderRow(window, HeaderScanWindow)
	if !found || !validHeaderRow(window[idx]) {
		return window, 0, false
	}
	return window, idx, true
}

// NextBatch never mixes rows from two sheets in one batch: a batch always
// carries a single Sheet and a single header set. If a sheet is exhausted
// with nothing left to emit, it advances to the next sheet transparently.
func (it *xlsxIterator) NextBatch(max int) (Batch, bool, error) {
	for {
		if !it.sheetReady {
			if err := it.advanceToNextSheet(); err != nil {
				return Batch{}, false, err
			}
			if !it.sheetReady {
				return Batch{}, true, nil
			}
		}

		headers := it.headers
		sheetName := it.sheetName
		var raw [][]string
		sheetExhausted := false

		for len(raw) < max {
			if len(it.buffered) > 0 {
				raw = append(raw, it.buffered[0])
				it.buffered = it.buffered[1:]
				continue
			}
			if it.rows.Next() {
				cols, err := it.rows.Columns()
				if err != nil {
					return Batch{}, false, err
				}
				raw = append(raw, cols)
				continue
			}
			sheetExhausted = true
			break
		}

		kept := it.skip.consume(raw)

		if sheetExhausted {
			if err := it.advanceToNextSheet(); err != nil {
				return Batch{}, false, err
			}
		}

		if len(kept) == 0 && len(raw) == 0 {
			// This sheet produced nothing (fully skipped or empty); try
			// the next one within the same call instead of returning an
			// empty, not-done batch.
			if it.sheetReady {
				continue
			}
			return Batch{}, true, nil
		}

		startData := it.dataRow
		it.dataRow += len(kept)
		done := !it.sheetReady && it.sheetAt >= len(it.sheets)
		return Batch{Rows: rowsToMaps(headers, kept), Sheet: sheetName, StartData: startData}, done, nil
	}
}

func (it *xlsxIterator) Close() error {
	if it.rows != nil {
		it.rows.Close()
	}
	return it.file.Close()
}
