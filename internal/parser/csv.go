package parser

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// csvIterator streams rows out of a CSV file, preferring UTF-8 and falling
// back to Latin-1 when the leading bytes aren't valid UTF-8.
type csvIterator struct {
	file    *os.File
	reader  *csv.Reader
	headers []string
	skip    *skipCounter
	dataRow int
	eof     bool
}

func openCSV(path string, skipRows int) (RowIterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(f, 64*1024)
	peek, _ := br.Peek(4096)

	var src io.Reader = br
	if !utf8.Valid(peek) {
		src = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := firstNonEmptyRecord(r)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &csvIterator{
		file:    f,
		reader:  r,
		headers: headers,
		skip:    &skipCounter{remaining: skipRows},
	}, nil
}

func firstNonEmptyRecord(r *csv.Reader) ([]string, error) {
	for {
		rec, err := r.Read()
		if err != nil {
			return nil, err
		}
		if !allEmpty(rec) {
			return rec, nil
		}
	}
}

func allEmpty(rec []string) bool {
	for _, f := range rec {
		if f != "" {
			return false
		}
	}
	return true
}

func (c *csvIterator) NextBatch(max int) (Batch, bool, error) {
	var raw [][]string
	for !c.eof && len(raw) < max {
		rec, err := c.reader.Read()
		if err == io.EOF {
			c.eof = true
			break
		}
		if err != nil {
			return Batch{}, false, err
		}
		raw = append(raw, rec)
	}

	kept := c.skip.consume(raw)
	startData := c.dataRow
	c.dataRow += len(kept)

	done := c.eof
	return Batch{Rows: rowsToMaps(c.headers, kept), StartData: startData}, done, nil
}

func (c *csvIterator) Close() error {
	return c.file.Close()
}
