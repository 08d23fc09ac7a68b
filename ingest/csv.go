package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVReader reads CSV without a header row. Every cell is text.
//
// The input is decoded as UTF-8 unless it starts with a byte-order mark, in
// which case UTF-8 or UTF-16 (LE/BE) is selected from the mark and the mark
// is removed. Quotes are parsed leniently and rows may have any number of
// fields.
type CSVReader struct{}

func (CSVReader) ReadRows(data []byte) ([][]any, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), dec))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var rows [][]any
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
