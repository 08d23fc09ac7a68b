package ingest

import (
	"bytes"
	"errors"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first sheet of an Office Open XML workbook.
//
// Only string-typed cells (shared strings, inline strings and formula string
// results) are returned as text. Numeric, date, boolean and error cells
// become nil.
type XLSXReader struct{}

func (XLSXReader) ReadRows(data []byte) ([][]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	rows := make([][]any, len(raw))
	for r, cols := range raw {
		row := make([]any, len(cols))
		for c, v := range cols {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, err
			}
			if isTextCell(typ) {
				row[c] = v
			}
		}
		rows[r] = row
	}
	return rows, nil
}

func isTextCell(t excelize.CellType) bool {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return true
	default:
		return false
	}
}
