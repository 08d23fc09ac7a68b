package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
)

// maxXLSCols is the BIFF8 column limit.
const maxXLSCols = 256

// formulaPlaceholder is what the decoder returns for every FORMULA cell; the
// cached result is not available.
const formulaPlaceholder = "FormulaCol"

// XLSReader reads the first sheet of a legacy BIFF8 workbook.
//
// The underlying decoder reports every cell as text. Cells whose text is a
// rendered number, a rendered date or a formula placeholder become nil.
type XLSReader struct{}

func (XLSReader) ReadRows(data []byte) (rows [][]any, err error) {
	// The BIFF decoder panics on some truncated inputs.
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("corrupt workbook: %v", p)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheetRow(sheet, i)
		if r == nil {
			continue
		}
		first, last := r.FirstCol(), r.LastCol()
		if last == 0 {
			// Rows built from cells alone carry no extents.
			first, last = 0, maxXLSCols
		}
		row := make([]any, 0, last-first)
		for c := first; c < last; c++ {
			v := r.Col(c)
			if nonText(v) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sheetRow returns row i, or nil when the sheet has no record of it. The
// decoder dereferences a missing row instead of reporting it.
func sheetRow(s *xls.WorkSheet, i int) (r *xls.Row) {
	defer func() {
		if recover() != nil {
			r = nil
		}
	}()
	return s.Row(i)
}

func nonText(v string) bool {
	s := strings.TrimSpace(v)
	if s == formulaPlaceholder || looksNumeric(s) {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}
