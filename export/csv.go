// Package export serializes batch results as CSV or XLSX.
//
// Both formats share one table: a header row followed by one row per record
// in batch order, with the columns Condition, Generated Copy, Status, Error.
package export

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/nevindra/medcopy"
)

// BaseName is the download file name without extension.
const BaseName = "medical-copy-results"

// Header is the first row of every export.
var Header = []string{"Condition", "Generated Copy", "Status", "Error"}

// Filename returns the download name for the given extension ("csv", "xlsx").
func Filename(ext string) string {
	return BaseName + "." + strings.TrimPrefix(ext, ".")
}

// row returns the table cells for one record. Failed records have empty
// copy; successful ones have an empty error.
func row(r medcopy.Record) []string {
	content, errMsg := r.Outcome.Content, ""
	if !r.Outcome.Succeeded {
		content, errMsg = "", r.Outcome.Error
	}
	return []string{r.Label, content, r.Status(), errMsg}
}

// WriteCSV writes records as CSV. Every field is wrapped in double quotes,
// embedded quotes are doubled and rows are separated by "\n" with no
// trailing newline.
func WriteCSV(w io.Writer, records []medcopy.Record) error {
	bw := bufio.NewWriter(w)
	writeCSVRow(bw, Header)
	for _, r := range records {
		bw.WriteByte('\n')
		writeCSVRow(bw, row(r))
	}
	return bw.Flush()
}

// CSV returns the CSV export as bytes.
func CSV(records []medcopy.Record) []byte {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, records)
	return buf.Bytes()
}

func writeCSVRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
}
