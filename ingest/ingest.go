// Package ingest turns an uploaded spreadsheet into an ordered list of item
// labels. CSV, XLSX and legacy XLS workbooks are supported; only the first
// sheet of a workbook is read.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Format identifies a source file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var (
	// ErrUnsupportedFormat is returned for file types other than CSV, XLSX and XLS.
	ErrUnsupportedFormat = errors.New("unsupported file format: upload a CSV or Excel file (.csv, .xlsx, .xls)")

	// ErrDecode wraps any failure to parse the file contents.
	ErrDecode = errors.New("could not parse file")
)

// FormatFromFilename maps a file name's extension (case-insensitive) to a Format.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "xls":
		return FormatXLS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// SheetReader decodes raw file contents into row-major cells. Cells the
// format can identify as non-text are returned as nil or their Go value so
// that Flatten drops them.
type SheetReader interface {
	ReadRows(data []byte) ([][]any, error)
}

// ReaderFor returns the SheetReader for f.
func ReaderFor(f Format) (SheetReader, error) {
	switch f {
	case FormatCSV:
		return CSVReader{}, nil
	case FormatXLSX:
		return XLSXReader{}, nil
	case FormatXLS:
		return XLSReader{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Parse decodes data in format f and returns the flattened labels.
// Decode failures wrap ErrDecode.
func Parse(data []byte, f Format) ([]string, error) {
	r, err := ReaderFor(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.ReadRows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, f, err)
	}
	return Flatten(rows), nil
}

// ParseFile is Parse with the format taken from the file name.
func ParseFile(name string, data []byte) ([]string, error) {
	f, err := FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	return Parse(data, f)
}

// Flatten walks rows in row-major order and keeps only string cells that are
// non-empty after trimming. Kept labels are trimmed and NFC-normalized.
// Numbers, booleans and nil cells are dropped.
func Flatten(rows [][]any) []string {
	var out []string
	for _, row := range rows {
		for _, cell := range row {
			s, ok := cell.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, norm.NFC.String(s))
		}
	}
	return out
}
