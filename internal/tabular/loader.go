// Package tabular parses uploaded CSV and XLSX files into an immutable
// in-memory table of raw string cells.
//
// The loader deliberately performs no type coercion: every cell keeps its
// literal textual representation so that downstream consumers can interpret
// the same column differently depending on what it is mapped to (a column
// used for an amount is parsed numerically, the same column reused for a
// description stays text).
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported upload file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrUnsupportedFormat is returned when the declared format is neither
	// CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when a file contains no data rows.
	ErrEmptyFile = errors.New("file contains no data rows")
)

// FormatFromFilename derives the format from a file name extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// SourceTable is an ordered, read-only table produced from one uploaded file.
// Column names are unique and preserve the order declared in the file.
type SourceTable struct {
	columns []string
	rows    [][]string
	index   map[string]int
}

// Load parses file bytes in the given format, treating the first record as
// the header row.
func Load(data []byte, format Format) (*SourceTable, error) {
	return load(data, format, true)
}

// LoadHeaderless parses file bytes whose first record is already data.
// Column names are synthesized as "Column 1", "Column 2", and so on.
func LoadHeaderless(data []byte, format Format) (*SourceTable, error) {
	return load(data, format, false)
}

func load(data []byte, format Format, hasHeader bool) (*SourceTable, error) {
	var records [][]string
	var err error

	switch format {
	case FormatCSV:
		records, err = readCSV(data)
	case FormatXLSX:
		records, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	minRecords := 1
	if hasHeader {
		minRecords = 2
	}
	if len(records) < minRecords {
		return nil, ErrEmptyFile
	}

	var columns []string
	var rows [][]string
	if hasHeader {
		columns = normalizeHeader(records[0])
		rows = records[1:]
	} else {
		columns = syntheticHeader(widestRecord(records))
		rows = records
	}

	// Pad ragged rows so every row has a cell for every column.
	for i, row := range rows {
		if len(row) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, row)
			rows[i] = padded
		}
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	return &SourceTable{columns: columns, rows: rows, index: index}, nil
}

// readCSV parses CSV bytes, tolerating a UTF-8 BOM, invalid UTF-8 sequences
// and rows with varying field counts.
func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.ToValidUTF8(data, []byte("�"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// readXLSX parses the first sheet of a workbook. Cells come back in their
// displayed textual form, which for date cells may be an Excel serial number.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	return rows, nil
}

// normalizeHeader fills in blank header cells and disambiguates duplicate
// names with positional suffixes ("Amount", "Amount.1", ...).
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 1
		}
		columns[i] = name
	}
	return columns
}

func syntheticHeader(width int) []string {
	columns := make([]string, width)
	for i := range columns {
		columns[i] = fmt.Sprintf("Column %d", i+1)
	}
	return columns
}

func widestRecord(records [][]string) int {
	width := 0
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

// Columns returns the column names in declared order.
// The returned slice must not be modified.
func (t *SourceTable) Columns() []string {
	return t.columns
}

// RowCount returns the number of data rows.
func (t *SourceTable) RowCount() int {
	return len(t.rows)
}

// Cell returns the raw value at the given row for the named column.
// The second return is false when the column does not exist.
func (t *SourceTable) Cell(row int, column string) (string, bool) {
	pos, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return "", false
	}
	return t.rows[row][pos], true
}

// Row returns one data row as a column-name-to-value map, in support of
// preview payloads that echo the original data back to the caller.
func (t *SourceTable) Row(row int) map[string]string {
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	values := make(map[string]string, len(t.columns))
	for i, col := range t.columns {
		values[col] = t.rows[row][i]
	}
	return values
}

// HasColumn reports whether the named column exists in the table.
func (t *SourceTable) HasColumn(column string) bool {
	_, ok := t.index[column]
	return ok
}
