package core

// transform.go is the transformation engine: it applies a confirmed column
// mapping to a source table and produces the canonical Xero rows.
//
// Transform is total and side-effect free. Rows are processed independently
// and in order, and every input row produces exactly one output row: rows
// with bad dates or amounts are emitted flagged, never dropped, so the user
// keeps full visibility into their data.

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/tabular"
)

// ErrMissingRequiredMapping is returned when Date or Amount is unmapped.
// These two fields are structurally required, so the whole call fails and
// no partial rows are returned.
var ErrMissingRequiredMapping = errors.New("missing required mapping")

// OutputDateLayout is the canonical date rendering for output rows.
const OutputDateLayout = "02/01/2006"

// dateLayouts are the recognized input date representations, tried in
// priority order. ISO first because it is unambiguous, then US month-first,
// then day-first. Excel serial numbers are handled separately.
var dateLayouts = []string{
	"2006-01-02", "2006-1-2",
	"01/02/2006", "1/2/2006",
	"02/01/2006", "2/1/2006",
}

// amountJunk strips currency symbols, thousands separators and other
// punctuation from a raw amount, keeping digits, the decimal point and the
// sign.
var amountJunk = regexp.MustCompile(`[^0-9.\-]`)

// Transform converts every row of the table using the given mapping.
// Same table and mapping always yield the same rows; preview and commit
// both call this with identical inputs.
func Transform(table *tabular.SourceTable, mapping ColumnMapping) ([]CanonicalRow, error) {
	dateCol, ok := mapping.Source(FieldDate)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredMapping, FieldDate)
	}
	amountCol, ok := mapping.Source(FieldAmount)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredMapping, FieldAmount)
	}

	chequeCol, _ := mapping.Source(FieldChequeNumber)
	descCol, _ := mapping.Source(FieldDescription)
	refCol, _ := mapping.Source(FieldReference)
	hintCol, hintMapped := mapping.Source(FieldTransactionType)

	rows := make([]CanonicalRow, table.RowCount())
	for i := range rows {
		row := CanonicalRow{Line: i + 1}

		// Date
		rawDate := cell(table, i, dateCol)
		if t, ok := parseDate(rawDate); ok {
			row.Date = t.Format(OutputDateLayout)
		} else {
			row.Issues = append(row.Issues, RowIssue{
				Field:   FieldDate,
				Code:    IssueUnparseableDate,
				Value:   rawDate,
				Message: "unparseable date",
			})
		}

		// Verbatim text fields
		row.ChequeNumber = cell(table, i, chequeCol)
		row.Description = cell(table, i, descCol)

		// Amount and debit/credit resolution
		rawAmount := cell(table, i, amountCol)
		amount, numeric := parseAmount(rawAmount)

		hint := HintUnknown
		if hintMapped {
			hint = ClassifyHint(cell(table, i, hintCol))
		}

		var prefix string
		switch {
		case hint == HintDebit:
			prefix = "D"
		case hint == HintCredit:
			prefix = "C"
		case numeric && amount.IsNegative():
			prefix = "D"
		case numeric:
			// Zero counts as a credit: the sign rule is negative means
			// debit, everything else means credit.
			prefix = "C"
		}

		if numeric {
			row.Amount = formatAmount(amount)
		} else {
			row.Amount = strings.TrimSpace(rawAmount)
			row.Issues = append(row.Issues, RowIssue{
				Field:   FieldAmount,
				Code:    IssueNonNumericAmount,
				Value:   rawAmount,
				Message: "amount is not a number",
			})
		}

		row.Reference = prefix + cell(table, i, refCol)
		rows[i] = row
	}

	return rows, nil
}

// cell reads a raw value, treating an unmapped field or a column that is
// absent from the table as empty.
func cell(table *tabular.SourceTable, row int, column string) string {
	if column == "" {
		return ""
	}
	v, _ := table.Cell(row, column)
	return v
}

// parseAmount cleans and parses a raw amount cell. The parsed decimal keeps
// the textual scale of the input in its exponent.
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := amountJunk.ReplaceAllString(raw, "")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// formatAmount renders an amount at the scale it was parsed with, so
// "-150.00" comes back as "-150.00", not "-150". String() would trim the
// trailing fractional zeros.
func formatAmount(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return d.StringFixed(places)
}

// parseDate attempts the recognized date representations in priority order.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	return parseSerialDate(raw)
}

// Excel serial dates count days from an epoch of 1899-12-30 (the off-by-two
// relative to 1900-01-01 absorbs Lotus 1-2-3's fictional 1900 leap day).
var serialDateEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDate is the serial for 9999-12-31, the largest date Excel stores.
const maxSerialDate = 2958465

// parseSerialDate interprets a numeric cell as a spreadsheet serial date.
// Fractional parts carry the time of day and are discarded.
func parseSerialDate(raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 1 || serial > maxSerialDate {
		return time.Time{}, false
	}
	return serialDateEpoch.AddDate(0, 0, int(math.Trunc(serial))), true
}
