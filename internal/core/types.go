// Package core implements the mapping and transformation engine that turns
// an uploaded tabular file into Xero bank-statement rows.
//
// The package is organized around three pieces:
//
//   - SuggestMapping proposes an initial column mapping from header names.
//   - Transform applies a confirmed mapping to a source table and produces
//     the canonical output rows. It is a pure function of its inputs.
//   - Service coordinates previews and commits, caches upload sessions, and
//     hands finished artifacts to the persistence stores.
//
// Nothing in this package reads ambient state: every operation takes its
// table and mapping explicitly, which is what makes a preview and a later
// commit of the same mapping guaranteed to agree.
package core

import "strings"

// TargetField identifies one field of the canonical output schema.
type TargetField string

const (
	FieldDate            TargetField = "Date"
	FieldChequeNumber    TargetField = "ChequeNumber"
	FieldDescription     TargetField = "Description"
	FieldAmount          TargetField = "Amount"
	FieldReference       TargetField = "Reference"
	FieldTransactionType TargetField = "TransactionType"
)

// TargetFields returns all mappable target fields in canonical order.
// TransactionType is last because it is consumed as a mapping input only
// and never emitted as an output column.
func TargetFields() []TargetField {
	return []TargetField{
		FieldDate,
		FieldChequeNumber,
		FieldDescription,
		FieldAmount,
		FieldReference,
		FieldTransactionType,
	}
}

// ColumnMapping assigns target fields to source column names. A missing or
// empty entry means the field is unmapped. The same source column may back
// several target fields; that reuse is intentional.
type ColumnMapping map[TargetField]string

// Source returns the source column mapped to the field, if any.
func (m ColumnMapping) Source(field TargetField) (string, bool) {
	col, ok := m[field]
	if !ok || col == "" {
		return "", false
	}
	return col, true
}

// Clone returns an independent copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	c := make(ColumnMapping, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// HintClass is the classification of a raw transaction-type cell.
type HintClass int

const (
	HintUnknown HintClass = iota
	HintDebit
	HintCredit
)

// ClassifyHint classifies a raw transaction-type value. Recognition is
// case-insensitive and ignores surrounding whitespace; anything outside the
// vocabulary, including an empty cell, is HintUnknown.
func ClassifyHint(raw string) HintClass {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "D", "DB", "DR", "DEBIT":
		return HintDebit
	case "C", "CR", "CREDIT":
		return HintCredit
	default:
		return HintUnknown
	}
}

// IssueCode identifies a row-level problem found during transformation.
type IssueCode string

const (
	IssueUnparseableDate  IssueCode = "UnparseableDate"
	IssueNonNumericAmount IssueCode = "NonNumericAmount"
)

// RowIssue describes one row-level problem. Rows with issues are still
// emitted so the caller can show the user both the data and the diagnostics.
type RowIssue struct {
	Field   TargetField `json:"field"`
	Code    IssueCode   `json:"code"`
	Value   string      `json:"value"`
	Message string      `json:"message"`
}

// CanonicalRow is one row of the fixed Xero bank-statement schema.
// Dates are rendered dd/mm/yyyy; amounts keep their textual signed decimal
// form; Reference carries a leading debit/credit letter.
type CanonicalRow struct {
	Line         int        `json:"line"`
	Date         string     `json:"date"`
	ChequeNumber string     `json:"cheque_number"`
	Description  string     `json:"description"`
	Amount       string     `json:"amount"`
	Reference    string     `json:"reference"`
	Issues       []RowIssue `json:"issues,omitempty"`
}
