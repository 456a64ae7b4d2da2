package core

// suggest.go proposes an initial column mapping from source header names.
//
// The suggestion is a one-shot seed for the user-editable mapping: it runs
// once when a file is first loaded and is never consulted again after the
// user starts editing. Matching is by case-insensitive substring against a
// per-field synonym list; when several columns match, the first in source
// order wins. A field with no matching column is left unmapped rather than
// guessed.

import "strings"

// fieldSynonyms lists, per target field, the substrings that identify a
// candidate source column.
var fieldSynonyms = map[TargetField][]string{
	FieldDate:            {"date"},
	FieldChequeNumber:    {"cheque", "check"},
	FieldDescription:     {"desc", "narrative", "narration", "memo", "details", "note"},
	FieldAmount:          {"amount", "value", "debit", "credit", "sum"},
	FieldReference:       {"ref"},
	FieldTransactionType: {"type", "dr/cr", "drcr"},
}

// SuggestMapping proposes a mapping from target fields to the given source
// columns. It is a pure function: same columns, same suggestion.
func SuggestMapping(columns []string) ColumnMapping {
	mapping := make(ColumnMapping, len(fieldSynonyms))

	for _, field := range TargetFields() {
		if col, ok := firstMatch(columns, fieldSynonyms[field]); ok {
			mapping[field] = col
		}
	}
	return mapping
}

// firstMatch returns the first column, in source order, whose name contains
// any of the synonyms.
func firstMatch(columns []string, synonyms []string) (string, bool) {
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, syn := range synonyms {
			if strings.Contains(lower, syn) {
				return col, true
			}
		}
	}
	return "", false
}
