package core

import (
	"bytes"
	"encoding/csv"
)

// artifactHeader is the column order the downstream accounting import
// expects. TransactionType is a mapping input only and never appears here.
var artifactHeader = []string{"Date", "Cheque No.", "Description", "Amount", "Reference"}

// RenderCSV renders canonical rows as the downloadable CSV artifact.
// Rows flagged with issues are written as-is: an unparseable date shows as
// an empty cell, a non-numeric amount keeps its original text.
func RenderCSV(rows []CanonicalRow) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write(artifactHeader)
	for _, row := range rows {
		w.Write([]string{row.Date, row.ChequeNumber, row.Description, row.Amount, row.Reference})
	}
	w.Flush()

	return buf.Bytes()
}
