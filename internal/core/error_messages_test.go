package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"unsupported format", tabular.ErrUnsupportedFormat, "FILE001"},
		{"empty file", tabular.ErrEmptyFile, "FILE002"},
		{"invalid csv", errors.New("invalid csv: parse error on line 3"), "FILE003"},
		{"invalid xlsx", errors.New("invalid xlsx: zip: not a valid zip file"), "FILE003"},
		{"no file", errors.New("no file provided"), "FILE004"},
		{"missing mapping", fmt.Errorf("%w: Date", ErrMissingRequiredMapping), "MAP001"},
		{"session expired", fmt.Errorf("%w: abc", ErrSessionNotFound), "MAP002"},
		{"conversion missing", ErrConversionNotFound, "CONV001"},
		{"empty output name", ErrEmptyOutputName, "CONV002"},
		{"db refused", errors.New("dial tcp: connection refused"), "DB001"},
		{"db timeout", errors.New("context deadline exceeded: timeout"), "DB002"},
		{"unknown", errors.New("something odd"), "ERR000"},
		{"nil", nil, "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %s, want %s", tt.err, got.Code, tt.wantCode)
			}
			if got.Message == "" {
				t.Error("MapError returned an empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	msg := UserMessage{Message: "Bad file", Action: "Try again", Code: "FILE001"}
	got := FormatUserError(msg)
	want := "Bad file. Try again (code FILE001)"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}
