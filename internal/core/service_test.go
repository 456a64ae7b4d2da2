package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeConversionStore is an in-memory ConversionStore.
type fakeConversionStore struct {
	saved []Conversion
}

func (f *fakeConversionStore) Save(_ context.Context, c Conversion) error {
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeConversionStore) List(_ context.Context) ([]Conversion, error) {
	out := make([]Conversion, len(f.saved))
	copy(out, f.saved)
	return out, nil
}

func (f *fakeConversionStore) Get(_ context.Context, id string) (Conversion, error) {
	for _, c := range f.saved {
		if c.ID == id {
			return c, nil
		}
	}
	return Conversion{}, ErrConversionNotFound
}

// fakeArtifactStore keeps artifacts in a map.
type fakeArtifactStore struct {
	files map[string][]byte
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{files: make(map[string][]byte)}
}

func (f *fakeArtifactStore) Write(name string, data []byte) (string, error) {
	f.files[name] = data
	return "mem://" + name, nil
}

func (f *fakeArtifactStore) Path(name string) (string, error) {
	if _, ok := f.files[name]; !ok {
		return "", errors.New("artifact not found")
	}
	return "mem://" + name, nil
}

func newTestService() (*Service, *fakeConversionStore, *fakeArtifactStore) {
	conversions := &fakeConversionStore{}
	artifacts := newFakeArtifactStore()
	return NewService(conversions, artifacts, 0), conversions, artifacts
}

const sampleCSV = `Txn Date,Narrative,Amount,Ref
2024-03-07,Invoice,-150.00,INV-1
2024-03-08,Deposit,200.00,INV-2
`

func TestService_PreviewCommitEquivalence(t *testing.T) {
	svc, _, _ := newTestService()

	up, err := svc.RegisterUpload("statement.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}
	mapping := ColumnMapping{
		FieldDate:        "Txn Date",
		FieldDescription: "Narrative",
		FieldAmount:      "Amount",
		FieldReference:   "Ref",
	}

	preview, err := svc.Preview(up.Table, mapping)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	record, err := svc.Commit(context.Background(), up.Table, mapping, "out", up.FileName)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if !reflect.DeepEqual(preview, record.Rows) {
		t.Errorf("preview and commit disagree:\npreview: %v\ncommit:  %v", preview, record.Rows)
	}
}

func TestService_CommitOutputName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"appends extension", "statement", "statement.csv", nil},
		{"keeps extension", "statement.csv", "statement.csv", nil},
		{"case insensitive extension", "statement.CSV", "statement.CSV", nil},
		{"empty name", "", "", ErrEmptyOutputName},
		{"whitespace only", "   ", "", ErrEmptyOutputName},
	}

	mapping := ColumnMapping{FieldDate: "Txn Date", FieldAmount: "Amount"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			up, err := svc.RegisterUpload("in.csv", []byte(sampleCSV))
			if err != nil {
				t.Fatalf("RegisterUpload() error = %v", err)
			}

			record, err := svc.Commit(context.Background(), up.Table, mapping, tt.input, up.FileName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Commit() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
			if record.OutputName != tt.want {
				t.Errorf("OutputName = %q, want %q", record.OutputName, tt.want)
			}
		})
	}
}

func TestService_CommitPersists(t *testing.T) {
	svc, conversions, artifacts := newTestService()

	up, err := svc.RegisterUpload("bank.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}
	mapping := ColumnMapping{
		FieldDate:      "Txn Date",
		FieldAmount:    "Amount",
		FieldReference: "Ref",
	}

	record, err := svc.Commit(context.Background(), up.Table, mapping, "out.csv", up.FileName)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if len(conversions.saved) != 1 {
		t.Fatalf("saved %d conversions, want 1", len(conversions.saved))
	}
	saved := conversions.saved[0]
	if saved.OriginalName != "bank.csv" || saved.OutputName != "out.csv" {
		t.Errorf("saved = %+v", saved)
	}
	if saved.RowCount != 2 || saved.IssueCount != 0 {
		t.Errorf("RowCount/IssueCount = %d/%d, want 2/0", saved.RowCount, saved.IssueCount)
	}

	data, ok := artifacts.files[record.ID+"_out.csv"]
	if !ok {
		t.Fatalf("artifact not written; have %v", artifactNames(artifacts))
	}
	wantCSV := "Date,Cheque No.,Description,Amount,Reference\n" +
		"07/03/2024,,,-150.00,DINV-1\n" +
		"08/03/2024,,,200.00,CINV-2\n"
	if string(data) != wantCSV {
		t.Errorf("artifact = %q, want %q", data, wantCSV)
	}
}

func TestService_MissingMappingAbortsCommit(t *testing.T) {
	svc, conversions, artifacts := newTestService()

	up, err := svc.RegisterUpload("bank.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}

	_, err = svc.Commit(context.Background(), up.Table, ColumnMapping{FieldAmount: "Amount"}, "out.csv", up.FileName)
	if !errors.Is(err, ErrMissingRequiredMapping) {
		t.Fatalf("Commit() error = %v, want ErrMissingRequiredMapping", err)
	}
	if len(conversions.saved) != 0 || len(artifacts.files) != 0 {
		t.Errorf("partial persistence on failed commit: %d records, %d artifacts",
			len(conversions.saved), len(artifacts.files))
	}
}

func TestService_RegisterUploadSuggestsMapping(t *testing.T) {
	svc, _, _ := newTestService()

	up, err := svc.RegisterUpload("statement.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}
	if up.Suggested[FieldDate] != "Txn Date" {
		t.Errorf("suggested Date = %q, want %q", up.Suggested[FieldDate], "Txn Date")
	}
	if up.Suggested[FieldAmount] != "Amount" {
		t.Errorf("suggested Amount = %q, want %q", up.Suggested[FieldAmount], "Amount")
	}

	got, err := svc.Session(up.ID)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if got != up {
		t.Errorf("Session() returned a different upload")
	}
}

func TestService_RegisterUploadRejectsBadFiles(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.RegisterUpload("notes.txt", []byte("hello")); err == nil {
		t.Error("RegisterUpload() accepted an unsupported extension")
	}
	if _, err := svc.RegisterUpload("empty.csv", []byte("Header1,Header2\n")); err == nil {
		t.Error("RegisterUpload() accepted a file with no data rows")
	}
}

func TestService_TimestampsAreUTC(t *testing.T) {
	svc, _, _ := newTestService()

	up, err := svc.RegisterUpload("statement.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}
	if up.CreatedAt.Location() != time.UTC {
		t.Errorf("Upload.CreatedAt location = %v, want UTC", up.CreatedAt.Location())
	}

	record, err := svc.Commit(context.Background(), up.Table, up.Suggested, "out", up.FileName)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if record.CreatedAt.Location() != time.UTC {
		t.Errorf("Conversion.CreatedAt location = %v, want UTC", record.CreatedAt.Location())
	}
}

func TestService_SessionNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Session("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Session() error = %v, want ErrSessionNotFound", err)
	}
}

func TestService_SessionTTL(t *testing.T) {
	if svc := NewService(&fakeConversionStore{}, newFakeArtifactStore(), 0); svc.sessionTTL != DefaultSessionTTL {
		t.Errorf("sessionTTL = %s, want default %s", svc.sessionTTL, DefaultSessionTTL)
	}
	if svc := NewService(&fakeConversionStore{}, newFakeArtifactStore(), 5*time.Minute); svc.sessionTTL != 5*time.Minute {
		t.Errorf("sessionTTL = %s, want 5m", svc.sessionTTL)
	}
}

func TestService_SweepSessions(t *testing.T) {
	svc := NewService(&fakeConversionStore{}, newFakeArtifactStore(), time.Minute)

	up, err := svc.RegisterUpload("a.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("RegisterUpload() error = %v", err)
	}

	if n := svc.sweepSessions(time.Now()); n != 0 {
		t.Errorf("fresh session evicted: %d", n)
	}
	if n := svc.sweepSessions(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("expired sweep evicted %d sessions, want 1", n)
	}
	if _, err := svc.Session(up.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired session still resolvable: %v", err)
	}
}

func TestRenderCSV_FlaggedRows(t *testing.T) {
	rows := []CanonicalRow{
		{Line: 1, Date: "", ChequeNumber: "12", Description: "bad date", Amount: "5.00", Reference: "Cx"},
		{Line: 2, Date: "01/01/2024", Description: "bad amount", Amount: "n/a", Reference: "y"},
	}

	got := string(RenderCSV(rows))
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("rendered %d lines, want 3", len(lines))
	}
	if lines[0] != "Date,Cheque No.,Description,Amount,Reference" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != ",12,bad date,5.00,Cx" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "01/01/2024,,bad amount,n/a,y" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func artifactNames(f *fakeArtifactStore) []string {
	names := make([]string, 0, len(f.files))
	for n := range f.files {
		names = append(names, n)
	}
	return names
}
