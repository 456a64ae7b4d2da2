package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/tabular"
)

// DefaultSessionTTL is how long an upload session stays resident between
// the initial upload and the final convert call, unless NewService is given
// a different TTL.
const DefaultSessionTTL = 2 * time.Hour

var (
	// ErrSessionNotFound is returned when a file ID does not correspond to
	// a live upload session.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrConversionNotFound is returned when a conversion ID is unknown.
	ErrConversionNotFound = errors.New("conversion not found")

	// ErrEmptyOutputName is returned by Commit when no output name is given.
	ErrEmptyOutputName = errors.New("output name must not be empty")
)

// Conversion is the persisted record of one committed conversion.
type Conversion struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_filename"`
	OutputName   string    `json:"formatted_filename"`
	ArtifactPath string    `json:"-"`
	RowCount     int       `json:"row_count"`
	IssueCount   int       `json:"issue_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversionStore persists conversion records. The Postgres implementation
// lives in internal/store; tests use an in-memory fake.
type ConversionStore interface {
	Save(ctx context.Context, c Conversion) error
	List(ctx context.Context) ([]Conversion, error)
	Get(ctx context.Context, id string) (Conversion, error)
}

// ArtifactStore persists rendered output files and resolves them for
// download. Write returns a durable handle (for the disk store, a path).
type ArtifactStore interface {
	Write(name string, data []byte) (string, error)
	Path(name string) (string, error)
}

// ConversionRecord bundles a saved conversion with the rows it produced.
type ConversionRecord struct {
	Conversion
	Rows []CanonicalRow `json:"rows"`
}

// Upload is one cached upload session: the parsed table plus the suggested
// mapping computed when the file arrived. The table is read-only from the
// moment the session is created.
type Upload struct {
	ID        string
	FileName  string
	Table     *tabular.SourceTable
	Suggested ColumnMapping
	CreatedAt time.Time
}

// Service coordinates previews and commits. Both paths call Transform with
// byte-identical inputs; the service itself performs no transformation
// logic, which is what guarantees that a preview and a later commit of the
// same mapping agree.
type Service struct {
	conversions ConversionStore
	artifacts   ArtifactStore
	sessionTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Upload
}

// NewService creates a Service backed by the given stores. A non-positive
// sessionTTL falls back to DefaultSessionTTL.
func NewService(conversions ConversionStore, artifacts ArtifactStore, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Service{
		conversions: conversions,
		artifacts:   artifacts,
		sessionTTL:  sessionTTL,
		sessions:    make(map[string]*Upload),
	}
}

// RegisterUpload parses an uploaded file, computes the suggested mapping and
// caches both under a fresh file ID for later preview/convert calls.
func (s *Service) RegisterUpload(fileName string, data []byte) (*Upload, error) {
	format, err := tabular.FormatFromFilename(fileName)
	if err != nil {
		return nil, err
	}
	table, err := tabular.Load(data, format)
	if err != nil {
		return nil, err
	}

	up := &Upload{
		ID:        uuid.New().String(),
		FileName:  fileName,
		Table:     table,
		Suggested: SuggestMapping(table.Columns()),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[up.ID] = up
	s.mu.Unlock()

	return up, nil
}

// Session returns the upload session for a file ID.
func (s *Service) Session(fileID string) (*Upload, error) {
	s.mu.RLock()
	up, ok := s.sessions[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, fileID)
	}
	return up, nil
}

// Preview computes the canonical rows for the mapping without persisting
// anything.
func (s *Service) Preview(table *tabular.SourceTable, mapping ColumnMapping) ([]CanonicalRow, error) {
	return Transform(table, mapping)
}

// Commit computes the canonical rows for the mapping, renders the CSV
// artifact and records the conversion. The row computation is the same call
// Preview makes, with the same inputs.
func (s *Service) Commit(ctx context.Context, table *tabular.SourceTable, mapping ColumnMapping, outputName, originalName string) (*ConversionRecord, error) {
	outputName = strings.TrimSpace(outputName)
	if outputName == "" {
		return nil, ErrEmptyOutputName
	}
	if !strings.HasSuffix(strings.ToLower(outputName), ".csv") {
		outputName += ".csv"
	}

	rows, err := Transform(table, mapping)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	path, err := s.artifacts.Write(id+"_"+outputName, RenderCSV(rows))
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	conv := Conversion{
		ID:           id,
		OriginalName: originalName,
		OutputName:   outputName,
		ArtifactPath: path,
		RowCount:     len(rows),
		IssueCount:   countIssues(rows),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.conversions.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversion: %w", err)
	}

	return &ConversionRecord{Conversion: conv, Rows: rows}, nil
}

// Conversions lists all saved conversion records, newest first.
func (s *Service) Conversions(ctx context.Context) ([]Conversion, error) {
	return s.conversions.List(ctx)
}

// Conversion returns one saved conversion record.
func (s *Service) Conversion(ctx context.Context, id string) (Conversion, error) {
	return s.conversions.Get(ctx, id)
}

// ArtifactPath resolves the on-disk location of a conversion's artifact.
func (s *Service) ArtifactPath(ctx context.Context, id string) (string, error) {
	conv, err := s.conversions.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.artifacts.Path(conv.ID + "_" + conv.OutputName)
}

// StartSessionSweeper evicts expired upload sessions until ctx is cancelled.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(time.Now())
		}
	}
}

// sweepSessions removes sessions older than the session TTL.
func (s *Service) sweepSessions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, up := range s.sessions {
		if now.Sub(up.CreatedAt) > s.sessionTTL {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func countIssues(rows []CanonicalRow) int {
	n := 0
	for _, r := range rows {
		n += len(r.Issues)
	}
	return n
}
