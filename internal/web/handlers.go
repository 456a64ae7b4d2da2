package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/core"
	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/logging"
	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/tabular"
)

const apiVersion = "1.0.0"

// uploadResponse is returned by POST /api/upload. The formatted preview is
// present only when the suggested mapping already covers the required
// fields; otherwise the user must finish the mapping and call /api/preview.
type uploadResponse struct {
	FileID          string              `json:"file_id"`
	FileType        string              `json:"file_type"`
	OriginalColumns []string            `json:"original_columns"`
	ColumnMapping   core.ColumnMapping  `json:"column_mapping"`
	OriginalData    []map[string]string `json:"original_data"`
	FormattedData   []core.CanonicalRow `json:"formatted_data,omitempty"`
	RowCount        int                 `json:"row_count"`
}

// previewRequest is the body for POST /api/preview and /api/convert.
type previewRequest struct {
	FileID            string             `json:"file_id"`
	ColumnMapping     core.ColumnMapping `json:"column_mapping"`
	FormattedFilename string             `json:"formatted_filename,omitempty"`
}

type previewResponse struct {
	FormattedData []core.CanonicalRow `json:"formatted_data"`
	RowCount      int                 `json:"row_count"`
	IssueCount    int                 `json:"issue_count"`
}

type convertResponse struct {
	ConversionID      string              `json:"conversion_id"`
	FormattedFilename string              `json:"formatted_filename"`
	FormattedData     []core.CanonicalRow `json:"formatted_data"`
	RowCount          int                 `json:"row_count"`
	IssueCount        int                 `json:"issue_count"`
}

// handleUpload accepts a CSV/XLSX file, parses it, suggests a mapping and
// returns an initial preview.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondBadRequest(w, r, "file too large or invalid form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondBadRequest(w, r, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	up, err := s.service.RegisterUpload(header.Filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	limit := s.cfg.Upload.PreviewRows
	resp := uploadResponse{
		FileID:          up.ID,
		FileType:        string(mustFormat(header.Filename)),
		OriginalColumns: up.Table.Columns(),
		ColumnMapping:   up.Suggested,
		OriginalData:    sourcePreview(up, limit),
		RowCount:        up.Table.RowCount(),
	}

	// Best effort: the suggestion may leave Date or Amount unmapped, in
	// which case there is no initial formatted preview.
	if rows, err := s.service.Preview(up.Table, up.Suggested); err == nil {
		resp.FormattedData = capRows(rows, limit)
	}

	logging.FromContext(r.Context()).Info("file uploaded",
		"file_id", up.ID,
		"filename", header.Filename,
		"rows", up.Table.RowCount(),
		"columns", len(up.Table.Columns()),
	)
	writeJSON(w, resp)
}

// handlePreview recomputes the formatted rows for an edited mapping.
// Nothing is persisted.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, r, "invalid json body")
		return
	}

	up, err := s.service.Session(req.FileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rows, err := s.service.Preview(up.Table, req.ColumnMapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, previewResponse{
		FormattedData: rows,
		RowCount:      len(rows),
		IssueCount:    issueCount(rows),
	})
}

// handleConvert finalizes a conversion: same computation as preview, plus
// artifact rendering and record persistence.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, r, "invalid json body")
		return
	}

	up, err := s.service.Session(req.FileID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	record, err := s.service.Commit(r.Context(), up.Table, req.ColumnMapping, req.FormattedFilename, up.FileName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("conversion committed",
		"conversion_id", record.ID,
		"output", record.OutputName,
		"rows", record.RowCount,
		"issues", record.IssueCount,
	)
	writeJSON(w, convertResponse{
		ConversionID:      record.ID,
		FormattedFilename: record.OutputName,
		FormattedData:     record.Rows,
		RowCount:          record.RowCount,
		IssueCount:        record.IssueCount,
	})
}

// handleConversions lists saved conversion records, newest first.
func (s *Server) handleConversions(w http.ResponseWriter, r *http.Request) {
	conversions, err := s.service.Conversions(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"conversions": conversions})
}

// handleDownload streams a committed artifact.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversionID")

	conv, err := s.service.Conversion(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	path, err := s.service.ArtifactPath(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", conv.OutputName))
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, path)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "OK", "version": apiVersion})
}

// sourcePreview echoes the first rows of the uploaded table.
func sourcePreview(up *core.Upload, limit int) []map[string]string {
	n := up.Table.RowCount()
	if n > limit {
		n = limit
	}
	rows := make([]map[string]string, n)
	for i := 0; i < n; i++ {
		rows[i] = up.Table.Row(i)
	}
	return rows
}

func capRows(rows []core.CanonicalRow, limit int) []core.CanonicalRow {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// mustFormat re-derives the format of a file name that RegisterUpload has
// already accepted.
func mustFormat(name string) tabular.Format {
	f, _ := tabular.FormatFromFilename(name)
	return f
}

func issueCount(rows []core.CanonicalRow) int {
	n := 0
	for _, row := range rows {
		n += len(row.Issues)
	}
	return n
}
