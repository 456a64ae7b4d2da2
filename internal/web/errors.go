package web

// errors.go provides unified error response handling for the API.
//
// Handlers call respondError with whatever the core returned; the error is
// logged with full technical detail server-side and mapped to a
// user-friendly message with a support code via core.MapError before it
// reaches the client.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/core"
	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/logging"
	"github.com/sicapo-dev/CSV-to-Xero-Converter/internal/tabular"
)

// ErrorResponse is the JSON body for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusForError(err))
}

// respondBadRequest is for request-shape problems the core never sees.
func (s *Server) respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	s.respondErrorStatus(w, r, errors.New(message), http.StatusBadRequest)
}

func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusForError maps core and loader failures to HTTP status codes.
// Anything unrecognized is treated as an internal failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, tabular.ErrEmptyFile),
		errors.Is(err, core.ErrMissingRequiredMapping),
		errors.Is(err, core.ErrEmptyOutputName):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrConversionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
