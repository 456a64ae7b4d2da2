package core

// error_messages.go defines user-friendly error messages with codes for
// support reference. When users encounter errors they can quote the code to
// support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
//	FILE001 - Unsupported format: file is neither CSV nor XLSX
//	FILE002 - Empty file: the file contains no data rows
//	FILE003 - Invalid file: the file could not be parsed
//	FILE004 - No file: no file was provided with the request
//
//	MAP001  - Missing required mapping: Date or Amount is unmapped
//	MAP002  - Session not found: the upload session expired or never existed
//
//	CONV001 - Conversion not found
//	CONV002 - Invalid output name
//
//	DB001   - Database unavailable
//	DB002   - Operation timed out
//
//	ERR000  - Fallback when no specific pattern matches
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern pairs a technical error substring with its user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File and parsing errors
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a CSV or XLSX file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file contains no data",
			Action:  "Check that the file has at least one row below the header",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent quoting",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid xlsx",
		msg: UserMessage{
			Message: "The file is not a valid XLSX workbook",
			Action:  "Re-export the spreadsheet and try again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV or XLSX file to upload",
			Code:    "FILE004",
		},
	},

	// Mapping errors
	{
		pattern: "missing required mapping",
		msg: UserMessage{
			Message: "Date and Amount must be mapped to a source column",
			Action:  "Assign source columns to the Date and Amount fields",
			Code:    "MAP001",
		},
	},
	{
		pattern: "upload session not found",
		msg: UserMessage{
			Message: "This upload has expired",
			Action:  "Upload the file again",
			Code:    "MAP002",
		},
	},

	// Conversion errors
	{
		pattern: "conversion not found",
		msg: UserMessage{
			Message: "The requested conversion does not exist",
			Action:  "Check the conversion list and try again",
			Code:    "CONV001",
		},
	},
	{
		pattern: "output name must not be empty",
		msg: UserMessage{
			Message: "The output file needs a name",
			Action:  "Enter a name for the converted file",
			Code:    "CONV002",
		},
	},

	// Database errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try again, or upload a smaller file",
			Code:    "DB002",
		},
	},
}

// MapError converts a technical error to a user-friendly message.
// Returns a generic message with code ERR000 if no pattern matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{
			Message: "An unknown error occurred",
			Action:  "Please try again",
			Code:    "ERR000",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}

// FormatUserError renders a UserMessage as a single line for plain-text
// contexts such as logs.
func FormatUserError(msg UserMessage) string {
	if msg.Action != "" {
		return fmt.Sprintf("%s. %s (code %s)", msg.Message, msg.Action, msg.Code)
	}
	return fmt.Sprintf("%s (code %s)", msg.Message, msg.Code)
}
