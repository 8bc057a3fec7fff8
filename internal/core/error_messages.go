package core

// error_messages.go maps technical errors to user-facing messages with codes
// that users can quote to support.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large          Patterns: "file too large", "request body too large"
//	FILE002 - Unsupported format      ErrUnsupportedFormat
//	FILE003 - File could not be read  ErrFileRead
//	FILE004 - No file selected        Patterns: "no file provided"
//	FILE005 - Empty file              ErrEmptyFile
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - No usable rows           ErrNoValidRows
//	VAL002 - Nothing to send          ErrEmptyInput
//	VAL003 - Text too short           Patterns: "text too short"
//	VAL004 - Malformed request        Patterns: "invalid request"
//	VAL005 - Too many paragraphs      ErrTooManyUnits
//
// # Classifier Service Errors (SVC001-SVC099)
//
//	SVC001 - Service returned an error  *ServiceError
//	SVC002 - Unexpected response shape  ErrShapeMismatch
//	SVC003 - Service unreachable        Patterns: "connection refused", "no such host"
//	SVC004 - Reply too large            ErrResponseTooLarge
//
// # Request Errors (UPL001-UPL099)
//
//	UPL002 - System busy        ErrTooManyRetrains
//	UPL004 - Request cancelled  context.Canceled
//	UPL005 - Request timeout    context.DeadlineExceeded, Patterns: "timeout"
//
// # Storage and History (STO001-STO099, HIS001-HIS099)
//
//	STO001 - Object storage not configured  Patterns: "object storage is not configured"
//	STO002 - Object not found               Patterns: "object not found"
//	HIS001 - Run history not configured     Patterns: "run history is not configured"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests  Patterns: "rate limit"
//
// # Default (ERR000)
//
// Sentinel errors are checked first with errors.Is / errors.As. Patterns are
// then matched case-insensitively with strings.Contains, first match wins.
// For ERR000 check the logs for the original error.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnsupportedFormat = UserMessage{
		Message: "Unsupported file format",
		Action:  "Upload a .csv, .xlsx or .xls file",
		Code:    "FILE002",
	}
	msgFileRead = UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file is not damaged and is saved as CSV (UTF-8) or Excel",
		Code:    "FILE003",
	}
	msgEmptyFile = UserMessage{
		Message: "The file has no data rows",
		Action:  "Add a header row and at least one data row",
		Code:    "FILE005",
	}
	msgNoValidRows = UserMessage{
		Message: "No row has both a text and a label",
		Action:  "Name your columns text/label (or texto/etiqueta, mensaje/categoria) and fill both",
		Code:    "VAL001",
	}
	msgEmptyInput = UserMessage{
		Message: "There is no text to send",
		Action:  "Enter some text or upload a file with data",
		Code:    "VAL002",
	}
	msgTooManyUnits = UserMessage{
		Message: "The text has too many paragraphs",
		Action:  "Send fewer paragraphs per request or turn off splitting",
		Code:    "VAL005",
	}
	msgServiceError = UserMessage{
		Message: "The classification service returned an error",
		Action:  "Please try again; if it keeps failing, contact support",
		Code:    "SVC001",
	}
	msgShapeMismatch = UserMessage{
		Message: "The classification service returned an unexpected response",
		Action:  "Check that the service version matches this application",
		Code:    "SVC002",
	}
	msgResponseTooLarge = UserMessage{
		Message: "The classification service reply was too large",
		Action:  "Send fewer paragraphs per request",
		Code:    "SVC004",
	}
	msgTooManyRetrains = UserMessage{
		Message: "A model is already being retrained",
		Action:  "Please wait for it to finish and try again",
		Code:    "UPL002",
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "UPL005",
	}
)

// sentinelMessages is checked with errors.Is before any pattern.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrUnsupportedFormat, msgUnsupportedFormat},
	{ErrFileRead, msgFileRead},
	{ErrEmptyFile, msgEmptyFile},
	{ErrNoValidRows, msgNoValidRows},
	{ErrEmptyInput, msgEmptyInput},
	{ErrTooManyUnits, msgTooManyUnits},
	{ErrShapeMismatch, msgShapeMismatch},
	{ErrResponseTooLarge, msgResponseTooLarge},
	{ErrTooManyRetrains, msgTooManyRetrains},
	{context.Canceled, msgCanceled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches errors that cross package or process boundaries as
// plain text. Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "text too short",
		msg: UserMessage{
			Message: "The text is too short to classify",
			Action:  "Enter at least a full sentence",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request body and try again",
			Code:    "VAL004",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the classification service",
			Action:  "Please try again in a few moments",
			Code:    "SVC003",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to reach the classification service",
			Action:  "Check the service address configuration",
			Code:    "SVC003",
		},
	},
	{
		pattern: "object storage is not configured",
		msg: UserMessage{
			Message: "Object storage is not available",
			Action:  "Upload the file directly instead",
			Code:    "STO001",
		},
	},
	{
		pattern: "object not found",
		msg: UserMessage{
			Message: "The requested file was not found in storage",
			Action:  "Check the object key and try again",
			Code:    "STO002",
		},
	},
	{
		pattern: "run history is not configured",
		msg: UserMessage{
			Message: "Training history is not available",
			Action:  "Configure a database to keep training history",
			Code:    "HIS001",
		},
	},
	{
		pattern: "timeout",
		msg:     msgTimeout,
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := fmt.Errorf("%w: sheet has no data rows", ErrEmptyFile)
//	msg := MapError(err)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}
	if _, ok := IsServiceError(err); ok {
		return msgServiceError
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
