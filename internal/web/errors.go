package web

// errors.go maps errors to JSON bodies carrying a support code.
//
//	VAL001  invalid numeric code in an input record
//	VAL002  bad request parameter
//	FILE001 file too large
//	FILE002 malformed input file
//	FILE003 unknown text encoding
//	FILE004 no file uploaded
//	DB001   constraint violation while importing
//	DB002   database unavailable
//	DB003   timeout
//	IMP001  another import is running
//	LKP001  no row matches the requested codes
//	ERR000  anything else
//
// Typed errors are classified first. Everything else falls through to a
// case-insensitive substring table where the first match wins.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/jisarea/internal/jiscode"
	"github.com/JonMunkholm/jisarea/internal/logging"
	"github.com/JonMunkholm/jisarea/internal/lookup"
	"github.com/JonMunkholm/jisarea/internal/record"
	"github.com/JonMunkholm/jisarea/internal/store"
)

// UserMessage is the client-facing side of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	msgInvalidCode = UserMessage{
		Message: "A record contains an invalid area code",
		Action:  "Check the PREF, CITY and S_AREA columns at the reported line",
		Code:    "VAL001",
	}
	msgBadParam = UserMessage{
		Message: "Invalid request parameter",
		Action:  "Codes must be numeric; offset must be >= 0 and limit > 0",
		Code:    "VAL002",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the upload into smaller requests",
		Code:    "FILE001",
	}
	msgMalformed = UserMessage{
		Message: "The file could not be read",
		Action:  "Upload a CSV or DBF file with the expected columns",
		Code:    "FILE002",
	}
	msgEncoding = UserMessage{
		Message: "Unknown text encoding",
		Action:  "Use cp932, shift_jis, euc-jp or utf-8",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was uploaded",
		Action:  "Send one or more files in the 'files' form field",
		Code:    "FILE004",
	}
	msgConstraint = UserMessage{
		Message: "The import conflicts with existing data and was rolled back",
		Action:  "Check the database for rows written outside the importer",
		Code:    "DB001",
	}
	msgUnavailable = UserMessage{
		Message: "Unable to reach the database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller upload or try again later",
		Code:    "DB003",
	}
	msgBusy = UserMessage{
		Message: "Another import is running",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgNotFound = UserMessage{
		Message: "No matching record",
		Action:  "Check the codes or import the data first",
		Code:    "LKP001",
	}
	msgUnknown = UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or check the server logs",
		Code:    "ERR000",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"request body too large", msgTooLarge},
	{"file too large", msgTooLarge},
	{"no file", msgNoFile},
	{"unsupported encoding", msgEncoding},
	{"connection refused", msgUnavailable},
	{"connection reset", msgUnavailable},
	{"database is locked", msgUnavailable},
	{"context deadline exceeded", msgTimeout},
	{"timeout", msgTimeout},
}

var (
	// errNoFile is reported when a multipart upload carries no files.
	errNoFile = errors.New("no file provided")

	errNotFound = errors.New("not found")
)

// badParamError marks a malformed path or query parameter.
type badParamError struct {
	name  string
	value string
}

func (e *badParamError) Error() string {
	return "invalid parameter " + e.name + ": " + e.value
}

// MapError returns the user message for err. A nil err maps to the zero
// UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verr *jiscode.ValidationError
	var derr *record.DecodeError
	var perr *badParamError
	switch {
	case errors.Is(err, ErrImportBusy):
		return msgBusy
	case errors.As(err, &perr), errors.Is(err, lookup.ErrInvalidPage):
		return msgBadParam
	case errors.As(err, &verr):
		return msgInvalidCode
	case errors.Is(err, store.ErrConstraint):
		return msgConstraint
	case errors.Is(err, errNoFile):
		return msgNoFile
	case errors.Is(err, errNotFound):
		return msgNotFound
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}

	// Decode errors are checked after the patterns so an encoding problem
	// surfaced while decoding keeps its own code.
	if errors.As(err, &derr) {
		return msgMalformed
	}
	return msgUnknown
}

// respondError logs err with the request id and writes its JSON body.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := MapError(err)

	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   err.Error(),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}); encErr != nil {
		logger.Error("json encode error", "error", encErr)
	}
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
