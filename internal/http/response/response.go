// Package response holds the JSON envelope every endpoint answers with, plus
// writers for the few paths that bypass huma (router fallbacks, middleware).
package response

import (
	"encoding/json/v2"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

// Version is the envelope format version sent as "v".
const Version = 1

// Envelope is {"v":1,"success":...} with exactly one of data or error set.
type Envelope struct {
	Version int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitzero"`
	Error   *ErrorBody `json:"error,omitzero"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func Ok(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

func Fail(code, message string, details any) Envelope {
	return Envelope{Version: Version, Error: &ErrorBody{Code: code, Message: message, Details: details}}
}

// Write sends env with status. Encoding failures can only be logged since the
// header is already out.
func Write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.MarshalWrite(w, env); err != nil && logger != nil {
		logger.Warn("response encoding failed", "status", status, "error", err)
	}
}

func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	Write(w, http.StatusOK, Ok(data), logger)
}

// Problem writes a failure envelope without details.
func Problem(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	Write(w, status, Fail(string(code), message, nil), logger)
}

func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Problem(w, http.StatusNotFound, domainerrors.CodeNotFound, message, logger)
}

func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	Problem(w, http.StatusMethodNotAllowed, domainerrors.CodeBadRequest, "method not allowed", logger)
}

func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Problem(w, http.StatusTooManyRequests, domainerrors.CodeRateLimited, message, logger)
}

// HandleError writes err as a failure envelope. A *domainerrors.Error keeps
// its code, status and details; anything else is logged and hidden behind a
// generic 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	if de, ok := errors.AsType[*domainerrors.Error](err); ok {
		Write(w, de.HTTPStatus(), Fail(string(de.Code), de.Message, de.Details), logger)
		return
	}
	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Problem(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
}
