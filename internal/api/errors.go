package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

// APIError is what every failed operation returns through huma. It is
// rendered into the envelope's error object by EnvelopeTransformer.
type APIError struct { //nolint:revive // stutters with the package name on purpose
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string               { return e.Message }
func (e *APIError) GetStatus() int              { return e.status }
func (e *APIError) ContentType(_ string) string { return "application/json" }

// FieldError is one failed check from huma's own request validation.
type FieldError struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// RegisterErrorHandler installs newError as huma's error factory. It must run
// before any operation is registered.
func RegisterErrorHandler() {
	huma.NewError = newError
}

// newError prefers a domain error found among errs. Otherwise huma's request
// validation details are collected, and a 422 from them is reported as a 400
// VALIDATION so it reads like a service-side validation failure.
func newError(status int, message string, errs ...error) huma.StatusError {
	var fields []FieldError
	for _, err := range errs {
		if de, ok := errors.AsType[*domainerrors.Error](err); ok {
			return &APIError{status: de.HTTPStatus(), Code: string(de.Code), Message: de.Message, Details: de.Details}
		}
		if d, ok := errors.AsType[*huma.ErrorDetail](err); ok {
			fields = append(fields, FieldError{Location: d.Location, Message: d.Message})
		}
	}

	out := &APIError{status: status, Code: statusToCode(status), Message: message}
	if len(fields) > 0 {
		out.Details = fields
		if status == http.StatusUnprocessableEntity {
			out.status = http.StatusBadRequest
			out.Code = string(domainerrors.CodeValidation)
		}
	}
	return out
}

var codeByStatus = map[int]domainerrors.Code{
	http.StatusBadRequest:          domainerrors.CodeBadRequest,
	http.StatusNotFound:            domainerrors.CodeNotFound,
	http.StatusConflict:            domainerrors.CodeConflict,
	http.StatusUnprocessableEntity: domainerrors.CodeValidation,
	http.StatusTooManyRequests:     domainerrors.CodeRateLimited,
	http.StatusServiceUnavailable:  domainerrors.CodeUnavailable,
}

// statusToCode names a bare status. Unlisted 4xx are BAD_REQUEST and
// everything else INTERNAL.
func statusToCode(status int) string {
	if code, ok := codeByStatus[status]; ok {
		return string(code)
	}
	if status >= 400 && status < 500 {
		return string(domainerrors.CodeBadRequest)
	}
	return string(domainerrors.CodeInternal)
}
