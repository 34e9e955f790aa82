package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/http/response"
)

// EnvelopeVersion is sent as "v" in every response body.
const EnvelopeVersion = response.Version

// EnvelopeTransformer wraps every huma response body in the shared
// envelope. Errors become {"success":false,"error":{...}}.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case *domainerrors.Error:
		return response.Fail(string(body.Code), body.Message, body.Details), nil
	case error:
		code, _ := strconv.Atoi(status)
		return response.Fail(statusToCode(code), body.Error(), nil), nil
	}
	return response.Ok(v), nil
}
