package response

import (
	"encoding/json/v2"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"message": "test"}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, float64(Version), body["v"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"message": "test"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no route", discard()) }, http.StatusNotFound, "NOT_FOUND"},
		{"method", func(w http.ResponseWriter) { MethodNotAllowed(w, discard()) }, http.StatusMethodNotAllowed, "BAD_REQUEST"},
		{"rate limited", func(w http.ResponseWriter) { TooManyRequests(w, "slow down", discard()) }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"problem", func(w http.ResponseWriter) { Problem(w, http.StatusServiceUnavailable, domainerrors.CodeUnavailable, "busy", discard()) }, http.StatusServiceUnavailable, "UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)

			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.NotContains(t, body, "data")
			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.code, errBody["code"])
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Run("domain error keeps details", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := domainerrors.Fields("invalid", []string{"name"}, map[string]string{"name": "required"})
		HandleError(w, err, discard())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decode(t, w)["error"].(map[string]any)
		assert.Equal(t, "VALIDATION", errBody["code"])
		assert.NotNil(t, errBody["details"])
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleError(w, errors.New("disk on fire"), discard())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		errBody := decode(t, w)["error"].(map[string]any)
		assert.Equal(t, "internal server error", errBody["message"])
	})
}
