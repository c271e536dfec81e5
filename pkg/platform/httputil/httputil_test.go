package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "roster/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("bad request carries description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "min_age must be a non-negative number"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "min_age must be a non-negative number", body["error_description"])
	})

	t.Run("pass in progress maps to conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodePassInProgress, ""))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "pass_in_progress", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("non-domain error hides details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: connection reset"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestDomainCodeToHTTPStatus(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeNotFound:                http.StatusNotFound,
		dErrors.CodeSchemaMismatch:          http.StatusUnprocessableEntity,
		dErrors.CodeFieldConditionViolation: http.StatusUnprocessableEntity,
		dErrors.CodeUnauthorized:            http.StatusUnauthorized,
		dErrors.CodeTimeout:                 http.StatusGatewayTimeout,
		dErrors.CodePublishFault:            http.StatusBadGateway,
		dErrors.CodeStoreFault:              http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, DomainCodeToHTTPStatus(code), string(code))
	}
}

func TestWriteText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteText(w, http.StatusOK, "hello")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello", w.Body.String())
}
