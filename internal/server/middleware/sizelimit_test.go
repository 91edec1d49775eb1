package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeLimit_DeclaredOversizeRejected(t *testing.T) {
	wrapped := SizeLimit(1024)(okHandler())

	req := httptest.NewRequest("POST", "/api/v4/birth-chart", strings.NewReader(strings.Repeat("a", 2048)))
	req.ContentLength = 2048
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body.Error.Code)
}

func TestSizeLimit_SmallBodyPasses(t *testing.T) {
	wrapped := SizeLimit(1024)(okHandler())

	req := httptest.NewRequest("POST", "/api/v4/birth-chart", strings.NewReader(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSizeLimit_UndeclaredOversizeFailsAtRead(t *testing.T) {
	var readErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		if readErr != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	wrapped := SizeLimit(64)(handler)

	// No Content-Length declared: the cap is enforced by the reader.
	req := httptest.NewRequest("POST", "/api/v4/birth-chart", strings.NewReader(strings.Repeat("a", 1024)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	require.Error(t, readErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSizeLimit_GetWithoutBodyUnaffected(t *testing.T) {
	wrapped := SizeLimit(1)(okHandler())

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v4/chart", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
