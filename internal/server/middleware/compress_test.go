package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrofront/astrofront/internal/compress"
)

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestCompress_LargeJSONIsEncoded(t *testing.T) {
	body := `{"data":"` + strings.Repeat("x", 5000) + `"}`
	wrapped := Compress(compress.New(1024, 6))(jsonHandler(body))

	req := httptest.NewRequest("GET", "/api/v4/chart", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
	assert.Less(t, rec.Body.Len(), len(body), "encoded body should be smaller")

	gz, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))
}

func TestCompress_SmallBodyPassesThrough(t *testing.T) {
	body := `{"ok":true}`
	wrapped := Compress(compress.New(1024, 6))(jsonHandler(body))

	req := httptest.NewRequest("GET", "/api/v4/now", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, body, rec.Body.String())
}

func TestCompress_ClientWithoutGzipGetsPlainBody(t *testing.T) {
	body := `{"data":"` + strings.Repeat("x", 5000) + `"}`
	wrapped := Compress(compress.New(1024, 6))(jsonHandler(body))

	req := httptest.NewRequest("GET", "/api/v4/chart", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, body, rec.Body.String())
}

func TestCompress_BinaryContentSkipped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(bytes.Repeat([]byte{0xde, 0xad}, 3000))
	})
	wrapped := Compress(compress.New(1024, 6))(handler)

	req := httptest.NewRequest("GET", "/blob", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, 6000, rec.Body.Len())
}

func TestCompress_StatusCodePreserved(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	wrapped := Compress(compress.New(1024, 6))(handler)

	req := httptest.NewRequest("GET", "/missing", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptsGzip(t *testing.T) {
	tests := []struct {
		header   string
		expected bool
	}{
		{"gzip", true},
		{"gzip, deflate, br", true},
		{"deflate, gzip;q=0.8", true},
		{"deflate", false},
		{"", false},
		{"identity", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Accept-Encoding", tt.header)
		}
		assert.Equal(t, tt.expected, acceptsGzip(req), "header %q", tt.header)
	}
}
