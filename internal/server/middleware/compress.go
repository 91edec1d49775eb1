package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/astrofront/astrofront/internal/compress"
	"github.com/astrofront/astrofront/internal/metrics"
)

// compressWriter buffers the full response so the encoding decision can use
// the final body size. Nothing reaches the client until the handler returns.
type compressWriter struct {
	http.ResponseWriter
	statusCode  int
	body        []byte
	wroteHeader bool
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.statusCode = code
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	cw.body = append(cw.body, b...)
	return len(b), nil
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		encoding := part
		if idx := strings.Index(encoding, ";"); idx >= 0 {
			encoding = encoding[:idx]
		}
		if strings.TrimSpace(encoding) == "gzip" {
			return true
		}
	}
	return false
}

// Compress gzip-encodes response bodies that clear the compressor's size and
// content-type policy, for clients that advertise gzip support. Bodies below
// the threshold go out verbatim: the window where gzip overhead exceeds its
// savings is exactly the small-payload range.
func Compress(compressor *compress.Compressor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsGzip(r) {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(cw, r)

			contentType := cw.Header().Get("Content-Type")
			if compressor.ShouldCompress(contentType, len(cw.body)) {
				if encoded, err := compressor.Encode(cw.body); err == nil {
					metrics.RecordCompression(true)
					cw.Header().Set("Content-Encoding", "gzip")
					cw.Header().Add("Vary", "Accept-Encoding")
					cw.Header().Set("Content-Length", strconv.Itoa(len(encoded)))
					w.WriteHeader(cw.statusCode)
					_, _ = w.Write(encoded)
					return
				}
			}

			metrics.RecordCompression(false)
			cw.Header().Set("Content-Length", strconv.Itoa(len(cw.body)))
			w.WriteHeader(cw.statusCode)
			_, _ = w.Write(cw.body)
		})
	}
}
