package middleware

import (
	"fmt"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/astrofront/astrofront/internal/metrics"
)

// SizeLimit rejects oversized payloads before any handler work. A declared
// Content-Length over the cap is refused outright; bodies without one are
// capped by MaxBytesReader so a lying client fails at read time instead.
func SizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				envelope := errors.NewErrorEnvelope("PAYLOAD_TOO_LARGE",
					fmt.Sprintf("Request body exceeds the %d byte limit", maxBytes)).
					WithCorrelationID(GetRequestID(r.Context()))
				envelope, _ = envelope.WithContext(map[string]interface{}{
					"content_length": r.ContentLength,
					"max_body_bytes": maxBytes,
				})

				metrics.RecordError("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge)
				writeErrorResponse(w, envelope, http.StatusRequestEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
