package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/metrics"
	"github.com/astrofront/astrofront/internal/observability"
	"github.com/astrofront/astrofront/internal/ratelimit"
)

// RateLimit enforces the per-client sliding windows before any other
// processing. Excluded paths (health, status, metrics) bypass the limiter so
// probes keep working while a client is throttled.
func RateLimit(limiter *ratelimit.Limiter, excluded map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := excluded[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := ratelimit.ClientKey(r)
			decision := limiter.Check(clientKey)
			if decision.Allowed {
				metrics.RecordRateLimit(true, "none")
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordRateLimit(false, decision.Limit)

			retrySeconds := int(decision.RetryAfter / time.Second)
			if retrySeconds < 1 {
				retrySeconds = 1
			}

			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Request rate limited",
					zap.String("client", clientKey),
					zap.String("horizon", decision.Limit),
					zap.Int("retry_after_seconds", retrySeconds),
					zap.String("path", r.URL.Path),
					zap.String("requestID", GetRequestID(r.Context())))
			}

			envelope := errors.NewErrorEnvelope("RATE_LIMITED",
				fmt.Sprintf("Rate limit exceeded for the %s window", decision.Limit)).
				WithCorrelationID(GetRequestID(r.Context()))
			envelope, _ = envelope.WithContext(map[string]interface{}{
				"horizon":             decision.Limit,
				"retry_after_seconds": retrySeconds,
			})

			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
			writeErrorResponse(w, envelope, http.StatusTooManyRequests)
		})
	}
}
