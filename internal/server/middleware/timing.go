package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/observability"
)

// ProcessTimeHeader reports the server-side handling duration in seconds.
const ProcessTimeHeader = "X-Process-Time"

// timingWriter wraps http.ResponseWriter to capture status and size, and to
// stamp the processing time header before the status line goes out.
type timingWriter struct {
	http.ResponseWriter
	start        time.Time
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (tw *timingWriter) WriteHeader(code int) {
	if tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.statusCode = code
	tw.Header().Set(ProcessTimeHeader, formatProcessTime(time.Since(tw.start)))
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	n, err := tw.ResponseWriter.Write(b)
	tw.bytesWritten += int64(n)
	return n, err
}

func formatProcessTime(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}

// getEndpointPattern extracts the chi route pattern to avoid high-cardinality
// metric labels
func getEndpointPattern(r *http.Request) string {
	routePattern := chi.RouteContext(r.Context()).RoutePattern()
	if routePattern != "" {
		return routePattern
	}

	path := r.URL.Path
	switch path {
	case "/health", "/health/live", "/health/ready", "/health/startup":
		return "/health/*"
	case "/status":
		return "/status"
	case "/version":
		return "/version"
	case "/metrics":
		return "/metrics"
	case "/":
		return "/"
	default:
		// Unknown paths collapse to one label value
		return "/unknown"
	}
}

// Timing stamps X-Process-Time on every response, emits HTTP request metrics
// following Prometheus standards, and logs completion. Requests slower than
// slowThreshold get a warning log.
func Timing(slowThreshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &timingWriter{ResponseWriter: w, start: start, statusCode: http.StatusOK}

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			endpoint := getEndpointPattern(r)

			emitRequestMetrics(r, wrapped, endpoint, requestSize, duration)

			requestID := GetRequestID(r.Context())
			if observability.ServerLogger != nil {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("endpoint", endpoint),
					zap.Int("status", wrapped.statusCode),
					zap.Duration("duration", duration),
					zap.Int64("request_size", requestSize),
					zap.Int64("response_size", wrapped.bytesWritten),
					zap.String("requestID", requestID),
				}
				if slowThreshold > 0 && duration >= slowThreshold {
					observability.ServerLogger.Warn("Slow HTTP request", fields...)
				} else {
					observability.ServerLogger.Info("HTTP request completed", fields...)
				}
			}
		})
	}
}

func emitRequestMetrics(r *http.Request, wrapped *timingWriter, endpoint string, requestSize int64, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	commonLabels := map[string]string{
		"method":   r.Method,
		"endpoint": endpoint,
		"status":   strconv.Itoa(wrapped.statusCode),
	}

	_ = observability.TelemetrySystem.Counter(
		"http_requests_total",
		1,
		commonLabels,
	)

	// Duration histogram in milliseconds (gofulmen standard)
	_ = observability.TelemetrySystem.Histogram(
		"http_request_duration_ms",
		duration,
		commonLabels,
	)

	sizeLabels := map[string]string{
		"method":   r.Method,
		"endpoint": endpoint,
	}

	_ = observability.TelemetrySystem.Gauge(
		"http_request_size_bytes",
		float64(requestSize),
		sizeLabels,
	)

	_ = observability.TelemetrySystem.Gauge(
		"http_response_size_bytes",
		float64(wrapped.bytesWritten),
		sizeLabels,
	)

	if wrapped.statusCode >= 400 {
		errorType := "client_error"
		if wrapped.statusCode >= 500 {
			errorType = "server_error"
		}

		_ = observability.TelemetrySystem.Counter(
			"http_errors_total",
			1,
			map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     strconv.Itoa(wrapped.statusCode),
				"error_type": errorType,
			},
		)
	}
}
