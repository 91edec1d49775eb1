package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		"INVALID_INPUT":       http.StatusBadRequest,
		"VALIDATION_FAILED":   http.StatusBadRequest,
		"NOT_FOUND":           http.StatusNotFound,
		"METHOD_NOT_ALLOWED":  http.StatusMethodNotAllowed,
		"PAYLOAD_TOO_LARGE":   http.StatusRequestEntityTooLarge,
		"RATE_LIMITED":        http.StatusTooManyRequests,
		"TIMEOUT":             http.StatusGatewayTimeout,
		"SERVICE_UNAVAILABLE": http.StatusServiceUnavailable,
		"COMPUTATION_FAILED":  http.StatusInternalServerError,
		"INTERNAL_ERROR":      http.StatusInternalServerError,
		"SOMETHING_UNKNOWN":   http.StatusInternalServerError,
	}

	for code, want := range cases {
		if got := HTTPStatusFromCode(code); got != want {
			t.Errorf("HTTPStatusFromCode(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestEnsureEnvelopeWrapsPlainError(t *testing.T) {
	envelope := EnsureEnvelope(errors.New("disk on fire"))
	if envelope == nil {
		t.Fatal("expected envelope")
	}
	if envelope.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", envelope.Code)
	}
	if envelope.Context["wrapped_error"] != "disk on fire" {
		t.Errorf("wrapped error not preserved: %v", envelope.Context)
	}
}

func TestEnsureEnvelopePassthrough(t *testing.T) {
	original := NewTimeoutError("computation exceeded deadline")
	envelope := EnsureEnvelope(original)
	if envelope != original {
		t.Error("existing envelope should pass through unchanged")
	}
}

func TestRateLimitedResponseCarriesRetryAfter(t *testing.T) {
	envelope := NewRateLimitedError("too many requests", 100, 17*time.Second)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v4/chart", nil)
	RespondWithEnvelope(w, r, envelope)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "17" {
		t.Errorf("expected Retry-After: 17, got %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestPayloadTooLargeResponse(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v4/birth-chart", nil)
	RespondWithEnvelope(w, r, NewPayloadTooLargeError("body exceeds limit", 2*1024*1024))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "" {
		t.Error("non-rate-limit errors must not carry Retry-After")
	}
}
