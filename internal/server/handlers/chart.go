package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astrofront/astrofront/internal/astro"
	apperrors "github.com/astrofront/astrofront/internal/errors"
	"github.com/astrofront/astrofront/internal/gate"
	"github.com/astrofront/astrofront/internal/metrics"
	"github.com/astrofront/astrofront/internal/observability"
)

// Greenwich observatory coordinates, used by the current-sky endpoint.
const (
	greenwichLatitude  = 51.4825
	greenwichLongitude = -0.0077
)

// Compute serves the chart endpoints. Every computation passes through the
// concurrency gate; identical inputs within the memo TTL share one result.
type Compute struct {
	Engine astro.Engine
	Gate   *gate.Gate
	Memo   *gate.Memoizer

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewCompute wires the chart handlers.
func NewCompute(engine astro.Engine, g *gate.Gate, memo *gate.Memoizer) *Compute {
	return &Compute{
		Engine: engine,
		Gate:   g,
		Memo:   memo,
		Now:    time.Now,
	}
}

func (c *Compute) clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// run pushes one validated request through memoizer and gate and writes the
// result or the mapped error.
func (c *Compute) run(w http.ResponseWriter, r *http.Request, req astro.ChartRequest) {
	if err := req.Validate(); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid chart request"))
		return
	}

	fingerprint := gate.Fingerprint(req.FingerprintParts()...)
	start := time.Now()

	value, err := c.Memo.Do(r.Context(), fingerprint, func(memoCtx context.Context) (any, error) {
		return c.Gate.Run(memoCtx, func(taskCtx context.Context) (any, error) {
			return c.Engine.Compute(taskCtx, req)
		})
	})
	if err != nil {
		c.respondComputeError(w, r, err)
		return
	}

	result, ok := value.(*astro.ChartResult)
	if !ok || result == nil {
		respondWithError(w, r, apperrors.NewComputationFailedError("Computation produced no result"))
		return
	}

	metrics.RecordGateOutcome("completed")
	metrics.RecordComputation(r.URL.Path, time.Since(start))
	metrics.SetGateInFlight(c.Gate.Stats().InFlight)

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Payload)
}

// respondComputeError maps pipeline failures onto the error taxonomy.
func (c *Compute) respondComputeError(w http.ResponseWriter, r *http.Request, err error) {
	var envelope error

	switch {
	case errors.Is(err, gate.ErrSaturated):
		metrics.RecordGateOutcome("saturated")
		envelope = apperrors.NewServiceUnavailableError("Computation capacity exhausted, try again shortly")
	case errors.Is(err, gate.ErrTimedOut):
		metrics.RecordGateOutcome("timed_out")
		envelope = apperrors.WrapTimeout(r.Context(), err, "Computation exceeded its deadline")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		metrics.RecordGateOutcome("canceled")
		envelope = apperrors.WrapTimeout(r.Context(), err, "Request abandoned before the computation finished")
	case errors.Is(err, astro.ErrInvalidRequest):
		envelope = apperrors.WrapInvalidInput(r.Context(), err, "Invalid chart request")
	default:
		metrics.RecordGateOutcome("failed")
		envelope = apperrors.WrapComputationFailed(r.Context(), err, "Chart computation failed")
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Chart computation did not complete",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	respondWithError(w, r, envelope)
}

// NowHandler computes the chart for the current moment over Greenwich.
// The instant is truncated to the minute so concurrent callers share one
// computation; the route is never cached.
func (c *Compute) NowHandler(w http.ResponseWriter, r *http.Request) {
	moment := c.clock().UTC().Truncate(time.Minute)

	req := astro.ChartRequest{
		Name:      "now",
		Year:      moment.Year(),
		Month:     int(moment.Month()),
		Day:       moment.Day(),
		Hour:      moment.Hour(),
		Minute:    moment.Minute(),
		City:      "Greenwich",
		Latitude:  greenwichLatitude,
		Longitude: greenwichLongitude,
		Timezone:  "UTC",
	}

	c.run(w, r, req)
}

// ChartHandler computes a chart from query parameters (GET, cacheable).
func (c *Compute) ChartHandler(w http.ResponseWriter, r *http.Request) {
	req, err := chartRequestFromQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid chart query"))
		return
	}

	c.run(w, r, req)
}

// BirthChartHandler computes a chart from a JSON body (POST).
func (c *Compute) BirthChartHandler(w http.ResponseWriter, r *http.Request) {
	var req astro.ChartRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondWithError(w, r,
				apperrors.NewPayloadTooLargeError("Request body exceeds the size limit", maxBytesErr.Limit))
			return
		}
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Malformed JSON body"))
		return
	}

	c.run(w, r, req)
}

func chartRequestFromQuery(query url.Values) (astro.ChartRequest, error) {
	req := astro.ChartRequest{
		Name:         strings.TrimSpace(query.Get("name")),
		City:         strings.TrimSpace(query.Get("city")),
		Timezone:     strings.TrimSpace(query.Get("tz")),
		ZodiacType:   strings.TrimSpace(query.Get("zodiac_type")),
		HousesSystem: strings.TrimSpace(query.Get("houses_system")),
	}

	intFields := []struct {
		name   string
		target *int
	}{
		{"year", &req.Year},
		{"month", &req.Month},
		{"day", &req.Day},
		{"hour", &req.Hour},
		{"minute", &req.Minute},
	}
	for _, f := range intFields {
		raw := query.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, errParam(f.name, raw)
		}
		*f.target = v
	}

	floatFields := []struct {
		name   string
		target *float64
	}{
		{"lat", &req.Latitude},
		{"lng", &req.Longitude},
	}
	for _, f := range floatFields {
		raw := query.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errParam(f.name, raw)
		}
		*f.target = v
	}

	return req, nil
}

func errParam(name, value string) error {
	return &paramError{name: name, value: value}
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid value for " + e.name + ": " + e.value
}
