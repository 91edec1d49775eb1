// Package astro defines the narrow interface to the astrology computation
// engine. The pipeline treats the engine as opaque: it executes and returns a
// result or fails, nothing more is assumed.
package astro

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChartRequest describes one chart computation.
type ChartRequest struct {
	Name      string  `json:"name"`
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	Day       int     `json:"day"`
	Hour      int     `json:"hour"`
	Minute    int     `json:"minute"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`

	// ZodiacType selects tropical or sidereal computation; empty means
	// tropical.
	ZodiacType string `json:"zodiac_type,omitempty"`

	// HousesSystem is the single-letter house system identifier; empty means
	// Placidus.
	HousesSystem string `json:"houses_system,omitempty"`
}

// ChartResult is the engine's opaque output plus the metadata the pipeline
// needs to serve it.
type ChartResult struct {
	ContentType string
	Payload     []byte
}

// Engine is the computation collaborator boundary.
type Engine interface {
	Compute(ctx context.Context, req ChartRequest) (*ChartResult, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, req ChartRequest) (*ChartResult, error)

func (f EngineFunc) Compute(ctx context.Context, req ChartRequest) (*ChartResult, error) {
	return f(ctx, req)
}

// ErrInvalidRequest marks validation failures so callers can report them as
// client errors rather than computation failures.
var ErrInvalidRequest = errors.New("astro: invalid chart request")

// Validate checks the fields every engine needs before any computation is
// attempted.
func (r ChartRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Year == 0 {
		missing = append(missing, "year")
	}
	if r.Month < 1 || r.Month > 12 {
		missing = append(missing, "month")
	}
	if r.Day < 1 || r.Day > 31 {
		missing = append(missing, "day")
	}
	if r.Hour < 0 || r.Hour > 23 {
		missing = append(missing, "hour")
	}
	if r.Minute < 0 || r.Minute > 59 {
		missing = append(missing, "minute")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing or out of range: %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidRequest)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidRequest)
	}
	return nil
}

// Moment returns the requested instant in UTC, used for fingerprinting and by
// the demo engine. The timezone string is resolved when loadable, otherwise
// the civil time is taken as UTC.
func (r ChartRequest) Moment() time.Time {
	loc := time.UTC
	if r.Timezone != "" {
		if l, err := time.LoadLocation(r.Timezone); err == nil {
			loc = l
		}
	}
	return time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, r.Minute, 0, 0, loc).UTC()
}

// FingerprintParts returns the canonical fields identifying this computation,
// in a fixed order, for memoization.
func (r ChartRequest) FingerprintParts() []string {
	return []string{
		strings.ToLower(strings.TrimSpace(r.Name)),
		r.Moment().Format(time.RFC3339),
		strconv.FormatFloat(r.Latitude, 'f', 4, 64),
		strconv.FormatFloat(r.Longitude, 'f', 4, 64),
		strings.ToLower(strings.TrimSpace(r.ZodiacType)),
		strings.ToUpper(strings.TrimSpace(r.HousesSystem)),
	}
}
