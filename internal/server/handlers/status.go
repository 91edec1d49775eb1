package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/astrofront/astrofront/internal/gate"
	"github.com/astrofront/astrofront/internal/pipeline"
	"github.com/astrofront/astrofront/internal/ratelimit"
	"github.com/astrofront/astrofront/internal/respcache"
)

// StatusResponse reports live pipeline state for operators.
type StatusResponse struct {
	Status    string             `json:"status"`
	Version   string             `json:"version"`
	UptimeSec int64              `json:"uptime_seconds"`
	Timestamp string             `json:"timestamp"`
	Limits    ratelimit.Snapshot `json:"rate_limits"`
	Cache     respcache.Stats    `json:"cache"`
	Gate      gate.Stats         `json:"gate"`
	MemoSize  int                `json:"memo_entries"`
}

// Status serves GET /status from a live pipeline.
type Status struct {
	Pipeline  *pipeline.Pipeline
	Version   string
	StartedAt time.Time
}

// NewStatus wires the status handler.
func NewStatus(p *pipeline.Pipeline, version string) *Status {
	return &Status{
		Pipeline:  p,
		Version:   version,
		StartedAt: time.Now(),
	}
}

// Handler writes the pipeline snapshot as JSON.
func (s *Status) Handler(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Status:    "ok",
		Version:   s.Version,
		UptimeSec: int64(time.Since(s.StartedAt) / time.Second),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Limits:    s.Pipeline.Limiter.Snapshot(),
		Cache:     s.Pipeline.Cache.Stats(),
		Gate:      s.Pipeline.Gate.Stats(),
		MemoSize:  s.Pipeline.Memo.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
