package output

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrofront/astrofront/internal/gate"
	"github.com/astrofront/astrofront/internal/ratelimit"
	"github.com/astrofront/astrofront/internal/respcache"
	"github.com/astrofront/astrofront/internal/server/handlers"
)

func sampleStatus() *handlers.StatusResponse {
	return &handlers.StatusResponse{
		Status:    "ok",
		Version:   "1.2.3",
		UptimeSec: 90,
		Timestamp: "2026-08-30T12:00:00Z",
		Limits:    ratelimit.Snapshot{PerMinute: 12, PerHour: 340, TrackedClients: 5},
		Cache:     respcache.Stats{Hits: 40, Misses: 10, Size: 8, Evictions: 2},
		Gate:      gate.Stats{InFlight: 2, Queued: 1, MaxConcurrent: 4, QueueDepth: 8},
		MemoSize:  6,
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("yaml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatStatus(sampleStatus())
	require.NoError(t, err)

	require.Contains(t, rendered, "1.2.3")
	require.Contains(t, rendered, "1m30s")
	require.Contains(t, rendered, "tracked clients")
	require.Contains(t, rendered, "2/4")
	require.Contains(t, rendered, "1/8")
	require.Contains(t, rendered, "2026-08-30T12:00:00Z")
}

func TestTableFormatterNilStatus(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatStatus(nil)
	require.NoError(t, err)
	require.Empty(t, rendered)
}

func TestJSONFormatterRoundTrip(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatStatus(sampleStatus())
	require.NoError(t, err)

	var decoded handlers.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, *sampleStatus(), decoded)
}

func TestYAMLFormatterKeysMatchWireNames(t *testing.T) {
	rendered, err := (&YAMLFormatter{}).FormatStatus(sampleStatus())
	require.NoError(t, err)

	require.Contains(t, rendered, "rate_limits:")
	require.Contains(t, rendered, "requests_per_minute: 12")
	require.Contains(t, rendered, "memo_entries: 6")
	require.Contains(t, rendered, "uptime_seconds: 90")
}

func TestNewFormatter(t *testing.T) {
	require.IsType(t, &TableFormatter{}, NewFormatter(FormatTable))
	require.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	require.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML))
}
