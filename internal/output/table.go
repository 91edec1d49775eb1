package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/astrofront/astrofront/internal/server/handlers"
)

// TableFormatter renders a status snapshot as an ASCII table.
type TableFormatter struct{}

// FormatStatus renders the snapshot grouped by pipeline component.
func (f *TableFormatter) FormatStatus(status *handlers.StatusResponse) (string, error) {
	if status == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Component", "Metric", "Value"})

	t.AppendRows([]table.Row{
		{"server", "status", status.Status},
		{"server", "version", status.Version},
		{"server", "uptime", (time.Duration(status.UptimeSec) * time.Second).String()},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"rate limits", "requests this minute", status.Limits.PerMinute},
		{"rate limits", "requests this hour", status.Limits.PerHour},
		{"rate limits", "tracked clients", status.Limits.TrackedClients},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"cache", "hits", status.Cache.Hits},
		{"cache", "misses", status.Cache.Misses},
		{"cache", "entries", status.Cache.Size},
		{"cache", "evictions", status.Cache.Evictions},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"gate", "in flight", fmt.Sprintf("%d/%d", status.Gate.InFlight, status.Gate.MaxConcurrent)},
		{"gate", "queued", fmt.Sprintf("%d/%d", status.Gate.Queued, status.Gate.QueueDepth)},
		{"gate", "memoized results", status.MemoSize},
	})

	t.AppendFooter(table.Row{"", "as of", status.Timestamp})
	return t.Render(), nil
}
