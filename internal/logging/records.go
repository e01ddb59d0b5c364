package logging

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayout is microsecond-precision local time, the same shape
// every already-written log in the field uses.
const timestampLayout = "2006-01-02 15:04:05.000000"

// Record is one monitoring window, ready to be rendered as a log line.
// Min/Max/Avg are nil when the window had no successful probe, which
// drops that clause from the line instead of printing zeros.
type Record struct {
	Timestamp  time.Time
	Connected  bool
	LossPct    float64
	Sent       int
	Received   int
	Lost       int
	MinMs      *float64
	MaxMs      *float64
	AvgMs      *float64
	JitterMs   float64
	DurationMs float64
	Results    []string
	Error      string
}

// Line renders the record in the fixed format understood by the
// existing log tooling. Field order, spacing, and precision are a
// stable contract; change nothing here without changing the readers.
func (r Record) Line() string {
	status := "Disconnected"
	if r.Connected {
		status = "Connected"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s: %.1f%% packet loss (Sent: %d, Received: %d, Lost: %d) ",
		r.Timestamp.Format(timestampLayout), status, r.LossPct, r.Sent, r.Received, r.Lost)

	if r.MinMs != nil && r.MaxMs != nil && r.AvgMs != nil {
		fmt.Fprintf(&b, "Min: %dms, Max: %dms, Avg: %dms ", int(*r.MinMs), int(*r.MaxMs), int(*r.AvgMs))
	}

	fmt.Fprintf(&b, "| Jitter: %.1fms, Duration: %.1fms | Ping Results: [%s]",
		r.JitterMs, r.DurationMs, strings.Join(r.Results, ", "))

	if r.Error != "" {
		fmt.Fprintf(&b, " | Error: %s", r.Error)
	}

	return b.String()
}

// Failed reports whether the record belongs in the failure-only log.
func (r Record) Failed() bool {
	return r.Lost > 0 || r.Error != ""
}
