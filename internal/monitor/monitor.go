package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VividCortex/ewma"

	"github.com/iaserrat/uptimemon/internal/history"
	"github.com/iaserrat/uptimemon/internal/logging"
	"github.com/iaserrat/uptimemon/internal/metrics"
	"github.com/iaserrat/uptimemon/internal/probe"
)

// Config is the slice of the persisted configuration the loop needs,
// injected explicitly so the loop never reads files itself.
type Config struct {
	Target   string
	Count    int
	Timeout  time.Duration
	Interval time.Duration
}

// RecordAppender is what the loop needs from the log writer.
type RecordAppender interface {
	Append(rec logging.Record) error
}

// Deps carries the collaborators. Status and Errors default to stdout
// and stderr; History and Resolver may be nil to disable them.
type Deps struct {
	Pinger   probe.Pinger
	Log      RecordAppender
	History  *history.Store
	Resolver *probe.Resolver
	Status   io.Writer
	Errors   io.Writer
}

// Summary is the end-of-run aggregate printed after the loop stops.
type Summary struct {
	Windows        int
	ProbesSent     int
	ProbesReceived int
	PacketLossPct  float64
	TimeoutCount   int
	SmoothedAvgMs  float64
	Elapsed        time.Duration
}

// Monitor runs the probe loop on the caller's goroutine. All fields
// are owned by that goroutine; only state is shared, for observers.
type Monitor struct {
	cfg     Config
	deps    Deps
	state   atomic.Int32
	summary Summary
	avg     ewma.MovingAverage
}

func New(cfg Config, deps Deps) *Monitor {
	if deps.Status == nil {
		deps.Status = os.Stdout
	}
	if deps.Errors == nil {
		deps.Errors = os.Stderr
	}
	return &Monitor{cfg: cfg, deps: deps, avg: ewma.NewMovingAverage()}
}

func (m *Monitor) State() State { return State(m.state.Load()) }

// Run blocks until ctx is cancelled or duration elapses (0 runs
// unlimited). Every failure inside a tick is downgraded to data or a
// stderr report, so the loop itself never errors.
func (m *Monitor) Run(ctx context.Context, duration time.Duration) Summary {
	start := time.Now()
	var deadline time.Time
	if duration > 0 {
		deadline = start.Add(duration)
	}

	m.state.Store(int32(StateRunning))
	defer m.state.Store(int32(StateStopped))

	for {
		if ctx.Err() != nil {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}

		if m.tick(ctx) {
			m.state.Store(int32(StateRunning))
		} else {
			m.state.Store(int32(StatePaused))
		}

		// The interval is measured from the end of the batch, and the
		// final sleep never overshoots the deadline.
		wait := m.cfg.Interval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			if wait > remaining {
				wait = remaining
			}
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	m.summary.Elapsed = time.Since(start)
	if m.summary.ProbesSent > 0 {
		m.summary.PacketLossPct = float64(m.summary.ProbesSent-m.summary.ProbesReceived) /
			float64(m.summary.ProbesSent) * 100.0
	}
	m.summary.SmoothedAvgMs = m.avg.Value()

	return m.summary
}

// tick runs one probe window end to end. The return value reports
// whether the tick was clean; a dirty tick parks the loop in Paused
// until the next clean one.
func (m *Monitor) tick(ctx context.Context) bool {
	clean := true
	var errParts []string

	batch, err := m.deps.Pinger.Probe(ctx, m.cfg.Target, m.cfg.Count, m.cfg.Timeout)
	if err != nil {
		// Probe misuse still produces a window, so the record stream
		// has no holes.
		batch = syntheticBatch(m.cfg.Target, m.cfg.Count, err.Error())
		errParts = append(errParts, err.Error())
		clean = false
	}
	if len(batch.Results) == 0 {
		// Cancelled before the first probe went out.
		return clean
	}

	w := metrics.Summarize(batch)
	errParts = failureDetails(errParts, batch)

	if w.Sent > 0 && w.Received == 0 {
		if ran, derr := m.deps.Resolver.Check(ctx); ran {
			if derr != nil {
				errParts = append(errParts, fmt.Sprintf("dns health check failed: %v", derr))
			} else {
				errParts = append(errParts, "dns healthy, target unresponsive")
			}
		}
	}

	rec := m.record(w, batch, strings.Join(errParts, "; "))
	fmt.Fprintln(m.deps.Status, rec.Line())

	if aerr := m.deps.Log.Append(rec); aerr != nil {
		fmt.Fprintf(m.deps.Errors, "log write failed: %v\n", aerr)
		clean = false
	}
	if herr := m.deps.History.Append(w); herr != nil {
		fmt.Fprintf(m.deps.Errors, "history write failed: %v\n", herr)
	}

	m.accumulate(w)

	return clean
}

func (m *Monitor) record(w metrics.Window, b probe.Batch, errText string) logging.Record {
	entries := make([]string, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Succeeded && r.RTTMs != nil {
			entries = append(entries, strconv.Itoa(int(*r.RTTMs)))
		} else {
			entries = append(entries, "timeout")
		}
	}

	return logging.Record{
		Timestamp:  w.End,
		Connected:  w.Connected(),
		LossPct:    w.PacketLossPct,
		Sent:       w.Sent,
		Received:   w.Received,
		Lost:       w.Lost,
		MinMs:      w.MinPingMs,
		MaxMs:      w.MaxPingMs,
		AvgMs:      w.AvgPingMs,
		JitterMs:   w.JitterMs,
		DurationMs: b.Duration().Seconds() * 1000.0,
		Results:    entries,
		Error:      errText,
	}
}

func (m *Monitor) accumulate(w metrics.Window) {
	m.summary.Windows++
	m.summary.ProbesSent += w.Sent
	m.summary.ProbesReceived += w.Received
	m.summary.TimeoutCount += w.TimeoutCount
	if w.AvgPingMs != nil {
		m.avg.Add(*w.AvgPingMs)
	}
}

// failureDetails appends each distinct failure detail in the batch to
// parts, in first-occurrence order, skipping text parts already
// carries. The details end up in the record's error suffix.
func failureDetails(parts []string, b probe.Batch) []string {
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		seen[p] = true
	}
	for _, r := range b.Results {
		if r.Succeeded || r.Detail == "" || seen[r.Detail] {
			continue
		}
		seen[r.Detail] = true
		parts = append(parts, r.Detail)
	}
	return parts
}

func syntheticBatch(target string, count int, detail string) probe.Batch {
	if count <= 0 {
		count = 1
	}
	now := time.Now()
	b := probe.Batch{Target: target, WindowStart: now, WindowEnd: now}
	for i := 0; i < count; i++ {
		b.Results = append(b.Results, probe.Result{
			Timestamp: now,
			Kind:      probe.ErrPlatform,
			Detail:    detail,
		})
	}
	return b
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
