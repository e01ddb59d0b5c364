package metrics

import (
	"time"

	"github.com/iaserrat/uptimemon/internal/probe"
)

// Window aggregates one probe batch. Latency fields are nil when the
// window had no successful probe, distinguishing "no data" from 0ms.
type Window struct {
	Target        string
	Start         time.Time
	End           time.Time
	Sent          int
	Received      int
	Lost          int
	PacketLossPct float64
	AvgPingMs     *float64
	MinPingMs     *float64
	MaxPingMs     *float64
	JitterMs      float64
	TimeoutCount  int
	ErrorCount    int
}

func (w Window) Connected() bool { return w.Received > 0 }

// Summarize reduces a batch to its window aggregates. It is pure: no
// clock reads, no I/O.
func Summarize(b probe.Batch) Window {
	w := Window{
		Target: b.Target,
		Start:  b.WindowStart,
		End:    b.WindowEnd,
		Sent:   len(b.Results),
	}

	var rtts []float64
	for _, r := range b.Results {
		if r.Succeeded {
			w.Received++
			if r.RTTMs != nil {
				rtts = append(rtts, *r.RTTMs)
			}
			continue
		}
		switch r.Kind {
		case probe.ErrTimeout:
			w.TimeoutCount++
		default:
			w.ErrorCount++
		}
	}
	w.Lost = w.Sent - w.Received
	if w.Sent > 0 {
		w.PacketLossPct = float64(w.Lost) / float64(w.Sent) * 100.0
	}

	if len(rtts) > 0 {
		avg, lo, hi := spread(rtts)
		w.AvgPingMs, w.MinPingMs, w.MaxPingMs = &avg, &lo, &hi
	}
	w.JitterMs = jitter(rtts)

	return w
}

// jitter is the mean absolute difference between consecutive RTTs in
// send order. Fewer than two samples leave it at zero.
func jitter(rtts []float64) float64 {
	if len(rtts) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(rtts); i++ {
		d := rtts[i] - rtts[i-1]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(len(rtts)-1)
}

func spread(rtts []float64) (avg, lo, hi float64) {
	lo, hi = rtts[0], rtts[0]
	var sum float64
	for _, v := range rtts {
		sum += v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return sum / float64(len(rtts)), lo, hi
}
