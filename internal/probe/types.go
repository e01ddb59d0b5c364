package probe

import "time"

// ErrorKind classifies why a single probe did not succeed.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrTimeout
	ErrUnreachable
	ErrPlatform
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrTimeout:
		return "timeout"
	case ErrUnreachable:
		return "unreachable"
	case ErrPlatform:
		return "platform"
	default:
		return "unknown"
	}
}

// Result is the outcome of one probe attempt. RTTMs is nil unless the
// probe succeeded.
type Result struct {
	Timestamp time.Time
	RTTMs     *float64
	Succeeded bool
	Kind      ErrorKind
	Detail    string
}

// Batch holds the results of one scheduled probe window, in the order
// the probes were sent.
type Batch struct {
	Target      string
	Results     []Result
	WindowStart time.Time
	WindowEnd   time.Time
}

// Duration is the wall time the batch took end to end.
func (b Batch) Duration() time.Duration {
	return b.WindowEnd.Sub(b.WindowStart)
}

func success(ts time.Time, rttMs float64) Result {
	return Result{Timestamp: ts, RTTMs: &rttMs, Succeeded: true, Kind: ErrNone}
}

func failure(ts time.Time, kind ErrorKind, detail string) Result {
	return Result{Timestamp: ts, Kind: kind, Detail: detail}
}
