package probe

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// execPinger shells out to the platform ping binary, one process per
// probe, so the configured timeout bounds each process's lifetime.
type execPinger struct {
	bin string
}

func newExecPinger() *execPinger {
	return &execPinger{bin: "ping"}
}

func (p *execPinger) Close() error { return nil }

func (p *execPinger) Probe(ctx context.Context, target string, count int, timeout time.Duration) (Batch, error) {
	if strings.TrimSpace(target) == "" {
		return Batch{}, ErrEmptyTarget
	}
	if count <= 0 {
		count = 1
	}

	batch := Batch{Target: target, WindowStart: time.Now()}
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		res, ok := p.one(ctx, target, timeout)
		if !ok {
			break
		}
		batch.Results = append(batch.Results, res)
	}
	batch.WindowEnd = time.Now()

	return batch, nil
}

func (p *execPinger) one(parent context.Context, target string, timeout time.Duration) (Result, bool) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	sent := time.Now()
	cmd := exec.CommandContext(ctx, p.bin, pingArgs(runtime.GOOS, target, timeout)...)
	out, err := cmd.CombinedOutput()

	if parent.Err() != nil {
		// Shutdown killed the process mid-flight; whatever it printed
		// is not a network outcome.
		return Result{}, false
	}
	if ctx.Err() == context.DeadlineExceeded {
		return failure(sent, ErrTimeout, "ping killed at timeout"), true
	}

	return classify(sent, string(out), err), true
}

// pingArgs builds the single-echo argument list for the given GOOS.
// Windows and the BSDs take the per-reply wait in milliseconds, Linux
// iputils takes whole seconds.
func pingArgs(goos, target string, timeout time.Duration) []string {
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.Itoa(int(timeout.Milliseconds())), target}
	case "darwin":
		return []string{"-c", "1", "-W", strconv.Itoa(int(timeout.Milliseconds())), target}
	default:
		secs := int(math.Ceil(timeout.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return []string{"-c", "1", "-W", strconv.Itoa(secs), target}
	}
}

// Reply-time phrasing differs per platform: "time=12.3 ms" (POSIX),
// "time=15ms" and "time<1ms" (Windows). The summary pattern catches
// BSD outputs where the reply line was localized or suppressed.
var (
	replyTimeRE = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)
	roundTripRE = regexp.MustCompile(`round-trip min/avg/max[^=]*= [0-9.]+/([0-9.]+)/`)
)

var unreachableMarkers = []string{
	"destination host unreachable",
	"destination net unreachable",
	"network is unreachable",
	"no route to host",
	"name or service not known",
	"temporary failure in name resolution",
	"cannot resolve",
	"could not find host",
	"unknown host",
}

var timeoutMarkers = []string{
	"request timed out",
	"request timeout for icmp_seq",
	"100% packet loss",
	"100.0% packet loss",
}

// classify turns raw ping output plus the process exit state into a
// Result. A line that cannot be read as a successful reply is recorded
// as a timeout, unreachable, or platform error, never dropped.
func classify(sent time.Time, out string, runErr error) Result {
	if rtt, ok := parseReplyTime(out); ok {
		return success(sent, rtt)
	}

	lower := strings.ToLower(out)
	for _, m := range unreachableMarkers {
		if strings.Contains(lower, m) {
			return failure(sent, ErrUnreachable, lastLine(out))
		}
	}
	for _, m := range timeoutMarkers {
		if strings.Contains(lower, m) {
			return failure(sent, ErrTimeout, "")
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// iputils exits 1 when no reply arrived and 2 on
			// resolution or socket errors.
			switch exitErr.ExitCode() {
			case 1:
				return failure(sent, ErrTimeout, lastLine(out))
			case 2:
				return failure(sent, ErrUnreachable, lastLine(out))
			}
			return failure(sent, ErrPlatform, lastLine(out))
		}
		return failure(sent, ErrPlatform, runErr.Error())
	}

	return failure(sent, ErrPlatform, "unrecognized ping output: "+lastLine(out))
}

func parseReplyTime(out string) (float64, bool) {
	for _, re := range []*regexp.Regexp{replyTimeRE, roundTripRE} {
		if m := re.FindStringSubmatch(out); len(m) > 1 {
			if rtt, err := strconv.ParseFloat(m[1], 64); err == nil {
				return rtt, true
			}
		}
	}
	return 0, false
}

// lastLine trims output to its final non-empty line so Detail stays a
// single short diagnostic.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			if len(l) > 200 {
				return l[:200]
			}
			return l
		}
	}
	return ""
}
