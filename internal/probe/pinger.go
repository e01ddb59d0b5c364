package probe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyTarget is returned by Probe when no target host was given.
// It is the only misuse a Pinger reports as an error; network and
// platform failures are recorded inside the returned Batch instead.
var ErrEmptyTarget = errors.New("probe: empty target")

// Pinger runs one batch of probes against a target. Implementations
// enforce the timeout per individual probe and never leak a spawned
// process or socket past Close.
type Pinger interface {
	Probe(ctx context.Context, target string, count int, timeout time.Duration) (Batch, error)
	Close() error
}

// Mode selects the probe implementation.
const (
	ModeExec = "exec" // spawn the platform ping binary
	ModeICMP = "icmp" // native ICMP echo, needs raw socket privilege
	ModeAuto = "auto" // ICMP when privileged, exec otherwise
)

// New builds a Pinger for the given mode. Auto mode probes for raw
// socket capability first and falls back to the exec implementation.
func New(mode string) (Pinger, error) {
	switch mode {
	case ModeExec, "":
		return newExecPinger(), nil
	case ModeICMP:
		return newICMPPinger()
	case ModeAuto:
		if p, err := newICMPPinger(); err == nil {
			return p, nil
		}
		return newExecPinger(), nil
	default:
		return nil, fmt.Errorf("unknown pinger mode %q", mode)
	}
}
