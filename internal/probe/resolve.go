package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"
)

// dnsCooldown spaces out health checks during a sustained outage so a
// string of full-loss windows does not stack resolver traffic.
const dnsCooldown = 30 * time.Second

// healthQueries are rotated round-robin; any one of them resolving
// counts as a working resolver.
var healthQueries = []string{"google.com", "cloudflare.com", "example.com"}

// Resolver answers "is name resolution still working" against one
// configured DNS server. A nil Resolver is valid and does nothing,
// which is how an empty resolver address disables the checks.
type Resolver struct {
	client  *dns.Client
	server  string
	idx     int
	limiter *rate.Limiter
}

// NewResolver returns nil when server is empty. A server without a
// port gets :53.
func NewResolver(server string, timeout time.Duration) *Resolver {
	if server == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		client:  &dns.Client{Timeout: timeout},
		server:  server,
		limiter: rate.NewLimiter(rate.Every(dnsCooldown), 1),
	}
}

// Preresolve looks up a hostname target once before monitoring starts.
// IP literals are accepted as-is. An error here is advisory: ping may
// still reach the host through another resolution path.
func (r *Resolver) Preresolve(ctx context.Context, host string) error {
	if r == nil || net.ParseIP(host) != nil {
		return nil
	}
	return r.lookup(ctx, host)
}

// Check runs one rate-limited health query. ran is false when the
// cooldown suppressed the check or the Resolver is disabled.
func (r *Resolver) Check(ctx context.Context) (ran bool, err error) {
	if r == nil || !r.limiter.Allow() {
		return false, nil
	}
	query := healthQueries[r.idx%len(healthQueries)]
	r.idx++
	return true, r.lookup(ctx, query)
}

func (r *Resolver) lookup(ctx context.Context, name string) error {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)

	in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return fmt.Errorf("dns %s via %s: %w", name, r.server, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("dns %s via %s: rcode %s", name, r.server, dns.RcodeToString[in.Rcode])
	}
	return nil
}
