package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// icmpPinger sends echo requests over a raw IPv4 socket. The socket is
// opened once, at construction, so permission problems surface before
// the first probe rather than mid-run.
type icmpPinger struct {
	conn    *icmp.PacketConn
	id      int
	seq     int
	payload []byte
}

func newICMPPinger() (*icmpPinger, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("icmp listen requires root or CAP_NET_RAW: %w", err)
		}
		return nil, fmt.Errorf("icmp listen: %w", err)
	}
	return &icmpPinger{
		conn:    conn,
		id:      os.Getpid() & 0xffff,
		payload: []byte("uptimemon"),
	}, nil
}

func (p *icmpPinger) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *icmpPinger) Probe(ctx context.Context, target string, count int, timeout time.Duration) (Batch, error) {
	if strings.TrimSpace(target) == "" {
		return Batch{}, ErrEmptyTarget
	}
	if count <= 0 {
		count = 1
	}

	batch := Batch{Target: target, WindowStart: time.Now()}

	addr, err := net.ResolveIPAddr("ip4", target)
	if err != nil {
		// Resolution failure is data, the same unreachable result the
		// subprocess pinger reports for an unknown host.
		for i := 0; i < count; i++ {
			batch.Results = append(batch.Results, failure(time.Now(), ErrUnreachable, "resolve "+target+": "+err.Error()))
		}
		batch.WindowEnd = time.Now()
		return batch, nil
	}

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		batch.Results = append(batch.Results, p.one(addr, timeout))
	}
	batch.WindowEnd = time.Now()

	return batch, nil
}

func (p *icmpPinger) one(addr *net.IPAddr, timeout time.Duration) Result {
	p.seq = (p.seq + 1) & 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  p.seq,
			Data: p.payload,
		},
	}

	b, err := msg.Marshal(nil)
	if err != nil {
		return failure(time.Now(), ErrPlatform, "icmp marshal: "+err.Error())
	}

	sent := time.Now()
	if _, err := p.conn.WriteTo(b, addr); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unreachable") {
			return failure(sent, ErrUnreachable, err.Error())
		}
		return failure(sent, ErrPlatform, err.Error())
	}

	deadline := sent.Add(timeout)
	buf := make([]byte, 1500)
	// A raw socket sees every inbound ICMP packet, so keep reading
	// until our own reply shows up or the deadline passes.
	for {
		_ = p.conn.SetReadDeadline(deadline)
		n, _, err := p.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return failure(sent, ErrTimeout, "")
			}
			return failure(sent, ErrPlatform, err.Error())
		}

		recv, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), buf[:n])
		if err != nil {
			continue
		}
		if recv.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := recv.Body.(*icmp.Echo)
		if !ok || echo.ID != p.id || echo.Seq != p.seq {
			continue
		}

		elapsed := time.Since(sent)
		return success(sent, float64(elapsed.Microseconds())/1000.0)
	}
}
