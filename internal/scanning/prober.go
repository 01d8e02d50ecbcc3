package scanning

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"syscall"
	"time"
)

// DefaultProbeTimeout bounds one connection attempt.
const DefaultProbeTimeout = 500 * time.Millisecond

// Prober classifies a single address and port.
type Prober interface {
	Probe(ctx context.Context, addr netip.AddrPort) (ProbeOutcome, time.Duration)
}

// DialFunc opens a connection. (*net.Dialer).DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TCPProber performs a full TCP connect and closes the connection at once.
type TCPProber struct {
	Timeout time.Duration
	Dial    DialFunc
}

// NewTCPProber returns a prober using the system dialer.
func NewTCPProber(timeout time.Duration) *TCPProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialer := &net.Dialer{}
	return &TCPProber{Timeout: timeout, Dial: dialer.DialContext}
}

// Probe dials addr under p.Timeout. It always returns exactly one outcome;
// transport errors are folded into Closed or Filtered.
func (p *TCPProber) Probe(ctx context.Context, addr netip.AddrPort) (ProbeOutcome, time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.Dial(ctx, "tcp", addr.String())
	latency := time.Since(start)

	if err == nil {
		_ = conn.Close()
		return Open, latency
	}
	return Classify(err), latency
}

// Classify maps a dial error to an outcome. A refused or reset connection
// proves something answered, so it is Closed. Timeouts, unreachable networks
// and everything else are Filtered.
func Classify(err error) ProbeOutcome {
	if err == nil {
		return Open
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return Closed
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Filtered
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Filtered
	}

	// Windows reports WSAECONNREFUSED, which does not match the syscall errno.
	if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "actively refused") {
		return Closed
	}
	return Filtered
}
