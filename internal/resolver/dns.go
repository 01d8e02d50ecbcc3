package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// DNSLookup queries one nameserver directly for A and AAAA records.
type DNSLookup struct {
	server string
	client *dns.Client
}

// NewDNSLookup returns a lookup against server ("host" or "host:port", port 53
// by default).
func NewDNSLookup(server string, timeout time.Duration) *DNSLookup {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNSLookup{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

// LookupNetIP implements HostLookup. network is "ip", "ip4" or "ip6".
// A records are listed before AAAA records.
func (d *DNSLookup) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	var qtypes []uint16
	switch network {
	case "ip":
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	case "ip4":
		qtypes = []uint16{dns.TypeA}
	case "ip6":
		qtypes = []uint16{dns.TypeAAAA}
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}

	var (
		addrs   []netip.Addr
		lastErr error
	)
	for _, qtype := range qtypes {
		found, err := d.query(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		addrs = append(addrs, found...)
	}

	if len(addrs) == 0 {
		if lastErr == nil {
			lastErr = &net.DNSError{Err: "no such host", Name: host, Server: d.server, IsNotFound: true}
		}
		return nil, lastErr
	}
	return addrs, nil
}

func (d *DNSLookup) query(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := d.client.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", dns.TypeToString[qtype], host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, &net.DNSError{
			Err:        dns.RcodeToString[resp.Rcode],
			Name:       host,
			Server:     d.server,
			IsNotFound: resp.Rcode == dns.RcodeNameError,
		}
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch rec := rr.(type) {
		case *dns.A:
			ip = rec.A
		case *dns.AAAA:
			ip = rec.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs, nil
}
