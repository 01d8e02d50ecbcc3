// Package resolver validates user supplied scan targets and turns them into a
// single connectable address.
//
// IP literals are accepted as-is and never looked up. Anything else must be a
// syntactically valid DNS name; it is resolved through a HostLookup, which is
// the system resolver by default or a miekg/dns client pointed at a specific
// nameserver.
package resolver

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"
	"unicode"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
)

const (
	maxHostnameLength = 253
	maxLabelLength    = 63

	// DefaultTimeout bounds a single name lookup.
	DefaultTimeout = 5 * time.Second

	shellMetacharacters = ";&|`$<>(){}[]\\\"'*?!#~^,=+"
)

// Target is a validated scan target.
type Target struct {
	// Input is the string the caller supplied.
	Input string
	// Addr is the address probes connect to.
	Addr netip.Addr
	// Literal is true when Input was an IP literal and no lookup happened.
	Literal bool
}

// String returns the input followed by the resolved address when they differ.
func (t Target) String() string {
	if t.Literal {
		return t.Addr.String()
	}
	return t.Input + " (" + t.Addr.String() + ")"
}

// HostLookup resolves host names to addresses. *net.Resolver satisfies it.
type HostLookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Config configures a Resolver.
type Config struct {
	// Nameserver, when set, sends queries straight to this host:port with
	// miekg/dns instead of using the system resolver.
	Nameserver string        `yaml:"nameserver" json:"nameserver"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	PreferIPv4 bool          `yaml:"prefer_ipv4" json:"prefer_ipv4"`
}

// DefaultConfig returns the system resolver with a 5s timeout, preferring IPv4.
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		PreferIPv4: true,
	}
}

// Resolver validates and resolves targets.
type Resolver struct {
	lookup     HostLookup
	timeout    time.Duration
	preferIPv4 bool
	logger     *logging.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLookup replaces the host lookup implementation.
func WithLookup(l HostLookup) Option {
	return func(r *Resolver) { r.lookup = l }
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver from cfg.
func New(cfg Config, opts ...Option) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Resolver{
		timeout:    timeout,
		preferIPv4: cfg.PreferIPv4,
		logger:     logging.Default().WithComponent("resolver"),
	}
	if cfg.Nameserver != "" {
		r.lookup = NewDNSLookup(cfg.Nameserver, timeout)
	} else {
		r.lookup = net.DefaultResolver
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates input and returns the address to scan.
func (r *Resolver) Resolve(ctx context.Context, input string) (Target, error) {
	host, err := Validate(input)
	if err != nil {
		return Target{}, err
	}

	if addr, ok := parseLiteral(host); ok {
		return Target{Input: input, Addr: addr, Literal: true}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.lookup.LookupNetIP(lookupCtx, "ip", host)
	if err != nil {
		r.logger.Debug("host lookup failed", "host", host, "error", err)
		return Target{}, errors.ErrUnresolvableHost(input, err)
	}

	addr, ok := pickAddress(addrs, r.preferIPv4)
	if !ok {
		return Target{}, errors.ErrUnresolvableHost(input, nil)
	}

	r.logger.Debug("resolved host", "host", host, "addr", addr, "candidates", len(addrs))
	return Target{Input: input, Addr: addr}, nil
}

// Validate checks that input is either an IP literal or a well-formed host
// name and returns the host part with any IPv6 brackets or trailing dot removed.
func Validate(input string) (string, error) {
	if input == "" {
		return "", errors.ErrInvalidTarget(input, "empty target")
	}
	if strings.IndexFunc(input, unicode.IsSpace) >= 0 {
		return "", errors.ErrInvalidTarget(input, "contains whitespace")
	}
	host, bracketed := input, strings.HasPrefix(input, "[")
	if bracketed {
		inner, ok := strings.CutSuffix(input[1:], "]")
		if !ok {
			return "", errors.ErrInvalidTarget(input, "unterminated IPv6 bracket")
		}
		host = inner
	}

	// Checked before the literal fast path: netip accepts any text as a zone.
	if strings.ContainsAny(host, shellMetacharacters) {
		return "", errors.ErrInvalidTarget(input, "contains forbidden characters")
	}
	if strings.Contains(host, "%") {
		return "", errors.ErrInvalidTarget(input, "IPv6 zones are not supported")
	}

	if bracketed {
		addr, err := netip.ParseAddr(host)
		if err != nil || !addr.Is6() {
			return "", errors.ErrInvalidTarget(input, "brackets must enclose an IPv6 address")
		}
		return host, nil
	}

	if _, ok := parseLiteral(input); ok {
		return input, nil
	}

	host = strings.TrimSuffix(input, ".")
	if reason := checkHostname(host); reason != "" {
		return "", errors.ErrInvalidTarget(input, reason)
	}
	return host, nil
}

func parseLiteral(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}

// checkHostname returns a reason when host is not a valid DNS name.
func checkHostname(host string) string {
	if host == "" {
		return "empty host name"
	}
	if len(host) > maxHostnameLength {
		return "host name longer than 253 characters"
	}

	labels := strings.Split(host, ".")
	for _, label := range labels {
		if label == "" {
			return "empty label"
		}
		if len(label) > maxLabelLength {
			return "label longer than 63 characters"
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return "label starts or ends with a hyphen"
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !isAlnum(c) && c != '-' {
				return "invalid character in host name"
			}
		}
	}

	// A numeric final label cannot be a TLD; this is a broken IPv4 literal
	// such as 256.1.1.1 or 10.0.0.
	if allDigits(labels[len(labels)-1]) {
		return "malformed IPv4 address"
	}
	return ""
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// pickAddress returns the first usable address, or the first usable IPv4
// address when preferIPv4 is set and one exists. The order of addrs is kept,
// so the choice is stable for a given answer.
func pickAddress(addrs []netip.Addr, preferIPv4 bool) (netip.Addr, bool) {
	var first netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if !a.IsValid() || a.IsUnspecified() {
			continue
		}
		if !preferIPv4 || a.Is4() {
			return a, true
		}
		if !first.IsValid() {
			first = a
		}
	}
	return first, first.IsValid()
}
