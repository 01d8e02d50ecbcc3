package ports

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/anstrom/portsweep/internal/errors"
)

// PortSet is an ascending, duplicate-free list of ports. Callers must not
// modify a PortSet returned by Expand.
type PortSet []uint16

// Len returns the number of ports in the set.
func (s PortSet) Len() int { return len(s) }

// Contains reports whether port is in the set.
func (s PortSet) Contains(port uint16) bool {
	_, found := slices.BinarySearch(s, port)
	return found
}

var quickPorts = PortSet{
	21, 22, 23, 25, 53, 80, 110, 143, 443, 445, 3306, 3389, 5432, 8080,
}

var standardPorts = PortSet{
	7, 9, 13, 21, 22, 23, 25, 26, 37, 53,
	79, 80, 81, 88, 106, 110, 111, 113, 119, 135,
	139, 143, 144, 179, 199, 389, 427, 443, 444, 445,
	465, 513, 514, 515, 543, 544, 548, 554, 587, 631,
	646, 873, 990, 993, 995, 1025, 1026, 1027, 1028, 1029,
	1110, 1433, 1720, 1723, 1755, 1900, 2000, 2001, 2049, 2121,
	2717, 3000, 3128, 3306, 3389, 3986, 4899, 5000, 5009, 5051,
	5060, 5101, 5190, 5357, 5432, 5631, 5666, 5800, 5900, 6000,
	6001, 6646, 7070, 8000, 8008, 8009, 8080, 8081, 8443, 8888,
	9100, 9999, 10000, 32768, 49152, 49153, 49154, 49155, 49156, 49157,
}

var fullPorts = func() PortSet {
	all := make(PortSet, 0, MaxPort)
	for p := MinPort; p <= MaxPort; p++ {
		all = append(all, uint16(p))
	}
	return all
}()

// Expand returns the canonical port set for mode. Fixed sets are shared, so
// the returned slice is read-only.
func Expand(mode ScanMode) (PortSet, error) {
	switch m := mode.(type) {
	case Quick:
		return quickPorts, nil
	case Standard:
		return standardPorts, nil
	case Full:
		return fullPorts, nil
	case Custom:
		return ParseSpec(m.Spec)
	case nil:
		return nil, errors.ErrInvalidPortSpec("", "no scan mode selected")
	default:
		panic(fmt.Sprintf("ports: unhandled scan mode %T", mode))
	}
}

// ParseSpec parses a comma separated list of ports and inclusive ranges.
// Supported forms:
//   - single: "22"
//   - list: "22,80,443"
//   - range: "1-1024", "1 - 1024"
//   - mixed: "22,80,8000-8100"
//
// The whole spec is rejected if any token is invalid.
func ParseSpec(spec string) (PortSet, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.ErrInvalidPortSpec(spec, "empty port specification")
	}

	seen := make(map[uint16]struct{})
	for i, raw := range strings.Split(spec, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			// An empty token names nothing, so report the whole spec.
			return nil, errors.ErrInvalidPortSpec(spec, fmt.Sprintf("empty token at position %d", i+1))
		}
		lo, hi, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		for p := lo; p <= hi; p++ {
			seen[uint16(p)] = struct{}{}
		}
	}

	out := make(PortSet, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func parseToken(token string) (lo, hi int, err error) {
	startStr, endStr, isRange := strings.Cut(token, "-")
	if !isRange {
		p, err := parsePort(token, token)
		return p, p, err
	}

	lo, err = parsePort(strings.TrimSpace(startStr), token)
	if err != nil {
		return 0, 0, err
	}
	hi, err = parsePort(strings.TrimSpace(endStr), token)
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, errors.ErrInvalidPortSpec(token, "range start exceeds end")
	}
	return lo, hi, nil
}

func parsePort(s, token string) (int, error) {
	if s == "" {
		return 0, errors.ErrInvalidPortSpec(token, "missing port number")
	}
	// Atoi accepts a leading sign, which is never valid here.
	if s[0] == '+' || s[0] == '-' {
		return 0, errors.ErrInvalidPortSpec(token, "malformed port number")
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, errors.ErrInvalidPortSpec(token, "port out of range 1-65535")
		}
		return 0, errors.ErrInvalidPortSpec(token, "malformed port number")
	}
	if p < MinPort || p > MaxPort {
		return 0, errors.ErrInvalidPortSpec(token, "port out of range 1-65535")
	}
	return p, nil
}
