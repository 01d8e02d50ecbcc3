// Package ports turns scan mode selections into canonical port sets.
//
// A ScanMode is a closed set of variants: Quick, Standard, Full and Custom.
// The unexported marker method keeps other packages from adding variants, so
// Expand can switch over every mode and fail loudly if one is ever missed.
package ports

import (
	"strings"

	"github.com/anstrom/portsweep/internal/errors"
)

const (
	// MinPort is the lowest scannable TCP port.
	MinPort = 1
	// MaxPort is the highest scannable TCP port.
	MaxPort = 65535

	customPrefix = "custom:"
)

// ScanMode selects which ports a scan covers.
type ScanMode interface {
	// String renders the mode in selector syntax, e.g. "quick" or "custom:22,80".
	String() string
	scanMode()
}

// Quick covers a fixed list of 14 common service ports.
type Quick struct{}

// Standard covers the 100 most commonly open TCP ports.
type Standard struct{}

// Full covers every port from 1 to 65535.
type Full struct{}

// Custom covers a user supplied list of ports and ranges such as "22,80,8000-8100".
type Custom struct {
	Spec string
}

func (Quick) scanMode()    {}
func (Standard) scanMode() {}
func (Full) scanMode()     {}
func (Custom) scanMode()   {}

func (Quick) String() string    { return "quick" }
func (Standard) String() string { return "standard" }
func (Full) String() string     { return "full" }
func (c Custom) String() string { return customPrefix + c.Spec }

// ParseMode parses a selector of the form quick | standard | full | custom:<spec>.
// The custom spec itself is not validated here; Expand does that.
func ParseMode(selector string) (ScanMode, error) {
	s := strings.TrimSpace(selector)
	lower := strings.ToLower(s)
	switch {
	case lower == "quick":
		return Quick{}, nil
	case lower == "standard":
		return Standard{}, nil
	case lower == "full":
		return Full{}, nil
	case strings.HasPrefix(lower, customPrefix):
		return Custom{Spec: s[len(customPrefix):]}, nil
	}
	return nil, errors.ErrInvalidPortSpec(selector, "unknown scan mode, expected quick, standard, full or custom:<spec>")
}

// Name returns the bare mode name without any custom spec.
func Name(mode ScanMode) string {
	if _, ok := mode.(Custom); ok {
		return "custom"
	}
	if mode == nil {
		return ""
	}
	return mode.String()
}
