package scanning

import (
	"time"

	"github.com/anstrom/portsweep/internal/ports"
)

// ProbeOutcome is the classification of a single port.
type ProbeOutcome string

const (
	// Open means the TCP handshake completed.
	Open ProbeOutcome = "open"
	// Closed means the host answered with a reset.
	Closed ProbeOutcome = "closed"
	// Filtered means no answer arrived before the probe timeout, or the
	// network reported the host unreachable.
	Filtered ProbeOutcome = "filtered"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions are possible from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Request describes one scan.
type Request struct {
	// ID is optional; a UUID is generated when empty.
	ID     string
	Target string
	Mode   ports.ScanMode
}

// ScanResult is the outcome for one port.
type ScanResult struct {
	Port    uint16        `json:"port" xml:"port,attr" db:"port"`
	Outcome ProbeOutcome  `json:"state" xml:"state,attr" db:"state"`
	Service string        `json:"service,omitempty" xml:"service,attr,omitempty" db:"service"`
	Latency time.Duration `json:"latency_ns" xml:"latency_ns,attr" db:"latency_ns"`
}

// ScanProgress is a point-in-time snapshot of a running scan.
type ScanProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Open      int `json:"open"`
}

// Percent returns completion as a value between 0 and 100.
func (p ScanProgress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

// Report is the final summary of a session. Results are sorted by port.
type Report struct {
	ScanID  string `json:"scan_id"`
	Target  string `json:"target"`
	Address string `json:"address,omitempty"`
	Mode    string `json:"mode"`
	Status  State  `json:"status"`
	// Partial is set when fewer ports were attempted than requested.
	Partial        bool          `json:"partial"`
	TotalRequested int           `json:"total_requested"`
	TotalAttempted int           `json:"total_attempted"`
	OpenCount      int           `json:"open_count"`
	ClosedCount    int           `json:"closed_count"`
	FilteredCount  int           `json:"filtered_count"`
	Results        []ScanResult  `json:"results"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration_ns"`
	FailureReason  string        `json:"failure_reason,omitempty"`

	// Err holds the pre-flight error of a failed scan.
	Err error `json:"-"`
}

// OpenPorts returns the open results in port order.
func (r *Report) OpenPorts() []ScanResult {
	open := make([]ScanResult, 0, r.OpenCount)
	for _, res := range r.Results {
		if res.Outcome == Open {
			open = append(open, res)
		}
	}
	return open
}
