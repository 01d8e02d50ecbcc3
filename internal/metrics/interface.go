package metrics

import "time"

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/anstrom/portsweep/internal/metrics ScanRecorder

// ScanRecorder receives scan lifecycle and probe events from the engine.
// This interface allows the engine to be tested without a Prometheus registry.
type ScanRecorder interface {
	ScanStarted(mode string)
	ScanFinished(mode, status string, duration time.Duration)
	PreflightFailed(code string)
	ProbeStarted()
	ProbeFinished(outcome string, latency time.Duration)
}

// JobRecorder receives worker pool events.
type JobRecorder interface {
	JobQueued()
	JobFinished(jobType string, duration time.Duration, err error)
	SetPoolSize(size int)
}

// QueryRecorder receives database query timings.
type QueryRecorder interface {
	RecordDatabaseQuery(operation string, duration time.Duration, err error)
}

// HTTPRecorder receives API server events.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	AddWebSocketClients(delta int)
}

// Nop discards every event.
type Nop struct{}

func (Nop) ScanStarted(string)                                      {}
func (Nop) ScanFinished(string, string, time.Duration)              {}
func (Nop) PreflightFailed(string)                                  {}
func (Nop) ProbeStarted()                                           {}
func (Nop) ProbeFinished(string, time.Duration)                     {}
func (Nop) JobQueued()                                              {}
func (Nop) JobFinished(string, time.Duration, error)                {}
func (Nop) SetPoolSize(int)                                         {}
func (Nop) RecordDatabaseQuery(string, time.Duration, error)        {}
func (Nop) RecordHTTPRequest(string, string, string, time.Duration) {}
func (Nop) AddWebSocketClients(int)                                 {}

// Ensure that PrometheusMetrics and Nop implement the recorder interfaces.
var (
	_ ScanRecorder  = (*PrometheusMetrics)(nil)
	_ JobRecorder   = (*PrometheusMetrics)(nil)
	_ QueryRecorder = (*PrometheusMetrics)(nil)
	_ HTTPRecorder  = (*PrometheusMetrics)(nil)
	_ ScanRecorder  = Nop{}
	_ JobRecorder   = Nop{}
	_ QueryRecorder = Nop{}
	_ HTTPRecorder  = Nop{}
)
