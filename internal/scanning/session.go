package scanning

import (
	"context"
	"net/netip"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/services"
)

// Session is one scan of one target. It is created Idle by Engine.NewSession
// and driven by Run.
//
// Results and Progress are closed once the final report is sealed, after
// which Done is closed. Results has room for every port in the scan, so it
// never blocks the probes; Progress holds only the latest snapshot.
type Session struct {
	id     string
	req    Request
	engine *Engine
	logger *logging.Logger

	ports     ports.PortSet
	expandErr error

	results  chan ScanResult
	progress chan ScanProgress
	done     chan struct{}

	cancelCtx  context.Context
	cancelFn   context.CancelFunc
	cancelOnce sync.Once

	mu        sync.Mutex
	state     State
	target    resolver.Target
	collected []ScanResult
	open      int
	startedAt time.Time
	report    *Report
	limiter   *ProbeLimiter
}

func newSession(e *Engine, id string, req Request) *Session {
	set, err := ports.Expand(req.Mode)

	cancelCtx, cancelFn := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		req:       req,
		engine:    e,
		logger:    e.logger.WithScanID(id).WithTarget(req.Target),
		ports:     set,
		expandErr: err,
		results:   make(chan ScanResult, len(set)),
		progress:  make(chan ScanProgress, 1),
		done:      make(chan struct{}),
		cancelCtx: cancelCtx,
		cancelFn:  cancelFn,
		state:     StateIdle,
		collected: make([]ScanResult, 0, len(set)),
		limiter:   NewProbeLimiter(e.cfg.PoolSize),
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Request returns the request the session was created from.
func (s *Session) Request() Request { return s.req }

// Total returns the number of ports the scan covers.
func (s *Session) Total() int { return len(s.ports) }

// Results streams one event per probed port in completion order.
func (s *Session) Results() <-chan ScanResult { return s.results }

// Progress streams coalesced progress snapshots. A slow reader only ever sees
// the most recent one.
func (s *Session) Progress() <-chan ScanProgress { return s.progress }

// Done is closed once the final report is available.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current progress without consuming the progress stream.
func (s *Session) Snapshot() ScanProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScanProgress{Completed: len(s.collected), Total: len(s.ports), Open: s.open}
}

// PeakInFlight returns the highest number of concurrent probes so far.
func (s *Session) PeakInFlight() int { return s.limiter.Peak() }

// InFlight returns the number of probes currently holding a socket.
func (s *Session) InFlight() int { return s.limiter.InFlight() }

// StartedAt returns when Run began, or the zero time while Idle.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Report returns the final report, or nil while the scan is unfinished.
func (s *Session) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Wait blocks until the report is sealed or ctx is done.
func (s *Session) Wait(ctx context.Context) (*Report, error) {
	select {
	case <-s.done:
		return s.Report(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops dispatching new probes. Probes already in flight finish or
// time out and are included in the report. Calling Cancel more than once, or
// after the scan finished, has no further effect.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		s.logger.Info("Scan cancellation requested")
		s.cancelFn()
	})
}

// Run executes the scan and returns its final report. Cancelling ctx has the
// same effect as Cancel. Only the first call runs the scan; later calls wait
// for and return the same report.
func (s *Session) Run(ctx context.Context) *Report {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		<-s.done
		return s.Report()
	}
	s.state = StateRunning
	s.startedAt = time.Now()
	s.mu.Unlock()

	mode := ports.Name(s.req.Mode)
	s.engine.metrics.ScanStarted(mode)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	stop := context.AfterFunc(s.cancelCtx, cancelRun)
	defer stop()

	if s.expandErr != nil {
		return s.finish(runCtx, s.expandErr)
	}
	if s.stopped(runCtx) {
		return s.finish(runCtx, nil)
	}

	target, err := s.engine.resolver.Resolve(runCtx, s.req.Target)
	if err != nil {
		if s.stopped(runCtx) {
			return s.finish(runCtx, nil)
		}
		return s.finish(runCtx, err)
	}

	s.mu.Lock()
	s.target = target
	s.mu.Unlock()

	s.logger.Info("Scan started",
		"address", target.Addr,
		"mode", mode,
		"ports", len(s.ports),
		"pool_size", s.limiter.Capacity())

	s.dispatch(runCtx, target.Addr)
	return s.finish(runCtx, nil)
}

// dispatch launches one probe per port, in port order, while slots are free
// and the scan has not been cancelled. It returns once every launched probe
// has recorded its result.
func (s *Session) dispatch(ctx context.Context, addr netip.Addr) {
	var limiter *rate.Limiter
	if r := s.engine.cfg.RateLimit; r > 0 {
		limiter = rate.NewLimiter(rate.Limit(r), max(1, int(r)))
	}

	// In-flight probes outlive cancellation and end on their own timeout.
	probeCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	dispatched := 0
	for _, port := range s.ports {
		if s.stopped(ctx) {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		if err := s.limiter.Acquire(ctx); err != nil {
			break
		}
		// Acquire may succeed on an already cancelled context.
		if s.stopped(ctx) {
			s.limiter.Release()
			break
		}

		dispatched++
		wg.Add(1)
		go func(port uint16) {
			defer wg.Done()
			defer s.limiter.Release()
			s.probe(probeCtx, netip.AddrPortFrom(addr, port))
		}(port)
	}

	s.logger.Debug("Dispatch finished", "dispatched", dispatched, "total", len(s.ports))
	wg.Wait()
}

// stopped reports whether ctx is done or Cancel was called. The second check
// covers the window before the AfterFunc hook has cancelled ctx.
func (s *Session) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || s.cancelCtx.Err() != nil
}

func (s *Session) probe(ctx context.Context, addr netip.AddrPort) {
	s.engine.metrics.ProbeStarted()
	outcome, latency := s.engine.prober.Probe(ctx, addr)
	s.engine.metrics.ProbeFinished(string(outcome), latency)

	res := ScanResult{Port: addr.Port(), Outcome: outcome, Latency: latency}
	if s.engine.cfg.ServiceDetection {
		res.Service, _ = services.Lookup(res.Port)
	}
	s.record(res)
}

func (s *Session) record(res ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collected = append(s.collected, res)
	if res.Outcome == Open {
		s.open++
	}

	// Capacity equals the port count and each port is recorded once.
	s.results <- res
	s.publishProgress(ScanProgress{Completed: len(s.collected), Total: len(s.ports), Open: s.open})
}

// publishProgress replaces any unread snapshot with p. Callers hold s.mu, so
// there is a single publisher and the loop ends after at most one drop.
func (s *Session) publishProgress(p ScanProgress) {
	for {
		select {
		case s.progress <- p:
			return
		default:
		}
		select {
		case <-s.progress:
		default:
		}
	}
}

// finish seals the report. failure is a pre-flight error; a nil failure
// yields Completed when every port was attempted and Cancelled otherwise.
func (s *Session) finish(ctx context.Context, failure error) *Report {
	end := time.Now()

	s.mu.Lock()
	results := slices.Clone(s.collected)
	slices.SortFunc(results, func(a, b ScanResult) int { return int(a.Port) - int(b.Port) })

	report := &Report{
		ScanID:         s.id,
		Target:         s.req.Target,
		Mode:           modeString(s.req.Mode),
		TotalRequested: len(s.ports),
		TotalAttempted: len(results),
		Results:        results,
		StartTime:      s.startedAt,
		EndTime:        end,
		Duration:       end.Sub(s.startedAt),
	}
	if s.target.Addr.IsValid() {
		report.Address = s.target.Addr.String()
	}
	for _, r := range results {
		switch r.Outcome {
		case Open:
			report.OpenCount++
		case Closed:
			report.ClosedCount++
		default:
			report.FilteredCount++
		}
	}

	switch {
	case failure != nil:
		report.Status = StateFailed
		report.FailureReason = failure.Error()
		report.Err = failure
	case report.TotalAttempted == report.TotalRequested:
		report.Status = StateCompleted
	default:
		report.Status = StateCancelled
	}
	// A failed scan never probed anything, so only a cancelled one is partial.
	report.Partial = report.Status == StateCancelled

	s.state = report.Status
	s.report = report
	close(s.results)
	close(s.progress)
	s.mu.Unlock()

	mode := ports.Name(s.req.Mode)
	s.engine.metrics.ScanFinished(mode, string(report.Status), report.Duration)

	switch report.Status {
	case StateFailed:
		s.engine.metrics.PreflightFailed(string(errors.GetCode(failure)))
		s.logger.ErrorScan("Scan failed before dispatch", s.req.Target, failure)
	case StateCancelled:
		s.logger.Info("Scan cancelled",
			"attempted", report.TotalAttempted,
			"requested", report.TotalRequested,
			"open", report.OpenCount,
			"cause", context.Cause(ctx))
	default:
		s.logger.Info("Scan completed",
			"ports", report.TotalAttempted,
			"open", report.OpenCount,
			"peak_in_flight", s.limiter.Peak(),
			"duration", report.Duration)
	}

	close(s.done)
	return report
}

func modeString(mode ports.ScanMode) string {
	if mode == nil {
		return ""
	}
	return mode.String()
}
