package scanning

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/workers"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/anstrom/portsweep/internal/scanning Service

// ReportSink receives every final report, e.g. to persist it.
type ReportSink interface {
	SaveReport(ctx context.Context, report *Report) error
}

// Service is the session registry used by the API and the scheduler.
type Service interface {
	Submit(ctx context.Context, req Request) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Cancel(id string) error
}

// Submitter queues jobs. *workers.Pool satisfies it.
type Submitter interface {
	Submit(job workers.Job) error
}

// Manager runs sessions on a worker pool and keeps them addressable by ID
// until they are pruned.
type Manager struct {
	engine *Engine
	pool   Submitter
	sinks  []ReportSink
	logger *logging.Logger

	sinkTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager that runs sessions from engine on pool.
func NewManager(engine *Engine, pool Submitter, sinks ...ReportSink) *Manager {
	return &Manager{
		engine:      engine,
		pool:        pool,
		sinks:       sinks,
		logger:      logging.Default().WithComponent("manager"),
		sinkTimeout: 30 * time.Second,
		sessions:    make(map[string]*Session),
	}
}

// Submit validates req, registers a new session and queues it. Syntax errors
// in the target or port specification are returned here rather than as a
// Failed session; host resolution still happens when the session runs.
func (m *Manager) Submit(_ context.Context, req Request) (*Session, error) {
	if _, err := resolver.Validate(req.Target); err != nil {
		return nil, err
	}
	if _, err := ports.Expand(req.Mode); err != nil {
		return nil, err
	}

	s := m.engine.NewSession(req)

	m.mu.Lock()
	if _, exists := m.sessions[s.ID()]; exists {
		m.mu.Unlock()
		return nil, errors.NewScanErrorWithTarget(errors.CodeConflict, "scan ID already in use", s.ID())
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	job := workers.NewFuncJob(s.ID(), "scan", func(ctx context.Context) error {
		report := s.Run(ctx)
		m.deliver(report)
		return report.Err
	})
	if err := m.pool.Submit(job); err != nil {
		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
		return nil, err
	}

	m.logger.Info("Scan queued", "scan_id", s.ID(), "target", req.Target, "mode", modeString(req.Mode))
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.ErrNotFound("scan", id)
	}
	return s, nil
}

// List returns all known sessions, newest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Session) int {
		if c := b.StartedAt().Compare(a.StartedAt()); c != 0 {
			return c
		}
		return strings.Compare(a.ID(), b.ID())
	})
	return list
}

// Cancel cancels the session with the given ID. Cancelling a finished
// session is not an error.
func (m *Manager) Cancel(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Cancel()
	return nil
}

// CancelAll cancels every session that has not finished.
func (m *Manager) CancelAll() {
	for _, s := range m.List() {
		if !s.State().Terminal() {
			s.Cancel()
		}
	}
}

// Prune forgets finished sessions whose report is older than retention and
// returns how many were removed.
func (m *Manager) Prune(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if r := s.Report(); r != nil && r.EndTime.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("Pruned finished scans", "removed", removed)
	}
	return removed
}

func (m *Manager) deliver(report *Report) {
	if len(m.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.sinkTimeout)
	defer cancel()

	for _, sink := range m.sinks {
		if err := sink.SaveReport(ctx, report); err != nil {
			m.logger.ErrorScan("Failed to save scan report", report.Target, err, "scan_id", report.ScanID)
		}
	}
}

var _ Service = (*Manager)(nil)
