// Package scheduler runs recurring scans and housekeeping jobs on cron
// schedules. Each scan tick submits a session through the scan service; a
// tick that fires while the previous run of the same job is still going is
// skipped.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/scanning"
)

// Job kinds.
const (
	JobTypeScan  = "scan"
	JobTypePrune = "prune"
)

// Scheduler manages scheduled scan and maintenance jobs.
type Scheduler struct {
	service scanning.Service
	cron    *cron.Cron
	logger  *logging.Logger
	jobs    map[uuid.UUID]*ScheduledJob
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ScheduledJob is the runtime view of one job.
type ScheduledJob struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	CronExpression string    `json:"cron"`
	Target         string    `json:"target,omitempty"`
	Mode           string    `json:"mode,omitempty"`
	Enabled        bool      `json:"enabled"`
	Running        bool      `json:"running"`
	LastRun        time.Time `json:"last_run,omitempty"`
	NextRun        time.Time `json:"next_run,omitempty"`
	LastScanID     string    `json:"last_scan_id,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	Runs           int       `json:"runs"`
	Skipped        int       `json:"skipped"`

	cronID   cron.EntryID
	schedule cron.Schedule
	run      func(ctx context.Context) (string, error)
}

// NewScheduler creates a scheduler that submits scans to service.
func NewScheduler(service scanning.Service) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		service: service,
		cron:    cron.New(),
		logger:  logging.Default().WithComponent("scheduler"),
		jobs:    make(map[uuid.UUID]*ScheduledJob),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.NewScanError(errors.CodeSessionState, "scheduler is already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops firing jobs and waits for running ticks to return. Scans
// already submitted keep running in the scan service.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.logger.Info("Scheduler stopped")
}

// AddScanJob schedules a recurring scan of target in the given mode.
func (s *Scheduler) AddScanJob(name, cronExpr, target, mode string) (uuid.UUID, error) {
	if _, err := resolver.Validate(target); err != nil {
		return uuid.Nil, err
	}
	scanMode, err := ports.ParseMode(mode)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := ports.Expand(scanMode); err != nil {
		return uuid.Nil, err
	}

	job := &ScheduledJob{
		Name:   name,
		Type:   JobTypeScan,
		Target: target,
		Mode:   ports.Name(scanMode),
	}
	job.run = func(ctx context.Context) (string, error) {
		return s.runScan(ctx, job.Name, target, scanMode)
	}
	return s.addJob(cronExpr, job)
}

// AddPruneJob schedules periodic cleanup of finished sessions and stored
// reports.
func (s *Scheduler) AddPruneJob(cronExpr string, p Pruning) (uuid.UUID, error) {
	job := &ScheduledJob{
		Name: "prune",
		Type: JobTypePrune,
	}
	job.run = func(ctx context.Context) (string, error) {
		return "", p.Run(ctx)
	}
	return s.addJob(cronExpr, job)
}

func (s *Scheduler) addJob(cronExpr string, job *ScheduledJob) (uuid.UUID, error) {
	if strings.TrimSpace(job.Name) == "" {
		return uuid.Nil, errors.NewScanError(errors.CodeValidation, "job name is required")
	}
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return uuid.Nil, errors.WrapScanError(errors.CodeValidation,
			fmt.Sprintf("invalid cron expression %q", cronExpr), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.jobs {
		if existing.Name == job.Name {
			return uuid.Nil, errors.NewScanError(errors.CodeConflict,
				fmt.Sprintf("job %q already exists", job.Name))
		}
	}

	job.ID = uuid.New()
	job.CronExpression = cronExpr
	job.Enabled = true
	job.schedule = schedule
	job.NextRun = schedule.Next(time.Now())

	id := job.ID
	job.cronID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.execute(id) }))
	s.jobs[id] = job

	s.logger.Info("Added scheduled job", "type", job.Type, "name", job.Name, "cron", cronExpr)
	return id, nil
}

// RemoveJob unschedules a job. A run in progress is not interrupted.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return errors.ErrNotFound("scheduled job", id.String())
	}
	s.cron.Remove(job.cronID)
	delete(s.jobs, id)

	s.logger.Info("Removed scheduled job", "name", job.Name)
	return nil
}

// EnableJob resumes a disabled job.
func (s *Scheduler) EnableJob(id uuid.UUID) error {
	return s.setJobEnabled(id, true)
}

// DisableJob keeps a job registered but skips its ticks.
func (s *Scheduler) DisableJob(id uuid.UUID) error {
	return s.setJobEnabled(id, false)
}

func (s *Scheduler) setJobEnabled(id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return errors.ErrNotFound("scheduled job", id.String())
	}
	job.Enabled = enabled
	return nil
}

// GetJobs returns copies of all jobs ordered by name.
func (s *Scheduler) GetJobs() []ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	slices.SortFunc(jobs, func(a, b ScheduledJob) int { return strings.Compare(a.Name, b.Name) })
	return jobs
}

// RunNow fires a job immediately, outside its schedule. It returns false if
// the job was skipped because a previous run is still going or it is
// disabled.
func (s *Scheduler) RunNow(id uuid.UUID) (bool, error) {
	s.mu.RLock()
	_, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return false, errors.ErrNotFound("scheduled job", id.String())
	}
	return s.execute(id), nil
}

// Trigger is RunNow without waiting: the job is claimed before Trigger
// returns and runs in the background.
func (s *Scheduler) Trigger(id uuid.UUID) (bool, error) {
	s.mu.RLock()
	_, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return false, errors.ErrNotFound("scheduled job", id.String())
	}

	job, ok := s.prepareJobExecution(id)
	if !ok {
		return false, nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(id, job)
	}()
	return true, nil
}

// execute runs one tick of a job and reports whether it ran.
func (s *Scheduler) execute(id uuid.UUID) bool {
	job, ok := s.prepareJobExecution(id)
	if !ok {
		return false
	}
	s.runJob(id, job)
	return true
}

func (s *Scheduler) runJob(id uuid.UUID, job *ScheduledJob) {
	defer s.cleanupJobExecution(id)

	scanID, err := job.run(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.LastScanID = scanID
	job.LastError = ""
	if err != nil {
		job.LastError = err.Error()
		s.logger.Error("Scheduled job failed", "name", job.Name, "error", err)
	}
}

// prepareJobExecution marks the job running, or reports that the tick must
// be skipped.
func (s *Scheduler) prepareJobExecution(id uuid.UUID) (*ScheduledJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || !job.Enabled {
		return nil, false
	}
	if job.Running {
		job.Skipped++
		s.logger.Warn("Skipping scheduled job, previous run still in progress", "name", job.Name)
		return nil, false
	}

	now := time.Now()
	job.Running = true
	job.Runs++
	job.LastRun = now
	job.NextRun = job.schedule.Next(now)
	return job, true
}

func (s *Scheduler) cleanupJobExecution(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Running = false
	}
}

// runScan submits one scan and waits for it, so that the job stays marked
// as running for the whole scan.
func (s *Scheduler) runScan(ctx context.Context, name, target string, mode ports.ScanMode) (string, error) {
	session, err := s.service.Submit(ctx, scanning.Request{Target: target, Mode: mode})
	if err != nil {
		return "", err
	}

	s.logger.Info("Scheduled scan submitted", "name", name, "scan_id", session.ID(), "target", target)

	report, err := session.Wait(ctx)
	if err != nil {
		// Scheduler is stopping; the scan itself keeps running.
		return session.ID(), nil
	}
	if report.Err != nil {
		return session.ID(), report.Err
	}
	return session.ID(), nil
}
