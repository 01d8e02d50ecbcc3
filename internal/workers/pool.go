// Package workers provides a bounded worker pool that runs whole scan sessions
// as jobs. It supports job queuing, rate limiting and graceful shutdown, and
// integrates with the structured logging and metrics systems.
package workers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/metrics"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job. It must return promptly once ctx is done.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Result represents the result of executing a job.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines, i.e. concurrent jobs.
	Size int `yaml:"size" json:"size"`
	// QueueSize is the maximum number of jobs that can wait for a worker.
	QueueSize int `yaml:"queue_size" json:"queue_size"`
	// ShutdownTimeout is how long Shutdown waits for running jobs.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// RateLimit is the maximum number of job starts per second (0 = no limit).
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:            4,
		QueueSize:       64,
		ShutdownTimeout: 30 * time.Second,
		RateLimit:       0,
	}
}

// Pool manages a pool of worker goroutines for concurrent job execution.
type Pool struct {
	config   Config
	jobs     chan Job
	results  chan Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	limiter  *rate.Limiter
	recorder metrics.JobRecorder
	logger   *logging.Logger

	startOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Option customizes a Pool.
type Option func(*Pool)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.JobRecorder) Option {
	return func(p *Pool) { p.recorder = r }
}

// WithLogger sets the pool logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New creates a new worker pool with the given configuration.
func New(config Config, opts ...Option) *Pool {
	if config.Size <= 0 {
		config.Size = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:   config,
		jobs:     make(chan Job, config.QueueSize),
		results:  make(chan Result, config.QueueSize+config.Size),
		ctx:      ctx,
		cancel:   cancel,
		recorder: metrics.Nop{},
		logger:   logging.Default().WithComponent("workers"),
	}
	if config.RateLimit > 0 {
		pool.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Start launches the workers. Calling it again has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize,
			"rate_limit", p.config.RateLimit)

		for i := 0; i < p.config.Size; i++ {
			p.wg.Add(1)
			go p.work(i)
		}
		p.recorder.SetPoolSize(p.config.Size)
	})
}

// Submit queues a job without blocking. It fails when the queue is full or
// the pool has been shut down.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errors.NewScanError(errors.CodeServiceUnavailable, "worker pool is shut down")
	}

	select {
	case p.jobs <- job:
		p.recorder.JobQueued()
		p.logger.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		return nil
	default:
		return errors.NewScanError(errors.CodeQueueFull, "job queue is full")
	}
}

// Results returns a channel of finished jobs. Results are dropped when the
// channel is full. It is closed after Shutdown.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// QueueLength returns the number of jobs waiting for a worker.
func (p *Pool) QueueLength() int {
	return len(p.jobs)
}

// Shutdown stops accepting jobs and cancels the context passed to running
// jobs. Jobs still queued are executed with that cancelled context so every
// submitted job yields a Result. It waits up to ShutdownTimeout.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.logger.Info("Shutting down worker pool", "queued", len(p.jobs))
	p.cancel()

	// Workers that were never started cannot drain the queue.
	p.Start()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(p.results)
		close(done)
	}()

	timeout := p.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	select {
	case <-done:
		p.logger.Info("Worker pool shutdown completed")
		return nil
	case <-time.After(timeout):
		p.logger.Warn("Worker pool shutdown timed out", "timeout", timeout)
		return errors.NewScanError(errors.CodeTimeout, "worker pool shutdown timed out")
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", "worker_id", id)
	defer p.logger.Debug("Worker stopped", "worker_id", id)

	for job := range p.jobs {
		if p.limiter != nil {
			// Wait fails only once the pool is cancelled; the job still runs
			// so it can report its cancellation.
			_ = p.limiter.Wait(p.ctx)
		}
		p.execute(id, job)
	}
}

func (p *Pool) execute(workerID int, job Job) {
	start := time.Now()
	err := p.runJob(job)
	duration := time.Since(start)

	p.recorder.JobFinished(job.Type(), duration, err)
	if err != nil {
		p.logger.Warn("Job finished with error",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"worker_id", workerID,
			"duration", duration,
			"error", err)
	} else {
		p.logger.Debug("Job completed successfully",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"worker_id", workerID,
			"duration", duration)
	}

	select {
	case p.results <- Result{JobID: job.ID(), JobType: job.Type(), Error: err, Duration: duration}:
	default:
	}
}

// runJob executes job and turns a panic into an error so one bad job cannot
// take the worker down.
func (p *Pool) runJob(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked", "job_id", job.ID(), "panic", r)
			err = errors.NewScanError(errors.CodeScanFailed, "job panicked")
		}
	}()
	return job.Execute(p.ctx)
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

// NewFuncJob creates a job that runs fn.
func NewFuncJob(id, jobType string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{id: id, jobType: jobType, fn: fn}
}

// Execute implements the Job interface.
func (j *FuncJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}

// ID implements the Job interface.
func (j *FuncJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *FuncJob) Type() string {
	return j.jobType
}
