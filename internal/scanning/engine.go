package scanning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/metrics"
	"github.com/anstrom/portsweep/internal/resolver"
)

const maxProbeTimeout = 30 * time.Second

// Config holds engine settings shared by every session it creates.
type Config struct {
	// PoolSize is the maximum number of concurrent probes per scan.
	PoolSize int `yaml:"pool_size" json:"pool_size"`
	// ProbeTimeout bounds each connection attempt.
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	// RateLimit caps new probes per second. Zero disables the cap.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	// ServiceDetection attaches well-known service names to results.
	ServiceDetection bool `yaml:"service_detection" json:"service_detection"`
}

// DefaultConfig returns 200 concurrent probes with a 500ms timeout.
func DefaultConfig() Config {
	return Config{
		PoolSize:         DefaultPoolSize,
		ProbeTimeout:     DefaultProbeTimeout,
		RateLimit:        0,
		ServiceDetection: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PoolSize < 1 || c.PoolSize > MaxPoolSize {
		return errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("pool size must be between 1 and %d", MaxPoolSize), "scanning.pool_size", c.PoolSize)
	}
	if c.ProbeTimeout <= 0 || c.ProbeTimeout > maxProbeTimeout {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"probe timeout must be positive and at most 30s", "scanning.probe_timeout", c.ProbeTimeout)
	}
	if c.RateLimit < 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"rate limit cannot be negative", "scanning.rate_limit", c.RateLimit)
	}
	return nil
}

// TargetResolver turns a raw target string into an address. *resolver.Resolver
// satisfies it.
type TargetResolver interface {
	Resolve(ctx context.Context, input string) (resolver.Target, error)
}

// Engine creates and runs scan sessions.
type Engine struct {
	cfg      Config
	resolver TargetResolver
	prober   Prober
	metrics  metrics.ScanRecorder
	logger   *logging.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithResolver replaces the target resolver.
func WithResolver(r TargetResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithProber replaces the TCP prober.
func WithProber(p Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.ScanRecorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine validates cfg and builds an engine. The pool size is lowered if
// it would not fit under the process open file limit.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		metrics: metrics.Nop{},
		logger:  logging.Default().WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if clamped := ClampPoolSize(e.cfg.PoolSize); clamped != e.cfg.PoolSize {
		e.logger.Warn("Pool size lowered to fit the open file limit",
			"requested", e.cfg.PoolSize, "effective", clamped)
		e.cfg.PoolSize = clamped
	}
	if e.resolver == nil {
		e.resolver = resolver.New(resolver.DefaultConfig(), resolver.WithLogger(e.logger))
	}
	if e.prober == nil {
		e.prober = NewTCPProber(e.cfg.ProbeTimeout)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// NewSession creates an Idle session for req. The scan mode is expanded
// immediately; an invalid mode surfaces as a Failed report from Run.
func (e *Engine) NewSession(req Request) *Session {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
		req.ID = id
	}
	return newSession(e, id, req)
}

// Start creates a session and runs it in the background.
func (e *Engine) Start(ctx context.Context, req Request) *Session {
	s := e.NewSession(req)
	go s.Run(ctx)
	return s
}

// Scan runs a session to completion. The returned error is the pre-flight
// error of a Failed scan; cancelled scans return a partial report and no error.
func (e *Engine) Scan(ctx context.Context, req Request) (*Report, error) {
	report := e.NewSession(req).Run(ctx)
	return report, report.Err
}
