// Package config loads and validates the portsweep configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/portsweep/internal/db"
	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/scanning"
	"github.com/anstrom/portsweep/internal/workers"
)

// Config represents the complete portsweep configuration
type Config struct {
	// Scan engine settings
	Scanning scanning.Config `yaml:"scanning" json:"scanning"`

	// Host name resolution
	Resolver resolver.Config `yaml:"resolver" json:"resolver"`

	// Worker pool that runs queued scans
	Workers workers.Config `yaml:"workers" json:"workers"`

	// API server
	API APIConfig `yaml:"api" json:"api"`

	// Report persistence
	Database db.Config `yaml:"database" json:"database"`

	// Logging
	Logging logging.Config `yaml:"logging" json:"logging"`

	// Recurring scans
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`

	// Report files
	Reports ReportsConfig `yaml:"reports" json:"reports"`
}

// APIConfig holds API server settings
type APIConfig struct {
	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// TLS settings
	TLS TLSConfig `yaml:"tls" json:"tls"`

	// AuthEnabled requires an API key on every /api/v1 route except health
	AuthEnabled bool `yaml:"auth_enabled" json:"auth_enabled"`

	// APIKeys holds bcrypt hashes of accepted keys
	APIKeys []string `yaml:"api_keys,omitempty" json:"api_keys,omitempty"`

	// CORS settings
	CORS CORSConfig `yaml:"cors" json:"cors"`

	// Per-client request rate limit
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxRequestSize int64         `yaml:"max_request_size" json:"max_request_size"`
}

// TLSConfig holds TLS settings
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
}

// RateLimitConfig holds per-client API rate limit settings
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// SchedulerConfig holds recurring scan settings
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Schedules lists the recurring scans
	Schedules []ScheduleConfig `yaml:"schedules,omitempty" json:"schedules,omitempty"`

	// SessionRetention is how long finished scans stay visible in the API
	SessionRetention time.Duration `yaml:"session_retention" json:"session_retention"`

	// ReportRetention is how long stored reports are kept (0 = forever)
	ReportRetention time.Duration `yaml:"report_retention" json:"report_retention"`

	// PruneSchedule is the cron expression of the cleanup job
	PruneSchedule string `yaml:"prune_schedule" json:"prune_schedule"`
}

// ScheduleConfig is one recurring scan
type ScheduleConfig struct {
	Name   string `yaml:"name" json:"name"`
	Cron   string `yaml:"cron" json:"cron"`
	Target string `yaml:"target" json:"target"`
	Mode   string `yaml:"mode" json:"mode"`
}

// ReportsConfig holds report file settings
type ReportsConfig struct {
	// Enabled writes every finished report to Directory
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Directory string `yaml:"directory" json:"directory"`
	Format    string `yaml:"format" json:"format"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Scanning: scanning.DefaultConfig(),
		Resolver: resolver.DefaultConfig(),
		Workers:  workers.DefaultConfig(),
		API: APIConfig{
			ListenAddr:  "127.0.0.1",
			Port:        8080,
			AuthEnabled: false,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				Burst:             20,
			},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxRequestSize: 1024 * 1024, // 1MB
		},
		Database: db.DefaultConfig(),
		Logging:  logging.DefaultConfig(),
		Scheduler: SchedulerConfig{
			Enabled:          false,
			SessionRetention: time.Hour,
			ReportRetention:  0,
			PruneSchedule:    "@every 10m",
		},
		Reports: ReportsConfig{
			Enabled:   false,
			Directory: ".",
			Format:    "text",
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// YAML is a superset of JSON, so one decoder serves .yaml, .yml and .json.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config file %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var (
	validLogLevels     = []logging.LogLevel{logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError}
	validLogFormats    = []logging.LogFormat{logging.FormatText, logging.FormatJSON}
	validReportFormats = []string{"text", "json", "xml"}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Scanning.Validate(); err != nil {
		return err
	}

	if c.Resolver.Timeout < 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"resolver timeout cannot be negative", "resolver.timeout", c.Resolver.Timeout)
	}

	if c.Workers.Size <= 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"worker pool size must be positive", "workers.size", c.Workers.Size)
	}
	if c.Workers.QueueSize < 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"worker queue size cannot be negative", "workers.queue_size", c.Workers.QueueSize)
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return errors.ErrConfigMissing("database.host")
		}
		if c.Database.Database == "" {
			return errors.ErrConfigMissing("database.database")
		}
		if c.Database.Username == "" {
			return errors.ErrConfigMissing("database.username")
		}
	}

	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return errors.ErrConfigInvalid("logging.level", c.Logging.Level)
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		return errors.ErrConfigInvalid("logging.format", c.Logging.Format)
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if !slices.Contains(validReportFormats, c.Reports.Format) {
		return errors.ErrConfigInvalid("reports.format", c.Reports.Format)
	}
	if c.Reports.Enabled && c.Reports.Directory == "" {
		return errors.ErrConfigMissing("reports.directory")
	}

	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"API port must be between 1 and 65535", "api.port", c.API.Port)
	}
	if c.API.ListenAddr == "" {
		return errors.ErrConfigMissing("api.listen_addr")
	}
	if c.API.TLS.Enabled {
		if c.API.TLS.CertFile == "" {
			return errors.ErrConfigMissing("api.tls.cert_file")
		}
		if c.API.TLS.KeyFile == "" {
			return errors.ErrConfigMissing("api.tls.key_file")
		}
	}
	if c.API.RateLimit.Enabled {
		if c.API.RateLimit.RequestsPerSecond <= 0 {
			return errors.ErrConfigInvalid("api.rate_limit.requests_per_second", c.API.RateLimit.RequestsPerSecond)
		}
		if c.API.RateLimit.Burst <= 0 {
			return errors.ErrConfigInvalid("api.rate_limit.burst", c.API.RateLimit.Burst)
		}
	}
	if c.API.AuthEnabled && len(c.API.APIKeys) == 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"authentication is enabled but no API keys are configured", "api.api_keys", nil)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	s := c.Scheduler
	if s.SessionRetention < 0 {
		return errors.ErrConfigInvalid("scheduler.session_retention", s.SessionRetention)
	}
	if s.ReportRetention < 0 {
		return errors.ErrConfigInvalid("scheduler.report_retention", s.ReportRetention)
	}
	if s.PruneSchedule != "" {
		if _, err := cron.ParseStandard(s.PruneSchedule); err != nil {
			return errors.NewConfigFieldError(errors.CodeValidation,
				"invalid cron expression: "+err.Error(), "scheduler.prune_schedule", s.PruneSchedule)
		}
	}

	seen := make(map[string]bool, len(s.Schedules))
	for i, entry := range s.Schedules {
		field := fmt.Sprintf("scheduler.schedules[%d]", i)
		if entry.Name == "" {
			return errors.ErrConfigMissing(field + ".name")
		}
		if seen[entry.Name] {
			return errors.NewConfigFieldError(errors.CodeValidation, "duplicate schedule name", field+".name", entry.Name)
		}
		seen[entry.Name] = true

		if _, err := cron.ParseStandard(entry.Cron); err != nil {
			return errors.NewConfigFieldError(errors.CodeValidation,
				"invalid cron expression: "+err.Error(), field+".cron", entry.Cron)
		}
		if _, err := resolver.Validate(entry.Target); err != nil {
			return errors.WrapConfigError(errors.CodeValidation, field+".target is invalid", err)
		}
		mode, err := ports.ParseMode(entry.Mode)
		if err != nil {
			return errors.WrapConfigError(errors.CodeValidation, field+".mode is invalid", err)
		}
		if _, err := ports.Expand(mode); err != nil {
			return errors.WrapConfigError(errors.CodeValidation, field+".mode is invalid", err)
		}
	}
	return nil
}

// GetAPIAddress returns the full API address
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
