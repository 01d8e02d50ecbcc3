// Package db provides PostgreSQL persistence for portsweep. It handles the
// connection pool, schema migrations and the store that keeps final scan
// reports together with their per-port results.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
)

// pqFailures maps PostgreSQL condition names to the code and message
// reported upward. Messages never include query text or server detail.
var pqFailures = map[string]struct {
	code    errors.ErrorCode
	message string
}{
	"unique_violation":      {errors.CodeConflict, "Report already exists"},
	"foreign_key_violation": {errors.CodeValidation, "Referenced report does not exist"},
	"not_null_violation":    {errors.CodeValidation, "Required field is missing"},
	"check_violation":       {errors.CodeValidation, "Report data failed validation"},
	"query_canceled":        {errors.CodeCanceled, "Database operation was canceled"},
	"admin_shutdown":        {errors.CodeDatabaseConnection, "Database connection lost"},
}

// sanitizeDBError turns a driver error into a DatabaseError that is safe to
// hand to API clients. The driver error stays reachable through Unwrap.
func sanitizeDBError(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, sql.ErrNoRows):
		return errors.NewDatabaseError(errors.CodeNotFound, "Report not found").WithOperation(operation)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.WrapDatabaseError(errors.CodeDatabaseTimeout, "Database operation timed out", err).
			WithOperation(operation)
	}

	code, message := errors.CodeDatabaseQuery, "Database operation failed: "+operation

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		if failure, ok := pqFailures[pqErr.Code.Name()]; ok {
			code, message = failure.code, failure.message
		} else if pqErr.Code.Class() == "08" {
			// connection_exception and its subclasses
			code, message = errors.CodeDatabaseConnection, "Database connection error"
		}
	}

	return errors.WrapDatabaseError(code, message, err).WithOperation(operation)
}

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
	defaultConnMaxIdleTime = 5
)

// DB wraps sqlx.DB with additional functionality.
type DB struct {
	*sqlx.DB
}

// Config holds database configuration.
type Config struct {
	// Enabled turns on report persistence.
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration. Persistence is
// off until a database name and username are configured.
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime * time.Minute,
		ConnMaxIdleTime: defaultConnMaxIdleTime * time.Minute,
	}
}

// DSN returns the lib/pq key=value connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// Connect establishes a connection to PostgreSQL.
// Returns sanitized errors that don't leak credentials or DSN details.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, errors.ErrDatabaseConnection(err)
	}
	return configure(ctx, db, config)
}

// Open wraps an existing *sql.DB, for example one created by a test driver.
func Open(ctx context.Context, sqlDB *sql.DB, config *Config) (*DB, error) {
	return configure(ctx, sqlx.NewDb(sqlDB, "postgres"), config)
}

func configure(ctx context.Context, db *sqlx.DB, config *Config) (*DB, error) {
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			// Don't log the raw error, it might contain connection details.
			logging.Warn("Failed to close database connection after ping failure")
		}
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection, "Failed to verify database connection", err)
	}

	logging.Default().InfoDatabase("Connected to database",
		"host", config.Host, "port", config.Port, "database", config.Database)
	return &DB{DB: db}, nil
}

// Ping tests the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// BeginTx starts a new transaction.
func (db *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return db.BeginTxx(ctx, nil)
}
