// Package errors defines the coded error types used across portsweep.
// Scan, database and configuration failures each carry an ErrorCode that the
// API maps to an HTTP status and the CLI prints verbatim.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodePermission    ErrorCode = "PERMISSION"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConflict      ErrorCode = "CONFLICT"

	// Pre-flight scan errors. A scan that hits one of these never dispatches a probe.
	CodeInvalidTarget    ErrorCode = "INVALID_TARGET"
	CodeUnresolvableHost ErrorCode = "UNRESOLVABLE_HOST"
	CodeInvalidPortSpec  ErrorCode = "INVALID_PORT_SPEC"

	// Scan execution errors.
	CodeScanFailed      ErrorCode = "SCAN_FAILED"
	CodeResourceLimit   ErrorCode = "RESOURCE_LIMIT"
	CodeSessionState    ErrorCode = "SESSION_STATE"
	CodeQueueFull       ErrorCode = "QUEUE_FULL"
	CodeReportWrite     ErrorCode = "REPORT_WRITE"
	CodeUnsupportedType ErrorCode = "UNSUPPORTED_FORMAT"

	// Database errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	CodeDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"
	CodeDatabaseTimeout    ErrorCode = "DATABASE_TIMEOUT"

	// Service errors.
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// ScanError represents an error that occurred while preparing or running a scan.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	// Token is the offending fragment of a port specification, if any.
	Token   string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	switch {
	case e.Token != "":
		return fmt.Sprintf("[%s] %s (token: %q)", e.Code, e.Message, e.Token)
	case e.Target != "":
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func newScanError(code ErrorCode, message, target string, cause error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewScanError creates a scan error with the given code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return newScanError(code, message, "", nil)
}

// NewScanErrorWithTarget creates a scan error naming the target it concerns.
func NewScanErrorWithTarget(code ErrorCode, message, target string) *ScanError {
	return newScanError(code, message, target, nil)
}

// WrapScanError wraps err as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return newScanError(code, message, "", err)
}

// WrapScanErrorWithTarget wraps err as a scan error for target.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return newScanError(code, message, target, err)
}

// DatabaseError represents database-related errors.
type DatabaseError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Query     string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// WithOperation records which store operation failed.
func (e *DatabaseError) WithOperation(op string) *DatabaseError {
	e.Operation = op
	return e
}

// WithQuery adds the SQL query that caused the error.
func (e *DatabaseError) WithQuery(query string) *DatabaseError {
	e.Query = query
	return e
}

// NewDatabaseError creates a new database error.
func NewDatabaseError(code ErrorCode, message string) *DatabaseError {
	return &DatabaseError{Code: code, Message: message}
}

// WrapDatabaseError wraps an existing error as a database error.
func WrapDatabaseError(code ErrorCode, message string, err error) *DatabaseError {
	return &DatabaseError{Code: code, Message: message, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{Code: code, Message: message}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{Code: code, Message: message, Cause: err}
}

// Utility functions for common error operations

// IsCode checks if an error, or any error it wraps, has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var dbErr *DatabaseError
	if stderrors.As(err, &dbErr) {
		return dbErr.Code
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return CodeUnknown
}

// IsNotFound reports whether err signals a missing resource.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConflict reports whether err signals a state conflict.
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict) || IsCode(err, CodeSessionState)
}

// IsPreflight reports whether err aborted a scan before any probe was sent.
func IsPreflight(err error) bool {
	switch GetCode(err) {
	case CodeInvalidTarget, CodeUnresolvableHost, CodeInvalidPortSpec:
		return true
	default:
		return false
	}
}

// IsClientError reports whether err was caused by bad caller input rather than
// a fault on our side.
func IsClientError(err error) bool {
	if IsPreflight(err) {
		return true
	}
	switch GetCode(err) {
	case CodeValidation, CodeUnsupportedType:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrInvalidTarget creates an error for a target string that is neither an IP
// literal nor a plausible host name.
func ErrInvalidTarget(target, reason string) *ScanError {
	msg := "Invalid target"
	if reason != "" {
		msg += ": " + reason
	}
	return NewScanErrorWithTarget(CodeInvalidTarget, msg, target)
}

// ErrUnresolvableHost creates an error for a host name that did not resolve.
func ErrUnresolvableHost(target string, err error) *ScanError {
	return WrapScanErrorWithTarget(CodeUnresolvableHost, "Host name could not be resolved", target, err)
}

// ErrInvalidPortSpec creates an error naming the offending token of a port specification.
func ErrInvalidPortSpec(token, reason string) *ScanError {
	e := NewScanError(CodeInvalidPortSpec, "Invalid port specification: "+reason)
	e.Token = token
	return e
}

// ErrNotFound creates an error for a missing resource.
func ErrNotFound(kind, id string) *ScanError {
	return NewScanErrorWithTarget(CodeNotFound, kind+" not found", id)
}

// ErrDatabaseConnection creates an error for database connection failures.
func ErrDatabaseConnection(err error) *DatabaseError {
	return WrapDatabaseError(CodeDatabaseConnection, "Failed to connect to database", err)
}

// ErrDatabaseQuery creates an error for database query failures.
func ErrDatabaseQuery(query string, err error) *DatabaseError {
	return WrapDatabaseError(CodeDatabaseQuery, "Database query failed", err).WithQuery(query)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}
