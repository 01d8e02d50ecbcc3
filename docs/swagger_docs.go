// Package docs provides Swagger documentation for the portsweep API.
//
// This file contains the API endpoint documentation using swaggo annotations.
// Run `swag init` to regenerate the OpenAPI specification in ./swagger.
//
//go:generate swag init -g swagger_docs.go -o ./swagger --parseDependency --parseInternal
package docs

import (
	"net/http"
	"time"
)

// @title portsweep API
// @version 1.0
// @description TCP connect port scanner with bounded concurrency, live progress and stored reports.
// @description
// @description ## Scan modes
// @description - `quick`: 14 well-known ports
// @description - `standard`: the 100 most common ports
// @description - `full`: every port from 1 to 65535
// @description - `custom:<spec>`: ports and ranges such as `22,80,443,8000-8100`
// @description
// @description ## Authentication
// @description When enabled, include your API key in the `X-API-Key` header or as a bearer token.
// @description Health and version endpoints never require authentication.
//
// @contact.name portsweep maintainers
// @contact.url https://github.com/anstrom/portsweep
//
// @license.name MIT
// @license.url https://github.com/anstrom/portsweep/blob/main/LICENSE
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime" example:"2h30m45s"`
	Checks    map[string]string `json:"checks"`
}

// VersionResponse represents version information
type VersionResponse struct {
	Version   string `json:"version" example:"1.0.0"`
	Commit    string `json:"commit" example:"a1b2c3d"`
	BuildTime string `json:"build_time" example:"2024-06-01T00:00:00Z"`
	GoVersion string `json:"go_version" example:"go1.23.0"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"Bad Request"`
	Message   string    `json:"message" example:"invalid port spec token \"70-65\": range start exceeds end"`
	Code      string    `json:"code,omitempty" example:"INVALID_PORT_SPEC"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty" example:"req_4f2a9c0d1e3b5a79"`
}

// CreateScanRequest represents a request to start a scan
type CreateScanRequest struct {
	Target string `json:"target" example:"scanme.example.com"`
	Mode   string `json:"mode,omitempty" example:"standard" enums:"quick,standard,full,custom"`
	Ports  string `json:"ports,omitempty" example:"22,80,443,8000-8100"`
}

// ProgressResponse is a snapshot of scan progress
type ProgressResponse struct {
	Completed int     `json:"completed" example:"42"`
	Total     int     `json:"total" example:"100"`
	Open      int     `json:"open" example:"3"`
	Percent   float64 `json:"percent" example:"42"`
}

// ScanResult is the outcome of one port
type ScanResult struct {
	Port      int    `json:"port" example:"443"`
	State     string `json:"state" example:"open" enums:"open,closed,filtered"`
	Service   string `json:"service,omitempty" example:"https"`
	LatencyNS int64  `json:"latency_ns" example:"1250000"`
}

// ReportResponse is the sealed record of a finished scan
type ReportResponse struct {
	ScanID         string       `json:"scan_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Target         string       `json:"target" example:"scanme.example.com"`
	Address        string       `json:"address" example:"203.0.113.7"`
	Mode           string       `json:"mode" example:"standard"`
	Status         string       `json:"status" example:"completed" enums:"completed,cancelled,failed"`
	Partial        bool         `json:"partial" example:"false"`
	TotalRequested int          `json:"total_requested" example:"100"`
	TotalAttempted int          `json:"total_attempted" example:"100"`
	OpenCount      int          `json:"open_count" example:"3"`
	ClosedCount    int          `json:"closed_count" example:"90"`
	FilteredCount  int          `json:"filtered_count" example:"7"`
	Results        []ScanResult `json:"results"`
	StartTime      time.Time    `json:"start_time"`
	EndTime        time.Time    `json:"end_time"`
	Duration       int64        `json:"duration" example:"2500000000"`
	FailureReason  string       `json:"failure_reason,omitempty"`
}

// ScanResponse represents a scan session
type ScanResponse struct {
	ID        string           `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Target    string           `json:"target" example:"scanme.example.com"`
	Mode      string           `json:"mode" example:"standard"`
	Status    string           `json:"status" example:"running" enums:"idle,running,completed,cancelled,failed"`
	Progress  ProgressResponse `json:"progress"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
	Report    *ReportResponse  `json:"report,omitempty"`
}

// ReportSummary is one row of the stored report list
type ReportSummary struct {
	ID            string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Target        string    `json:"target" example:"scanme.example.com"`
	Mode          string    `json:"mode" example:"standard"`
	Status        string    `json:"status" example:"completed"`
	Partial       bool      `json:"partial" example:"false"`
	OpenCount     int       `json:"open_count" example:"3"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	DurationMS    int64     `json:"duration_ms" example:"2500"`
	ClosedCount   int       `json:"closed_count" example:"90"`
	FilteredCount int       `json:"filtered_count" example:"7"`
}

// ScheduleResponse represents a scheduled job
type ScheduleResponse struct {
	ID         string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440005"`
	Name       string    `json:"name" example:"nightly-dmz"`
	Type       string    `json:"type" example:"scan" enums:"scan,prune"`
	Cron       string    `json:"cron" example:"0 2 * * *"`
	Target     string    `json:"target,omitempty" example:"10.0.0.1"`
	Mode       string    `json:"mode,omitempty" example:"quick"`
	Enabled    bool      `json:"enabled" example:"true"`
	Running    bool      `json:"running" example:"false"`
	LastRun    time.Time `json:"last_run,omitempty"`
	NextRun    time.Time `json:"next_run,omitempty"`
	LastScanID string    `json:"last_scan_id,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Runs       int       `json:"runs" example:"12"`
	Skipped    int       `json:"skipped" example:"0"`
}

// ScheduleListResponse lists scheduled jobs
type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Count     int                `json:"count" example:"1"`
}

// RunResponse reports whether a manual run started
type RunResponse struct {
	ID      string `json:"id" example:"550e8400-e29b-41d4-a716-446655440005"`
	Started bool   `json:"started" example:"true"`
	Reason  string `json:"reason,omitempty"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Page       int `json:"page" example:"1"`
	PageSize   int `json:"page_size" example:"50"`
	TotalItems int `json:"total_items" example:"150"`
	TotalPages int `json:"total_pages" example:"3"`
}

// PaginatedScansResponse represents a paginated list of scans
type PaginatedScansResponse struct {
	Data       []ScanResponse `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginatedReportsResponse represents a paginated list of stored reports
type PaginatedReportsResponse struct {
	Data       []ReportSummary `json:"data"`
	Pagination PaginationInfo  `json:"pagination"`
}

// Health godoc
// @Summary Health check
// @Description Returns service health status including database connectivity
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Success 503 {object} HealthResponse
// @Router /health [get]
// @ID getHealth
func Health(_ http.ResponseWriter, _ *http.Request) {}

// Status godoc
// @Summary System status
// @Description Returns runtime, scan and database status
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /status [get]
// @ID getStatus
func Status(_ http.ResponseWriter, _ *http.Request) {}

// Version godoc
// @Summary Version information
// @Description Returns version and build information
// @Tags System
// @Produce json
// @Success 200 {object} VersionResponse
// @Router /version [get]
// @ID getVersion
func Version(_ http.ResponseWriter, _ *http.Request) {}

// ListScans godoc
// @Summary List scans
// @Description Lists scan sessions held in memory, newest first
// @Tags Scans
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(50)
// @Param status query string false "Filter by status" Enums(idle,running,completed,cancelled,failed)
// @Success 200 {object} PaginatedScansResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /scans [get]
// @ID listScans
func ListScans(_ http.ResponseWriter, _ *http.Request) {}

// CreateScan godoc
// @Summary Start scan
// @Description Queues a scan of one target. Use mode "custom" with ports, or "custom:<spec>".
// @Tags Scans
// @Accept json
// @Produce json
// @Param scan body CreateScanRequest true "Scan request"
// @Success 202 {object} ScanResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /scans [post]
// @ID createScan
func CreateScan(_ http.ResponseWriter, _ *http.Request) {}

// GetScan godoc
// @Summary Get scan
// @Description Returns scan status, progress and, once finished, its report
// @Tags Scans
// @Produce json
// @Param id path string true "Scan ID"
// @Param open_only query bool false "Only include open ports in the report"
// @Success 200 {object} ScanResponse
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /scans/{id} [get]
// @ID getScan
func GetScan(_ http.ResponseWriter, _ *http.Request) {}

// CancelScan godoc
// @Summary Cancel scan
// @Description Stops dispatching new probes. Cancelling a finished scan is a no-op.
// @Tags Scans
// @Produce json
// @Param id path string true "Scan ID"
// @Success 202 {object} ScanResponse
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /scans/{id} [delete]
// @ID cancelScan
func CancelScan(_ http.ResponseWriter, _ *http.Request) {}

// WatchScan godoc
// @Summary Stream scan
// @Description Upgrades to a WebSocket that streams result and progress messages, then one report message.
// @Tags Scans
// @Param id path string true "Scan ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /scans/{id}/ws [get]
// @ID watchScan
func WatchScan(_ http.ResponseWriter, _ *http.Request) {}

// ListReports godoc
// @Summary List reports
// @Description Lists stored reports, newest first
// @Tags Reports
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(50)
// @Param target query string false "Filter by target"
// @Success 200 {object} PaginatedReportsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /reports [get]
// @ID listReports
func ListReports(_ http.ResponseWriter, _ *http.Request) {}

// GetReport godoc
// @Summary Get report
// @Tags Reports
// @Produce json
// @Param id path string true "Scan ID"
// @Success 200 {object} ReportResponse
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/{id} [get]
// @ID getReport
func GetReport(_ http.ResponseWriter, _ *http.Request) {}

// DeleteReport godoc
// @Summary Delete report
// @Tags Reports
// @Param id path string true "Scan ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /reports/{id} [delete]
// @ID deleteReport
func DeleteReport(_ http.ResponseWriter, _ *http.Request) {}

// ListSchedules godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} ScheduleListResponse
// @Security ApiKeyAuth
// @Router /schedules [get]
// @ID listSchedules
func ListSchedules(_ http.ResponseWriter, _ *http.Request) {}

// RunSchedule godoc
// @Summary Run schedule now
// @Description Starts the job in the background unless it is disabled or already running
// @Tags Schedules
// @Produce json
// @Param id path string true "Job ID"
// @Success 202 {object} RunResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /schedules/{id}/run [post]
// @ID runSchedule
func RunSchedule(_ http.ResponseWriter, _ *http.Request) {}

// EnableSchedule godoc
// @Summary Enable schedule
// @Tags Schedules
// @Param id path string true "Job ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /schedules/{id}/enable [post]
// @ID enableSchedule
func EnableSchedule(_ http.ResponseWriter, _ *http.Request) {}

// DisableSchedule godoc
// @Summary Disable schedule
// @Tags Schedules
// @Param id path string true "Job ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security ApiKeyAuth
// @Router /schedules/{id}/disable [post]
// @ID disableSchedule
func DisableSchedule(_ http.ResponseWriter, _ *http.Request) {}
