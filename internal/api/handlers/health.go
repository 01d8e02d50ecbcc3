// Package handlers provides HTTP request handlers for the portsweep API.
// This file implements health check and system status endpoints.
package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/scanning"
)

// DatabasePinger defines the interface for database health checking.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// Timeout constants.
const (
	healthCheckTimeout = 5 * time.Second
	dependencyTimeout  = 3 * time.Second
)

// Status constants.
const (
	StatusHealthy       = "healthy"
	StatusUnhealthy     = "unhealthy"
	StatusNotConfigured = "not configured"
)

// Build information, set by SetBuildInfo.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// SetBuildInfo records the build information reported by Version.
func SetBuildInfo(v, c, t string) {
	version, commit, buildTime = v, c, t
}

// HealthHandler handles health check and status endpoints.
type HealthHandler struct {
	database  DatabasePinger
	scans     scanning.Service
	logger    *logging.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler. database may be nil when
// report persistence is disabled.
func NewHealthHandler(database DatabasePinger, scans scanning.Service, logger *logging.Logger) *HealthHandler {
	return &HealthHandler{
		database:  database,
		scans:     scans,
		logger:    logger.WithComponent("api").WithFields("handler", "health"),
		startTime: time.Now(),
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// StatusResponse represents a detailed status response.
type StatusResponse struct {
	Service   ServiceInfo  `json:"service"`
	System    SystemInfo   `json:"system"`
	Scans     ScanCounts   `json:"scans"`
	Database  DatabaseInfo `json:"database"`
	Timestamp time.Time    `json:"timestamp"`
}

// ServiceInfo contains service-related information.
type ServiceInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime"`
	PID       int       `json:"pid"`
}

// SystemInfo contains system-related information.
type SystemInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	CPUs         int    `json:"cpus"`
	GoVersion    string `json:"go_version"`
	Goroutines   int    `json:"goroutines"`
	HeapBytes    uint64 `json:"heap_bytes"`
}

// ScanCounts counts the scans held by the manager per state.
type ScanCounts struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
}

// DatabaseInfo contains database connection information.
type DatabaseInfo struct {
	Configured   bool   `json:"configured"`
	Connected    bool   `json:"connected"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// VersionResponse represents version information.
type VersionResponse struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Timestamp time.Time `json:"timestamp"`
}

// Health performs a basic health check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).String(),
		Checks:    map[string]string{"scanner": "ok"},
	}

	if h.database != nil {
		if err := h.database.Ping(ctx); err != nil {
			response.Status = StatusUnhealthy
			response.Checks["database"] = "failed"
			h.logger.Warn("Database health check failed", "error", err)
		} else {
			response.Checks["database"] = "ok"
		}
	} else {
		response.Checks["database"] = StatusNotConfigured
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	WriteJSON(w, r, statusCode, response)
}

// Status provides detailed service status.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dependencyTimeout)
	defer cancel()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response := StatusResponse{
		Service: ServiceInfo{
			Name:      "portsweep",
			Version:   version,
			StartTime: h.startTime,
			Uptime:    time.Since(h.startTime).String(),
			PID:       os.Getpid(),
		},
		System: SystemInfo{
			OS:           runtime.GOOS,
			Architecture: runtime.GOARCH,
			CPUs:         runtime.NumCPU(),
			GoVersion:    runtime.Version(),
			Goroutines:   runtime.NumGoroutine(),
			HeapBytes:    mem.HeapAlloc,
		},
		Scans:     h.scanCounts(),
		Database:  h.databaseInfo(ctx),
		Timestamp: time.Now().UTC(),
	}
	WriteJSON(w, r, http.StatusOK, response)
}

// Version provides version information.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, r, http.StatusOK, VersionResponse{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
		Timestamp: time.Now().UTC(),
	})
}

func (h *HealthHandler) scanCounts() ScanCounts {
	counts := ScanCounts{ByState: make(map[string]int)}
	if h.scans == nil {
		return counts
	}
	for _, s := range h.scans.List() {
		counts.Total++
		counts.ByState[string(s.State())]++
	}
	return counts
}

func (h *HealthHandler) databaseInfo(ctx context.Context) DatabaseInfo {
	if h.database == nil {
		return DatabaseInfo{}
	}

	info := DatabaseInfo{Configured: true}
	start := time.Now()
	err := h.database.Ping(ctx)
	info.ResponseTime = time.Since(start).String()
	if err != nil {
		info.Error = "ping failed"
		return info
	}
	info.Connected = true
	return info
}
