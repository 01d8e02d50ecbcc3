// Package handlers provides HTTP request handlers for the portsweep API.
// This file implements the scan endpoints: submission, status, listing and
// cancellation of scans held by the scan manager.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/scanning"
)

const customMode = "custom"

// ScanHandler handles scan-related API endpoints.
type ScanHandler struct {
	service        scanning.Service
	logger         *logging.Logger
	validator      *validator.Validate
	maxRequestSize int64
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(service scanning.Service, logger *logging.Logger, maxRequestSize int64) *ScanHandler {
	return &ScanHandler{
		service:        service,
		logger:         logger.WithComponent("api").WithFields("handler", "scan"),
		validator:      newValidator(),
		maxRequestSize: maxRequestSize,
	}
}

// ScanRequest represents a scan submission.
type ScanRequest struct {
	Target string `json:"target" validate:"required,max=253,scan_target"`
	// Mode is quick, standard, full, custom or custom:<spec>; quick when empty
	Mode string `json:"mode,omitempty" validate:"omitempty,scan_mode"`
	// Ports is the custom port specification, e.g. "22,80,8000-8100"
	Ports string `json:"ports,omitempty" validate:"omitempty,max=2048"`
}

// ProgressResponse is a progress snapshot.
type ProgressResponse struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Open      int     `json:"open"`
	Percent   float64 `json:"percent"`
}

// ScanResponse represents a scan and, once finished, its report.
type ScanResponse struct {
	ID        string           `json:"id"`
	Target    string           `json:"target"`
	Mode      string           `json:"mode"`
	Status    string           `json:"status"`
	Progress  ProgressResponse `json:"progress"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
	Report    *scanning.Report `json:"report,omitempty"`
}

// CreateScan validates and queues a new scan.
func (h *ScanHandler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := parseJSON(w, r, &req, h.maxRequestSize); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationError(err))
		return
	}

	mode, err := req.scanMode()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	session, err := h.service.Submit(r.Context(), scanning.Request{
		Target: strings.TrimSpace(req.Target),
		Mode:   mode,
	})
	if err != nil {
		handleServiceError(w, r, err, "submit", "scan", h.logger)
		return
	}

	h.logger.WithContext(r.Context()).Info("Scan submitted",
		"scan_id", session.ID(), "target", req.Target, "mode", mode.String())

	w.Header().Set("Location", "/api/v1/scans/"+session.ID())
	WriteJSON(w, r, http.StatusAccepted, newScanResponse(session, false))
}

// scanMode resolves the mode and ports fields into a ScanMode.
func (req ScanRequest) scanMode() (ports.ScanMode, error) {
	mode := strings.TrimSpace(req.Mode)
	spec := strings.TrimSpace(req.Ports)

	switch {
	case spec != "":
		if mode != "" && !strings.EqualFold(mode, customMode) {
			return nil, errors.NewScanError(errors.CodeValidation, "ports is only valid with custom mode")
		}
		return ports.Custom{Spec: spec}, nil
	case mode == "":
		return ports.Quick{}, nil
	case strings.EqualFold(mode, customMode):
		return nil, errors.NewScanError(errors.CodeValidation, "custom mode requires ports")
	}
	return ports.ParseMode(mode)
}

// GetScan returns the status of one scan, with its report once finished.
// ?open_only=true trims the report to open ports.
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, err := extractStringFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	session, err := h.service.Get(id)
	if err != nil {
		handleServiceError(w, r, err, "get", "scan", h.logger)
		return
	}

	resp := newScanResponse(session, true)
	if resp.Report != nil && r.URL.Query().Get("open_only") == "true" {
		trimmed := *resp.Report
		trimmed.Results = resp.Report.OpenPorts()
		resp.Report = &trimmed
	}
	WriteJSON(w, r, http.StatusOK, resp)
}

// ListScans lists known scans, newest first. ?status= filters by state.
// Reports are omitted; fetch a single scan for its results.
func (h *ScanHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	params, err := getPaginationParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	status := scanning.State(r.URL.Query().Get("status"))

	sessions := h.service.List()
	items := make([]ScanResponse, 0, len(sessions))
	for _, s := range sessions {
		if status != "" && s.State() != status {
			continue
		}
		items = append(items, newScanResponse(s, false))
	}

	total := len(items)
	start := min(params.Offset, total)
	end := min(start+params.PageSize, total)
	writePaginatedResponse(w, r, items[start:end], params, int64(total))
}

// CancelScan requests cancellation. Cancelling a finished scan succeeds
// without effect.
func (h *ScanHandler) CancelScan(w http.ResponseWriter, r *http.Request) {
	id, err := extractStringFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := h.service.Cancel(id); err != nil {
		handleServiceError(w, r, err, "cancel", "scan", h.logger)
		return
	}

	session, err := h.service.Get(id)
	if err != nil {
		handleServiceError(w, r, err, "get", "scan", h.logger)
		return
	}

	h.logger.WithContext(r.Context()).Info("Scan cancellation requested", "scan_id", id)
	WriteJSON(w, r, http.StatusAccepted, newScanResponse(session, false))
}

func newScanResponse(s *scanning.Session, withReport bool) ScanResponse {
	req := s.Request()
	snap := s.Snapshot()

	resp := ScanResponse{
		ID:     s.ID(),
		Target: req.Target,
		Status: string(s.State()),
		Progress: ProgressResponse{
			Completed: snap.Completed,
			Total:     snap.Total,
			Open:      snap.Open,
			Percent:   snap.Percent(),
		},
	}
	if req.Mode != nil {
		resp.Mode = req.Mode.String()
	}
	if started := s.StartedAt(); !started.IsZero() {
		resp.StartedAt = &started
	}
	if withReport {
		resp.Report = s.Report()
	}
	return resp
}
