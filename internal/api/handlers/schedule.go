package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/scheduler"
)

// JobScheduler is the subset of *scheduler.Scheduler used by the API.
type JobScheduler interface {
	GetJobs() []scheduler.ScheduledJob
	Trigger(id uuid.UUID) (bool, error)
	EnableJob(id uuid.UUID) error
	DisableJob(id uuid.UUID) error
}

// ScheduleHandler exposes the recurring jobs loaded from configuration.
type ScheduleHandler struct {
	scheduler JobScheduler
	logger    *logging.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(s JobScheduler, logger *logging.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduler: s,
		logger:    logger.WithComponent("api").WithFields("handler", "schedule"),
	}
}

// RunResponse reports whether a triggered job actually ran.
type RunResponse struct {
	ID      string `json:"id"`
	Started bool   `json:"started"`
	// Reason explains why Started is false
	Reason string `json:"reason,omitempty"`
}

// ListSchedules lists scheduled jobs by name.
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	jobs := h.scheduler.GetJobs()
	if jobs == nil {
		jobs = []scheduler.ScheduledJob{}
	}
	WriteJSON(w, r, http.StatusOK, map[string]interface{}{
		"schedules": jobs,
		"count":     len(jobs),
	})
}

// RunSchedule triggers a job immediately. A job that is disabled or still
// running from its previous tick is skipped, not queued.
func (h *ScheduleHandler) RunSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	started, err := h.scheduler.Trigger(id)
	if err != nil {
		handleServiceError(w, r, err, "run", "schedule", h.logger)
		return
	}

	resp := RunResponse{ID: id.String(), Started: started}
	if !started {
		resp.Reason = "job is disabled or already running"
	}
	h.logger.WithContext(r.Context()).Info("Schedule triggered", "job_id", id, "started", started)
	WriteJSON(w, r, http.StatusAccepted, resp)
}

// EnableSchedule enables a job.
func (h *ScheduleHandler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// DisableSchedule disables a job without removing it.
func (h *ScheduleHandler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *ScheduleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var err error
	if enabled {
		err = h.scheduler.EnableJob(id)
	} else {
		err = h.scheduler.DisableJob(id)
	}
	if err != nil {
		handleServiceError(w, r, err, "update", "schedule", h.logger)
		return
	}

	h.logger.WithContext(r.Context()).Info("Schedule updated", "job_id", id, "enabled", enabled)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr, err := extractStringFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.NewScanError(errors.CodeValidation, "invalid job id: "+idStr))
		return uuid.Nil, false
	}
	return id, true
}

var _ JobScheduler = (*scheduler.Scheduler)(nil)
