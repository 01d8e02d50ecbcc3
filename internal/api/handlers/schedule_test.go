package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/scheduler"
)

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) GetJobs() []scheduler.ScheduledJob {
	jobs, _ := m.Called().Get(0).([]scheduler.ScheduledJob)
	return jobs
}

func (m *MockScheduler) Trigger(id uuid.UUID) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockScheduler) EnableJob(id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func (m *MockScheduler) DisableJob(id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func TestScheduleHandler_ListSchedules(t *testing.T) {
	s := &MockScheduler{}
	id := uuid.New()
	s.On("GetJobs").Return([]scheduler.ScheduledJob{
		{ID: id, Name: "nightly", Type: scheduler.JobTypeScan, CronExpression: "0 2 * * *", Target: "10.0.0.1", Mode: "quick", Enabled: true},
	})

	h := NewScheduleHandler(s, logging.Discard())
	rec := httptest.NewRecorder()
	h.ListSchedules(rec, httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Schedules []scheduler.ScheduledJob `json:"schedules"`
		Count     int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, id, resp.Schedules[0].ID)
	assert.Equal(t, "0 2 * * *", resp.Schedules[0].CronExpression)
}

func TestScheduleHandler_RunSchedule(t *testing.T) {
	started, busy, missing := uuid.New(), uuid.New(), uuid.New()

	s := &MockScheduler{}
	s.On("Trigger", started).Return(true, nil)
	s.On("Trigger", busy).Return(false, nil)
	s.On("Trigger", missing).Return(false, errors.ErrNotFound("scheduled job", missing.String()))

	h := NewScheduleHandler(s, logging.Discard())

	tests := []struct {
		name        string
		id          string
		wantStatus  int
		wantStarted bool
	}{
		{"started", started.String(), http.StatusAccepted, true},
		{"skipped", busy.String(), http.StatusAccepted, false},
		{"unknown", missing.String(), http.StatusNotFound, false},
		{"malformed id", "not-a-uuid", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/"+tt.id+"/run", nil)
			h.RunSchedule(rec, withID(req, tt.id))

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusAccepted {
				return
			}
			var resp RunResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStarted, resp.Started)
			assert.Equal(t, tt.wantStarted, resp.Reason == "")
		})
	}
}

func TestScheduleHandler_EnableDisable(t *testing.T) {
	id := uuid.New()
	s := &MockScheduler{}
	s.On("DisableJob", id).Return(nil).Once()
	s.On("EnableJob", id).Return(errors.ErrNotFound("scheduled job", id.String())).Once()

	h := NewScheduleHandler(s, logging.Discard())

	rec := httptest.NewRecorder()
	h.DisableSchedule(rec, withID(httptest.NewRequest(http.MethodPost, "/", nil), id.String()))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.EnableSchedule(rec, withID(httptest.NewRequest(http.MethodPost, "/", nil), id.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.AssertExpectations(t)
}
