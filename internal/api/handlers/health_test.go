package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/scanning"
	"github.com/anstrom/portsweep/internal/scanning/mocks"
)

// MockDB is a mock implementation of the database interface.
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		setupDB        func() DatabasePinger
		expectedStatus int
		expectedHealth string
		expectedDB     string
	}{
		{
			name: "healthy system",
			setupDB: func() DatabasePinger {
				db := &MockDB{}
				db.On("Ping", mock.Anything).Return(nil)
				return db
			},
			expectedStatus: http.StatusOK,
			expectedHealth: StatusHealthy,
			expectedDB:     "ok",
		},
		{
			name: "database down",
			setupDB: func() DatabasePinger {
				db := &MockDB{}
				db.On("Ping", mock.Anything).Return(stderrors.New("connection refused"))
				return db
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: StatusUnhealthy,
			expectedDB:     "failed",
		},
		{
			name:           "no database",
			setupDB:        func() DatabasePinger { return nil },
			expectedStatus: http.StatusOK,
			expectedHealth: StatusHealthy,
			expectedDB:     StatusNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.setupDB(), nil, logging.Discard())

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedHealth, resp.Status)
			assert.Equal(t, tt.expectedDB, resp.Checks["database"])
			assert.Equal(t, "ok", resp.Checks["scanner"])
			assert.NotEmpty(t, resp.Uptime)
		})
	}
}

func TestHealthHandler_Version(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123", "2024-06-01T00:00:00Z")
	t.Cleanup(func() { SetBuildInfo("dev", "none", "unknown") })

	h := NewHealthHandler(nil, nil, logging.Discard())
	rec := httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "abc123", resp.Commit)
	assert.Equal(t, "2024-06-01T00:00:00Z", resp.BuildTime)
	assert.Equal(t, runtime.Version(), resp.GoVersion)
}

func TestHealthHandler_Status(t *testing.T) {
	engine := newTestEngine(t, stubProber{})
	done := finishedSession(t, engine, "22")
	idle := engine.NewSession(scanning.Request{Target: "10.0.0.1", Mode: ports.Quick{}})

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().List().Return([]*scanning.Session{done, idle})

	db := &MockDB{}
	db.On("Ping", mock.Anything).Return(nil).Once()

	h := NewHealthHandler(db, svc, logging.Discard())
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "portsweep", resp.Service.Name)
	assert.Equal(t, 2, resp.Scans.Total)
	assert.Equal(t, map[string]int{"completed": 1, "idle": 1}, resp.Scans.ByState)
	assert.True(t, resp.Database.Configured)
	assert.True(t, resp.Database.Connected)
	assert.Equal(t, runtime.NumCPU(), resp.System.CPUs)
	db.AssertExpectations(t)
}
