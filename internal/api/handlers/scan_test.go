package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/scanning"
	"github.com/anstrom/portsweep/internal/scanning/mocks"
)

// stubProber reports the ports in open as open and everything else closed,
// once gate is closed. Probes run on a context that cancellation does not
// reach, so a closed gate is the only way out.
type stubProber struct {
	open map[uint16]bool
	gate chan struct{}
}

func (p stubProber) Probe(ctx context.Context, addr netip.AddrPort) (scanning.ProbeOutcome, time.Duration) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return scanning.Filtered, 0
		}
	}
	if p.open[addr.Port()] {
		return scanning.Open, time.Millisecond
	}
	return scanning.Closed, time.Millisecond
}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, input string) (resolver.Target, error) {
	return resolver.Target{Input: input, Addr: netip.MustParseAddr("127.0.0.1"), Literal: true}, nil
}

func newTestEngine(t *testing.T, prober scanning.Prober) *scanning.Engine {
	t.Helper()
	cfg := scanning.DefaultConfig()
	cfg.PoolSize = 8
	engine, err := scanning.NewEngine(cfg,
		scanning.WithProber(prober),
		scanning.WithResolver(staticResolver{}),
		scanning.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return engine
}

// finishedSession runs a scan of spec to completion.
func finishedSession(t *testing.T, engine *scanning.Engine, spec string) *scanning.Session {
	t.Helper()
	s := engine.Start(context.Background(), scanning.Request{Target: "127.0.0.1", Mode: ports.Custom{Spec: spec}})
	_, err := s.Wait(context.Background())
	require.NoError(t, err)
	return s
}

func withID(r *http.Request, id string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"id": id})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateScan(t *testing.T) {
	engine := newTestEngine(t, stubProber{})

	tests := []struct {
		name       string
		body       string
		wantMode   ports.ScanMode
		submitErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "default mode is quick",
			body:       `{"target":"10.0.0.1"}`,
			wantMode:   ports.Quick{},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "standard",
			body:       `{"target":"example.com","mode":"standard"}`,
			wantMode:   ports.Standard{},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "custom selector",
			body:       `{"target":"10.0.0.1","mode":"custom:22,80"}`,
			wantMode:   ports.Custom{Spec: "22,80"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "custom with ports field",
			body:       `{"target":"10.0.0.1","mode":"custom","ports":"8000-8100"}`,
			wantMode:   ports.Custom{Spec: "8000-8100"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "ports alone imply custom",
			body:       `{"target":"10.0.0.1","ports":"443"}`,
			wantMode:   ports.Custom{Spec: "443"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "missing target",
			body:       `{"mode":"quick"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "invalid target",
			body:       `{"target":"256.1.1.1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "unknown mode",
			body:       `{"target":"10.0.0.1","mode":"ultra"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "custom without ports",
			body:       `{"target":"10.0.0.1","mode":"custom"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "ports with fixed mode",
			body:       `{"target":"10.0.0.1","mode":"full","ports":"22"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "unknown field",
			body:       `{"target":"10.0.0.1","speed":"fast"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "malformed json",
			body:       `{"target":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "bad port spec from manager",
			body:       `{"target":"10.0.0.1","ports":"70-65"}`,
			wantMode:   ports.Custom{Spec: "70-65"},
			submitErr:  errors.ErrInvalidPortSpec("70-65", "range start exceeds end"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PORT_SPEC",
		},
		{
			name:       "queue full",
			body:       `{"target":"10.0.0.1"}`,
			wantMode:   ports.Quick{},
			submitErr:  errors.NewScanError(errors.CodeQueueFull, "job queue is full"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "QUEUE_FULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockService(ctrl)

			if tt.wantMode != nil {
				svc.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, req scanning.Request) (*scanning.Session, error) {
						assert.Equal(t, tt.wantMode, req.Mode)
						if tt.submitErr != nil {
							return nil, tt.submitErr
						}
						return engine.NewSession(req), nil
					})
			}

			h := NewScanHandler(svc, logging.Discard(), 0)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.CreateScan(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusAccepted {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
				return
			}

			var resp ScanResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.ID)
			assert.Equal(t, "idle", resp.Status)
			assert.Equal(t, tt.wantMode.String(), resp.Mode)
			assert.Equal(t, "/api/v1/scans/"+resp.ID, rec.Header().Get("Location"))
			assert.Nil(t, resp.Report)
		})
	}
}

func TestCreateScanBodyTooLarge(t *testing.T) {
	h := NewScanHandler(mocks.NewMockService(gomock.NewController(t)), logging.Discard(), 64)

	body := `{"target":"` + strings.Repeat("a", 100) + `.com"}`
	rec := httptest.NewRecorder()
	h.CreateScan(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "too large")
}

func TestGetScan(t *testing.T) {
	engine := newTestEngine(t, stubProber{open: map[uint16]bool{22: true, 443: true}})
	session := finishedSession(t, engine, "22,80,443")

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Get(session.ID()).Return(session, nil).Times(2)
	h := NewScanHandler(svc, logging.Discard(), 0)

	rec := httptest.NewRecorder()
	h.GetScan(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+session.ID(), nil), session.ID()))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "custom:22,80,443", resp.Mode)
	assert.Equal(t, ProgressResponse{Completed: 3, Total: 3, Open: 2, Percent: 100}, resp.Progress)
	require.NotNil(t, resp.StartedAt)
	require.NotNil(t, resp.Report)
	assert.Len(t, resp.Report.Results, 3)
	assert.Equal(t, 2, resp.Report.OpenCount)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+session.ID()+"?open_only=true", nil)
	h.GetScan(rec, withID(req, session.ID()))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Report.Results, 2)
	assert.Equal(t, uint16(22), resp.Report.Results[0].Port)
	assert.Equal(t, uint16(443), resp.Report.Results[1].Port)
	assert.Len(t, session.Report().Results, 3, "stored report must not be trimmed")
}

func TestGetScanNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Get("missing").Return(nil, errors.ErrNotFound("scan", "missing"))
	h := NewScanHandler(svc, logging.Discard(), 0)

	rec := httptest.NewRecorder()
	h.GetScan(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/scans/missing", nil), "missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestListScans(t *testing.T) {
	engine := newTestEngine(t, stubProber{})
	done1 := finishedSession(t, engine, "22")
	done2 := finishedSession(t, engine, "80")
	idle := engine.NewSession(scanning.Request{Target: "10.0.0.9", Mode: ports.Quick{}})

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().List().Return([]*scanning.Session{done2, done1, idle}).AnyTimes()
	h := NewScanHandler(svc, logging.Discard(), 0)

	type page struct {
		Data       []ScanResponse `json:"data"`
		Pagination struct {
			TotalItems int64 `json:"total_items"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	list := func(query string) page {
		rec := httptest.NewRecorder()
		h.ListScans(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans"+query, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var p page
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		return p
	}

	all := list("")
	assert.EqualValues(t, 3, all.Pagination.TotalItems)
	require.Len(t, all.Data, 3)
	assert.Equal(t, done2.ID(), all.Data[0].ID)
	assert.Nil(t, all.Data[0].Report, "list omits reports")

	completed := list("?status=completed")
	assert.EqualValues(t, 2, completed.Pagination.TotalItems)

	second := list("?page=2&page_size=2")
	require.Len(t, second.Data, 1)
	assert.Equal(t, idle.ID(), second.Data[0].ID)
	assert.Equal(t, 2, second.Pagination.TotalPages)

	beyond := list("?page=9&page_size=2")
	assert.Empty(t, beyond.Data)

	rec := httptest.NewRecorder()
	h.ListScans(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scans?page=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelScan(t *testing.T) {
	gate := make(chan struct{})
	engine := newTestEngine(t, stubProber{gate: gate})
	session := engine.Start(context.Background(), scanning.Request{Target: "127.0.0.1", Mode: ports.Quick{}})

	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Cancel(session.ID()).DoAndReturn(func(string) error {
		session.Cancel()
		return nil
	}).Times(2)
	svc.EXPECT().Get(session.ID()).Return(session, nil).Times(2)
	h := NewScanHandler(svc, logging.Discard(), 0)

	for range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/scans/"+session.ID(), nil)
		h.CancelScan(rec, withID(req, session.ID()))
		assert.Equal(t, http.StatusAccepted, rec.Code, "cancel is idempotent")
	}

	// In-flight probes are not interrupted by cancellation
	close(gate)
	report, err := session.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scanning.StateCancelled, report.Status)
}

func TestCancelScanNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Cancel("nope").Return(errors.ErrNotFound("scan", "nope"))
	h := NewScanHandler(svc, logging.Discard(), 0)

	rec := httptest.NewRecorder()
	h.CancelScan(rec, withID(httptest.NewRequest(http.MethodDelete, "/api/v1/scans/nope", bytes.NewReader(nil)), "nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
