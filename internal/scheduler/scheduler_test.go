package scheduler

import (
	"context"
	stderrors "errors"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/scanning"
	"github.com/anstrom/portsweep/internal/scanning/mocks"
)

// gatedProber reports every port closed once gate is closed.
type gatedProber struct {
	gate chan struct{}
}

func (p gatedProber) Probe(ctx context.Context, _ netip.AddrPort) (scanning.ProbeOutcome, time.Duration) {
	select {
	case <-p.gate:
	case <-ctx.Done():
	}
	return scanning.Closed, time.Millisecond
}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, input string) (resolver.Target, error) {
	return resolver.Target{Input: input, Addr: netip.MustParseAddr("127.0.0.1"), Literal: true}, nil
}

func newEngine(t *testing.T, gate chan struct{}) *scanning.Engine {
	t.Helper()
	cfg := scanning.DefaultConfig()
	cfg.PoolSize = 4
	engine, err := scanning.NewEngine(cfg,
		scanning.WithProber(gatedProber{gate: gate}),
		scanning.WithResolver(staticResolver{}),
		scanning.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return engine
}

func newTestScheduler(svc scanning.Service) *Scheduler {
	s := NewScheduler(svc)
	s.logger = logging.Discard()
	return s
}

func TestAddScanJobValidation(t *testing.T) {
	s := newTestScheduler(nil)

	tests := []struct {
		name   string
		job    string
		cron   string
		target string
		mode   string
		code   errors.ErrorCode
	}{
		{"bad cron", "a", "every day", "10.0.0.1", "quick", errors.CodeValidation},
		{"bad target", "a", "@hourly", "256.1.1.1", "quick", errors.CodeInvalidTarget},
		{"bad mode", "a", "@hourly", "10.0.0.1", "custom:70-65", errors.CodeInvalidPortSpec},
		{"no name", "", "@hourly", "10.0.0.1", "quick", errors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddScanJob(tt.job, tt.cron, tt.target, tt.mode)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
	assert.Empty(t, s.GetJobs())
}

func TestAddScanJobAndDuplicate(t *testing.T) {
	s := newTestScheduler(nil)

	id, err := s.AddScanJob("nightly", "0 2 * * *", "10.0.0.1", "standard")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	_, err = s.AddScanJob("nightly", "@hourly", "10.0.0.2", "quick")
	assert.True(t, errors.IsConflict(err))

	jobs := s.GetJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "nightly", jobs[0].Name)
	assert.Equal(t, JobTypeScan, jobs[0].Type)
	assert.Equal(t, "standard", jobs[0].Mode)
	assert.True(t, jobs[0].Enabled)
	assert.True(t, jobs[0].NextRun.After(time.Now()))
}

func TestRunNowSubmitsScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	gate := make(chan struct{})
	close(gate)
	engine := newEngine(t, gate)

	svc.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req scanning.Request) (*scanning.Session, error) {
			assert.Equal(t, "10.0.0.1", req.Target)
			return engine.Start(ctx, req), nil
		})

	s := newTestScheduler(svc)
	id, err := s.AddScanJob("web", "@hourly", "10.0.0.1", "custom:80,443")
	require.NoError(t, err)

	ran, err := s.RunNow(id)
	require.NoError(t, err)
	assert.True(t, ran)

	job := s.GetJobs()[0]
	assert.Equal(t, 1, job.Runs)
	assert.NotEmpty(t, job.LastScanID)
	assert.Empty(t, job.LastError)
	assert.False(t, job.Running)
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	gate := make(chan struct{})
	engine := newEngine(t, gate)

	var submitted atomic.Int32
	svc.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req scanning.Request) (*scanning.Session, error) {
			submitted.Add(1)
			return engine.Start(ctx, req), nil
		}).Times(1)

	s := newTestScheduler(svc)
	id, err := s.AddScanJob("slow", "@hourly", "10.0.0.1", "quick")
	require.NoError(t, err)

	first := make(chan bool)
	go func() {
		ran, _ := s.RunNow(id)
		first <- ran
	}()

	require.Eventually(t, func() bool { return s.GetJobs()[0].Running }, time.Second, 5*time.Millisecond)

	ran, err := s.RunNow(id)
	require.NoError(t, err)
	assert.False(t, ran, "second tick must be skipped while the first scan runs")

	close(gate)
	assert.True(t, <-first)

	job := s.GetJobs()[0]
	assert.Equal(t, 1, job.Runs)
	assert.Equal(t, 1, job.Skipped)
	assert.Equal(t, int32(1), submitted.Load())
}

func TestTriggerRunsInBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	gate := make(chan struct{})
	engine := newEngine(t, gate)
	svc.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req scanning.Request) (*scanning.Session, error) {
			return engine.Start(ctx, req), nil
		}).Times(1)

	s := newTestScheduler(svc)
	id, err := s.AddScanJob("bg", "@hourly", "10.0.0.1", "custom:22")
	require.NoError(t, err)

	started, err := s.Trigger(id)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, s.GetJobs()[0].Running, "job is claimed before Trigger returns")

	started, err = s.Trigger(id)
	require.NoError(t, err)
	assert.False(t, started)

	close(gate)
	require.Eventually(t, func() bool { return !s.GetJobs()[0].Running }, 2*time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, s.GetJobs()[0].LastScanID)

	_, err = s.Trigger(uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestRunRecordsSubmitError(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	svc.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(nil, errors.NewScanError(errors.CodeQueueFull, "worker queue is full"))

	s := newTestScheduler(svc)
	id, err := s.AddScanJob("busy", "@hourly", "10.0.0.1", "quick")
	require.NoError(t, err)

	ran, err := s.RunNow(id)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Contains(t, s.GetJobs()[0].LastError, "queue is full")
}

func TestDisableEnableRemove(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	s := newTestScheduler(svc)
	id, err := s.AddScanJob("a", "@hourly", "10.0.0.1", "quick")
	require.NoError(t, err)

	require.NoError(t, s.DisableJob(id))
	ran, err := s.RunNow(id)
	require.NoError(t, err)
	assert.False(t, ran)

	require.NoError(t, s.EnableJob(id))
	assert.True(t, s.GetJobs()[0].Enabled)

	require.NoError(t, s.RemoveJob(id))
	assert.Empty(t, s.GetJobs())
	assert.True(t, errors.IsNotFound(s.RemoveJob(id)))
	assert.True(t, errors.IsNotFound(s.EnableJob(id)))
	_, err = s.RunNow(id)
	assert.True(t, errors.IsNotFound(err))
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(nil)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	s.Stop()
	s.Stop()
}

type countingPruner struct {
	retention time.Duration
	cutoff    time.Time
	err       error
}

func (c *countingPruner) Prune(retention time.Duration) int {
	c.retention = retention
	return 2
}

func (c *countingPruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return 5, c.err
}

func TestPruningRun(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := &countingPruner{}
	reports := &countingPruner{}

	p := Pruning{
		Sessions:         sessions,
		SessionRetention: time.Hour,
		Reports:          reports,
		ReportRetention:  24 * time.Hour,
		now:              func() time.Time { return now },
	}
	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, time.Hour, sessions.retention)
	assert.Equal(t, now.Add(-24*time.Hour), reports.cutoff)

	reports.err = stderrors.New("db down")
	assert.Error(t, p.Run(context.Background()))
}

func TestPruningSkipsDisabledRetention(t *testing.T) {
	reports := &countingPruner{}
	p := Pruning{Reports: reports}
	require.NoError(t, p.Run(context.Background()))
	assert.True(t, reports.cutoff.IsZero())
}

func TestAddPruneJob(t *testing.T) {
	sessions := &countingPruner{}
	s := newTestScheduler(nil)

	id, err := s.AddPruneJob("@every 10m", Pruning{Sessions: sessions, SessionRetention: time.Minute})
	require.NoError(t, err)

	ran, err := s.RunNow(id)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, time.Minute, sessions.retention)
	assert.Equal(t, JobTypePrune, s.GetJobs()[0].Type)
}
