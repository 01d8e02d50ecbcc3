package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portsweep/internal/config"
	"github.com/anstrom/portsweep/internal/scanning"
	"github.com/anstrom/portsweep/internal/scheduler"
)

func newTestManager(t *testing.T) *scanning.Manager {
	t.Helper()
	engine, err := scanning.NewEngine(scanning.DefaultConfig(), scanning.WithProber(fakeProber{}))
	require.NoError(t, err)
	return scanning.NewManager(engine, nil)
}

func jobTypes(jobs []scheduler.ScheduledJob) []string {
	types := make([]string, 0, len(jobs))
	for _, j := range jobs {
		types = append(types, j.Type)
	}
	return types
}

func TestBuildScheduler(t *testing.T) {
	t.Run("configured scans and prune job", func(t *testing.T) {
		cfg := config.Default()
		cfg.Scheduler.Enabled = true
		cfg.Scheduler.Schedules = []config.ScheduleConfig{
			{Name: "nightly", Cron: "0 2 * * *", Target: "127.0.0.1", Mode: "quick"},
			{Name: "web", Cron: "@hourly", Target: "localhost", Mode: "custom:80,443"},
		}

		sched, err := buildScheduler(cfg, newTestManager(t), nil)
		require.NoError(t, err)

		jobs := sched.GetJobs()
		assert.Len(t, jobs, 3)
		assert.ElementsMatch(t,
			[]string{scheduler.JobTypeScan, scheduler.JobTypeScan, scheduler.JobTypePrune},
			jobTypes(jobs))
	})

	t.Run("disabled scheduler keeps only pruning", func(t *testing.T) {
		cfg := config.Default()
		cfg.Scheduler.Enabled = false
		cfg.Scheduler.Schedules = []config.ScheduleConfig{
			{Name: "nightly", Cron: "0 2 * * *", Target: "127.0.0.1", Mode: "quick"},
		}
		cfg.Scheduler.SessionRetention = time.Minute

		sched, err := buildScheduler(cfg, newTestManager(t), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{scheduler.JobTypePrune}, jobTypes(sched.GetJobs()))
	})

	t.Run("bad schedule is reported by name", func(t *testing.T) {
		cfg := config.Default()
		cfg.Scheduler.Enabled = true
		cfg.Scheduler.Schedules = []config.ScheduleConfig{
			{Name: "broken", Cron: "not a cron", Target: "127.0.0.1", Mode: "quick"},
		}

		_, err := buildScheduler(cfg, newTestManager(t), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"broken"`)
	})
}
