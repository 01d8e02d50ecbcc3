package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/portsweep/internal/api"
	"github.com/anstrom/portsweep/internal/config"
	"github.com/anstrom/portsweep/internal/db"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/metrics"
	"github.com/anstrom/portsweep/internal/report"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/scanning"
	"github.com/anstrom/portsweep/internal/scheduler"
	"github.com/anstrom/portsweep/internal/workers"
)

const metricsUpdateInterval = 15 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and scheduler",
	Long: `Start the portsweep HTTP API in the foreground.

Scans submitted over the API run on a bounded worker pool. Configured
schedules are fired by the built-in scheduler, finished reports are
written to the reports directory and, when a database is configured,
stored in PostgreSQL. Send SIGINT or SIGTERM to shut down; running scans
are cancelled and their partial reports are still delivered.`,
	Example: `  portsweep serve
  portsweep serve --host 0.0.0.0 --port 8080
  portsweep serve --config /etc/portsweep/portsweep.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Override API listen address")
	serveCmd.Flags().Int("port", 0, "Override API port")

	bindFlag(serveCmd.Flags().Lookup("host"), "api.listen_addr")
	bindFlag(serveCmd.Flags().Lookup("port"), "api.port")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pm := metrics.NewPrometheusMetrics()
	go pm.StartPeriodicUpdates(ctx, metricsUpdateInterval)

	var (
		database *db.DB
		store    *db.ReportStore
		sinks    []scanning.ReportSink
	)
	if cfg.Database.Enabled {
		database, err = db.ConnectAndMigrate(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if closeErr := database.Close(); closeErr != nil {
				logger.Error("Failed to close database", "error", closeErr)
			}
		}()
		store = db.NewReportStore(database, pm)
		sinks = append(sinks, store)
	}
	if cfg.Reports.Enabled {
		fileSink, sinkErr := report.NewFileSink(cfg.Reports.Directory, cfg.Reports.Format)
		if sinkErr != nil {
			return sinkErr
		}
		sinks = append(sinks, fileSink)
	}

	engine, err := scanning.NewEngine(cfg.Scanning,
		scanning.WithResolver(resolver.New(cfg.Resolver, resolver.WithLogger(logger.WithComponent("resolver")))),
		scanning.WithRecorder(pm),
		scanning.WithLogger(logger.WithComponent("engine")))
	if err != nil {
		return err
	}

	pool := workers.New(cfg.Workers,
		workers.WithRecorder(pm),
		workers.WithLogger(logger.WithComponent("workers")))
	pool.Start()

	manager := scanning.NewManager(engine, pool, sinks...)

	sched, err := buildScheduler(cfg, manager, store)
	if err != nil {
		_ = pool.Shutdown()
		return err
	}
	if err := sched.Start(); err != nil {
		_ = pool.Shutdown()
		return err
	}

	deps := api.Dependencies{
		Scans:     manager,
		Scheduler: sched,
		Metrics:   pm,
	}
	if store != nil {
		deps.Reports = store
		deps.Database = database
	}

	server, err := api.New(cfg, deps)
	if err == nil {
		err = server.Start(ctx)
	}

	logger.Info("Shutting down")
	sched.Stop()
	manager.CancelAll()
	if shutdownErr := pool.Shutdown(); shutdownErr != nil {
		logger.Warn("Worker pool did not drain", "error", shutdownErr)
	}
	return err
}

// buildScheduler registers the configured scans and the cleanup job.
// store may be nil when no database is configured.
func buildScheduler(cfg *config.Config, manager *scanning.Manager, store *db.ReportStore) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(manager)

	if cfg.Scheduler.Enabled {
		for _, s := range cfg.Scheduler.Schedules {
			if _, err := sched.AddScanJob(s.Name, s.Cron, s.Target, s.Mode); err != nil {
				return nil, fmt.Errorf("schedule %q: %w", s.Name, err)
			}
		}
	}

	if cfg.Scheduler.PruneSchedule != "" {
		pruning := scheduler.Pruning{
			Sessions:         manager,
			SessionRetention: cfg.Scheduler.SessionRetention,
			ReportRetention:  cfg.Scheduler.ReportRetention,
		}
		if store != nil {
			pruning.Reports = store
		}
		if _, err := sched.AddPruneJob(cfg.Scheduler.PruneSchedule, pruning); err != nil {
			return nil, fmt.Errorf("prune schedule: %w", err)
		}
	}
	return sched, nil
}
