package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/report"
	"github.com/anstrom/portsweep/internal/resolver"
	"github.com/anstrom/portsweep/internal/scanning"
)

const customMode = "custom"

var (
	scanMode       string
	scanPorts      string
	scanOutput     string
	scanFormat     string
	scanAll        bool
	scanNoServices bool
	scanSave       bool
	scanQuiet      bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Scan one host for open TCP ports",
	Long: `Scan the TCP ports of one target, given as an IPv4 or IPv6 address or a
host name, and report each port as open, closed or filtered.

Progress and newly found open ports are printed to stderr while the scan
runs. Press Ctrl+C to stop early; the partial results are still reported.`,
	Example: `  portsweep scan 192.168.1.10
  portsweep scan example.com --mode standard
  portsweep scan 10.0.0.5 --mode custom --ports 22,80,443,8000-8100
  portsweep scan 10.0.0.5 --mode full --pool-size 500 --timeout 300ms
  portsweep scan localhost --format json --output result.json
  portsweep scan 10.0.0.5 --save`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.StringVarP(&scanMode, "mode", "m", "quick", "Scan mode: quick, standard, full, custom")
	flags.StringVarP(&scanPorts, "ports", "p", "", "Ports for custom mode, e.g. '22,80,443,8000-8100'")
	flags.Duration("timeout", scanning.DefaultProbeTimeout, "Per-port connection timeout")
	flags.Int("pool-size", scanning.DefaultPoolSize, "Maximum concurrent connection attempts")
	flags.Float64("rate-limit", 0, "Maximum new connection attempts per second (0 = unlimited)")
	flags.StringVarP(&scanOutput, "output", "o", "", "Write the report to this file instead of stdout")
	flags.StringVarP(&scanFormat, "format", "f", string(report.FormatText), "Report format: text, json, xml")
	flags.BoolVarP(&scanAll, "all", "a", false, "Show closed and filtered ports too")
	flags.BoolVar(&scanNoServices, "no-services", false, "Skip service name lookup")
	flags.BoolVar(&scanSave, "save", false, "Also save a text report as scan_<target>_<timestamp>.txt")
	flags.BoolVarP(&scanQuiet, "quiet", "q", false, "Do not print live progress")

	bindFlag(flags.Lookup("timeout"), "scanning.probe_timeout")
	bindFlag(flags.Lookup("pool-size"), "scanning.pool_size")
	bindFlag(flags.Lookup("rate-limit"), "scanning.rate_limit")
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]
	if _, err := resolver.Validate(target); err != nil {
		return err
	}

	modeName := scanMode
	if !cmd.Flags().Changed("mode") && scanPorts != "" {
		modeName = ""
	}
	mode, err := parseScanMode(modeName, scanPorts)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(scanFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scanNoServices {
		cfg.Scanning.ServiceDetection = false
	}

	logger := logging.Default()
	engine, err := scanning.NewEngine(cfg.Scanning,
		scanning.WithResolver(resolver.New(cfg.Resolver, resolver.WithLogger(logger.WithComponent("resolver")))),
		scanning.WithLogger(logger.WithComponent("engine")))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := engine.Start(ctx, scanning.Request{Target: target, Mode: mode})

	stderr := cmd.ErrOrStderr()
	if !scanQuiet {
		fmt.Fprintf(stderr, "Scanning %s (%s, %d ports)\n", target, ports.Name(mode), session.Total())
	}
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watchSession(stderr, session, scanQuiet)
	}()

	// SIGINT cancels the session through ctx; the partial report still arrives
	rep, err := session.Wait(context.Background())
	if err != nil {
		return err
	}
	<-watchDone

	if rep.Status == scanning.StateFailed {
		return rep.Err
	}
	if rep.Status == scanning.StateCancelled {
		fmt.Fprintln(stderr, "Scan cancelled; reporting partial results")
	}

	if err := writeScanReport(cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}

	if scanSave {
		name := report.DefaultFileName(target, rep.StartTime)
		if err := report.Save(rep, name, report.FormatText); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Report saved to %s\n", name)
	}
	return nil
}

// parseScanMode combines --mode and --ports. Ports imply custom mode;
// "custom:<spec>" is accepted as a single value.
func parseScanMode(mode, portSpec string) (ports.ScanMode, error) {
	mode = strings.TrimSpace(mode)
	portSpec = strings.TrimSpace(portSpec)

	if portSpec != "" {
		if mode != "" && mode != customMode {
			return nil, errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("--ports cannot be combined with --mode %s", mode))
		}
		return ports.Custom{Spec: portSpec}, nil
	}
	if mode == customMode {
		return nil, errors.NewScanError(errors.CodeValidation, "custom mode requires --ports")
	}
	if mode == "" {
		return ports.Quick{}, nil
	}
	return ports.ParseMode(mode)
}

// watchSession prints open ports and a progress line until the session's
// channels close.
func watchSession(w io.Writer, session *scanning.Session, quiet bool) {
	results, progress := session.Results(), session.Progress()
	lastDraw := time.Time{}

	for results != nil || progress != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if res.Outcome == scanning.Open && !quiet {
				fmt.Fprintf(w, "\r\033[K%s\n", formatOpenPort(res))
			}
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			if quiet || (time.Since(lastDraw) < 100*time.Millisecond && p.Completed < p.Total) {
				continue
			}
			lastDraw = time.Now()
			fmt.Fprintf(w, "\r\033[K%d/%d ports (%.1f%%), %d open", p.Completed, p.Total, p.Percent(), p.Open)
		}
	}
	if !quiet {
		fmt.Fprintln(w)
	}
}

func formatOpenPort(res scanning.ScanResult) string {
	service := res.Service
	if service == "" {
		service = "unknown"
	}
	return fmt.Sprintf("open  %d/tcp  %s  (%s)", res.Port, service, res.Latency.Round(time.Microsecond))
}

// writeScanReport writes rep to --output or stdout. Text output on a
// terminal is a table; files get the plain text report.
func writeScanReport(stdout io.Writer, rep *scanning.Report, format report.Format) error {
	if scanOutput != "" {
		if err := report.Save(rep, scanOutput, format); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Report written to %s\n", scanOutput)
		return nil
	}

	if format != report.FormatText {
		return report.Write(stdout, rep, format)
	}

	fmt.Fprintf(stdout, "Target:  %s", rep.Target)
	if rep.Address != "" && rep.Address != rep.Target {
		fmt.Fprintf(stdout, " (%s)", rep.Address)
	}
	fmt.Fprintf(stdout, "\nStatus:  %s\n", report.StatusLine(rep))
	fmt.Fprintf(stdout, "Summary: %d open, %d closed, %d filtered\n\n",
		rep.OpenCount, rep.ClosedCount, rep.FilteredCount)

	if !scanAll && rep.OpenCount == 0 {
		fmt.Fprintln(stdout, "No open ports found.")
		return nil
	}
	return report.RenderTable(stdout, rep, !scanAll)
}
