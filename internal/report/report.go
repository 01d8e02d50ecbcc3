// Package report renders final scan reports as text, JSON or XML and writes
// them to files or terminals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/scanning"
)

// Format selects a report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

const (
	fileTimeLayout    = "20060102_150405"
	displayTimeLayout = "2006-01-02 15:04:05"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatXML:
		return f, nil
	case "txt":
		return FormatText, nil
	default:
		return "", errors.NewScanError(errors.CodeUnsupportedType,
			fmt.Sprintf("unsupported report format %q, expected text, json or xml", name))
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatXML:
		return ".xml"
	default:
		return ".txt"
	}
}

// Write encodes report to w in the given format.
func Write(w io.Writer, report *scanning.Report, format Format) error {
	switch format {
	case FormatText:
		return WriteText(w, report)
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatXML:
		return WriteXML(w, report)
	default:
		return errors.NewScanError(errors.CodeUnsupportedType, fmt.Sprintf("unsupported report format %q", format))
	}
}

// WriteText writes the plain text report: a header, a status line and a
// table of open ports.
func WriteText(w io.Writer, report *scanning.Report) error {
	ew := &errWriter{w: w}

	ew.println("Port Scan Results")
	ew.println("==================")
	ew.printf("Target: %s\n", report.Target)
	if report.Address != "" && report.Address != report.Target {
		ew.printf("Address: %s\n", report.Address)
	}
	ew.printf("Scan Time: %s\n", report.StartTime.Local().Format(displayTimeLayout))
	ew.printf("Mode: %s\n", report.Mode)
	ew.printf("Status: %s\n", StatusLine(report))
	ew.printf("Open Ports: %d\n\n", report.OpenCount)

	open := report.OpenPorts()
	if len(open) == 0 {
		ew.println("No open ports found.")
		return ew.err
	}

	ew.println("PORT     STATE    SERVICE")
	ew.println("----     -----    -------")
	for _, r := range open {
		service := r.Service
		if service == "" {
			service = "unknown"
		}
		ew.printf("%-8d %-8s %s\n", r.Port, r.Outcome, service)
	}
	return ew.err
}

// StatusLine summarizes how a scan ended, flagging partial results.
func StatusLine(report *scanning.Report) string {
	switch report.Status {
	case scanning.StateFailed:
		return fmt.Sprintf("failed (%s)", report.FailureReason)
	case scanning.StateCancelled:
		return fmt.Sprintf("cancelled, partial: %d of %d ports attempted",
			report.TotalAttempted, report.TotalRequested)
	default:
		return fmt.Sprintf("%s, %d ports in %s",
			report.Status, report.TotalAttempted, report.Duration.Round(time.Millisecond))
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *scanning.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to encode JSON report", err)
	}
	return nil
}

// DefaultFileName returns scan_<target>_<YYYYmmdd_HHMMSS>.txt with dots and
// other path-unfriendly characters in target replaced by underscores.
func DefaultFileName(target string, t time.Time) string {
	return FileName(target, t, FormatText)
}

// FileName is DefaultFileName with the extension for format.
func FileName(target string, t time.Time, format Format) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '.', ':', '/', '\\', '[', ']', '%':
			return '_'
		}
		return r
	}, target)
	return fmt.Sprintf("scan_%s_%s%s", safe, t.Format(fileTimeLayout), format.Extension())
}

// Save writes report to path in the given format.
func Save(report *scanning.Report, path string, format Format) (err error) {
	if err := validateFilePath(path); err != nil {
		return err
	}

	file, err := os.Create(path) //nolint:gosec // path is validated by validateFilePath
	if err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to create report file", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.WrapScanError(errors.CodeReportWrite, "failed to close report file", closeErr)
		}
	}()

	if err := Write(file, report, format); err != nil {
		return err
	}

	logging.Default().Debug("Report saved", "path", path, "format", format, "scan_id", report.ScanID)
	return nil
}

// validateFilePath rejects paths that climb out of their directory.
func validateFilePath(path string) error {
	if path == "" {
		return errors.NewScanError(errors.CodeValidation, "report path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.NewScanError(errors.CodeValidation, "report path contains directory traversal")
		}
	}
	return nil
}

// errWriter remembers the first write error so formatting code can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	if _, err := fmt.Fprintf(ew.w, format, args...); err != nil {
		ew.err = errors.WrapScanError(errors.CodeReportWrite, "failed to write report", err)
	}
}

func (ew *errWriter) println(s string) {
	ew.printf("%s\n", s)
}
