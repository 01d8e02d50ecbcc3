package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/scanning"
)

// FileSink writes every final report into Directory.
type FileSink struct {
	Directory string
	Format    Format
}

// NewFileSink validates format and returns a sink writing to dir.
func NewFileSink(dir, format string) (*FileSink, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "."
	}
	return &FileSink{Directory: dir, Format: f}, nil
}

// SaveReport implements scanning.ReportSink.
func (s *FileSink) SaveReport(ctx context.Context, report *scanning.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Directory, 0750); err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to create report directory", err)
	}
	name := FileName(report.Target, report.StartTime, s.Format)
	return Save(report, filepath.Join(s.Directory, name), s.Format)
}

var _ scanning.ReportSink = (*FileSink)(nil)
