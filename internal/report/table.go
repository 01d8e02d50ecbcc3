package report

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/scanning"
)

// RenderTable prints the results of report as a terminal table. With
// openOnly set, closed and filtered ports are left out.
func RenderTable(w io.Writer, report *scanning.Report, openOnly bool) error {
	results := report.Results
	if openOnly {
		results = report.OpenPorts()
	}

	table := tablewriter.NewWriter(w)
	table.Header("Port", "State", "Service", "Latency")
	for _, r := range results {
		service := r.Service
		if service == "" {
			service = "unknown"
		}
		if err := table.Append([]string{
			strconv.Itoa(int(r.Port)),
			string(r.Outcome),
			service,
			r.Latency.String(),
		}); err != nil {
			return errors.WrapScanError(errors.CodeReportWrite, "failed to build result table", err)
		}
	}
	if err := table.Render(); err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to render result table", err)
	}
	return nil
}
