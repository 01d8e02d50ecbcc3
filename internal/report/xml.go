package report

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/scanning"
)

// ScanXML is the XML document root for a scan report.
type ScanXML struct {
	XMLName   xml.Name   `xml:"portscan"`
	ScanID    string     `xml:"id,attr"`
	Target    string     `xml:"target,attr"`
	Address   string     `xml:"address,attr,omitempty"`
	Mode      string     `xml:"mode,attr"`
	Status    string     `xml:"status,attr"`
	Partial   bool       `xml:"partial,attr"`
	StartTime string     `xml:"start,attr"`
	EndTime   string     `xml:"end,attr"`
	Duration  string     `xml:"duration,attr"`
	Failure   string     `xml:"failure,omitempty"`
	Summary   SummaryXML `xml:"summary"`
	Ports     []PortXML  `xml:"ports>port"`
}

// SummaryXML holds the outcome counters.
type SummaryXML struct {
	Requested int `xml:"requested,attr"`
	Attempted int `xml:"attempted,attr"`
	Open      int `xml:"open,attr"`
	Closed    int `xml:"closed,attr"`
	Filtered  int `xml:"filtered,attr"`
}

// PortXML is one probed port.
type PortXML struct {
	Number  uint16 `xml:"number,attr"`
	State   string `xml:"state,attr"`
	Service string `xml:"service,attr,omitempty"`
	Latency string `xml:"latency,attr"`
}

func toXML(r *scanning.Report) ScanXML {
	doc := ScanXML{
		ScanID:    r.ScanID,
		Target:    r.Target,
		Address:   r.Address,
		Mode:      r.Mode,
		Status:    string(r.Status),
		Partial:   r.Partial,
		StartTime: r.StartTime.UTC().Format(time.RFC3339),
		EndTime:   r.EndTime.UTC().Format(time.RFC3339),
		Duration:  r.Duration.String(),
		Failure:   r.FailureReason,
		Summary: SummaryXML{
			Requested: r.TotalRequested,
			Attempted: r.TotalAttempted,
			Open:      r.OpenCount,
			Closed:    r.ClosedCount,
			Filtered:  r.FilteredCount,
		},
		Ports: make([]PortXML, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		doc.Ports = append(doc.Ports, PortXML{
			Number:  res.Port,
			State:   string(res.Outcome),
			Service: res.Service,
			Latency: res.Latency.String(),
		})
	}
	return doc
}

// WriteXML writes the report as an indented XML document.
func WriteXML(w io.Writer, report *scanning.Report) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to write XML header", err)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(toXML(report)); err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to encode XML report", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.WrapScanError(errors.CodeReportWrite, "failed to write XML report", err)
	}
	return nil
}
