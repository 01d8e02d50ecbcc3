package db

import (
	"database/sql"
	"time"

	"github.com/anstrom/portsweep/internal/scanning"
)

// ReportRecord is one row of scan_reports.
type ReportRecord struct {
	ID             string         `db:"id" json:"id"`
	Target         string         `db:"target" json:"target"`
	Address        sql.NullString `db:"address" json:"-"`
	Mode           string         `db:"mode" json:"mode"`
	Status         string         `db:"status" json:"status"`
	Partial        bool           `db:"partial" json:"partial"`
	TotalRequested int            `db:"total_requested" json:"total_requested"`
	TotalAttempted int            `db:"total_attempted" json:"total_attempted"`
	OpenCount      int            `db:"open_count" json:"open_count"`
	ClosedCount    int            `db:"closed_count" json:"closed_count"`
	FilteredCount  int            `db:"filtered_count" json:"filtered_count"`
	FailureReason  sql.NullString `db:"failure_reason" json:"-"`
	StartedAt      time.Time      `db:"started_at" json:"started_at"`
	FinishedAt     time.Time      `db:"finished_at" json:"finished_at"`
	DurationMS     int64          `db:"duration_ms" json:"duration_ms"`
}

// ResultRecord is one row of scan_results.
type ResultRecord struct {
	ScanID    string         `db:"scan_id"`
	Port      int            `db:"port"`
	State     string         `db:"state"`
	Service   sql.NullString `db:"service"`
	LatencyNS int64          `db:"latency_ns"`
}

func newReportRecord(r *scanning.Report) ReportRecord {
	return ReportRecord{
		ID:             r.ScanID,
		Target:         r.Target,
		Address:        nullString(r.Address),
		Mode:           r.Mode,
		Status:         string(r.Status),
		Partial:        r.Partial,
		TotalRequested: r.TotalRequested,
		TotalAttempted: r.TotalAttempted,
		OpenCount:      r.OpenCount,
		ClosedCount:    r.ClosedCount,
		FilteredCount:  r.FilteredCount,
		FailureReason:  nullString(r.FailureReason),
		StartedAt:      r.StartTime,
		FinishedAt:     r.EndTime,
		DurationMS:     r.Duration.Milliseconds(),
	}
}

// Report converts the record back into a report without results.
func (rec ReportRecord) Report() *scanning.Report {
	return &scanning.Report{
		ScanID:         rec.ID,
		Target:         rec.Target,
		Address:        rec.Address.String,
		Mode:           rec.Mode,
		Status:         scanning.State(rec.Status),
		Partial:        rec.Partial,
		TotalRequested: rec.TotalRequested,
		TotalAttempted: rec.TotalAttempted,
		OpenCount:      rec.OpenCount,
		ClosedCount:    rec.ClosedCount,
		FilteredCount:  rec.FilteredCount,
		FailureReason:  rec.FailureReason.String,
		StartTime:      rec.StartedAt,
		EndTime:        rec.FinishedAt,
		Duration:       time.Duration(rec.DurationMS) * time.Millisecond,
	}
}

func (rec ResultRecord) result() scanning.ScanResult {
	return scanning.ScanResult{
		Port:    uint16(rec.Port),
		Outcome: scanning.ProbeOutcome(rec.State),
		Service: rec.Service.String,
		Latency: time.Duration(rec.LatencyNS),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
