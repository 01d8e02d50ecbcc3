package db

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/metrics"
	"github.com/anstrom/portsweep/internal/scanning"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListOptions filters and pages stored reports.
type ListOptions struct {
	Target string
	Limit  int
	Offset int
}

// ReportStore persists final scan reports. It satisfies scanning.ReportSink.
type ReportStore struct {
	db       *DB
	recorder metrics.QueryRecorder
	logger   *logging.Logger
}

// NewReportStore creates a store on db. A nil recorder disables query metrics.
func NewReportStore(db *DB, recorder metrics.QueryRecorder) *ReportStore {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ReportStore{
		db:       db,
		recorder: recorder,
		logger:   logging.Default().WithComponent("db"),
	}
}

func (s *ReportStore) observe(operation string, start time.Time, err error) {
	s.recorder.RecordDatabaseQuery(operation, time.Since(start), err)
}

// SaveReport stores the report and all of its results in one transaction.
// Results are loaded with COPY since a full range scan has 65535 of them.
func (s *ReportStore) SaveReport(ctx context.Context, report *scanning.Report) (err error) {
	start := time.Now()
	defer func() { s.observe("save_report", start, err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return sanitizeDBError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO scan_reports (
			id, target, address, mode, status, partial,
			total_requested, total_attempted, open_count, closed_count, filtered_count,
			failure_reason, started_at, finished_at, duration_ms
		)
		VALUES (
			:id, :target, :address, :mode, :status, :partial,
			:total_requested, :total_attempted, :open_count, :closed_count, :filtered_count,
			:failure_reason, :started_at, :finished_at, :duration_ms
		)`
	if _, err = tx.NamedExecContext(ctx, query, newReportRecord(report)); err != nil {
		return sanitizeDBError("insert scan report", err)
	}

	if len(report.Results) > 0 {
		stmt, err := tx.PreparexContext(ctx,
			pq.CopyIn("scan_results", "scan_id", "port", "state", "service", "latency_ns"))
		if err != nil {
			return sanitizeDBError("prepare result copy", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range report.Results {
			if _, err := stmt.ExecContext(ctx,
				report.ScanID, int64(r.Port), string(r.Outcome), nullString(r.Service), int64(r.Latency)); err != nil {
				return sanitizeDBError("copy scan result", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return sanitizeDBError("flush scan results", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return sanitizeDBError("commit transaction", err)
	}

	s.logger.Debug("Stored scan report", "scan_id", report.ScanID, "results", len(report.Results))
	return nil
}

// Get loads a report and its results ordered by port.
func (s *ReportStore) Get(ctx context.Context, id string) (report *scanning.Report, err error) {
	start := time.Now()
	defer func() { s.observe("get_report", start, err) }()

	var rec ReportRecord
	query := `SELECT id, target, address, mode, status, partial, total_requested, total_attempted,
		open_count, closed_count, filtered_count, failure_reason, started_at, finished_at, duration_ms
		FROM scan_reports WHERE id = $1`
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, sanitizeDBError("get scan report", err)
	}

	var rows []ResultRecord
	resultsQuery := `SELECT scan_id, port, state, service, latency_ns FROM scan_results
		WHERE scan_id = $1 ORDER BY port`
	if err := s.db.SelectContext(ctx, &rows, resultsQuery, id); err != nil {
		return nil, sanitizeDBError("get scan results", err)
	}

	report = rec.Report()
	report.Results = make([]scanning.ScanResult, 0, len(rows))
	for _, row := range rows {
		report.Results = append(report.Results, row.result())
	}
	return report, nil
}

// List returns report summaries, newest first, and the total number of
// reports matching opts.
func (s *ReportStore) List(ctx context.Context, opts ListOptions) (records []ReportRecord, total int, err error) {
	start := time.Now()
	defer func() { s.observe("list_reports", start, err) }()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		return nil, 0, errors.NewScanError(errors.CodeValidation, "limit exceeds maximum of 500")
	}
	if opts.Offset < 0 {
		return nil, 0, errors.NewScanError(errors.CodeValidation, "offset cannot be negative")
	}

	countQuery := `SELECT COUNT(*) FROM scan_reports WHERE ($1 = '' OR target = $1)`
	if err := s.db.GetContext(ctx, &total, countQuery, opts.Target); err != nil {
		return nil, 0, sanitizeDBError("count scan reports", err)
	}

	query := `SELECT id, target, address, mode, status, partial, total_requested, total_attempted,
		open_count, closed_count, filtered_count, failure_reason, started_at, finished_at, duration_ms
		FROM scan_reports WHERE ($1 = '' OR target = $1)
		ORDER BY finished_at DESC LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &records, query, opts.Target, limit, opts.Offset); err != nil {
		return nil, 0, sanitizeDBError("list scan reports", err)
	}
	return records, total, nil
}

// Delete removes a report and, through the foreign key, its results.
func (s *ReportStore) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete_report", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_reports WHERE id = $1`, id)
	if err != nil {
		return sanitizeDBError("delete scan report", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sanitizeDBError("delete scan report", err)
	}
	if n == 0 {
		return errors.ErrNotFound("scan report", id)
	}
	return nil
}

// PruneBefore deletes reports that finished before cutoff.
func (s *ReportStore) PruneBefore(ctx context.Context, cutoff time.Time) (removed int64, err error) {
	start := time.Now()
	defer func() { s.observe("prune_reports", start, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_reports WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, sanitizeDBError("prune scan reports", err)
	}
	return res.RowsAffected()
}

var _ scanning.ReportSink = (*ReportStore)(nil)
