package db

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/scanning"
)

var reportColumns = []string{
	"id", "target", "address", "mode", "status", "partial", "total_requested", "total_attempted",
	"open_count", "closed_count", "filtered_count", "failure_reason", "started_at", "finished_at", "duration_ms",
}

type queryLog struct {
	mu  sync.Mutex
	ops []string
	err []error
}

func (q *queryLog) RecordDatabaseQuery(operation string, _ time.Duration, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, operation)
	q.err = append(q.err, err)
}

func newMockStore(t *testing.T) (*ReportStore, sqlmock.Sqlmock, *queryLog) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	cfg := DefaultConfig()
	db, err := Open(context.Background(), sqlDB, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := &queryLog{}
	return NewReportStore(db, log), mock, log
}

func testReport() *scanning.Report {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &scanning.Report{
		ScanID:         "scan-1",
		Target:         "example.com",
		Address:        "93.184.216.34",
		Mode:           "quick",
		Status:         scanning.StateCompleted,
		TotalRequested: 2,
		TotalAttempted: 2,
		OpenCount:      1,
		ClosedCount:    1,
		Results: []scanning.ScanResult{
			{Port: 22, Outcome: scanning.Open, Service: "SSH", Latency: 3 * time.Millisecond},
			{Port: 23, Outcome: scanning.Closed, Latency: time.Millisecond},
		},
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		Duration:  2 * time.Second,
	}
}

func TestReportStoreSaveReport(t *testing.T) {
	store, mock, log := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scan_reports").WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("COPY")
	prep.ExpectExec().
		WithArgs("scan-1", int64(22), "open", "SSH", int64(3*time.Millisecond)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("scan-1", int64(23), "closed", nil, int64(time.Millisecond)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, store.SaveReport(context.Background(), testReport()))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"save_report"}, log.ops)
	assert.Nil(t, log.err[0])
}

func TestReportStoreSaveReportWithoutResults(t *testing.T) {
	store, mock, _ := newMockStore(t)

	report := testReport()
	report.Status = scanning.StateFailed
	report.FailureReason = "Invalid target: empty target"
	report.Results = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scan_reports").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveReport(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStoreSaveReportDuplicate(t *testing.T) {
	store, mock, log := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scan_reports").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := store.SaveReport(context.Background(), testReport())
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.NotContains(t, err.Error(), "INSERT", "SQL must not leak into the error")
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Error(t, log.err[0])
}

func TestReportStoreGet(t *testing.T) {
	store, mock, _ := newMockStore(t)
	want := testReport()

	mock.ExpectQuery("SELECT (.+) FROM scan_reports WHERE id").
		WithArgs("scan-1").
		WillReturnRows(sqlmock.NewRows(reportColumns).AddRow(
			"scan-1", "example.com", "93.184.216.34", "quick", "completed", false, 2, 2,
			1, 1, 0, nil, want.StartTime, want.EndTime, int64(2000),
		))
	mock.ExpectQuery("SELECT (.+) FROM scan_results").
		WithArgs("scan-1").
		WillReturnRows(sqlmock.NewRows([]string{"scan_id", "port", "state", "service", "latency_ns"}).
			AddRow("scan-1", 22, "open", "SSH", int64(3*time.Millisecond)).
			AddRow("scan-1", 23, "closed", nil, int64(time.Millisecond)))

	got, err := store.Get(context.Background(), "scan-1")
	require.NoError(t, err)

	assert.Equal(t, want.ScanID, got.ScanID)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, scanning.StateCompleted, got.Status)
	assert.Equal(t, 2*time.Second, got.Duration)
	assert.Empty(t, got.FailureReason)
	assert.Equal(t, want.Results, got.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStoreGetNotFound(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM scan_reports WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(reportColumns))

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestReportStoreList(t *testing.T) {
	store, mock, _ := newMockStore(t)
	r := testReport()

	mock.ExpectQuery("SELECT COUNT").WithArgs("example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT (.+) FROM scan_reports WHERE (.+) ORDER BY finished_at DESC").
		WithArgs("example.com", 2, 4).
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow("scan-2", "example.com", nil, "full", "cancelled", true, 65535, 1200,
				0, 1200, 0, nil, r.StartTime, r.EndTime, int64(900)).
			AddRow("scan-1", "example.com", "93.184.216.34", "quick", "completed", false, 14, 14,
				1, 13, 0, nil, r.StartTime, r.EndTime, int64(2000)))

	records, total, err := store.List(context.Background(), ListOptions{Target: "example.com", Limit: 2, Offset: 4})
	require.NoError(t, err)

	assert.Equal(t, 7, total)
	require.Len(t, records, 2)
	assert.Equal(t, "scan-2", records[0].ID)
	assert.True(t, records[0].Partial)
	assert.False(t, records[0].Address.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStoreListValidation(t *testing.T) {
	store, _, _ := newMockStore(t)

	_, _, err := store.List(context.Background(), ListOptions{Limit: maxListLimit + 1})
	assert.True(t, errors.IsCode(err, errors.CodeValidation))

	_, _, err = store.List(context.Background(), ListOptions{Offset: -1})
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestReportStoreDelete(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectExec("DELETE FROM scan_reports WHERE id").WithArgs("scan-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM scan_reports WHERE id").WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "scan-1"))
	assert.True(t, errors.IsNotFound(store.Delete(context.Background(), "gone")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportStorePruneBefore(t *testing.T) {
	store, mock, log := newMockStore(t)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM scan_reports WHERE finished_at").WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.PruneBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, []string{"prune_reports"}, log.ops)
}

func TestSanitizeDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"no rows", sql.ErrNoRows, errors.CodeNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, errors.CodeConflict},
		{"foreign key violation", &pq.Error{Code: "23503"}, errors.CodeValidation},
		{"check violation", &pq.Error{Code: "23514"}, errors.CodeValidation},
		{"query canceled", &pq.Error{Code: "57014"}, errors.CodeCanceled},
		{"connection failure", &pq.Error{Code: "08006"}, errors.CodeDatabaseConnection},
		{"unknown pq error", &pq.Error{Code: "XX000", Message: "password=secret"}, errors.CodeDatabaseQuery},
		{"timeout", context.DeadlineExceeded, errors.CodeDatabaseTimeout},
		{"other", sql.ErrConnDone, errors.CodeDatabaseQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sanitizeDBError("op", tt.err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.NotContains(t, err.Error(), "secret")
		})
	}

	assert.NoError(t, sanitizeDBError("op", nil))
}

func TestDefaultConfigAndDSN(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)

	cfg.Database = "portsweep"
	cfg.Username = "scanner"
	cfg.Password = "pw"
	assert.Equal(t, "host=localhost port=5432 dbname=portsweep user=scanner password=pw sslmode=disable", cfg.DSN())
}
