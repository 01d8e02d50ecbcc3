package handlers

import (
	"context"
	"net/http"

	"github.com/anstrom/portsweep/internal/db"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/scanning"
)

// ReportStore is the subset of *db.ReportStore used by the API.
type ReportStore interface {
	Get(ctx context.Context, id string) (*scanning.Report, error)
	List(ctx context.Context, opts db.ListOptions) ([]db.ReportRecord, int, error)
	Delete(ctx context.Context, id string) error
}

// ReportHandler serves reports persisted in the database. They outlive
// the in-memory scans pruned from the manager.
type ReportHandler struct {
	store  ReportStore
	logger *logging.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(store ReportStore, logger *logging.Logger) *ReportHandler {
	return &ReportHandler{
		store:  store,
		logger: logger.WithComponent("api").WithFields("handler", "report"),
	}
}

// ListReports lists stored report summaries, newest first. ?target=
// filters by the scanned target.
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	params, err := getPaginationParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	records, total, err := h.store.List(r.Context(), db.ListOptions{
		Target: r.URL.Query().Get("target"),
		Limit:  params.PageSize,
		Offset: params.Offset,
	})
	if err != nil {
		handleServiceError(w, r, err, "list", "reports", h.logger)
		return
	}
	if records == nil {
		records = []db.ReportRecord{}
	}

	writePaginatedResponse(w, r, records, params, int64(total))
}

// GetReport returns one stored report with all of its results.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := extractStringFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	report, err := h.store.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get", "report", h.logger)
		return
	}
	WriteJSON(w, r, http.StatusOK, report)
}

// DeleteReport removes a stored report.
func (h *ReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := extractStringFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete", "report", h.logger)
		return
	}

	h.logger.WithContext(r.Context()).Info("Report deleted", "scan_id", id)
	w.WriteHeader(http.StatusNoContent)
}

var _ ReportStore = (*db.ReportStore)(nil)
