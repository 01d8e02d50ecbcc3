// Package handlers provides HTTP request handlers for the portsweep API.
// This file contains utilities shared across all handlers.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/anstrom/portsweep/internal/api/middleware"
	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/logging"
)

// DefaultMaxRequestSize bounds request bodies when no limit is configured.
const DefaultMaxRequestSize = 1 << 20

// PaginationParams holds pagination parameters.
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Offset   int `json:"offset"`
}

// PaginatedResponse represents a paginated API response.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// getQueryParamInt extracts integer query parameter with default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) (int, error) {
	if value := r.URL.Query().Get(key); value != "" {
		return strconv.Atoi(value)
	}
	return defaultValue, nil
}

// extractStringFromPath extracts the id path parameter.
func extractStringFromPath(r *http.Request) (string, error) {
	idStr, exists := mux.Vars(r)["id"]
	if !exists {
		return "", fmt.Errorf("id not provided")
	}
	if strings.TrimSpace(idStr) == "" {
		return "", fmt.Errorf("id cannot be empty")
	}
	return idStr, nil
}

// getPaginationParams extracts pagination parameters from request.
func getPaginationParams(r *http.Request) (PaginationParams, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 500
	)

	page, err := getQueryParamInt(r, "page", defaultPage)
	if err != nil {
		return PaginationParams{}, fmt.Errorf("invalid page parameter: %w", err)
	}

	pageSize, err := getQueryParamInt(r, "page_size", defaultPageSize)
	if err != nil {
		return PaginationParams{}, fmt.Errorf("invalid page_size parameter: %w", err)
	}

	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}, nil
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are gone, so only log
		logging.Default().WithContext(r.Context()).Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r),
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		response.Code = string(code)
	}

	WriteJSON(w, r, statusCode, response)
}

// writePaginatedResponse writes a paginated response.
func writePaginatedResponse(
	w http.ResponseWriter,
	r *http.Request,
	data interface{},
	params PaginationParams,
	totalItems int64,
) {
	totalPages := int((totalItems + int64(params.PageSize) - 1) / int64(params.PageSize))

	response := PaginatedResponse{Data: data}
	response.Pagination.Page = params.Page
	response.Pagination.PageSize = params.PageSize
	response.Pagination.TotalItems = totalItems
	response.Pagination.TotalPages = totalPages

	WriteJSON(w, r, http.StatusOK, response)
}

// statusForError maps an error code to an HTTP status.
func statusForError(err error) int {
	switch {
	case errors.IsClientError(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.IsCode(err, errors.CodeRateLimited):
		return http.StatusTooManyRequests
	case errors.IsCode(err, errors.CodeQueueFull), errors.IsCode(err, errors.CodeServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the response for an error returned by the scan
// manager, the report store or the scheduler. Server-side failures are
// logged and their details withheld from the client.
func handleServiceError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
	operation, entityType string,
	logger *logging.Logger,
) {
	status := statusForError(err)
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		writeError(w, r, status, err)
		return
	}

	logger.WithContext(r.Context()).Error(fmt.Sprintf("Failed to %s %s", operation, entityType), "error", err)
	writeError(w, r, status, fmt.Errorf("failed to %s %s", operation, entityType))
}

// parseJSON decodes a single JSON object from the request body into dest,
// rejecting unknown fields and bodies larger than maxSize.
func parseJSON(w http.ResponseWriter, r *http.Request, dest interface{}, maxSize int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.NewScanError(errors.CodeValidation, "request body is empty")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("request body too large (max %d bytes)", maxSize))
		}
		return errors.WrapScanError(errors.CodeValidation, "invalid JSON", err)
	}
	if decoder.More() {
		return errors.NewScanError(errors.CodeValidation, "request body must contain a single JSON object")
	}
	return nil
}
