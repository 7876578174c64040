package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/export"
	"go-pricewatch/internal/model"
	"go-pricewatch/pkg/utils"
)

// MaxRunsLimit caps the page size of run listings.
const MaxRunsLimit = 1000

// RunReader reads the export audit trail.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]model.ExportRun, error)
	GetRun(ctx context.Context, id string) (model.ExportRun, error)
}

// ExportOptions tunes ExportHandler.
type ExportOptions struct {
	// RunsLimit is the default page size of run listings.
	RunsLimit int
	// DefaultStreaming selects the strategy when the request has no
	// stream parameter.
	DefaultStreaming bool
}

// ExportHandler serves the export endpoints.
type ExportHandler struct {
	dispatcher *export.Dispatcher
	runs       RunReader
	opts       ExportOptions
	logger     *zap.SugaredLogger
}

// NewExportHandler creates the export endpoints.
func NewExportHandler(d *export.Dispatcher, runs RunReader, opts ExportOptions, logger *zap.SugaredLogger) *ExportHandler {
	if opts.RunsLimit <= 0 {
		opts.RunsLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ExportHandler{dispatcher: d, runs: runs, opts: opts, logger: logger}
}

// ExportType describes one registered export type.
type ExportType struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Sheet    string         `json:"sheet"`
	Columns  []model.Column `json:"columns"`
	Filters  []string       `json:"filters"`
}

// ListExportTypes lists the registered export types
// @Summary List export types
// @Description Get every registered export type with its columns and accepted filters
// @Tags exports
// @Produce json
// @Success 200 {array} handler.ExportType "Export types"
// @Router /exports [get]
func (h *ExportHandler) ListExportTypes(w http.ResponseWriter, r *http.Request) {
	defs := h.dispatcher.Registry().List()
	out := make([]ExportType, len(defs))
	for i, d := range defs {
		out[i] = ExportType{
			ID:       d.ID,
			Filename: d.Filename(),
			Sheet:    d.SheetName,
			Columns:  d.Columns,
			Filters:  d.FilterNames(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Download runs an export and returns the workbook
// @Summary Download an export
// @Description Build the workbook for an export type. Every query parameter other than type and stream is a filter.
// @Description With stream=true rows are written while they are read; a failure after the first byte truncates the download.
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type query string true "Export type id"
// @Param stream query bool false "Stream rows instead of buffering the workbook"
// @Param q query string false "Substring search"
// @Param active query bool false "Active flag"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {file} file "xlsx workbook"
// @Failure 400 {object} map[string]interface{} "Missing or unknown type, or invalid filter"
// @Failure 500 {object} map[string]interface{} "Export failed"
// @Router /exports/download [get]
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	streaming := h.opts.DefaultStreaming
	if raw := strings.TrimSpace(q.Get(export.ParamStream)); raw != "" {
		b, err := utils.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid stream parameter: "+err.Error())
			return
		}
		streaming = b
	}

	req := export.Request{
		Type:      q.Get(export.ParamType),
		Filters:   export.FiltersFromQuery(q),
		Streaming: streaming,
	}
	tw := &trackingWriter{ResponseWriter: w}
	res, err := h.dispatcher.Dispatch(r.Context(), req, tw)
	if err == nil {
		return
	}

	if tw.committed {
		// Status is already sent; cut the connection so the client sees a
		// truncated body instead of a complete download.
		panic(http.ErrAbortHandler)
	}
	if errors.IsInvalidRequest(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error": "export failed",
		"runID": res.RunID,
	})
}

// ListRuns lists recent export runs
// @Summary List export runs
// @Description Get the most recent export runs, newest first
// @Tags exports
// @Produce json
// @Param limit query int false "Maximum number of runs"
// @Success 200 {array} model.ExportRun "Export runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /exports/runs [get]
func (h *ExportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := utils.PositiveInt(r.URL.Query().Get("limit"), h.opts.RunsLimit)
	if limit > MaxRunsLimit {
		limit = MaxRunsLimit
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Errorw("Listing export runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch export runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one export run
// @Summary Get export run
// @Description Retrieve the audit record of one export run
// @Tags exports
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.ExportRun "Export run"
// @Failure 400 {object} map[string]interface{} "Missing run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /exports/runs/{id} [get]
func (h *ExportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	// Extract run ID from URL path
	const prefix = "/api/v1/exports/runs/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	id := strings.Trim(r.URL.Path[len(prefix):], "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Errorw("Fetching export run failed", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch export run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// trackingWriter records whether the response has been committed.
type trackingWriter struct {
	http.ResponseWriter
	committed bool
}

func (tw *trackingWriter) WriteHeader(code int) {
	tw.committed = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(p []byte) (int, error) {
	tw.committed = true
	return tw.ResponseWriter.Write(p)
}

func (tw *trackingWriter) Unwrap() http.ResponseWriter { return tw.ResponseWriter }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}
