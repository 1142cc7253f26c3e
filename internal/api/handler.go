// Package api exposes the dataset inspection endpoints consumed by the
// dashboard's embedded charts.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-chi/chi/v5"

	"lakeview/internal/config"
	"lakeview/internal/dataset"
	"lakeview/internal/domain"
)

// Handler serves column metadata, sampled values, and summary statistics for
// a single in-memory table.
type Handler struct {
	table  arrow.Table
	dash   config.DashboardConfig
	logger *slog.Logger
}

// NewHandler creates a Handler over the given table.
func NewHandler(table arrow.Table, dash config.DashboardConfig, logger *slog.Logger) *Handler {
	return &Handler{table: table, dash: dash, logger: logger}
}

// Routes mounts the API endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/columns", h.listColumns)
	r.Get("/columns/{name}/values", h.columnValues)
	r.Get("/columns/{name}/summary", h.columnSummary)
	return r
}

type columnsResponse struct {
	Rows    int64               `json:"rows"`
	Columns []domain.ColumnInfo `json:"columns"`
}

func (h *Handler) listColumns(w http.ResponseWriter, r *http.Request) {
	cols := make([]domain.ColumnInfo, 0, h.table.NumCols())
	for _, c := range dataset.Columns(h.table) {
		if h.dash.Hidden(c.Name) {
			continue
		}
		cols = append(cols, c)
	}
	h.writeJSON(w, http.StatusOK, columnsResponse{Rows: h.table.NumRows(), Columns: cols})
}

// columnValues returns up to SampleLimit rows as one-field objects, the shape
// vega-lite expects from a data URL.
func (h *Handler) columnValues(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	col, err := h.column(name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	values := dataset.Values(col, h.dash.SampleLimit)
	rows := make([]map[string]any, len(values))
	for i, v := range values {
		rows[i] = map[string]any{name: v}
	}
	h.writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) columnSummary(w http.ResponseWriter, r *http.Request) {
	col, err := h.column(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataset.Describe(col))
}

func (h *Handler) column(name string) (*arrow.Column, error) {
	if h.dash.Hidden(name) {
		return nil, domain.ErrNotFound("column %q not found", name)
	}
	return dataset.Column(h.table, name)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]any{
		"code":    status,
		"message": err.Error(),
	})
}
