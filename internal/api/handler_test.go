package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakeview/internal/config"
)

func testTable(t *testing.T) arrow.Table {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "city", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "secret", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues([]float64{1.5, 2.5, 4.0}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"amsterdam", "utrecht", "amsterdam"}, nil)
	b.Field(2).(*array.StringBuilder).AppendValues([]string{"x", "y", "z"}, nil)
	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec})
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	tbl := testTable(t)
	t.Cleanup(tbl.Release)
	dash := config.DefaultDashboardConfig()
	dash.SampleLimit = 2
	dash.HiddenColumns = []string{"secret"}
	return NewHandler(tbl, dash, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListColumns(t *testing.T) {
	rec := get(t, newTestHandler(t), "/columns")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows    int64 `json:"rows"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
			Kind string `json:"kind"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Rows)
	require.Len(t, resp.Columns, 2) // hidden column excluded
	assert.Equal(t, "amount", resp.Columns[0].Name)
	assert.Equal(t, "Numerical", resp.Columns[0].Kind)
	assert.Equal(t, "city", resp.Columns[1].Name)
}

func TestColumnValues_SampleLimit(t *testing.T) {
	rec := get(t, newTestHandler(t), "/columns/city/values")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "amsterdam", rows[0]["city"])
	assert.Equal(t, "utrecht", rows[1]["city"])
}

func TestColumnSummary(t *testing.T) {
	rec := get(t, newTestHandler(t), "/columns/amount/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var s struct {
		Name string  `json:"name"`
		Rows int64   `json:"rows"`
		Mean *string `json:"mean"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "amount", s.Name)
	assert.Equal(t, int64(3), s.Rows)
	require.NotNil(t, s.Mean)
	assert.Equal(t, "2.67", *s.Mean)
}

func TestColumn_UnknownReturns404(t *testing.T) {
	rec := get(t, newTestHandler(t), "/columns/nope/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestColumn_HiddenReturns404(t *testing.T) {
	rec := get(t, newTestHandler(t), "/columns/secret/values")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
