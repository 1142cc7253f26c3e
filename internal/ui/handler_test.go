package ui

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakeview/internal/config"
)

func testTable(t *testing.T) arrow.Table {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "fare", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "city", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "payload", Type: arrow.BinaryTypes.Binary, Nullable: true},
		{Name: "internal_id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues([]float64{12.5, 8.0}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"amsterdam", "utrecht"}, nil)
	b.Field(2).(*array.BinaryBuilder).AppendValues([][]byte{{0x1}, {0x2}}, nil)
	b.Field(3).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec})
}

func renderHome(t *testing.T) string {
	t.Helper()
	tbl := testTable(t)
	t.Cleanup(tbl.Release)

	dash := config.DefaultDashboardConfig()
	dash.Title = "Trips"
	dash.HiddenColumns = []string{"internal_id"}
	h := NewHandler(tbl, dash, "s3://bucket/trips.parquet", slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	MountRoutes(r, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHome_RendersColumnCards(t *testing.T) {
	body := renderHome(t)

	assert.Contains(t, body, "Trips")
	assert.Contains(t, body, "s3://bucket/trips.parquet")
	assert.Contains(t, body, "fare")
	assert.Contains(t, body, "city")
	assert.Contains(t, body, "vegaEmbed")
	assert.Contains(t, body, "/api/columns/fare/values")
}

func TestHome_HiddenColumnExcluded(t *testing.T) {
	body := renderHome(t)
	assert.NotContains(t, body, "internal_id")
}

func TestHome_UnsupportedColumnHasNoChart(t *testing.T) {
	body := renderHome(t)
	assert.Contains(t, body, "Unsupported: binary")
	assert.NotContains(t, body, "/api/columns/payload/values")
}

func TestHome_QuickFilterWiring(t *testing.T) {
	body := renderHome(t)
	assert.Contains(t, body, "data-bind")
	assert.Contains(t, body, "data-show")
	assert.Contains(t, body, "$q ===")
}

func TestChartSpec_Kinds(t *testing.T) {
	spec, ok := chartSpec(arrow.Field{Name: "fare", Type: arrow.PrimitiveTypes.Float64})
	require.True(t, ok)
	x := spec["encoding"].(map[string]any)["x"].(map[string]any)
	assert.Equal(t, "quantitative", x["type"])
	assert.NotNil(t, x["bin"])

	spec, ok = chartSpec(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int64})
	require.True(t, ok)
	x = spec["encoding"].(map[string]any)["x"].(map[string]any)
	assert.Equal(t, "nominal", x["type"])
	assert.Equal(t, "-y", x["sort"])

	spec, ok = chartSpec(arrow.Field{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_us})
	require.True(t, ok)
	x = spec["encoding"].(map[string]any)["x"].(map[string]any)
	assert.Equal(t, "temporal", x["type"])

	_, ok = chartSpec(arrow.Field{Name: "blob", Type: arrow.BinaryTypes.Binary})
	assert.False(t, ok)
}
