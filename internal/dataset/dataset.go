// Package dataset inspects in-memory Arrow tables for the exploration
// dashboard: column classification, summary statistics, and JSON-friendly
// value extraction for charts.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"lakeview/internal/domain"
)

// Columns lists the table's columns with their dashboard classification.
func Columns(tbl arrow.Table) []domain.ColumnInfo {
	fields := tbl.Schema().Fields()
	out := make([]domain.ColumnInfo, 0, len(fields))
	for _, f := range fields {
		kind := domain.ClassifyType(f.Type)
		out = append(out, domain.ColumnInfo{
			Name:      f.Name,
			Type:      f.Type.String(),
			Kind:      kind,
			KindLabel: kind.String(),
		})
	}
	return out
}

// Column returns the named column, or a NotFoundError.
func Column(tbl arrow.Table, name string) (*arrow.Column, error) {
	idxs := tbl.Schema().FieldIndices(name)
	if len(idxs) == 0 {
		return nil, domain.ErrNotFound("column %q not found", name)
	}
	return tbl.Column(idxs[0]), nil
}

// Describe computes summary statistics for one column. Numeric columns get
// mean, sample standard deviation, min, and max; every column gets row,
// null, and unique counts.
func Describe(col *arrow.Column) domain.ColumnSummary {
	summary := domain.ColumnSummary{
		Name: col.Name(),
		Type: col.DataType().String(),
	}

	unique := map[string]struct{}{}
	var nulls int64

	numeric := domain.ClassifyType(col.DataType()) == domain.KindNumeric
	var count int64
	var mean, m2 float64 // Welford running statistics
	minV := math.Inf(1)
	maxV := math.Inf(-1)

	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			summary.Rows++
			if chunk.IsNull(i) {
				nulls++
				continue
			}
			unique[chunk.ValueStr(i)] = struct{}{}
			if !numeric {
				continue
			}
			v, ok := numericValue(chunk, i)
			if !ok {
				continue
			}
			count++
			delta := v - mean
			mean += delta / float64(count)
			m2 += delta * (v - mean)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
	}

	summary.Nulls = nulls
	summary.Unique = int64(len(unique))
	if nulls > 0 {
		summary.Unique++
	}

	if numeric {
		summary.Mean = formatStat(mean, count >= 1)
		if count >= 2 {
			summary.Std = formatStat(math.Sqrt(m2/float64(count-1)), true)
		} else {
			summary.Std = formatStat(0, false)
		}
		summary.Min = formatNumber(minV, count >= 1)
		summary.Max = formatNumber(maxV, count >= 1)
	}
	return summary
}

func formatStat(v float64, ok bool) *string {
	s := "N/A"
	if ok {
		s = fmt.Sprintf("%.2f", v)
	}
	return &s
}

func formatNumber(v float64, ok bool) *string {
	s := "N/A"
	if ok {
		s = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return &s
}

// numericValue converts a cell to float64 for statistics.
func numericValue(arr arrow.Array, i int) (float64, bool) {
	switch a := arr.(type) {
	case *array.Int8:
		return float64(a.Value(i)), true
	case *array.Int16:
		return float64(a.Value(i)), true
	case *array.Int32:
		return float64(a.Value(i)), true
	case *array.Int64:
		return float64(a.Value(i)), true
	case *array.Uint8:
		return float64(a.Value(i)), true
	case *array.Uint16:
		return float64(a.Value(i)), true
	case *array.Uint32:
		return float64(a.Value(i)), true
	case *array.Uint64:
		return float64(a.Value(i)), true
	case *array.Float32:
		return float64(a.Value(i)), true
	case *array.Float64:
		return a.Value(i), true
	default:
		// Decimals and half floats fall back to their string form.
		if v, err := strconv.ParseFloat(arr.ValueStr(i), 64); err == nil {
			return v, true
		}
		return 0, false
	}
}

// Values extracts up to limit cell values as JSON-friendly Go values. Nulls
// come through as nil; temporal values as RFC 3339 strings so charting
// libraries parse them as dates.
func Values(col *arrow.Column, limit int) []any {
	out := make([]any, 0, limit)
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			if len(out) >= limit {
				return out
			}
			if chunk.IsNull(i) {
				out = append(out, nil)
				continue
			}
			out = append(out, cellValue(chunk, i))
		}
	}
	return out
}

func cellValue(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return uint64(a.Value(i))
	case *array.Uint16:
		return uint64(a.Value(i))
	case *array.Uint32:
		return uint64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano)
	case *array.Date32:
		return a.Value(i).ToTime().UTC().Format("2006-01-02")
	case *array.Date64:
		return a.Value(i).ToTime().UTC().Format("2006-01-02")
	default:
		return arr.ValueStr(i)
	}
}
