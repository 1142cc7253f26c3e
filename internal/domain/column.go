package domain

import "github.com/apache/arrow-go/v18/arrow"

// ColumnKind groups a column into one of four dashboard categories based on
// its declared Arrow type. Every column maps to exactly one kind.
type ColumnKind int

const (
	KindNumeric ColumnKind = iota
	KindStringBool
	KindTemporal
	KindOther
)

// String returns the display label used for grouping and filtering in the UI.
func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "Numerical"
	case KindStringBool:
		return "String / Boolean"
	case KindTemporal:
		return "Temporal"
	default:
		return "Others"
	}
}

// Signal returns the short identifier used for client-side filter state.
func (k ColumnKind) Signal() string {
	switch k {
	case KindNumeric:
		return "num"
	case KindStringBool:
		return "str"
	case KindTemporal:
		return "time"
	default:
		return "other"
	}
}

// ClassifyType places an Arrow data type into a ColumnKind. Classification
// inspects the declared type only, never the values.
func ClassifyType(dt arrow.DataType) ColumnKind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return KindNumeric
	case arrow.STRING, arrow.LARGE_STRING, arrow.BOOL:
		return KindStringBool
	case arrow.DATE32, arrow.DATE64, arrow.TIME32, arrow.TIME64,
		arrow.TIMESTAMP, arrow.DURATION:
		return KindTemporal
	default:
		return KindOther
	}
}

// IsFloatType reports whether the type is floating point or decimal. The
// dashboard bins such columns into histograms instead of nominal bars.
func IsFloatType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return true
	}
	return false
}

// ColumnInfo describes one column of the loaded dataset.
type ColumnInfo struct {
	Name string     `json:"name"`
	Type string     `json:"type"`
	Kind ColumnKind `json:"-"`
	// KindLabel carries the kind's display label in JSON responses.
	KindLabel string `json:"kind"`
}

// ColumnSummary holds per-column summary statistics. The numeric fields are
// nil for non-numeric columns.
type ColumnSummary struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rows   int64  `json:"rows"`
	Nulls  int64  `json:"nulls"`
	Unique int64  `json:"unique"`

	Mean *string `json:"mean,omitempty"`
	Std  *string `json:"std,omitempty"`
	Min  *string `json:"min,omitempty"`
	Max  *string `json:"max,omitempty"`
}
