package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"lakeview/internal/domain"
)

// partFileName is the deterministic basename for partition fragments, so
// rewriting a partition overwrites its file and leaves others untouched.
const partFileName = "part-0.parquet"

// hiveNullValue is the conventional directory name for a null partition key.
const hiveNullValue = "__HIVE_DEFAULT_PARTITION__"

type partValue struct {
	column string
	value  string
}

type fragment struct {
	key   string
	parts []partValue
}

// parseFragmentPartitions extracts ordered col=value pairs from the path
// segments between the dataset prefix and the fragment file name.
func parseFragmentPartitions(prefix, key string) []partValue {
	rel := strings.TrimLeft(strings.TrimPrefix(key, prefix), "/")
	segs := strings.Split(rel, "/")
	var parts []partValue
	for _, seg := range segs[:len(segs)-1] {
		col, val, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		if unescaped, err := url.PathUnescape(val); err == nil {
			val = unescaped
		}
		parts = append(parts, partValue{column: col, value: val})
	}
	return parts
}

// readDataset discovers parquet fragments under prefix, restores partition
// columns encoded in the directory names, and concatenates everything into
// one table. Partition values are typed by hive inference: int64 when every
// value parses as an integer, utf8 otherwise.
func readDataset(ctx context.Context, mem memory.Allocator, fs objectFS, prefix string) (arrow.Table, error) {
	keys, err := fs.listParquet(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, domain.ErrNotFound("no parquet files found under %q", prefix)
	}

	frags := make([]fragment, 0, len(keys))
	for _, key := range keys {
		frags = append(frags, fragment{key: key, parts: parseFragmentPartitions(prefix, key)})
	}

	// Partition columns in first-seen order, typed across all fragments.
	var partCols []string
	isInt := map[string]bool{}
	for _, frag := range frags {
		for _, p := range frag.parts {
			if _, ok := isInt[p.column]; !ok {
				partCols = append(partCols, p.column)
				isInt[p.column] = true
			}
			if p.value == hiveNullValue {
				continue
			}
			if _, err := strconv.ParseInt(p.value, 10, 64); err != nil {
				isInt[p.column] = false
			}
		}
	}

	tables := make([]arrow.Table, 0, len(frags))
	for _, frag := range frags {
		data, err := fs.get(ctx, frag.key)
		if err != nil {
			releaseTables(tables)
			return nil, err
		}
		tbl, err := unmarshalTable(ctx, mem, data)
		if err != nil {
			releaseTables(tables)
			return nil, fmt.Errorf("fragment %s: %w", frag.key, err)
		}
		restored, err := appendPartitionColumns(mem, tbl, frag.parts, partCols, isInt)
		if err != nil {
			releaseTables(tables)
			return nil, fmt.Errorf("fragment %s: %w", frag.key, err)
		}
		tables = append(tables, restored)
	}
	return mergeTables(tables)
}

func releaseTables(tables []arrow.Table) {
	for _, t := range tables {
		t.Release()
	}
}

// appendPartitionColumns returns tbl extended with one constant column per
// partition key. Takes ownership of tbl.
func appendPartitionColumns(mem memory.Allocator, tbl arrow.Table, parts []partValue, partCols []string, isInt map[string]bool) (arrow.Table, error) {
	if len(partCols) == 0 {
		return tbl, nil
	}
	values := map[string]*string{}
	for _, p := range parts {
		if p.value == hiveNullValue {
			values[p.column] = nil
			continue
		}
		v := p.value
		values[p.column] = &v
	}

	fields := make([]arrow.Field, 0, len(tbl.Schema().Fields())+len(partCols))
	fields = append(fields, tbl.Schema().Fields()...)
	for _, col := range partCols {
		dt := arrow.DataType(arrow.BinaryTypes.String)
		if isInt[col] {
			dt = arrow.PrimitiveTypes.Int64
		}
		fields = append(fields, arrow.Field{Name: col, Type: dt, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	recs := tableRecords(tbl)
	tbl.Release()
	defer releaseRecords(recs)

	out := make([]arrow.Record, 0, len(recs))
	defer func() { releaseRecords(out) }()
	for _, rec := range recs {
		n := int(rec.NumRows())
		cols := make([]arrow.Array, 0, len(fields))
		cols = append(cols, rec.Columns()...)
		for _, col := range partCols {
			arr, err := constantArray(mem, n, values[col], isInt[col])
			if err != nil {
				return nil, err
			}
			defer arr.Release()
			cols = append(cols, arr)
		}
		out = append(out, array.NewRecord(schema, cols, rec.NumRows()))
	}
	return array.NewTableFromRecords(schema, out), nil
}

// constantArray builds an n-row array repeating one partition value. A nil
// value yields all nulls.
func constantArray(mem memory.Allocator, n int, value *string, asInt bool) (arrow.Array, error) {
	if asInt {
		b := array.NewInt64Builder(mem)
		defer b.Release()
		if value == nil {
			for i := 0; i < n; i++ {
				b.AppendNull()
			}
			return b.NewInt64Array(), nil
		}
		v, err := strconv.ParseInt(*value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("partition value %q is not an integer: %w", *value, err)
		}
		for i := 0; i < n; i++ {
			b.Append(v)
		}
		return b.NewInt64Array(), nil
	}

	b := array.NewStringBuilder(mem)
	defer b.Release()
	for i := 0; i < n; i++ {
		if value == nil {
			b.AppendNull()
		} else {
			b.Append(*value)
		}
	}
	return b.NewStringArray(), nil
}

// writePartitioned splits tbl by the partition columns and writes each group
// to baseKey/col=value/.../part-0.parquet with the partition columns dropped
// from the files, hive style. Only the partitions present in tbl are
// written; existing sibling partitions are left untouched.
func writePartitioned(ctx context.Context, mem memory.Allocator, fs objectFS, baseKey string, tbl arrow.Table, partitionColumns []string) error {
	schema := tbl.Schema()

	partIdx := make([]int, len(partitionColumns))
	isPart := map[int]bool{}
	for i, col := range partitionColumns {
		idxs := schema.FieldIndices(col)
		if len(idxs) == 0 {
			return domain.ErrValidation("partition column %q not found in table", col)
		}
		partIdx[i] = idxs[0]
		isPart[idxs[0]] = true
	}

	var keptFields []arrow.Field
	var keptIdx []int
	for i, f := range schema.Fields() {
		if !isPart[i] {
			keptFields = append(keptFields, f)
			keptIdx = append(keptIdx, i)
		}
	}
	if len(keptFields) == 0 {
		return domain.ErrValidation("partitioning by every column leaves nothing to write")
	}
	keptSchema := arrow.NewSchema(keptFields, nil)

	recs := tableRecords(tbl)
	defer releaseRecords(recs)

	groups := map[string][]arrow.Record{}
	var order []string
	defer func() {
		for _, batch := range groups {
			releaseRecords(batch)
		}
	}()

	for _, rec := range recs {
		n := int(rec.NumRows())
		dirs := make([]string, n)
		for i := 0; i < n; i++ {
			segs := make([]string, len(partitionColumns))
			for j, ci := range partIdx {
				arr := rec.Column(ci)
				v := hiveNullValue
				if arr.IsValid(i) {
					v = url.PathEscape(arr.ValueStr(i))
				}
				segs[j] = partitionColumns[j] + "=" + v
			}
			dirs[i] = path.Join(segs...)
		}

		for _, dir := range distinctInOrder(dirs) {
			mask, err := rowMask(mem, dirs, dir)
			if err != nil {
				return err
			}
			filtered, err := compute.FilterRecordBatch(ctx, rec, mask, compute.DefaultFilterOptions())
			mask.Release()
			if err != nil {
				return fmt.Errorf("split partition %s: %w", dir, err)
			}

			cols := make([]arrow.Array, len(keptIdx))
			for i, ci := range keptIdx {
				cols[i] = filtered.Column(ci)
			}
			stripped := array.NewRecord(keptSchema, cols, filtered.NumRows())
			filtered.Release()

			if _, seen := groups[dir]; !seen {
				order = append(order, dir)
			}
			groups[dir] = append(groups[dir], stripped)
		}
	}

	for _, dir := range order {
		part := array.NewTableFromRecords(keptSchema, groups[dir])
		data, err := marshalTable(part)
		part.Release()
		if err != nil {
			return fmt.Errorf("partition %s: %w", dir, err)
		}
		if err := fs.put(ctx, path.Join(baseKey, dir, partFileName), data); err != nil {
			return err
		}
	}
	return nil
}

func distinctInOrder(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func rowMask(mem memory.Allocator, dirs []string, dir string) (arrow.Array, error) {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	for _, d := range dirs {
		b.Append(d == dir)
	}
	return b.NewBooleanArray(), nil
}
