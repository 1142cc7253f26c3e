package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// marshalTable serializes a table into a parquet file in memory. The Arrow
// schema is stored alongside so a read-back yields identical column types.
func marshalTable(tbl arrow.Table) ([]byte, error) {
	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	chunk := tbl.NumRows()
	if chunk < 1 {
		chunk = 1
	}
	if err := pqarrow.WriteTable(tbl, &buf, chunk, props, arrProps); err != nil {
		return nil, fmt.Errorf("write parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// unmarshalTable materializes a parquet file held in memory.
func unmarshalTable(ctx context.Context, mem memory.Allocator, data []byte) (arrow.Table, error) {
	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(data),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return tbl, nil
}

// readParquetFile reads a single parquet file from a plain local path.
func readParquetFile(ctx context.Context, mem memory.Allocator, path string) (arrow.Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return unmarshalTable(ctx, mem, data)
}

// writeParquetFile writes a single parquet file to a plain local path. The
// parent directory must already exist; only emulation-mode object writes
// create directories.
func writeParquetFile(tbl arrow.Table, path string) error {
	data, err := marshalTable(tbl)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// tableRecords flattens a table into retained records. Callers own the
// returned records and must release them.
func tableRecords(tbl arrow.Table) []arrow.Record {
	chunk := tbl.NumRows()
	if chunk < 1 {
		chunk = 1
	}
	tr := array.NewTableReader(tbl, chunk)
	defer tr.Release()

	var recs []arrow.Record
	for tr.Next() {
		rec := tr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	return recs
}

func releaseRecords(recs []arrow.Record) {
	for _, r := range recs {
		r.Release()
	}
}

// mergeTables combines fragment tables into one. Ownership of the inputs
// transfers to mergeTables; the result is independently owned.
func mergeTables(tables []arrow.Table) (arrow.Table, error) {
	if len(tables) == 1 {
		return tables[0], nil
	}
	schema := tables[0].Schema()
	for _, t := range tables[1:] {
		if !t.Schema().Equal(schema) {
			err := fmt.Errorf("parquet fragments have mismatched schemas: %s vs %s", schema, t.Schema())
			releaseTables(tables)
			return nil, err
		}
	}
	var recs []arrow.Record
	for _, t := range tables {
		recs = append(recs, tableRecords(t)...)
	}
	defer releaseRecords(recs)
	merged := array.NewTableFromRecords(schema, recs)
	for _, t := range tables {
		t.Release()
	}
	return merged, nil
}

// readObject reads the table at key: a single parquet object when one exists
// there, otherwise a hive-partitioned dataset under the key prefix.
func readObject(ctx context.Context, mem memory.Allocator, fs objectFS, key string) (arrow.Table, error) {
	single, err := fs.isObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if single {
		data, err := fs.get(ctx, key)
		if err != nil {
			return nil, err
		}
		return unmarshalTable(ctx, mem, data)
	}
	return readDataset(ctx, mem, fs, key)
}
